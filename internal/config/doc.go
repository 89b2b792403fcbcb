// Package config provides configuration parsing for formkit.
//
// The configuration lives in formkit.yaml (or formkit.json) and covers the
// submitting client, the development server and logging. Values from the
// environment override the file.
//
// # Configuration File Structure
//
//	client:
//	  baseURL: http://localhost:8090
//	  timeout: 10s
//	  transport: http
//	  rateLimit: 5
//	  burst: 1
//	  headers:
//	    Authorization: Bearer dev-token
//	server:
//	  addr: :8090
//	  forms:
//	    users:
//	      name: required,min=2
//	      email: required,email
//	log:
//	  level: info
//	  format: text
//
// # Environment
//
//	FORMKIT_BASE_URL   client.baseURL
//	FORMKIT_TIMEOUT    client.timeout
//	FORMKIT_ADDR       server.addr
//	FORMKIT_LOG_LEVEL  log.level
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Base URL:", cfg.Client.BaseURL)
package config
