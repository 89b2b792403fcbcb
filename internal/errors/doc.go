// Package errors provides coded, actionable errors for the formkit CLI and
// its configuration layer.
//
// Each code maps to a registered template carrying a category, a short
// message and a longer explanation. Call sites add what they know:
//
//	err := errors.New("F100").
//	    WithDetail("No formkit.yaml in " + dir).
//	    WithSuggestion("Pass --config or create formkit.yaml")
//
//	errors.PrintError(err)
//	// ERROR F100: Configuration file not found
//	//
//	//   No formkit.yaml in /srv/app
//	//
//	//   Hint: Pass --config or create formkit.yaml
//
// Codes are grouped by category:
//   - F100-F119: configuration
//   - F120-F139: command line
package errors
