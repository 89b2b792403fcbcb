// Package validate checks form payloads against rule strings.
//
// Rules use a comma-separated syntax with optional arguments:
//
//	rules := validate.Rules{
//	    "name":  "required,min=2,max=64",
//	    "email": "required,email",
//	    "role":  "in=admin|member",
//	}
//	bag := rules.Check(payload)
//	if bag.Any() {
//	    // bag holds the messages per failing field
//	}
//
// Every validator except required passes on empty values, so optional
// fields only need rules for the shape they must have when present.
//
// Available rules: required, min, max, minlen, maxlen, email, url, uuid,
// numeric, alpha, alphanum, pattern (alias regex), in. The min and max rules
// compare numbers by value and strings by length. Arguments may not contain
// commas.
package validate
