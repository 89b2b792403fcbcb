package errors

// Template defines a registered error type.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Configuration Errors (F100-F119)
	// ============================================

	"F100": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
	},
	"F101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
	},
	"F102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	"F103": {
		Category: CategoryConfig,
		Message:  "Invalid validation rules",
	},
	"F104": {
		Category: CategoryConfig,
		Message:  "Unsupported configuration format",
		Detail:   "Configuration files must end in .json, .yaml or .yml.",
	},

	// ============================================
	// CLI Errors (F120-F139)
	// ============================================

	"F120": {
		Category: CategoryCLI,
		Message:  "Invalid field argument",
		Detail:   "Fields are passed as --field name=value.",
	},
	"F121": {
		Category: CategoryCLI,
		Message:  "Unsupported transport",
		Detail:   "The transport must be http or ws.",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
