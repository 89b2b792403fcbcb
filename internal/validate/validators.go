package validate

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Validator checks a single field value.
type Validator interface {
	// Validate returns nil if value is valid, or an error carrying the
	// message to show for the field.
	Validate(value any) error
}

// ValidatorFunc is a function that implements Validator.
type ValidatorFunc func(value any) error

// Validate calls f(value).
func (f ValidatorFunc) Validate(value any) error {
	return f(value)
}

// ValidationError is a single failed check.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// ----------------------------------------------------------------------------
// String Validators
// ----------------------------------------------------------------------------

// Required validates that the value is non-empty.
func Required(msg string) Validator {
	if msg == "" {
		msg = "This field is required"
	}
	return ValidatorFunc(func(value any) error {
		if isEmpty(value) {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// MinLength validates that a string has at least n characters.
func MinLength(n int, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at least %d characters", n)
	}
	return ValidatorFunc(func(value any) error {
		s := toString(value)
		if s == "" {
			return nil
		}
		if len([]rune(s)) < n {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// MaxLength validates that a string has at most n characters.
func MaxLength(n int, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at most %d characters", n)
	}
	return ValidatorFunc(func(value any) error {
		if len([]rune(toString(value))) > n {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// Pattern validates that a string matches re.
func Pattern(re *regexp.Regexp, msg string) Validator {
	if msg == "" {
		msg = "Invalid format"
	}
	return stringCheck(msg, re.MatchString)
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Email validates that the value looks like an email address.
func Email(msg string) Validator {
	if msg == "" {
		msg = "Invalid email address"
	}
	return stringCheck(msg, emailPattern.MatchString)
}

// URL validates that the value is an absolute URL.
func URL(msg string) Validator {
	if msg == "" {
		msg = "Invalid URL"
	}
	return stringCheck(msg, func(s string) bool {
		u, err := url.Parse(s)
		return err == nil && u.Scheme != "" && u.Host != ""
	})
}

// canonicalUUIDLen is the length of the hyphenated xxxxxxxx-xxxx-... form.
const canonicalUUIDLen = 36

// UUID validates that the value is a UUID in canonical form.
func UUID(msg string) Validator {
	if msg == "" {
		msg = "Invalid UUID"
	}
	return stringCheck(msg, func(s string) bool {
		return len(s) == canonicalUUIDLen && uuid.Validate(s) == nil
	})
}

// Alpha validates that the value contains only letters.
func Alpha(msg string) Validator {
	if msg == "" {
		msg = "Must contain only letters"
	}
	return stringCheck(msg, func(s string) bool {
		return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }) < 0
	})
}

// AlphaNumeric validates that the value contains only letters and digits.
func AlphaNumeric(msg string) Validator {
	if msg == "" {
		msg = "Must contain only letters and numbers"
	}
	return stringCheck(msg, func(s string) bool {
		return strings.IndexFunc(s, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) < 0
	})
}

// Numeric validates that the value contains only digits.
func Numeric(msg string) Validator {
	if msg == "" {
		msg = "Must contain only numbers"
	}
	return stringCheck(msg, func(s string) bool {
		return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0
	})
}

// In validates that the value is one of options.
func In(options []string, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be one of: %s", strings.Join(options, ", "))
	}
	return stringCheck(msg, func(s string) bool {
		return slices.Contains(options, s)
	})
}

// stringCheck builds a validator that skips empty values and fails when ok
// returns false.
func stringCheck(msg string, ok func(string) bool) Validator {
	return ValidatorFunc(func(value any) error {
		s := toString(value)
		if s == "" {
			return nil
		}
		if !ok(s) {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// ----------------------------------------------------------------------------
// Numeric Validators
// ----------------------------------------------------------------------------

// Min validates that a numeric value is >= n.
func Min(n float64, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at least %v", n)
	}
	return ValidatorFunc(func(value any) error {
		if isEmpty(value) {
			return nil
		}
		if v, ok := toFloat64(value); !ok || v < n {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// Max validates that a numeric value is <= n.
func Max(n float64, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at most %v", n)
	}
	return ValidatorFunc(func(value any) error {
		if isEmpty(value) {
			return nil
		}
		if v, ok := toFloat64(value); !ok || v > n {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// sized picks the numeric validator for numbers and the length validator
// for everything else. Form payloads are untyped, so the choice is made per
// value.
func sized(numeric, length Validator) Validator {
	return ValidatorFunc(func(value any) error {
		if isNumber(value) {
			return numeric.Validate(value)
		}
		return length.Validate(value)
	})
}

// ----------------------------------------------------------------------------
// Helper Functions
// ----------------------------------------------------------------------------

// isEmpty checks if a value is considered empty. Zero numbers and false are
// present values.
func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []byte:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

func isNumber(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	}
	return false
}

// toString converts a value to a string.
func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toFloat64 converts a value to float64.
func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
