package validate

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/vango-dev/formkit/pkg/errorbag"
)

// ErrUnknownRule is returned by Parse for rule names it does not know.
var ErrUnknownRule = errors.New("validate: unknown rule")

// RuleError describes a rule string that could not be parsed.
type RuleError struct {
	Rule string
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("validate: rule %q: %v", e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// Parse builds validators from a rule string such as "required,email,min=2".
func Parse(rules string) ([]Validator, error) {
	if strings.TrimSpace(rules) == "" {
		return nil, nil
	}

	parts := strings.Split(rules, ",")
	validators := make([]Validator, 0, len(parts))
	for _, rule := range parts {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		name, arg, _ := strings.Cut(rule, "=")
		v, err := validatorFromRule(name, arg)
		if err != nil {
			return nil, &RuleError{Rule: rule, Err: err}
		}
		validators = append(validators, v)
	}
	return validators, nil
}

func validatorFromRule(name, arg string) (Validator, error) {
	switch name {
	case "required":
		return Required(""), nil
	case "min":
		n, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, err
		}
		return sized(Min(n, ""), MinLength(int(n), "")), nil
	case "max":
		n, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, err
		}
		return sized(Max(n, ""), MaxLength(int(n), "")), nil
	case "minlen", "minlength":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, err
		}
		return MinLength(n, ""), nil
	case "maxlen", "maxlength":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, err
		}
		return MaxLength(n, ""), nil
	case "email":
		return Email(""), nil
	case "url":
		return URL(""), nil
	case "uuid":
		return UUID(""), nil
	case "alpha":
		return Alpha(""), nil
	case "alphanum", "alphanumeric":
		return AlphaNumeric(""), nil
	case "numeric":
		return Numeric(""), nil
	case "pattern", "regex":
		re, err := regexp.Compile(arg)
		if err != nil {
			return nil, err
		}
		return Pattern(re, ""), nil
	case "in":
		if arg == "" {
			return nil, errors.New("no options")
		}
		return In(strings.Split(arg, "|"), ""), nil
	default:
		return nil, ErrUnknownRule
	}
}

// Rules maps field names to rule strings.
type Rules map[string]string

// Validate reports the first rule string that does not parse.
func (r Rules) Validate() error {
	for _, field := range r.fields() {
		if _, err := Parse(r[field]); err != nil {
			return fmt.Errorf("field %q: %w", field, err)
		}
	}
	return nil
}

// Check runs every rule against data and returns the messages per failing
// field. Fields missing from data are checked as empty. Rule strings that
// do not parse are skipped; use Validate to catch them up front.
func (r Rules) Check(data map[string]any) *errorbag.Bag {
	bag := errorbag.New()
	for _, field := range r.fields() {
		validators, err := Parse(r[field])
		if err != nil {
			continue
		}
		value := data[field]
		for _, v := range validators {
			if err := v.Validate(value); err != nil {
				bag.Add(field, err.Error())
			}
		}
	}
	return bag
}

func (r Rules) fields() []string {
	fields := make([]string, 0, len(r))
	for field := range r {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	return fields
}
