package validate

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		rules string
		count int
	}{
		{"", 0},
		{"required", 1},
		{"required, email ,", 2},
		{"required,min=2,max=10,in=a|b", 4},
		{"regex=^[a-z]+$", 1},
	}
	for _, tt := range tests {
		validators, err := Parse(tt.rules)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.rules, err)
			continue
		}
		if len(validators) != tt.count {
			t.Errorf("Parse(%q) = %d validators, want %d", tt.rules, len(validators), tt.count)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []string{
		"required,bogus",
		"min=abc",
		"maxlen=",
		"pattern=[",
		"in",
	}
	for _, rules := range tests {
		_, err := Parse(rules)
		var rerr *RuleError
		if !errors.As(err, &rerr) {
			t.Errorf("Parse(%q) error = %v, want *RuleError", rules, err)
		}
	}

	_, err := Parse("bogus")
	if !errors.Is(err, ErrUnknownRule) {
		t.Errorf("Parse(bogus) error = %v, want ErrUnknownRule", err)
	}
}

func TestRulesCheck(t *testing.T) {
	rules := Rules{
		"name":  "required,min=2",
		"email": "required,email",
		"age":   "min=18",
		"role":  "in=admin|member",
	}

	bag := rules.Check(map[string]any{
		"name":  "A",
		"email": "",
		"age":   float64(12),
		"role":  "member",
	})

	want := map[string][]string{
		"age":   {"Must be at least 18"},
		"email": {"This field is required"},
		"name":  {"Must be at least 2 characters"},
	}
	if diff := cmp.Diff(want, bag.All()); diff != "" {
		t.Errorf("Check() mismatch (-want +got):\n%s", diff)
	}
}

func TestRulesCheck_MissingFieldsAndValid(t *testing.T) {
	rules := Rules{"name": "required", "nickname": "min=3"}

	bag := rules.Check(map[string]any{"nickname": "Al"})
	if !bag.Has("name") {
		t.Error("missing required field should fail")
	}
	if first, _ := bag.First("nickname"); first != "Must be at least 3 characters" {
		t.Errorf("First(nickname) = %q", first)
	}

	bag = rules.Check(map[string]any{"name": "Ada"})
	if bag.Any() {
		t.Errorf("Check() = %v, want no errors", bag.All())
	}
}

func TestRulesValidate(t *testing.T) {
	if err := (Rules{"a": "required", "b": "email"}).Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
	err := (Rules{"a": "required", "b": "nope"}).Validate()
	if !errors.Is(err, ErrUnknownRule) {
		t.Errorf("Validate() error = %v, want ErrUnknownRule", err)
	}
}
