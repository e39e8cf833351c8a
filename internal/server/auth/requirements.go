package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 24
	MinPasswordLength = 8
	MaxPasswordLength = 64
	MinEmailLength    = 3
	MaxEmailLength    = 254
)

// FieldKind selects the rule catalog a value is evaluated against.
type FieldKind string

const (
	FieldUsername FieldKind = "username"
	FieldPassword FieldKind = "password"
	FieldEmail    FieldKind = "email"
)

// ParseFieldKind maps a request path segment to a FieldKind.
func ParseFieldKind(s string) (FieldKind, bool) {
	switch FieldKind(s) {
	case FieldUsername, FieldPassword, FieldEmail:
		return FieldKind(s), true
	}
	return "", false
}

// Rule labels shown to the user. Each catalog lists its rules in display order.
var (
	UsernameRequirements = []Requirement{
		{ID: "length", Label: "Between 3 and 24 characters long"},
		{ID: "spaces", Label: "No spaces"},
	}
	PasswordRequirements = []Requirement{
		{ID: "length", Label: "Between 8 and 64 characters long"},
		{ID: "lowercase", Label: "At least one lowercase letter"},
		{ID: "uppercase", Label: "At least one uppercase letter"},
		{ID: "number", Label: "At least one number"},
		{ID: "special-character", Label: "At least one special character"},
	}
	EmailRequirements = []Requirement{
		{ID: "length", Label: "Between 3 and 254 characters long"},
	}
)

type Requirement struct {
	ID    string
	Label string
}

// RequirementCheckResult partitions a catalog's labels by outcome.
type RequirementCheckResult struct {
	Satisfied   []string `json:"satisfied"`
	Unsatisfied []string `json:"unsatisfied"`
}

// OK reports whether every rule was satisfied.
func (r RequirementCheckResult) OK() bool {
	return len(r.Unsatisfied) == 0
}

func check(catalog []Requirement, passed map[string]bool) RequirementCheckResult {
	res := RequirementCheckResult{
		Satisfied:   make([]string, 0, len(catalog)),
		Unsatisfied: make([]string, 0, len(catalog)),
	}
	for _, req := range catalog {
		if passed[req.ID] {
			res.Satisfied = append(res.Satisfied, req.Label)
		} else {
			res.Unsatisfied = append(res.Unsatisfied, req.Label)
		}
	}
	return res
}

func inRange(n, lo, hi int) bool {
	return n >= lo && n <= hi
}

// EvaluateUsername counts length without whitespace; any whitespace, or an
// empty name, fails the spaces rule.
func EvaluateUsername(s string) RequirementCheckResult {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	return check(UsernameRequirements, map[string]bool{
		"length": inRange(utf8.RuneCountInString(stripped), MinUsernameLength, MaxUsernameLength),
		"spaces": s != "" && !strings.ContainsFunc(s, unicode.IsSpace),
	})
}

func EvaluatePassword(s string) RequirementCheckResult {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	return check(PasswordRequirements, map[string]bool{
		"length":            inRange(utf8.RuneCountInString(s), MinPasswordLength, MaxPasswordLength),
		"lowercase":         hasLower,
		"uppercase":         hasUpper,
		"number":            hasDigit,
		"special-character": hasSpecial,
	})
}

func EvaluateEmail(s string) RequirementCheckResult {
	return check(EmailRequirements, map[string]bool{
		"length": inRange(utf8.RuneCountInString(s), MinEmailLength, MaxEmailLength),
	})
}

// Evaluate dispatches on kind. An unknown kind yields an empty result.
func Evaluate(kind FieldKind, s string) RequirementCheckResult {
	switch kind {
	case FieldUsername:
		return EvaluateUsername(s)
	case FieldPassword:
		return EvaluatePassword(s)
	case FieldEmail:
		return EvaluateEmail(s)
	}
	return RequirementCheckResult{Satisfied: []string{}, Unsatisfied: []string{}}
}
