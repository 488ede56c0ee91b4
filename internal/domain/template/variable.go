package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DataType is the value type of a template variable.
type DataType string

// Supported variable data types.
const (
	TypeString   DataType = "string"
	TypeDate     DataType = "date"
	TypeNumber   DataType = "number"
	TypeCurrency DataType = "currency"
	TypeAddress  DataType = "address"
	TypeEmail    DataType = "email"
	TypePhone    DataType = "phone"
	TypeBoolean  DataType = "boolean"
)

var (
	keyRegex  = regexp.MustCompile(`^\w+$`)
	dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ParseDataType parses a data type name. Empty means string.
func ParseDataType(s string) (DataType, error) {
	switch DataType(strings.ToLower(strings.TrimSpace(s))) {
	case "", TypeString:
		return TypeString, nil
	case TypeDate:
		return TypeDate, nil
	case TypeNumber:
		return TypeNumber, nil
	case TypeCurrency:
		return TypeCurrency, nil
	case TypeAddress:
		return TypeAddress, nil
	case TypeEmail:
		return TypeEmail, nil
	case TypePhone:
		return TypePhone, nil
	case TypeBoolean:
		return TypeBoolean, nil
	default:
		return "", fmt.Errorf("unknown data type %q", s)
	}
}

// VariableSpec is the input of NewVariable.
type VariableSpec struct {
	Key           string
	Label         string
	Description   string
	Example       string
	Required      bool
	DataType      string
	Pattern       string
	AllowedValues []string
	Question      string
}

// Variable is a fillable placeholder owned by one template.
type Variable struct {
	key           string
	label         string
	description   string
	example       string
	required      bool
	dataType      DataType
	pattern       string
	allowedValues []string
	question      string

	re *regexp.Regexp
}

// NewVariable validates and creates a Variable.
func NewVariable(s VariableSpec) (Variable, error) {
	if !keyRegex.MatchString(s.Key) {
		return Variable{}, fmt.Errorf("variable key %q must match \\w+", s.Key)
	}
	dt, err := ParseDataType(s.DataType)
	if err != nil {
		return Variable{}, fmt.Errorf("variable %s: %w", s.Key, err)
	}

	var re *regexp.Regexp
	if s.Pattern != "" {
		re, err = compileAnchored(s.Pattern)
		if err != nil {
			return Variable{}, fmt.Errorf("variable %s: invalid pattern: %w", s.Key, err)
		}
	}

	label := strings.TrimSpace(s.Label)
	if label == "" {
		label = strings.ReplaceAll(s.Key, "_", " ")
	}

	return Variable{
		key:           s.Key,
		label:         label,
		description:   s.Description,
		example:       s.Example,
		required:      s.Required,
		dataType:      dt,
		pattern:       s.Pattern,
		allowedValues: dedupTags(s.AllowedValues),
		question:      strings.TrimSpace(s.Question),
		re:            re,
	}, nil
}

// ReconstructVariable creates a Variable from stored data.
// A stored pattern that no longer compiles is dropped.
func ReconstructVariable(s VariableSpec) Variable {
	dt, err := ParseDataType(s.DataType)
	if err != nil {
		dt = TypeString
	}
	var re *regexp.Regexp
	if s.Pattern != "" {
		re, _ = compileAnchored(s.Pattern)
	}
	return Variable{
		key:           s.Key,
		label:         s.Label,
		description:   s.Description,
		example:       s.Example,
		required:      s.Required,
		dataType:      dt,
		pattern:       s.Pattern,
		allowedValues: s.AllowedValues,
		question:      s.Question,
		re:            re,
	}
}

// Key returns the placeholder key.
func (v Variable) Key() string { return v.key }

// Label returns the human label.
func (v Variable) Label() string { return v.label }

// Description returns the variable description.
func (v Variable) Description() string { return v.description }

// Example returns an example value.
func (v Variable) Example() string { return v.example }

// Required reports whether a value is mandatory.
func (v Variable) Required() bool { return v.required }

// DataType returns the value type.
func (v Variable) DataType() DataType { return v.dataType }

// Pattern returns the validation regex source, empty if none.
func (v Variable) Pattern() string { return v.pattern }

// AllowedValues returns the permitted values, nil if unrestricted.
func (v Variable) AllowedValues() []string { return v.allowedValues }

// StoredQuestion returns the question as stored, possibly empty.
func (v Variable) StoredQuestion() string { return v.question }

// Question returns the prompt shown to the user.
func (v Variable) Question() string {
	if v.question != "" {
		return v.question
	}
	return fmt.Sprintf("What is the %s?", v.label)
}

// Spec returns the variable as a plain spec (for persistence).
func (v Variable) Spec() VariableSpec {
	return VariableSpec{
		Key:           v.key,
		Label:         v.label,
		Description:   v.description,
		Example:       v.example,
		Required:      v.required,
		DataType:      string(v.dataType),
		Pattern:       v.pattern,
		AllowedValues: v.allowedValues,
		Question:      v.question,
	}
}

// Normalize checks a candidate value against the variable rules.
// It returns the canonical value and true, or nil and false when the value is unusable.
// Allowed values match case-insensitively and return the canonical casing.
// Booleans come back as bool, everything else as a trimmed string.
func (v Variable) Normalize(value any) (any, bool) {
	if value == nil {
		return nil, false
	}
	s := strings.TrimSpace(fmt.Sprint(value))
	if s == "" {
		return nil, false
	}

	if len(v.allowedValues) > 0 {
		for _, allowed := range v.allowedValues {
			if strings.EqualFold(s, allowed) {
				return allowed, true
			}
		}
		return nil, false
	}

	if v.re != nil && !v.re.MatchString(s) {
		return nil, false
	}

	switch v.dataType {
	case TypeDate:
		if !dateRegex.MatchString(s) {
			return nil, false
		}
	case TypeNumber, TypeCurrency:
		cleaned := strings.NewReplacer("%", "", "$", "", ",", "").Replace(s)
		if _, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64); err != nil {
			return nil, false
		}
	case TypeBoolean:
		switch strings.ToLower(s) {
		case "true", "yes", "enabled", "1":
			return true, true
		case "false", "no", "disabled", "0":
			return false, true
		default:
			return nil, false
		}
	}
	return s, true
}

// Patterns are matched from the start of the value.
func compileAnchored(pattern string) (*regexp.Regexp, error) {
	if strings.HasPrefix(pattern, "^") {
		return regexp.Compile(pattern)
	}
	return regexp.Compile("^(?:" + pattern + ")")
}
