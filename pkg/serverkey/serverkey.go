// Package serverkey encodes server identities to and from inventory hostnames.
//
// A server is identified by five positional fields joined with hyphens:
//
//	SCOPE-PROJECT-ENVIRONMENT-TYPE-INDEX
//	internal-acme-staging-web-03
//
// Scope, environment and type are closed enumerations with one lowercase
// symbol per variant. The project is lowercase alphanumeric and the index is
// exactly two digits. Decoding is all-or-nothing: a hostname either yields a
// complete Specification or nothing at all.
package serverkey

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const separator = "-"

var (
	projectPattern = regexp.MustCompile(`^[a-z0-9]+$`)
	indexPattern   = regexp.MustCompile(`^\d{2}$`)
)

// Wildcards used for fields left unset in a search pattern.
const (
	enumWildcard    = `[a-z]+`
	projectWildcard = `[a-z\d]+`
	indexWildcard   = `\d{2}`
)

// ErrIncomplete is returned when encoding a specification with unset fields.
var ErrIncomplete = errors.New("server specification is incomplete")

// ValidationError reports a field whose value violates its syntax or is not a known symbol.
type ValidationError struct {
	Field  Field
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid server specification: %s %q %s", e.Field, e.Value, e.Reason)
}

// Field identifies one of the five positional key segments.
type Field int

const (
	FieldScope Field = iota
	FieldProject
	FieldEnvironment
	FieldType
	FieldIndex
)

var fieldNames = [...]string{
	FieldScope:       "scope",
	FieldProject:     "project",
	FieldEnvironment: "environment",
	FieldType:        "type",
	FieldIndex:       "index",
}

// Fields returns the key segments in positional order.
func Fields() []Field {
	return []Field{FieldScope, FieldProject, FieldEnvironment, FieldType, FieldIndex}
}

func (f Field) String() string {
	if f < FieldScope || f > FieldIndex {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// Label returns the capitalised field name.
func (f Field) Label() string {
	name := f.String()
	return strings.ToUpper(name[:1]) + name[1:]
}

// Specification is the structured identity of a server. Zero-valued fields are unset.
type Specification struct {
	Scope       Scope
	Project     string
	Environment Environment
	Type        Type
	Index       string
}

// IsSet reports whether the field carries a value.
func (s Specification) IsSet(f Field) bool {
	switch f {
	case FieldScope:
		return s.Scope != ScopeUnset
	case FieldProject:
		return s.Project != ""
	case FieldEnvironment:
		return s.Environment != EnvironmentUnset
	case FieldType:
		return s.Type != TypeUnset
	case FieldIndex:
		return s.Index != ""
	}
	return false
}

// Value returns the key segment of a field ("" when unset).
func (s Specification) Value(f Field) string {
	switch f {
	case FieldScope:
		return s.Scope.String()
	case FieldProject:
		return s.Project
	case FieldEnvironment:
		return s.Environment.String()
	case FieldType:
		return s.Type.String()
	case FieldIndex:
		return s.Index
	}
	return ""
}

// Display returns the human label of a field: enum labels, raw project and index.
func (s Specification) Display(f Field) string {
	switch f {
	case FieldScope:
		return s.Scope.Label()
	case FieldEnvironment:
		return s.Environment.Label()
	case FieldType:
		return s.Type.Label()
	}
	return s.Value(f)
}

// With returns a copy of s with field f parsed from its key segment.
func (s Specification) With(f Field, value string) (Specification, error) {
	invalid := func(reason string) (Specification, error) {
		return s, &ValidationError{Field: f, Value: value, Reason: reason}
	}

	switch f {
	case FieldScope:
		v, ok := ParseScope(value)
		if !ok {
			return invalid("is not a known scope")
		}
		s.Scope = v
	case FieldProject:
		if !projectPattern.MatchString(value) {
			return invalid("must be lowercase alphanumeric")
		}
		s.Project = value
	case FieldEnvironment:
		v, ok := ParseEnvironment(value)
		if !ok {
			return invalid("is not a known environment")
		}
		s.Environment = v
	case FieldType:
		v, ok := ParseType(value)
		if !ok {
			return invalid("is not a known type")
		}
		s.Type = v
	case FieldIndex:
		if !indexPattern.MatchString(value) {
			return invalid("must be exactly two digits")
		}
		s.Index = value
	default:
		return invalid("is not a key field")
	}
	return s, nil
}

// Complete reports whether every field is set.
func (s Specification) Complete() bool {
	for _, f := range Fields() {
		if !s.IsSet(f) {
			return false
		}
	}
	return true
}

// Validate checks every set field. Unset fields are accepted; enum fields
// holding a value outside the known set are rejected.
func (s Specification) Validate() error {
	if s.Scope != ScopeUnset && !s.Scope.Valid() {
		return &ValidationError{Field: FieldScope, Value: fmt.Sprint(int(s.Scope)), Reason: "is not a known scope"}
	}
	if s.Project != "" && !projectPattern.MatchString(s.Project) {
		return &ValidationError{Field: FieldProject, Value: s.Project, Reason: "must be lowercase alphanumeric"}
	}
	if s.Environment != EnvironmentUnset && !s.Environment.Valid() {
		return &ValidationError{Field: FieldEnvironment, Value: fmt.Sprint(int(s.Environment)), Reason: "is not a known environment"}
	}
	if s.Type != TypeUnset && !s.Type.Valid() {
		return &ValidationError{Field: FieldType, Value: fmt.Sprint(int(s.Type)), Reason: "is not a known type"}
	}
	if s.Index != "" && !indexPattern.MatchString(s.Index) {
		return &ValidationError{Field: FieldIndex, Value: s.Index, Reason: "must be exactly two digits"}
	}
	return nil
}

// Key encodes the specification. See Encode.
func (s Specification) Key() (string, error) {
	return Encode(s)
}

// Encode joins a complete, valid specification into its key.
func Encode(s Specification) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}

	segments := make([]string, 0, len(fieldNames))
	for _, f := range Fields() {
		if !s.IsSet(f) {
			return "", fmt.Errorf("%w: %s is not set", ErrIncomplete, f)
		}
		segments = append(segments, s.Value(f))
	}

	return strings.Join(segments, separator), nil
}

// Decode parses a key into a complete specification. It returns false when the
// key does not have exactly five segments or when any segment is invalid.
func Decode(key string) (Specification, bool) {
	segments := strings.Split(key, separator)
	if len(segments) != len(fieldNames) {
		return Specification{}, false
	}

	var (
		spec Specification
		err  error
	)
	for i, f := range Fields() {
		if spec, err = spec.With(f, segments[i]); err != nil {
			return Specification{}, false
		}
	}

	return spec, true
}

// Pattern compiles an anchored expression matching every key compatible with
// the partial specification. Set fields match literally, unset fields match
// any value of the right shape.
func Pattern(partial Specification) (*regexp.Regexp, error) {
	if err := partial.Validate(); err != nil {
		return nil, err
	}

	wildcards := map[Field]string{
		FieldScope:       enumWildcard,
		FieldProject:     projectWildcard,
		FieldEnvironment: enumWildcard,
		FieldType:        enumWildcard,
		FieldIndex:       indexWildcard,
	}

	segments := make([]string, 0, len(fieldNames))
	for _, f := range Fields() {
		if partial.IsSet(f) {
			segments = append(segments, regexp.QuoteMeta(partial.Value(f)))
		} else {
			segments = append(segments, wildcards[f])
		}
	}

	return regexp.Compile("^" + strings.Join(segments, separator) + "$")
}

// ParseEntries decodes every hostname, silently dropping those that are not keys.
func ParseEntries(hostnames []string) []Specification {
	specs := make([]Specification, 0, len(hostnames))
	for _, hostname := range hostnames {
		if spec, ok := Decode(hostname); ok {
			specs = append(specs, spec)
		}
	}
	return specs
}
