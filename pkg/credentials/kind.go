package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Kind identifies a class of credentials. Every kind is paired with a JSON
// schema that records must satisfy before they are stored.
type Kind string

const (
	// KindBitbucketOAuth2 is a Bitbucket OAuth consumer key/secret pair.
	KindBitbucketOAuth2 Kind = "bitbucket-oauth2"
)

// ErrUnknownKind is returned for kinds without a registered schema.
var ErrUnknownKind = errors.New("unknown credential kind")

const bitbucketOAuth2Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Bitbucket OAuth2 consumer",
  "type": "object",
  "properties": {
    "consumerKey": {
      "type": "string",
      "minLength": 18,
      "maxLength": 18,
      "pattern": "^[A-Za-z0-9]+$"
    },
    "consumerSecret": {
      "type": "string",
      "minLength": 32,
      "maxLength": 32,
      "pattern": "^[A-Za-z0-9]+$"
    }
  },
  "required": ["consumerKey", "consumerSecret"],
  "additionalProperties": false
}`

type kindRule struct {
	fields []string
	schema *gojsonschema.Schema
}

var (
	kindsMu sync.RWMutex
	kinds   = map[Kind]*kindRule{}
)

func init() {
	if err := RegisterKind(KindBitbucketOAuth2, bitbucketOAuth2Schema); err != nil {
		panic(err)
	}
}

// RegisterKind compiles schema and associates it with kind, replacing any
// previous rule. The schema's top-level properties become the kind's fields.
func RegisterKind(kind Kind, schema string) error {
	if kind == "" {
		return errors.New("credential kind must not be empty")
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return fmt.Errorf("invalid schema for %s: %w", kind, err)
	}

	var doc struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal([]byte(schema), &doc); err != nil {
		return fmt.Errorf("invalid schema for %s: %w", kind, err)
	}

	fields := make([]string, 0, len(doc.Properties))
	for name := range doc.Properties {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	kindsMu.Lock()
	defer kindsMu.Unlock()
	kinds[kind] = &kindRule{fields: fields, schema: compiled}
	return nil
}

// ParseKind resolves a kind identifier.
func ParseKind(id string) (Kind, error) {
	k := Kind(strings.TrimSpace(id))
	if _, err := k.rule(); err != nil {
		return "", err
	}
	return k, nil
}

// Kinds lists the registered kinds, sorted.
func Kinds() []Kind {
	kindsMu.RLock()
	defer kindsMu.RUnlock()

	out := make([]Kind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (k Kind) String() string { return string(k) }

func (k Kind) rule() (*kindRule, error) {
	kindsMu.RLock()
	defer kindsMu.RUnlock()

	r, ok := kinds[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
	}
	return r, nil
}

// Fields returns the field names declared by the kind's schema.
func (k Kind) Fields() ([]string, error) {
	r, err := k.rule()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), r.fields...), nil
}

// SchemaError lists every schema violation of a record. Values are never
// included, only the offending field and rule.
type SchemaError struct {
	Kind     Kind
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid %s credentials:\n  - %s", e.Kind, strings.Join(e.Problems, "\n  - "))
}

// Validate checks record against the kind's schema.
func (k Kind) Validate(record Record) error {
	r, err := k.rule()
	if err != nil {
		return err
	}

	if record == nil {
		record = Record{}
	}
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	result, err := r.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	sort.Strings(problems)
	return &SchemaError{Kind: k, Problems: problems}
}
