package serverkey

import "strings"

// symbol is the canonical lowercase token of an enum variant and its display label.
type symbol struct {
	name  string
	label string
}

// lookup resolves name case-insensitively against defs. Index 0 is the unset variant.
func lookup(defs []symbol, name string) (int, bool) {
	for i := 1; i < len(defs); i++ {
		if strings.EqualFold(defs[i].name, name) {
			return i, true
		}
	}
	return 0, false
}

// Scope is the ownership scope of a server (client or internal).
type Scope int

const (
	ScopeUnset Scope = iota
	ScopeClient
	ScopeInternal
)

var scopeSymbols = []symbol{
	ScopeUnset:    {},
	ScopeClient:   {name: "client", label: "Client"},
	ScopeInternal: {name: "internal", label: "Internal"},
}

// Scopes returns every known scope in declaration order.
func Scopes() []Scope {
	return []Scope{ScopeClient, ScopeInternal}
}

// ParseScope resolves a scope symbol, ignoring case.
func ParseScope(name string) (Scope, bool) {
	i, ok := lookup(scopeSymbols, name)
	return Scope(i), ok
}

// Valid reports whether s is a known, set scope.
func (s Scope) Valid() bool { return s > ScopeUnset && int(s) < len(scopeSymbols) }

// String returns the key symbol, or "" when unset or unknown.
func (s Scope) String() string {
	if !s.Valid() {
		return ""
	}
	return scopeSymbols[s].name
}

// Label returns the human readable name.
func (s Scope) Label() string {
	if !s.Valid() {
		return ""
	}
	return scopeSymbols[s].label
}

// Environment is the deployment stage of a server.
type Environment int

const (
	EnvironmentUnset Environment = iota
	EnvironmentDemo
	EnvironmentIntegration
	EnvironmentStaging
	EnvironmentProduction
)

var environmentSymbols = []symbol{
	EnvironmentUnset:       {},
	EnvironmentDemo:        {name: "demo", label: "Demo"},
	EnvironmentIntegration: {name: "integration", label: "Integration"},
	EnvironmentStaging:     {name: "staging", label: "Staging"},
	EnvironmentProduction:  {name: "production", label: "Production"},
}

// Environments returns every known environment in declaration order.
func Environments() []Environment {
	return []Environment{EnvironmentDemo, EnvironmentIntegration, EnvironmentStaging, EnvironmentProduction}
}

// ParseEnvironment resolves an environment symbol, ignoring case.
func ParseEnvironment(name string) (Environment, bool) {
	i, ok := lookup(environmentSymbols, name)
	return Environment(i), ok
}

func (e Environment) Valid() bool { return e > EnvironmentUnset && int(e) < len(environmentSymbols) }

func (e Environment) String() string {
	if !e.Valid() {
		return ""
	}
	return environmentSymbols[e].name
}

func (e Environment) Label() string {
	if !e.Valid() {
		return ""
	}
	return environmentSymbols[e].label
}

// Type is the role of a server.
type Type int

const (
	TypeUnset Type = iota
	TypeWeb
	TypeDatabase
)

var typeSymbols = []symbol{
	TypeUnset:    {},
	TypeWeb:      {name: "web", label: "Web"},
	TypeDatabase: {name: "database", label: "Database"},
}

// Types returns every known server type in declaration order.
func Types() []Type {
	return []Type{TypeWeb, TypeDatabase}
}

// ParseType resolves a type symbol, ignoring case.
func ParseType(name string) (Type, bool) {
	i, ok := lookup(typeSymbols, name)
	return Type(i), ok
}

func (t Type) Valid() bool { return t > TypeUnset && int(t) < len(typeSymbols) }

func (t Type) String() string {
	if !t.Valid() {
		return ""
	}
	return typeSymbols[t].name
}

func (t Type) Label() string {
	if !t.Valid() {
		return ""
	}
	return typeSymbols[t].label
}
