// Package funcs registers the callable functions a query program can
// invoke during grounding. Handlers receive already-evaluated literal
// arguments and return zero or more literal values; the engine splices
// the rendered values back into the program text.
package funcs

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Kind discriminates the literal types a handler can see or produce.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindFloat
)

// Value is one literal argument or result.
type Value struct {
	Kind  Kind
	Str   string
	Num   int64
	Float float64
}

// StringValue wraps s as a string literal.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// NumberValue wraps n as an integer literal.
func NumberValue(n int64) Value { return Value{Kind: KindNumber, Num: n} }

// FloatValue wraps f as a float literal.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// Render formats the value as program-text syntax.
func (v Value) Render() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatInt(v.Num, 10)
	case KindFloat:
		s := strconv.FormatFloat(v.Float, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	default:
		return strconv.Quote(v.Str)
	}
}

// Handler evaluates one function call. Returning no values removes the
// carrying line from the program; returning several duplicates it once
// per value.
type Handler func(args []Value) ([]Value, error)

// Registry maps function names to handlers and tracks which handlers
// consult the current date, so solve results that depend on them can be
// given a bounded validity window.
type Registry struct {
	mu            sync.RWMutex
	handlers      map[string]Handler
	dateDependent map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers:      make(map[string]Handler),
		dateDependent: make(map[string]bool),
	}
}

// Register adds or replaces a handler.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
	delete(r.dateDependent, name)
}

// RegisterDateDependent adds or replaces a handler whose output depends
// on the current date.
func (r *Registry) RegisterDateDependent(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
	r.dateDependent[name] = true
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// IsDateDependent reports whether name is registered as consulting the
// current date.
func (r *Registry) IsDateDependent(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dateDependent[name]
}

// Names returns the registered function names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
