package wirestream

import (
	"reflect"
	"sync"
)

// TypeModel is the mapping-layer handle a Reader descends through when it
// meets a nested message. The model decides, per type key, how to populate
// a value from the reader; the reader supplies framing and typed reads.
type TypeModel interface {
	// Deserialize populates (or replaces) value by walking the fields of
	// the sub-message the reader is currently positioned inside.
	Deserialize(key int, value any, r *Reader) (any, error)

	// ResolveKey returns the type key registered for t.
	ResolveKey(t reflect.Type) (int, bool)

	// ResolveName returns the type registered under name, for polymorphic
	// payloads carrying a type name.
	ResolveName(name string) (reflect.Type, bool)
}

// Deserializer decodes one registered type from a reader positioned inside
// its sub-message. value is the existing instance to merge into, or nil.
type Deserializer func(r *Reader, value any) (any, error)

// Registration holds the metadata for one registered type.
type Registration struct {
	// Key is the small-integer type key used on the wire.
	Key int

	// Name is the fully qualified type name.
	Name string

	// Type is the registered Go type.
	Type reflect.Type

	// Deserialize decodes an instance of the type.
	Deserialize Deserializer
}

// Registry is a TypeModel backed by explicit per-key deserializers.
// It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	byKey  map[int]*Registration
	byType map[reflect.Type]*Registration
	byName map[string]*Registration
}

// NewRegistry creates an empty type registry.
func NewRegistry() *Registry {
	return &Registry{
		byKey:  make(map[int]*Registration),
		byType: make(map[reflect.Type]*Registration),
		byName: make(map[string]*Registration),
	}
}

// Register binds key to the type of prototype and its deserializer.
// Registering the same key or type twice is an error.
func (g *Registry) Register(key int, prototype any, fn Deserializer) error {
	if prototype == nil || fn == nil {
		return ErrUnknownTypeKey
	}
	t := reflect.TypeOf(prototype)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.byKey[key]; exists {
		return ErrDuplicateTypeKey
	}
	if _, exists := g.byType[t]; exists {
		return ErrDuplicateTypeKey
	}
	reg := &Registration{
		Key:         key,
		Name:        t.String(),
		Type:        t,
		Deserialize: fn,
	}
	g.byKey[key] = reg
	g.byType[t] = reg
	g.byName[reg.Name] = reg
	return nil
}

// Deserialize dispatches to the deserializer registered for key.
func (g *Registry) Deserialize(key int, value any, r *Reader) (any, error) {
	g.mu.RLock()
	reg := g.byKey[key]
	g.mu.RUnlock()

	if reg == nil {
		return value, ErrUnknownTypeKey
	}
	return reg.Deserialize(r, value)
}

// ResolveKey returns the type key registered for t.
func (g *Registry) ResolveKey(t reflect.Type) (int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	reg := g.byType[t]
	if reg == nil {
		return 0, false
	}
	return reg.Key, true
}

// ResolveName returns the type registered under name.
func (g *Registry) ResolveName(name string) (reflect.Type, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	reg := g.byName[name]
	if reg == nil {
		return nil, false
	}
	return reg.Type, true
}
