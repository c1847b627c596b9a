// Package registry maps message type names, as persisted with outbox and
// scheduled rows, to Go types that payloads can be decoded into.
package registry

import (
	"encoding/json"
	"reflect"
	"sort"
	"sync"

	"github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/messaging/domain"
)

// ErrAlreadyRegistered indicates a name or Go type is already bound.
var ErrAlreadyRegistered = errors.Wrap(errors.ErrConflict, "message type already registered")

// Factory returns a pointer to a new zero value of a registered type.
type Factory func() any

// Named is implemented by payloads that carry their own type name.
type Named interface {
	MessageTypeName() string
}

type binding struct {
	name    string
	goType  reflect.Type
	factory Factory
}

// Registry is safe for concurrent use. Populate it at startup.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]binding
	byType map[reflect.Type]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byName: make(map[string]binding),
		byType: make(map[reflect.Type]string),
	}
}

// Register binds name to T. Payloads of type T or *T resolve back to name.
func Register[T any](r *Registry, name string) error {
	goType := reflect.TypeFor[T]()
	return r.bind(binding{
		name:    name,
		goType:  goType,
		factory: func() any { return new(T) },
	}, true)
}

// MustRegister is Register that panics on error.
func MustRegister[T any](r *Registry, name string) {
	if err := Register[T](r, name); err != nil {
		panic(err)
	}
}

// RegisterRaw binds name to an opaque JSON document. It lets a process relay
// messages whose Go type lives in another service.
func (r *Registry) RegisterRaw(name string) error {
	return r.bind(binding{
		name:    name,
		goType:  reflect.TypeFor[json.RawMessage](),
		factory: func() any { return new(json.RawMessage) },
	}, false)
}

func (r *Registry) bind(b binding, reverse bool) error {
	if b.name == "" {
		return domain.ErrEmptyMessageType
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[b.name]; ok {
		return errors.Wrapf(ErrAlreadyRegistered, "name %q", b.name)
	}
	if reverse {
		if existing, ok := r.byType[b.goType]; ok {
			return errors.Wrapf(ErrAlreadyRegistered, "type %s is bound to %q", b.goType, existing)
		}
		r.byType[b.goType] = b.name
	}
	r.byName[b.name] = b
	return nil
}

// Resolve returns the factory for name.
func (r *Registry) Resolve(name string) (Factory, error) {
	if name == "" {
		return nil, domain.ErrEmptyMessageType
	}

	r.mu.RLock()
	b, ok := r.byName[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(domain.ErrUnknownMessageType, "%q", name)
	}
	return b.factory, nil
}

// New returns a new instance of the type bound to name.
func (r *Registry) New(name string) (any, error) {
	factory, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	return factory(), nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, err := r.Resolve(name)
	return err == nil
}

// NameOf returns the registered name for payload's type.
func (r *Registry) NameOf(payload any) (string, error) {
	if named, ok := payload.(Named); ok {
		name := named.MessageTypeName()
		if !r.Has(name) {
			return "", errors.Wrapf(domain.ErrUnknownMessageType, "%q", name)
		}
		return name, nil
	}

	goType := reflect.TypeOf(payload)
	if goType == nil {
		return "", errors.Wrap(domain.ErrUnknownMessageType, "nil payload")
	}
	if goType.Kind() == reflect.Pointer {
		goType = goType.Elem()
	}

	r.mu.RLock()
	name, ok := r.byType[goType]
	r.mu.RUnlock()

	if !ok {
		return "", errors.Wrapf(domain.ErrUnknownMessageType, "go type %s", goType)
	}
	return name, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
