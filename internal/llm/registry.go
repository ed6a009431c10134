package llm

import (
	"fmt"
	"strings"

	"github.com/ashita-ai/quill/internal/model"
)

// Registry holds the configured backends in listing order. It is built
// once at startup and is read-only afterwards.
type Registry struct {
	order    []string
	byName   map[string]Provider
	fallback string
}

// NewRegistry creates a registry. The first provider listed is the default
// unless SetDefault names another.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{byName: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p == nil {
			continue
		}
		name := strings.ToLower(p.Name())
		if _, dup := r.byName[name]; dup {
			continue
		}
		r.order = append(r.order, name)
		r.byName[name] = p
	}
	if len(r.order) > 0 {
		r.fallback = r.order[0]
	}
	return r
}

// SetDefault selects the provider used when a run names none.
func (r *Registry) SetDefault(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil
	}
	if _, ok := r.byName[name]; !ok {
		return fmt.Errorf("llm: default provider %q is not configured (have %v)", name, r.order)
	}
	r.fallback = name
	return nil
}

// Resolve returns the provider for name, or the default when name is
// empty. Unknown names are a validation error.
func (r *Registry) Resolve(name string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = r.fallback
	}
	if name == "" {
		return nil, &model.ValidationError{Field: "provider", Message: "no generation provider is configured"}
	}
	p, ok := r.byName[name]
	if !ok {
		return nil, model.NewValidationError("provider", "unknown provider %q (available: %s)",
			name, strings.Join(r.order, ", "))
	}
	return p, nil
}

// Names returns the configured provider names in listing order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Default returns the name of the default provider.
func (r *Registry) Default() string { return r.fallback }

// Len returns the number of configured providers.
func (r *Registry) Len() int { return len(r.order) }
