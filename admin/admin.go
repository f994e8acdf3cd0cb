// Package admin registers administrative hooks exposed by running index
// instances so that operators can inspect them at runtime.
package admin

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode"
)

var (
	// ErrHookConflict is returned when a hook with the same qualified name is
	// already registered.
	ErrHookConflict = errors.New("admin: hook already registered")

	// ErrHookNotFound is returned when unregistering an unknown hook.
	ErrHookNotFound = errors.New("admin: hook not registered")
)

// Hook is a named, read-only operational value of an index instance.
type Hook struct {
	// Name is the base name, e.g. "docCount".
	Name string
	Help string
	// Value is sampled on every read and must be safe for concurrent use.
	Value func() float64
}

// Provider is implemented by index instances that expose hooks.
type Provider interface {
	AdminHooks() []Hook
}

// HookID identifies one registered hook.
type HookID struct {
	Base      string
	Node      int
	Partition int
}

// String returns the qualified name.
func (id HookID) String() string {
	return QualifiedName(id.Base, id.Node, id.Partition)
}

// QualifiedName returns the registration name of hook base for a partition
// of a node, e.g. "docCount-1-0".
func QualifiedName(base string, nodeID, partition int) string {
	return base + "-" + strconv.Itoa(nodeID) + "-" + strconv.Itoa(partition)
}

// Registry is the management registry hooks are published to.
// Implementations must be safe for concurrent use.
type Registry interface {
	// Register publishes h under id. A duplicate id fails with an error
	// matching ErrHookConflict.
	Register(id HookID, h Hook) error
	// Unregister removes the hook published under id.
	Unregister(id HookID) error
}

// MemoryRegistry is an in-process Registry.
type MemoryRegistry struct {
	mu    sync.RWMutex
	hooks map[HookID]Hook
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{hooks: make(map[HookID]Hook)}
}

// Register implements Registry.
func (r *MemoryRegistry) Register(id HookID, h Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.hooks[id]; ok {
		return fmt.Errorf("%w: %s", ErrHookConflict, id)
	}
	r.hooks[id] = h
	return nil
}

// Unregister implements Registry.
func (r *MemoryRegistry) Unregister(id HookID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.hooks[id]; !ok {
		return fmt.Errorf("%w: %s", ErrHookNotFound, id)
	}
	delete(r.hooks, id)
	return nil
}

// Value samples the hook registered under id.
func (r *MemoryRegistry) Value(id HookID) (float64, bool) {
	r.mu.RLock()
	h, ok := r.hooks[id]
	r.mu.RUnlock()
	if !ok || h.Value == nil {
		return 0, false
	}
	return h.Value(), true
}

// Len returns the number of registered hooks.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// metricName maps a hook base name to a Prometheus metric name:
// "docCount" becomes "sensei_index_doc_count".
func metricName(base string) string {
	var sb strings.Builder
	sb.WriteString("sensei_index_")
	for i, r := range base {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
