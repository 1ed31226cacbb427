package special

import (
	"context"
	"fmt"
	"sync"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
)

// Call is one invocation of a privileged operation
type Call struct {
	Turn entities.TurnContext
	Args map[string]interface{}
}

// Operation is a hand-written privileged operation. Implementations
// authorize the actor themselves and honor Turn.DryRun for side effects.
type Operation interface {
	Descriptor() entities.OperationDescriptor
	Execute(ctx context.Context, call Call) (interface{}, error)
}

// Registry holds privileged operations apart from synthesized ones
type Registry struct {
	mu    sync.RWMutex
	ops   map[string]Operation
	order []string
}

// NewRegistry creates a registry with the given operations
func NewRegistry(ops ...Operation) (*Registry, error) {
	r := &Registry{ops: make(map[string]Operation)}
	for _, op := range ops {
		if err := r.Register(op); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an operation. Names that parse as synthesized CRUD names
// are refused so the two namespaces never overlap.
func (r *Registry) Register(op Operation) error {
	name := op.Descriptor().Name
	if _, _, isCRUD := entities.ParseOperationName(name); isCRUD {
		return fmt.Errorf("privileged operation %q uses a reserved verb prefix", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("privileged operation %q already registered", name)
	}
	r.ops[name] = op
	r.order = append(r.order, name)
	return nil
}

// Lookup finds an operation by exact name
func (r *Registry) Lookup(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// IsReserved reports whether a name belongs to a privileged operation
func (r *Registry) IsReserved(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Descriptors lists operations visible in the scope, in registration order
func (r *Registry) Descriptors(scope entities.ToolScope) []entities.OperationDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entities.OperationDescriptor
	for _, name := range r.order {
		desc := r.ops[name].Descriptor()
		if scope == entities.ScopeAll || scope == "" || desc.Scope == scope {
			out = append(out, desc)
		}
	}
	return out
}
