package usecase

import (
	"context"
	"fmt"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/internal/domain/repositories"
	"github.com/FreePeak/db-copilot/internal/usecase/special"
)

// Toolset is the outward operation listing. Synthesized and privileged
// operations meet only here.
type Toolset struct {
	catalog     repositories.CatalogRepository
	synthesizer *ToolSynthesizer
	special     *special.Registry
}

// NewToolset creates a toolset over the catalog and the privileged registry
func NewToolset(catalog repositories.CatalogRepository, schemas repositories.SchemaRepository, registry *special.Registry) *Toolset {
	return &Toolset{
		catalog:     catalog,
		synthesizer: NewToolSynthesizer(schemas, registry),
		special:     registry,
	}
}

// WithReservedTables keeps the named tables out of the synthesized set in
// addition to the system tables
func (t *Toolset) WithReservedTables(tables ...string) *Toolset {
	t.synthesizer.WithReservedTables(tables...)
	return t
}

// List returns the operations visible in the scope. The catalog is read
// fresh on every call.
func (t *Toolset) List(ctx context.Context, scope entities.ToolScope) ([]entities.OperationDescriptor, error) {
	var ops []entities.OperationDescriptor
	if scope != entities.ScopeUI {
		catalog, err := t.catalog.ListDataSources(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		ops = append(ops, t.synthesizer.Synthesize(ctx, catalog)...)
	}
	ops = append(ops, t.special.Descriptors(scope)...)
	return ops, nil
}

// Find returns a single listed operation by name
func (t *Toolset) Find(ctx context.Context, name string) (entities.OperationDescriptor, bool, error) {
	if op, ok := t.special.Lookup(name); ok {
		return op.Descriptor(), true, nil
	}
	ops, err := t.List(ctx, entities.ScopeData)
	if err != nil {
		return entities.OperationDescriptor{}, false, err
	}
	for _, op := range ops {
		if op.Name == name {
			return op, true, nil
		}
	}
	return entities.OperationDescriptor{}, false, nil
}
