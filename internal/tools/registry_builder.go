package tools

// RegistryBuilder accumulates handlers during the construction phase.
// Call Build() to produce an immutable Registry ready for use.
type RegistryBuilder struct {
	entries map[ToolName]entry
}

// NewRegistryBuilder returns a fresh RegistryBuilder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{entries: make(map[ToolName]entry)}
}

// WithTool registers the primary handler for name, replacing any previous one.
func (b *RegistryBuilder) WithTool(name ToolName, h Handler) *RegistryBuilder {
	e := b.entries[name]
	e.handler = h
	b.entries[name] = e

	return b
}

// WithFallback attaches a REST fallback to name.
func (b *RegistryBuilder) WithFallback(name ToolName, f Fallback) *RegistryBuilder {
	e := b.entries[name]
	e.fallback = f
	b.entries[name] = e

	return b
}

// Build produces an immutable Registry from the accumulated handlers.
// Entries without a primary handler are dropped.
func (b *RegistryBuilder) Build() *Registry {
	entries := make(map[ToolName]entry, len(b.entries))
	for k, v := range b.entries {
		if v.handler == nil {
			continue
		}
		entries[k] = v
	}
	return &Registry{entries: entries}
}
