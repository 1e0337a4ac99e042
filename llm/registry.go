package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/BaSui01/actiongate/types"
	"go.uber.org/zap"
)

// Registry is the thread-safe table of provider configurations.
//
// Built-ins are seeded with RegisterBuiltin before Seal; after that only
// custom entries can be added or replaced, and built-in ids are rejected.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]ProviderConfig
	sealed  bool
	store   ProviderStore
	logger  *zap.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithStore persists custom registrations through store.
func WithStore(store ProviderStore) RegistryOption {
	return func(r *Registry) { r.store = store }
}

// NewRegistry creates an empty, unsealed registry.
func NewRegistry(logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		entries: make(map[string]ProviderConfig),
		logger:  logger.With(zap.String("component", "provider_registry")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterBuiltin seeds a built-in provider. Only valid before Seal.
func (r *Registry) RegisterBuiltin(cfg ProviderConfig) error {
	if !IsBuiltinID(cfg.ID) {
		return fmt.Errorf("%q is not a built-in provider id", cfg.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("registry sealed: cannot seed built-in %q", cfg.ID)
	}
	cfg.BuiltIn = true
	r.entries[cfg.ID] = cfg
	return nil
}

// Seal freezes the built-in set.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Register inserts or replaces a custom provider.
//
// Built-in ids fail with DUPLICATE_BUILTIN and an empty id with
// INVALID_REQUEST. With a store attached the entry is persisted first; a
// persistence failure leaves the in-memory table unchanged.
func (r *Registry) Register(ctx context.Context, cfg ProviderConfig) error {
	if cfg.ID == "" {
		return types.NewInvalidRequestError("provider id is required")
	}
	if IsBuiltinID(cfg.ID) {
		return types.NewError(types.ErrDuplicateBuiltin,
			fmt.Sprintf("cannot override built-in provider %q", cfg.ID)).
			WithProvider(cfg.ID)
	}

	cfg.BuiltIn = false
	if cfg.Kind == "" {
		cfg.Kind = KindCloud
	}
	if cfg.Format == "" {
		cfg.Format = FormatOpenAI
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store != nil {
		if err := r.store.Save(ctx, cfg); err != nil {
			r.logger.Error("persist custom provider failed",
				zap.String("provider", cfg.ID),
				zap.Error(err),
			)
			return types.NewError(types.ErrInternalError, "failed to persist provider").
				WithProvider(cfg.ID).
				WithCause(err)
		}
	}

	_, replaced := r.entries[cfg.ID]
	r.entries[cfg.ID] = cfg

	r.logger.Info("custom provider registered",
		zap.String("provider", cfg.ID),
		zap.String("format", string(cfg.Format)),
		zap.Bool("replaced", replaced),
	)
	return nil
}

// Lookup returns the configuration for id.
func (r *Registry) Lookup(id string) (ProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.entries[id]
	if !ok {
		return ProviderConfig{}, types.NewError(types.ErrNotFound,
			fmt.Sprintf("unknown provider %q", id)).WithProvider(id)
	}
	return cfg, nil
}

// List returns built-ins first in fixed order, then custom providers sorted by id.
func (r *Registry) List() []ProviderDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderDescriptor, 0, len(r.entries))
	for _, id := range BuiltinIDs {
		if cfg, ok := r.entries[id]; ok {
			out = append(out, cfg.Descriptor())
		}
	}

	custom := make([]string, 0, len(r.entries))
	for id := range r.entries {
		if !IsBuiltinID(id) {
			custom = append(custom, id)
		}
	}
	sort.Strings(custom)
	for _, id := range custom {
		out = append(out, r.entries[id].Descriptor())
	}
	return out
}

// Configured maps every id to whether it is callable.
func (r *Registry) Configured() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]bool, len(r.entries))
	for id, cfg := range r.entries {
		out[id] = cfg.Configured()
	}
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// LoadFrom restores persisted custom providers. Entries that collide with a
// built-in id are skipped with a warning.
func (r *Registry) LoadFrom(ctx context.Context, store ProviderStore) (int, error) {
	cfgs, err := store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load custom providers: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	loaded := 0
	for _, cfg := range cfgs {
		if cfg.ID == "" || IsBuiltinID(cfg.ID) {
			r.logger.Warn("skipping persisted provider", zap.String("provider", cfg.ID))
			continue
		}
		cfg.BuiltIn = false
		r.entries[cfg.ID] = cfg
		loaded++
	}
	return loaded, nil
}
