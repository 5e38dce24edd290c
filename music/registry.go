package music

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/technoflow/types"
)

// MinCredentialLength is the shortest credential accepted by providers that
// require authentication.
const MinCredentialLength = 10

// ProviderFactory creates a provider bound to one caller credential.
type ProviderFactory func(credential string) (Provider, error)

// ProviderInfo describes a registered provider.
type ProviderInfo struct {
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	RequiresAuth bool   `json:"requires_auth"`
	Credential   string `json:"credential,omitempty"`
}

type registryEntry struct {
	info    ProviderInfo
	factory ProviderFactory
}

// Registry manages provider registration and per-request creation
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
	logger  *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		entries: make(map[string]registryEntry),
		logger:  logger.With(zap.String("component", "provider_registry")),
	}
}

// NewDefaultRegistry registers every enabled provider from cfg.
func NewDefaultRegistry(cfg ProvidersConfig, logger *zap.Logger) *Registry {
	r := NewRegistry(logger)

	if cfg.Udio.Enabled {
		r.Register(ProviderInfo{Name: "udio", DisplayName: "Udio", RequiresAuth: true, Credential: "sb-api-auth-token cookie"},
			func(credential string) (Provider, error) {
				return NewUdioProvider(cfg.Udio, credential), nil
			})
	}
	if cfg.Suno.Enabled {
		r.Register(ProviderInfo{Name: "suno", DisplayName: "Suno AI", RequiresAuth: true, Credential: "API key"},
			func(credential string) (Provider, error) {
				return NewSunoProvider(cfg.Suno, credential), nil
			})
	}
	if cfg.Replicate.Enabled {
		r.Register(ProviderInfo{Name: "replicate", DisplayName: "Replicate MusicGen", RequiresAuth: true, Credential: "API token"},
			func(credential string) (Provider, error) {
				return NewReplicateProvider(cfg.Replicate, credential), nil
			})
	}
	if cfg.Generic.Enabled {
		if cfg.Generic.SubmitURL == "" || cfg.Generic.StatusURL == "" {
			r.logger.Warn("generic provider enabled without submit/status urls, skipping")
		} else {
			r.Register(ProviderInfo{Name: "generic", DisplayName: "Generic HTTP backend"},
				func(credential string) (Provider, error) {
					return NewGenericProvider(cfg.Generic, credential), nil
				})
		}
	}
	if cfg.Demo.Enabled {
		// one shared instance so that status lookups see the jobs it created
		demo := NewDemoProvider(cfg.Demo)
		r.Register(ProviderInfo{Name: "demo", DisplayName: "Demo (no key needed)"},
			func(string) (Provider, error) { return demo, nil })
	}
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(info ProviderInfo, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info.Name = strings.ToLower(info.Name)
	r.entries[info.Name] = registryEntry{info: info, factory: factory}
	r.logger.Info("provider registered",
		zap.String("provider", info.Name),
		zap.Bool("requires_auth", info.RequiresAuth),
	)
}

// List returns every registered provider sorted by name.
func (r *Registry) List() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderInfo, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Info returns the description of one provider.
func (r *Registry) Info(name string) (ProviderInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[strings.ToLower(strings.TrimSpace(name))]
	return e.info, ok
}

// ValidateCredential checks the shape of a credential without any remote call.
func (r *Registry) ValidateCredential(name, credential string) error {
	info, ok := r.Info(name)
	if !ok {
		return unknownProvider(name)
	}
	if !info.RequiresAuth {
		return nil
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return types.NewError(types.ErrInvalidRequest, fmt.Sprintf("missing %s for %s", info.Credential, info.DisplayName)).
			WithHTTPStatus(http.StatusBadRequest).
			WithProvider(info.Name)
	}
	if len(credential) < MinCredentialLength {
		return types.NewError(types.ErrInvalidRequest, fmt.Sprintf("%s too short, need a real %s key", info.Credential, info.DisplayName)).
			WithHTTPStatus(http.StatusBadRequest).
			WithProvider(info.Name)
	}
	return nil
}

// Resolve validates the credential and creates the provider.
func (r *Registry) Resolve(name, credential string) (Provider, error) {
	if err := r.ValidateCredential(name, credential); err != nil {
		return nil, err
	}
	r.mu.RLock()
	e := r.entries[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()

	p, err := e.factory(strings.TrimSpace(credential))
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to create provider").
			WithCause(err).
			WithProvider(e.info.Name)
	}
	return p, nil
}

func unknownProvider(name string) *types.Error {
	return types.NewError(types.ErrInvalidRequest, fmt.Sprintf("unknown service %q", name)).
		WithHTTPStatus(http.StatusBadRequest)
}
