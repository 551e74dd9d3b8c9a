package authenticator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cayopay/cayopay-identity/pkg/credential"
	"github.com/cayopay/cayopay-identity/pkg/errs"
	"github.com/cayopay/cayopay-identity/pkg/model"
)

// Authenticator defines the interface for all authenticators
type Authenticator interface {
	// Name returns the authenticator name (e.g., "session", "password")
	Name() string

	// Authenticate validates the credentials in input. It returns
	// ErrNoCredentials when input carries nothing this authenticator reads.
	Authenticate(ctx context.Context, input Input) (*Result, error)

	// Status checks if the authenticator is healthy
	Status(ctx context.Context) error
}

// ErrNoCredentials means the request did not carry credentials of the kind
// an authenticator understands; the next authenticator is tried.
var ErrNoCredentials = errors.New("no credentials")

// Input contains the credentials extracted from a request.
type Input struct {
	// Token is a session token from the cookie or an Authorization: Bearer header.
	Token string
	// Login and Secret come from Authorization: Basic.
	Login     string
	Secret    credential.Secret
	ClientIP  string
	UserAgent string
}

// Result is a successful authentication.
type Result struct {
	User *model.User
	// Session is set when the credentials were a session token.
	Session *model.Session
}

// Registry holds all registered authenticators
type Registry struct {
	mu             sync.RWMutex
	authenticators map[string]Authenticator
	enabled        map[string]bool
	order          []string
}

// NewRegistry creates a new authenticator registry
func NewRegistry() *Registry {
	return &Registry{
		authenticators: make(map[string]Authenticator),
		enabled:        make(map[string]bool),
	}
}

// Register adds an authenticator to the registry. Authenticators are tried
// in registration order.
func (r *Registry) Register(auth Authenticator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.authenticators[auth.Name()]; !ok {
		r.order = append(r.order, auth.Name())
	}
	r.authenticators[auth.Name()] = auth
}

// Enable enables an authenticator by name
func (r *Registry) Enable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.authenticators[name]; !ok {
		return fmt.Errorf("authenticator %q not found", name)
	}
	r.enabled[name] = true
	return nil
}

// Disable disables an authenticator by name
func (r *Registry) Disable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.enabled, name)
}

// Get returns an authenticator by name
func (r *Registry) Get(name string) (Authenticator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	auth, ok := r.authenticators[name]
	return auth, ok
}

// IsEnabled checks if an authenticator is enabled
func (r *Registry) IsEnabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[name]
}

// Installed returns all installed authenticator names, sorted
func (r *Registry) Installed() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.authenticators))
	for name := range r.authenticators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enabled returns all enabled authenticator names, sorted
func (r *Registry) Enabled() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.enabled))
	for name := range r.enabled {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Authenticate runs the enabled authenticators in registration order and
// returns the first success along with the authenticator's name. The first
// authenticator that recognises the credentials decides the outcome; if none
// does the result is errs.ErrUnauthenticated.
func (r *Registry) Authenticate(ctx context.Context, input Input) (*Result, string, error) {
	r.mu.RLock()
	var chain []Authenticator
	for _, name := range r.order {
		if r.enabled[name] {
			chain = append(chain, r.authenticators[name])
		}
	}
	r.mu.RUnlock()

	for _, auth := range chain {
		res, err := auth.Authenticate(ctx, input)
		if errors.Is(err, ErrNoCredentials) {
			continue
		}
		if err != nil {
			return nil, auth.Name(), err
		}
		return res, auth.Name(), nil
	}
	return nil, "", errs.ErrUnauthenticated
}
