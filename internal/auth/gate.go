package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/metaversal/asset-portal/internal/common"
	"github.com/metaversal/asset-portal/internal/models"
)

// Gate states. The gate starts at StateUnknown until the identity provider
// reports readiness.
type State string

const (
	StateUnknown       State = "unknown"
	StateAnonymous     State = "anonymous"
	StateExchanging    State = "exchanging"
	StateAuthenticated State = "authenticated"
	StateFailed        State = "failed"
)

// Routes the gate redirects between.
const (
	PublicRoute     = "/"
	ManagementRoute = "/asset-management"
)

// ProviderStatus is a snapshot of the external identity provider's state.
type ProviderStatus struct {
	Ready         bool
	Authenticated bool
	Token         string
}

// Exchanger swaps an identity-provider token for an application credential.
// Satisfied by *client.MetaversalClient.
type Exchanger interface {
	Authenticate(ctx context.Context, providerToken string) (*models.AuthResponse, error)
}

// Decision is the routing outcome of a gate check. An empty Redirect means
// stay on the current route.
type Decision struct {
	Redirect string
	LoggedIn bool
}

// Gate is the auth state machine. Check re-runs whenever the provider's
// readiness/authenticated flags change or on route change; re-running while
// already authenticated only re-derives routing.
type Gate struct {
	mu        sync.Mutex
	state     State
	exchanger Exchanger
	logger    *common.Logger

	// credential issued by the last successful exchange (the development
	// JWT when one was issued, the provider token otherwise)
	credential string
}

// NewGate creates a gate in the unknown state.
func NewGate(exchanger Exchanger, logger *common.Logger) *Gate {
	return &Gate{
		state:     StateUnknown,
		exchanger: exchanger,
		logger:    logger,
	}
}

// State returns the current gate state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Credential returns the application credential held for the session, empty
// when not authenticated.
func (g *Gate) Credential() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.credential
}

// Check runs the state machine against the provider snapshot and the route
// the user is currently on, returning the routing decision.
//
//	unknown            -> anonymous      provider ready, no session: public view
//	unknown/anonymous  -> exchanging     provider reports an authenticated session
//	exchanging         -> authenticated  exchange succeeds; public view -> management
//	exchanging         -> failed         exchange errors: logged, no forced navigation
func (g *Gate) Check(ctx context.Context, provider ProviderStatus, currentRoute string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !provider.Ready {
		g.state = StateUnknown
		return Decision{}
	}

	if !provider.Authenticated {
		// Provider ready with no session: public route regardless of
		// prior state.
		g.state = StateAnonymous
		g.credential = ""
		if currentRoute != PublicRoute {
			return Decision{Redirect: PublicRoute}
		}
		return Decision{}
	}

	if g.state == StateAuthenticated {
		// Idempotent re-check: no second exchange, just re-derive routing.
		if currentRoute == PublicRoute {
			return Decision{Redirect: ManagementRoute, LoggedIn: true}
		}
		return Decision{LoggedIn: true}
	}

	g.state = StateExchanging
	credential, err := g.exchange(ctx, provider.Token)
	if err != nil {
		// Session-check failure is non-fatal: the user stays where they
		// are and may retry.
		g.state = StateFailed
		if g.logger != nil {
			g.logger.Warn().Str("error", err.Error()).Msg("credential exchange failed")
		}
		return Decision{}
	}

	g.state = StateAuthenticated
	g.credential = credential
	if currentRoute == PublicRoute {
		return Decision{Redirect: ManagementRoute, LoggedIn: true}
	}
	return Decision{LoggedIn: true}
}

// Logout moves the gate to anonymous from any state.
func (g *Gate) Logout() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state = StateAnonymous
	g.credential = ""
	return Decision{Redirect: PublicRoute}
}

// exchange performs the credential exchange. Caller holds the lock; the
// exchanger manages its own synchronization.
func (g *Gate) exchange(ctx context.Context, providerToken string) (string, error) {
	if providerToken == "" {
		return "", fmt.Errorf("no provider token available")
	}

	resp, err := g.exchanger.Authenticate(ctx, providerToken)
	if err != nil {
		return "", err
	}

	if resp.DevelopmentJWT != "" {
		return resp.DevelopmentJWT, nil
	}
	// Ambient cookie transport: the backend session cookie lives in the
	// client's jar; the portal session carries the provider token.
	return providerToken, nil
}
