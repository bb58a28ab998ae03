package services

import (
	"context"
	"fmt"
	"sync"

	authorizer "github.com/localnerve/authorizer-go"

	"github.com/localnerve/jam-build-nodedb/internal/config"
	"github.com/localnerve/jam-build-nodedb/internal/logger"
	"github.com/localnerve/jam-build-nodedb/internal/utils"
)

// AuthService validates sessions with the Authorizer service. The client is
// created on first use, once the public origin of the service is known.
type AuthService struct {
	cfg    *config.Config
	log    *logger.Logger
	mu     sync.Mutex
	client *authorizer.AuthorizerClient

	// ping is replaced in tests
	ping func(ctx context.Context, url string) error
}

// NewAuthService creates an AuthService for the configured Authorizer
func NewAuthService(cfg *config.Config, log *logger.Logger) *AuthService {
	if log == nil {
		log = logger.NewNop()
	}
	return &AuthService{cfg: cfg, log: log.With("service", "AuthService"), ping: utils.PingAuthorizer}
}

// Init creates the Authorizer client for requests arriving on protocol://host.
// Once a client exists further calls do nothing; a failed attempt is retried
// on the next call.
func (a *AuthService) Init(requestProtocol, requestHost string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return nil
	}

	// Ping the Authorizer service first
	if err := a.ping(context.Background(), a.cfg.AuthzURL); err != nil {
		a.log.Warn("Authorizer unreachable", "authorizerURL", a.cfg.AuthzURL, "error", err)
		return fmt.Errorf("authorizer ping failed: %w", err)
	}

	redirectURL := fmt.Sprintf("%s://%s", requestProtocol, requestHost)
	a.log.Info("Initializing Authorizer",
		"authorizerURL", a.cfg.AuthzURL, "clientID", a.cfg.AuthzClientID, "redirectURL", redirectURL)

	client, err := authorizer.NewAuthorizerClient(a.cfg.AuthzClientID, a.cfg.AuthzURL, redirectURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create authorizer client: %w", err)
	}
	a.client = client
	return nil
}

// Initialized reports whether the Authorizer client is ready
func (a *AuthService) Initialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client != nil
}

// ValidateSession validates a session cookie for the given roles
func (a *AuthService) ValidateSession(cookie string, roles []string) (map[string]interface{}, error) {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()
	if client == nil {
		return nil, fmt.Errorf("authorizer client not initialized")
	}

	rolesPtrs := make([]*string, len(roles))
	for i := range roles {
		rolesPtrs[i] = &roles[i]
	}

	res, err := client.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: cookie,
		Roles:  rolesPtrs,
	})
	if err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if res == nil || !res.IsValid {
		return nil, fmt.Errorf("session is not valid")
	}

	return map[string]interface{}{
		"is_valid": res.IsValid,
		"user":     res.User,
	}, nil
}
