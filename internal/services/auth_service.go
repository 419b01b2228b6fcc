package services

import (
	"context"
	"sync"

	"github.com/juju/errors"
	authorizer "github.com/localnerve/authorizer-go"
	"github.com/rs/zerolog/log"

	"github.com/localnerve/layersdb/internal/config"
	layererrors "github.com/localnerve/layersdb/internal/errors"
	"github.com/localnerve/layersdb/internal/models"
	"github.com/localnerve/layersdb/internal/utils"
)

// SessionResolver maps a session cookie to the calling user.
type SessionResolver interface {
	ResolveUser(ctx context.Context, cookie string) (models.User, error)
}

// AuthorizerResolver resolves sessions against an Authorizer service. The
// client is created on first use.
type AuthorizerResolver struct {
	cfg         *config.Config
	redirectURL string

	once    sync.Once
	client  *authorizer.AuthorizerClient
	initErr error
}

// NewAuthorizerResolver returns a resolver for the configured Authorizer.
func NewAuthorizerResolver(cfg *config.Config, redirectURL string) *AuthorizerResolver {
	return &AuthorizerResolver{cfg: cfg, redirectURL: redirectURL}
}

func (r *AuthorizerResolver) init(ctx context.Context) error {
	r.once.Do(func() {
		// Ping the Authorizer service first
		if err := utils.PingAuthorizer(ctx, r.cfg.AuthzURL); err != nil {
			r.initErr = errors.Annotate(err, "authorizer ping failed")
			return
		}

		log.Info().Str("url", r.cfg.AuthzURL).Str("client_id", r.cfg.AuthzClientID).Str("redirect", r.redirectURL).Msg("initializing authorizer")
		client, err := authorizer.NewAuthorizerClient(r.cfg.AuthzClientID, r.cfg.AuthzURL, r.redirectURL, nil)
		if err != nil {
			r.initErr = errors.Annotate(err, "failed to create authorizer client")
			return
		}
		r.client = client
	})
	return r.initErr
}

// ResolveUser validates the session cookie and reports whether the user holds
// the superuser role. An empty cookie is the anonymous user.
func (r *AuthorizerResolver) ResolveUser(ctx context.Context, cookie string) (models.User, error) {
	if cookie == "" {
		return models.Anonymous, nil
	}
	if err := r.init(ctx); err != nil {
		return models.Anonymous, err
	}

	res, err := r.validate(cookie, nil)
	if err != nil {
		return models.Anonymous, err
	}
	if res.User == nil || res.User.ID == "" {
		return models.Anonymous, errors.Annotate(layererrors.Unauthorized, "session without user")
	}

	user := models.User{ID: res.User.ID}
	if su, err := r.validate(cookie, []string{r.cfg.SuperuserRole}); err == nil && su.IsValid {
		user.Superuser = true
	}
	return user, nil
}

func (r *AuthorizerResolver) validate(cookie string, roles []string) (*authorizer.ValidateSessionResponse, error) {
	rolesPtrs := make([]*string, len(roles))
	for i := range roles {
		rolesPtrs[i] = &roles[i]
	}

	res, err := r.client.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: cookie,
		Roles:  rolesPtrs,
	})
	if err != nil {
		return nil, errors.Annotatef(layererrors.Unauthorized, "session validation failed: %v", err)
	}
	if res == nil || !res.IsValid {
		return nil, errors.Annotate(layererrors.Unauthorized, "session is not valid")
	}
	return res, nil
}

// StaticResolver resolves fixed cookies to users. It serves tests and local
// development without an Authorizer.
type StaticResolver map[string]models.User

// ResolveUser returns the user registered for cookie.
func (r StaticResolver) ResolveUser(_ context.Context, cookie string) (models.User, error) {
	if cookie == "" {
		return models.Anonymous, nil
	}
	u, ok := r[cookie]
	if !ok {
		return models.Anonymous, errors.Annotate(layererrors.Unauthorized, "unknown session")
	}
	return u, nil
}
