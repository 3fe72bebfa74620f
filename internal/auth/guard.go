package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	apperrors "vaanifill/internal/errors"
	"vaanifill/internal/model"
)

const (
	subjectContextKey  = "token_subject"
	identityContextKey = "identity"
)

// Identity is the authenticated caller attached to every protected request.
type Identity struct {
	ID       uuid.UUID
	Username string
}

type identityCtxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext returns the identity attached by the Guard.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// CurrentIdentity returns the identity attached to an echo request.
func CurrentIdentity(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityContextKey).(Identity)
	return id, ok
}

// AccountResolver loads the account a verified token refers to.
type AccountResolver interface {
	ResolveAccount(ctx context.Context, id uuid.UUID) (*model.Account, error)
}

// Guard authenticates protected routes. It verifies the bearer token and then
// loads the account on every request, so identity is never served stale.
type Guard struct {
	tokens   *TokenService
	accounts AccountResolver
	log      logrus.FieldLogger
}

// NewGuard creates a new guard.
func NewGuard(tokens *TokenService, accounts AccountResolver, log logrus.FieldLogger) *Guard {
	return &Guard{tokens: tokens, accounts: accounts, log: log}
}

// Middleware returns the echo middleware enforcing authentication.
func (g *Guard) Middleware() echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		ContextKey:  subjectContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return g.tokens.Verify(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			g.log.WithField("path", c.Path()).WithError(err).Debug("authentication rejected")
			return unauthenticated()
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(g.resolve(next))
	}
}

func (g *Guard) resolve(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		accountID, ok := c.Get(subjectContextKey).(uuid.UUID)
		if !ok {
			return unauthenticated()
		}

		ctx := c.Request().Context()
		account, err := g.accounts.ResolveAccount(ctx, accountID)
		if err != nil {
			httpErr := apperrors.MapErrorToHTTP(err)
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
		}

		id := Identity{ID: account.ID, Username: account.Username}
		c.Set(identityContextKey, id)
		c.SetRequest(c.Request().WithContext(WithIdentity(ctx, id)))
		return next(c)
	}
}

func unauthenticated() error {
	return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
		Error: "invalid or missing token",
		Code:  "UNAUTHENTICATED",
	})
}
