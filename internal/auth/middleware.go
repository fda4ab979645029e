package auth

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/pushbin/pushbin-server/internal/application"
	"github.com/pushbin/pushbin-server/internal/client"
	"github.com/pushbin/pushbin-server/internal/httputil"
	"github.com/pushbin/pushbin-server/internal/user"
)

// Locals keys under which the middleware stores the resolved identity.
const (
	localPrincipal = "principal"
	localApp       = "app"
)

// altKeyHeader is the custom header accepted alongside Authorization, for
// clients that cannot set a Bearer header.
const altKeyHeader = "X-Pushbin-Key"

// Principal is the resolved identity of a request: always a user, plus the
// client row when the request authenticated with a client token.
type Principal struct {
	User   *user.User
	Client *client.Client
	Claims *SessionClaims
}

// IsAdmin reports whether the principal has admin rights.
func (p *Principal) IsAdmin() bool {
	return p.User != nil && p.User.IsAdmin
}

// Authenticator resolves bearer tokens to principals. It is shared by all
// authenticated routes.
type Authenticator struct {
	secret  string
	users   user.Repository
	clients client.Repository
	apps    application.Repository
	log     zerolog.Logger
}

// NewAuthenticator creates an authenticator backed by the given repositories.
func NewAuthenticator(secret string, users user.Repository, clients client.Repository, apps application.Repository, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		secret:  secret,
		users:   users,
		clients: clients,
		apps:    apps,
		log:     logger.With().Str("component", "auth").Logger(),
	}
}

// ExtractToken pulls the bearer token from, in order: the Authorization
// header, the X-Pushbin-Key header, and the token query parameter. It returns
// an empty string when none is present.
func ExtractToken(c fiber.Ctx) string {
	const prefix = "Bearer "
	if header := c.Get("Authorization"); len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	if key := c.Get(altKeyHeader); key != "" {
		return key
	}
	return c.Query("token")
}

// RequireUser returns middleware that accepts session tokens and client
// tokens, resolving both to a user-level principal.
func (a *Authenticator) RequireUser() fiber.Handler {
	return func(c fiber.Ctx) error {
		token := ExtractToken(c)
		if token == "" {
			return httputil.Fail(c, fiber.StatusUnauthorized, "No authentication token provided")
		}

		switch ClassifyToken(token) {
		case TokenSession:
			claims, err := ValidateSessionToken(token, a.secret)
			if err != nil {
				return httputil.Fail(c, fiber.StatusUnauthorized, "Invalid session token")
			}
			userID, err := claims.UserID()
			if err != nil {
				return httputil.Fail(c, fiber.StatusUnauthorized, "Invalid token subject")
			}
			u, err := a.users.GetByID(c.Context(), userID)
			if err != nil {
				return httputil.Fail(c, fiber.StatusUnauthorized, "User not found")
			}
			c.Locals(localPrincipal, &Principal{User: u, Claims: claims})
			return c.Next()

		case TokenClient:
			cl, err := a.clients.GetByToken(c.Context(), token)
			if err != nil {
				return httputil.Fail(c, fiber.StatusUnauthorized, "Invalid client token")
			}
			u, err := a.users.GetByID(c.Context(), cl.UserID)
			if err != nil {
				return httputil.Fail(c, fiber.StatusUnauthorized, "User not found")
			}
			c.Locals(localPrincipal, &Principal{User: u, Client: cl})
			return c.Next()

		default:
			return httputil.Fail(c, fiber.StatusUnauthorized, "Invalid token type for this endpoint")
		}
	}
}

// AdminOnly rejects the request unless the already-resolved principal is an
// admin. It must run after RequireUser.
func AdminOnly(c fiber.Ctx) error {
	p := PrincipalFrom(c)
	if p == nil || !p.IsAdmin() {
		return httputil.Fail(c, fiber.StatusForbidden, "Admin access required")
	}
	return c.Next()
}

// AppPrincipal is the resolved identity of an application-token request.
type AppPrincipal struct {
	App  *application.Application
	User *user.User
}

// RequireApp returns middleware that accepts only application tokens,
// resolving the application and its owning user.
func (a *Authenticator) RequireApp() fiber.Handler {
	return func(c fiber.Ctx) error {
		token := ExtractToken(c)
		if token == "" {
			return httputil.Fail(c, fiber.StatusUnauthorized, "No authentication token provided")
		}

		app, err := a.apps.GetByToken(c.Context(), token)
		if err != nil {
			return httputil.Fail(c, fiber.StatusUnauthorized, "Invalid application token")
		}
		u, err := a.users.GetByID(c.Context(), app.UserID)
		if err != nil {
			return httputil.Fail(c, fiber.StatusUnauthorized, "User not found")
		}

		c.Locals(localApp, &AppPrincipal{App: app, User: u})
		return c.Next()
	}
}

// PrincipalFrom returns the principal stored by RequireUser, or nil.
func PrincipalFrom(c fiber.Ctx) *Principal {
	p, _ := c.Locals(localPrincipal).(*Principal)
	return p
}

// AppPrincipalFrom returns the principal stored by RequireApp, or nil.
func AppPrincipalFrom(c fiber.Ctx) *AppPrincipal {
	p, _ := c.Locals(localApp).(*AppPrincipal)
	return p
}
