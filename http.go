package portal

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// LoginPayload is the credential form contract
type LoginPayload interface {
	GetEmail() string
	GetPassword() string
}

// RoutePortal wires the identity provider, role resolver and guard
// decisions into go-router middleware and cookie plumbing.
type RoutePortal struct {
	provider         *AccountProvider
	resolver         *RoleResolver
	cfg              Config
	cookieDuration   time.Duration
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

// NewRoutePortal builds the HTTP surface for the portal core.
func NewRoutePortal(provider *AccountProvider, resolver *RoleResolver, cfg Config) (*RoutePortal, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	p := &RoutePortal{
		cfg:            cfg,
		provider:       provider,
		resolver:       resolver,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	p.ErrorHandler = p.defaultErrHandler
	p.AuthErrorHandler = p.defaultAuthErrHandler

	return p, nil
}

func (p RoutePortal) GetCookieDuration() time.Duration {
	return p.cookieDuration
}

// Protected guards a page for the declared audience. Unauthenticated
// visitors are sent to the sign-in surface; authenticated visitors with
// a mismatched role are sent to their own role's home page. The
// resolved profile is stored in Locals and the request context for the
// page handler.
func (p *RoutePortal) Protected(audience Audience) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw := ctx.Cookies(p.cfg.GetContextKey())
			if raw == "" {
				p.SetRedirect(ctx)
				return ctx.Redirect(p.cfg.GetSignInRoute(), router.StatusSeeOther)
			}

			identity, err := p.provider.tokens.IdentityFromToken(raw)
			if err != nil {
				p.Logger.Info("rejecting identity token", "error", err)
				p.cookieDel(ctx, p.cfg.GetContextKey())
				p.SetRedirect(ctx)
				return ctx.Redirect(p.cfg.GetSignInRoute(), router.StatusSeeOther)
			}

			profile, err := p.resolver.Resolve(ctx.Context(), identity.ID())
			if err != nil {
				return p.guardErrorResponse(ctx, err)
			}

			if !audience.Allows(profile.Role) {
				p.Logger.Info(
					"misrouted visitor",
					"audience", audience,
					"role", profile.Role,
					"path", ctx.OriginalURL(),
				)
				return ctx.Redirect(profile.Role.HomePath(), router.StatusSeeOther)
			}

			ctx.Locals(p.cfg.GetContextKey(), profile)

			return hf(ctx)
		}
	}
}

func (p *RoutePortal) guardErrorResponse(ctx router.Context, err error) error {
	if IsProfileNotFound(err) {
		// The visitor is authenticated; a missing profile row is an
		// account fault, never a sign-in redirect loop.
		return ctx.Status(http.StatusConflict).Render("errors/account", router.ViewContext{
			"message": "There is a problem with your account. Please contact support.",
		})
	}

	if IsTransientError(err) {
		return ctx.Status(http.StatusServiceUnavailable).Render("errors/retry", router.ViewContext{
			"message": "We could not verify your access. Please try again.",
		})
	}

	return p.ErrorHandler(ctx, err)
}

// Login verifies the payload and sets the token cookie.
func (p *RoutePortal) Login(ctx router.Context, payload LoginPayload) error {
	_, err := p.provider.SignInWithPassword(ctx.Context(), payload.GetEmail(), payload.GetPassword())
	if err != nil {
		p.Logger.Error("Login error: %s", err)
		return err
	}

	p.setCookieToken(ctx, p.provider.CurrentToken(), p.cookieDuration)
	return nil
}

// Logout signs the current identity out and clears the token cookie.
func (p *RoutePortal) Logout(ctx router.Context) {
	if err := p.provider.SignOut(ctx.Context()); err != nil {
		p.Logger.Error("Logout error: %s", err)
	}
	p.cookieDel(ctx, p.cfg.GetContextKey())
}

func (p *RoutePortal) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := p.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" {
		return def[0]
	}
	p.cookieDel(ctx, rejectedRoute)
	return r
}

func (p *RoutePortal) GetRedirectOrDefault(ctx router.Context) string {
	rejectedRoute := p.cfg.GetRejectedRouteKey()
	refererHeader := string(ctx.Referer())

	r := ctx.Cookies(rejectedRoute, refererHeader)
	if r == "" {
		r = p.cfg.GetRejectedRouteDefault()
	}
	p.cookieDel(ctx, rejectedRoute)
	return r
}

func (p *RoutePortal) SetRedirect(ctx router.Context) {
	rejectedRoute := p.cfg.GetRejectedRouteKey()

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (p *RoutePortal) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     p.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (p *RoutePortal) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (p *RoutePortal) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	p.Logger.Info(
		"Authentication error, redirecting to sign in",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	p.SetRedirect(c)

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect(p.cfg.GetSignInRoute(), statusCode)
}

func (p *RoutePortal) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	p.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return p.AuthErrorHandler(c, richErr)
	default:
		return c.Status(richErr.Code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}
