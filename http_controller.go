package portal

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// GetRouterProfile returns the profile the guard middleware stored in
// Locals for the current request.
func GetRouterProfile(c router.Context, key string) (*Profile, error) {
	raw := c.Locals(key)
	if raw == nil {
		return nil, ErrProfileNotFound
	}

	profile, ok := raw.(*Profile)
	if profile == nil || !ok {
		return nil, ErrProfileNotFound
	}

	return profile, nil
}

// RegisterAuthRoutes mounts the credential entry flow: sign-in,
// sign-up and sign-out.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.
		Get(controller.Routes.SignIn,
			controller.SignInShow,
		).
		SetName("sign-in.get")

	app.
		Post(
			controller.Routes.SignIn,
			controller.SignInPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.SignOut, controller.SignOut).SetName("sign-out.get")

	app.Get(controller.Routes.SignUp, controller.SignUpShow).
		SetName("sign-up.get")
	app.Post(controller.Routes.SignUp, controller.SignUpPost).
		SetName("sign-up.post")
}

type AuthControllerRoutes struct {
	SignIn  string
	SignOut string
	SignUp  string
}

type AuthControllerViews struct {
	SignIn string
	SignUp string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Provider     *AccountProvider
	Portal       *RoutePortal
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			SignIn:  "/auth",
			SignOut: "/auth/signout",
			SignUp:  "/auth/signup",
		},
		Views: &AuthControllerViews{
			SignIn: "auth",
			SignUp: "auth",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Provider == nil {
		panic("Missing AccountProvider in auth controller...")
	}

	if c.Portal == nil {
		panic("Missing RoutePortal in auth controller...")
	}

	return c
}

// WithAuthControllerProvider sets the account provider.
func WithAuthControllerProvider(provider *AccountProvider) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Provider = provider
		return c
	}
}

// WithAuthControllerPortal sets the HTTP portal surface.
func WithAuthControllerPortal(portal *RoutePortal) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Portal = portal
		return c
	}
}

func (a *AuthController) SignInShow(ctx router.Context) error {
	return ctx.Render(a.Views.SignIn, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// SignInRequest payload
type SignInRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// GetEmail returns the email
func (r SignInRequest) GetEmail() string {
	return r.Email
}

// GetPassword will return the password
func (r SignInRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) SignInPost(ctx router.Context) error {
	payload := new(SignInRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("sign in parse payload", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.SignIn, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if err := a.Portal.Login(ctx, payload); err != nil {
		return ctx.Render(a.Views.SignIn, router.ViewContext{
			"record": payload,
			"errors": map[string]string{
				"authentication": FriendlyProviderMessage(err),
			},
		})
	}

	redirect := a.Portal.GetRedirect(ctx, "/")

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *AuthController) SignOut(ctx router.Context) error {
	a.Portal.Logout(ctx)
	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

func (a *AuthController) SignUpShow(ctx router.Context) error {
	return ctx.Render(a.Views.SignUp, router.ViewContext{
		"errors": map[string]string{},
		"record": SignUpRequest{},
	})
}

// SignUpRequest is the registration form payload. Role is constrained
// to alumni or student; admin accounts are never self-served.
type SignUpRequest struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Role     string `form:"role" json:"role"`
}

// Validate will validate the payload
func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 255), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(&r.Role, validation.Required, validation.In(string(RoleAlumni), string(RoleStudent))),
	)
}

func (a *AuthController) SignUpPost(ctx router.Context) error {
	payload := new(SignUpRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("sign up parse payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.SignUp, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("sign up validate payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.SignUp, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	role, _ := ParseRole(payload.Role)

	_, err := a.Provider.SignUp(ctx.Context(), payload.Email, payload.Password, SignUpMetadata{
		Name: payload.Name,
		Role: role,
	})
	if err != nil {
		a.Logger.Error("sign up error", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  FriendlyProviderMessage(err),
			"system_message": "Error creating account",
		}).Render(a.Views.SignUp, router.ViewContext{
			"record": payload,
			"errors": map[string]string{"registration": FriendlyProviderMessage(err)},
		})
	}

	a.Portal.setCookieToken(ctx, a.Provider.CurrentToken(), a.Portal.GetCookieDuration())

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Account created successfully",
	}).Redirect("/", fiber.StatusSeeOther)
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field to message map for templates.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["validation"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
