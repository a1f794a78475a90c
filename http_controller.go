package identity

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Controller exposes the lifecycle operations over HTTP. Schema validation
// happens here, at the edge; everything behind it receives pre-validated
// input.
type Controller struct {
	Lifecycle *Lifecycle
	Tokens    TokenService
	Store     UserStore
	Logger    Logger
}

// NewController wires the HTTP surface.
func NewController(lifecycle *Lifecycle, tokens TokenService, store UserStore) *Controller {
	return &Controller{
		Lifecycle: lifecycle,
		Tokens:    tokens,
		Store:     store,
		Logger:    defLogger{},
	}
}

// RegisterRoutes mounts the operation surface.
func (c *Controller) RegisterRoutes(app fiber.Router) {
	app.Post("/signup", c.Signup)
	app.Post("/login", c.Login)
	app.Post("/logout", c.requireActor(c.Logout))
	app.Patch("/verify-account/:token", c.VerifyAccount)
	app.Get("/resend-verification-email/:email", c.ResendVerification)

	app.Post("/password-resetting", c.RequestPasswordReset)
	app.Get("/password-resetting", c.VerifyResetToken)
	app.Patch("/password-resetting", c.ResetPassword)
	app.Patch("/change-password", c.requireActor(c.ChangePassword))

	app.Post("/email-change-request", c.requireActor(c.RequestEmailChange))
	app.Patch("/change-email/:token", c.ConfirmEmailChange)

	app.Post("/users", c.requireActor(c.AdminCreate))
	app.Patch("/users/:id", c.requireActor(c.UpdateAccount))
	app.Delete("/users/:id", c.requireActor(c.DeleteAccount))
}

// SignupRequest payload
type SignupRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Phone       string `json:"phone_number"`
	DateOfBirth string `json:"date_of_birth"`
	Role        string `json:"role"`
}

// Validate checks the payload shape.
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required),
		validation.Field(&r.LastName, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 0)),
		validation.Field(&r.Role, validation.Required),
	)
}

func (c *Controller) Signup(ctx *fiber.Ctx) error {
	var req SignupRequest
	if err := ctx.BodyParser(&req); err != nil {
		return c.fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.fail(ctx, fiber.StatusBadRequest, err.Error())
	}

	user, err := c.Lifecycle.Signup(ctx.Context(), SignupInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Role:        Role(strings.ToUpper(req.Role)),
	})
	if err != nil {
		return c.renderError(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": user})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the payload shape.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (c *Controller) Login(ctx *fiber.Ctx) error {
	var req LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return c.fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.fail(ctx, fiber.StatusBadRequest, err.Error())
	}

	result, err := c.Lifecycle.Login(ctx.Context(), req.Email, req.Password)
	if err != nil {
		return c.renderError(ctx, err)
	}

	return ctx.JSON(fiber.Map{"success": true, "data": result})
}

func (c *Controller) Logout(ctx *fiber.Ctx, actor ActorRef) error {
	if err := c.Lifecycle.Logout(ctx.Context(), actor); err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"success": true, "message": "user logged out successfully"})
}

func (c *Controller) VerifyAccount(ctx *fiber.Ctx) error {
	email, err := c.Lifecycle.VerifyAccount(ctx.Context(), ctx.Params("token"))
	if err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"success": true, "data": email})
}

func (c *Controller) ResendVerification(ctx *fiber.Ctx) error {
	email := ctx.Params("email")
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return c.fail(ctx, fiber.StatusBadRequest, err.Error())
	}
	if err := c.Lifecycle.ResendVerification(ctx.Context(), email); err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"success": true, "message": "email was re-sent to " + NormalizeEmail(email)})
}

// EmailRequest payload
type EmailRequest struct {
	Email string `json:"email"`
}

// Validate checks the payload shape.
func (r EmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (c *Controller) RequestPasswordReset(ctx *fiber.Ctx) error {
	var req EmailRequest
	if err := ctx.BodyParser(&req); err != nil {
		return c.fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.fail(ctx, fiber.StatusBadRequest, err.Error())
	}

	if err := c.Lifecycle.RequestPasswordReset(ctx.Context(), req.Email); err != nil {
		return c.renderError(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"message": "an email has been sent to " + NormalizeEmail(req.Email) + " for further actions",
	})
}

func (c *Controller) VerifyResetToken(ctx *fiber.Ctx) error {
	id, err := c.Lifecycle.VerifyResetToken(ctx.Context(), ctx.Query("token"))
	if err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"success": true, "data": id.String()})
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

// Validate checks the payload shape.
func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required, is.UUID),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 0)),
	)
}

func (c *Controller) ResetPassword(ctx *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := ctx.BodyParser(&req); err != nil {
		return c.fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.fail(ctx, fiber.StatusBadRequest, err.Error())
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		return c.fail(ctx, fiber.StatusBadRequest, "invalid account id")
	}

	if err := c.Lifecycle.ResetPassword(ctx.Context(), id, req.Password); err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"success": true, "message": "password successfully changed"})
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Validate checks the payload shape.
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 0)),
	)
}

func (c *Controller) ChangePassword(ctx *fiber.Ctx, actor ActorRef) error {
	var req ChangePasswordRequest
	if err := ctx.BodyParser(&req); err != nil {
		return c.fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.fail(ctx, fiber.StatusBadRequest, err.Error())
	}

	if err := c.Lifecycle.ChangePassword(ctx.Context(), actor, req.OldPassword, req.NewPassword); err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"success": true, "message": "password successfully changed"})
}

// ChangeEmailRequest payload
type ChangeEmailRequest struct {
	Password string `json:"password"`
	Email    string `json:"email"`
}

// Validate checks the payload shape.
func (r ChangeEmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (c *Controller) RequestEmailChange(ctx *fiber.Ctx, actor ActorRef) error {
	var req ChangeEmailRequest
	if err := ctx.BodyParser(&req); err != nil {
		return c.fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.fail(ctx, fiber.StatusBadRequest, err.Error())
	}

	if err := c.Lifecycle.RequestEmailChange(ctx.Context(), actor, req.Password, req.Email); err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.JSON(fiber.Map{
		"success": true,
		"message": "an email has been sent to " + NormalizeEmail(req.Email) + " for further actions",
	})
}

func (c *Controller) ConfirmEmailChange(ctx *fiber.Ctx) error {
	if err := c.Lifecycle.ConfirmEmailChange(ctx.Context(), ctx.Params("token")); err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"success": true, "message": "email successfully changed"})
}

func (c *Controller) AdminCreate(ctx *fiber.Ctx, actor ActorRef) error {
	var req SignupRequest
	if err := ctx.BodyParser(&req); err != nil {
		return c.fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := c.Lifecycle.AdminCreate(ctx.Context(), actor, SignupInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Role:        Role(strings.ToUpper(req.Role)),
	})
	if err != nil {
		return c.renderError(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": user})
}

// UpdateAccountRequest payload
type UpdateAccountRequest struct {
	FirstName   *string  `json:"first_name"`
	LastName    *string  `json:"last_name"`
	Phone       *string  `json:"phone_number"`
	DateOfBirth *string  `json:"date_of_birth"`
	Avatar      *string  `json:"avatar"`
	Roles       []string `json:"roles"`
	Status      *string  `json:"status"`
}

func (c *Controller) UpdateAccount(ctx *fiber.Ctx, actor ActorRef) error {
	var req UpdateAccountRequest
	if err := ctx.BodyParser(&req); err != nil {
		return c.fail(ctx, fiber.StatusBadRequest, "invalid request body")
	}

	// default to the actor's own record, original clients omit the id
	id := actor.ID
	if raw := ctx.Params("id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return c.fail(ctx, fiber.StatusBadRequest, "invalid account id")
		}
		id = parsed
	}

	patch := AccountUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Avatar:      req.Avatar,
	}
	for _, r := range req.Roles {
		patch.Roles = append(patch.Roles, Role(strings.ToUpper(r)))
	}
	if req.Status != nil {
		status := UserStatus(strings.ToUpper(*req.Status))
		patch.Status = &status
	}

	user, err := c.Lifecycle.UpdateAccount(ctx.Context(), actor, id, patch)
	if err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"success": true, "data": user})
}

func (c *Controller) DeleteAccount(ctx *fiber.Ctx, actor ActorRef) error {
	id := actor.ID
	if raw := ctx.Params("id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return c.fail(ctx, fiber.StatusBadRequest, "invalid account id")
		}
		id = parsed
	}

	if err := c.Lifecycle.DeleteAccount(ctx.Context(), actor, id); err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"success": true, "message": "user deleted successfully"})
}

// requireActor resolves the bearer token into an ActorRef and rejects
// unauthenticated requests before the handler runs.
func (c *Controller) requireActor(handler func(ctx *fiber.Ctx, actor ActorRef) error) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		raw := strings.TrimPrefix(ctx.Get(fiber.HeaderAuthorization), "Bearer ")
		if raw == "" {
			return c.fail(ctx, fiber.StatusUnauthorized, "missing authentication token")
		}

		claims, err := c.Tokens.Verify(raw)
		if err != nil {
			return c.renderError(ctx, err)
		}

		id, err := claims.UserUUID()
		if err != nil {
			return c.renderError(ctx, ErrTokenMalformed)
		}

		user, err := c.Store.FindByID(ctx.Context(), id)
		if err != nil {
			return c.renderError(ctx, ErrInvalidCredentials)
		}

		actor := UserActor(user.ID, user.Roles...)
		ctx.SetUserContext(WithActorContext(WithUserContext(ctx.UserContext(), user), actor))

		return handler(ctx, actor)
	}
}

func (c *Controller) renderError(ctx *fiber.Ctx, err error) error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		status := richErr.Code
		if status == 0 || richErr.Category == errors.CategoryInternal {
			c.Logger.Error("internal error", "path", ctx.Path(), "error", err)
			return c.fail(ctx, fiber.StatusInternalServerError, "something went wrong, please try again later")
		}
		return c.fail(ctx, status, richErr.Message)
	}

	c.Logger.Error("unhandled error", "path", ctx.Path(), "error", err)
	return c.fail(ctx, fiber.StatusInternalServerError, "something went wrong, please try again later")
}

func (c *Controller) fail(ctx *fiber.Ctx, status int, message string) error {
	return ctx.Status(status).JSON(fiber.Map{"success": false, "message": message})
}
