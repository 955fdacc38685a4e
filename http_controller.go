package accounts

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// AccountsController serves the account resource over HTTP.
type AccountsController struct {
	Debug      bool
	Logger     Logger
	Repo       RepositoryManager
	Notifier   Notifier
	Policy     DispatchPolicy
	Tokens     TokenValidator
	ContextKey string
}

type AccountsControllerOption func(*AccountsController) *AccountsController

func WithControllerLogger(logger Logger) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithRepository(repo RepositoryManager) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Repo = repo
		return c
	}
}

func WithNotifier(notifier Notifier) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		if notifier != nil {
			c.Notifier = notifier
		}
		return c
	}
}

func WithTokenValidator(tokens TokenValidator) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Tokens = tokens
		return c
	}
}

func WithDispatchPolicy(policy DispatchPolicy) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Policy = policy
		return c
	}
}

func WithContextKey(key string) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

func WithDebug(debug bool) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Debug = debug
		return c
	}
}

func NewAccountsController(opts ...AccountsControllerOption) *AccountsController {
	c := &AccountsController{
		Logger:     defLogger{},
		Notifier:   LogNotifier{},
		ContextKey: DefaultActorContextKey,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in accounts controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenValidator in accounts controller...")
	}

	return c
}

// RegisterAccountRoutes mounts the account resource. Static segments
// register before the id routes so "me" and "verify" never bind as ids.
func RegisterAccountRoutes[T any](app router.Router[T], opts ...AccountsControllerOption) *AccountsController {
	controller := NewAccountsController(opts...)

	auth := Authenticate(controller.Tokens, controller.ContextKey)
	client := RequireClient(controller.ContextKey)

	app.Get("/accounts", controller.Index, auth).
		SetName("accounts.index")

	app.Post("/accounts", controller.Store, auth, client).
		SetName("accounts.store")

	app.Get("/accounts/me", controller.Me, auth).
		SetName("accounts.me")

	app.Get("/accounts/verify/:token", controller.Verify).
		SetName("accounts.verify")

	app.Get("/accounts/:id/resend", controller.Resend, auth, client).
		SetName("accounts.resend")

	app.Get("/accounts/:id", controller.Show, auth).
		SetName("accounts.show")

	app.Put("/accounts/:id", controller.Update, auth).
		SetName("accounts.update")

	app.Delete("/accounts/:id", controller.Destroy, auth).
		SetName("accounts.destroy")

	return controller
}

// Index lists accounts, optionally filtered by verification or admin state.
func (a *AccountsController) Index(ctx router.Context) error {
	actor, _ := GetRouterActor(ctx, a.ContextKey)
	if err := AuthorizeScope(actor, OpList); err != nil {
		return RenderError(ctx, err)
	}

	criteria := ListCriteria{}

	if v := ctx.Query("isVerified", ""); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			criteria.Verified = &parsed
		}
	}

	if v := ctx.Query("isAdmin", ""); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			criteria.Admin = &parsed
		}
	}

	records, err := a.Repo.Accounts().ListAccounts(ctx.Context(), criteria)
	if err != nil {
		a.Logger.Error("account list error: %v", err)
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "could not list accounts"))
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"data": NewAccountCollection(records),
	})
}

// Store registers a new account and dispatches the verification email.
func (a *AccountsController) Store(ctx router.Context) error {
	payload := new(CreateAccountMessage)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("account store parse payload: %v", err)
		return ctx.JSON(fiber.StatusBadRequest, ErrorEnvelope{
			Error: "Failed to parse request body",
			Code:  fiber.StatusBadRequest,
		})
	}

	if a.Debug {
		fmt.Println("======= ACCOUNT STORE ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	var record *Account
	payload.OnResponse = func(acc *Account) {
		record = acc
	}

	handler := NewCreateAccountHandler(a.Repo).WithLogger(a.Logger)
	if err := handler.Execute(ctx.Context(), *payload); err != nil {
		return RenderError(ctx, err)
	}

	a.dispatchVerification(ctx.Context(), record)

	return ctx.JSON(fiber.StatusCreated, map[string]any{
		"data": NewAccountResource(record),
	})
}

// Me returns the caller's own account.
func (a *AccountsController) Me(ctx router.Context) error {
	actor, _ := GetRouterActor(ctx, a.ContextKey)
	if err := AuthorizeScope(actor, OpMe); err != nil {
		return RenderError(ctx, err)
	}

	record, err := a.Repo.Accounts().GetByID(ctx.Context(), actor.ID.String())
	if err != nil {
		return a.renderLookupError(ctx, actor.ID, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"data": NewAccountResource(record),
	})
}

// Show returns a single account.
func (a *AccountsController) Show(ctx router.Context) error {
	actor, _ := GetRouterActor(ctx, a.ContextKey)
	if err := AuthorizeScope(actor, OpShow); err != nil {
		return RenderError(ctx, err)
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return RenderError(ctx, notFound(uuid.Nil))
	}

	record, err := a.Repo.Accounts().GetByID(ctx.Context(), id.String())
	if err != nil {
		return a.renderLookupError(ctx, id, err)
	}

	if err := Authorize(actor, OpShow, record); err != nil {
		return RenderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"data": NewAccountResource(record),
	})
}

// Update applies a sparse update to an account.
func (a *AccountsController) Update(ctx router.Context) error {
	actor, _ := GetRouterActor(ctx, a.ContextKey)
	if err := AuthorizeScope(actor, OpUpdate); err != nil {
		return RenderError(ctx, err)
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return RenderError(ctx, notFound(uuid.Nil))
	}

	target, err := a.Repo.Accounts().GetByID(ctx.Context(), id.String())
	if err != nil {
		return a.renderLookupError(ctx, id, err)
	}

	if err := Authorize(actor, OpUpdate, target); err != nil {
		return RenderError(ctx, err)
	}

	payload := new(UpdateAccountMessage)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("account update parse payload: %v", err)
		return ctx.JSON(fiber.StatusBadRequest, ErrorEnvelope{
			Error: "Failed to parse request body",
			Code:  fiber.StatusBadRequest,
		})
	}

	if a.Debug {
		fmt.Println("======= ACCOUNT UPDATE ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=============================")
	}

	payload.ID = id
	payload.Actor = actor

	previousEmail := target.Email

	var record *Account
	payload.OnResponse = func(acc *Account) {
		record = acc
	}

	handler := NewUpdateAccountHandler(a.Repo).WithLogger(a.Logger)
	if err := handler.Execute(ctx.Context(), *payload); err != nil {
		return RenderError(ctx, err)
	}

	// an email change re-enters the unverified state with a new token;
	// re-submitting the current address is not a change and resends nothing
	if payload.Email != nil && *payload.Email != previousEmail && !record.IsVerified() {
		a.dispatchVerification(ctx.Context(), record)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"data": NewAccountResource(record),
	})
}

// Destroy soft deletes an account.
func (a *AccountsController) Destroy(ctx router.Context) error {
	actor, _ := GetRouterActor(ctx, a.ContextKey)
	if err := AuthorizeScope(actor, OpDestroy); err != nil {
		return RenderError(ctx, err)
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return RenderError(ctx, notFound(uuid.Nil))
	}

	target, err := a.Repo.Accounts().GetByID(ctx.Context(), id.String())
	if err != nil {
		return a.renderLookupError(ctx, id, err)
	}

	if err := Authorize(actor, OpDestroy, target); err != nil {
		return RenderError(ctx, err)
	}

	handler := NewDeleteAccountHandler(a.Repo).WithLogger(a.Logger)
	if err := handler.Execute(ctx.Context(), DeleteAccountMessage{ID: id}); err != nil {
		return RenderError(ctx, err)
	}

	return ctx.Status(fiber.StatusNoContent).SendString("")
}

// Verify redeems a verification token from the emailed link.
func (a *AccountsController) Verify(ctx router.Context) error {
	handler := NewVerifyAccountHandler(a.Repo).WithLogger(a.Logger)

	msg := VerifyAccountMessage{Token: ctx.Param("token")}
	if err := handler.Execute(ctx.Context(), msg); err != nil {
		return RenderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, MessageEnvelope{
		Message: "The account has been successfully verified",
	})
}

// Resend re-dispatches the pending verification email.
func (a *AccountsController) Resend(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return RenderError(ctx, notFound(uuid.Nil))
	}

	handler := NewResendVerificationHandler(a.Repo, a.Notifier).
		WithDispatchPolicy(a.Policy).
		WithLogger(a.Logger)

	if err := handler.Execute(ctx.Context(), ResendVerificationMessage{ID: id}); err != nil {
		return RenderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, MessageEnvelope{
		Message: "The verification token has been resend",
	})
}

// dispatchVerification delivers the account's pending token through the
// retry policy. Delivery failure does not fail the request that produced
// the token: the caller can always hit resend.
func (a *AccountsController) dispatchVerification(ctx context.Context, record *Account) {
	if record == nil || record.IsVerified() || record.VerificationToken == "" {
		return
	}

	notification := Notification{
		Name:  record.Name,
		Email: record.Email,
		Token: record.VerificationToken,
	}

	if err := DispatchWithRetry(ctx, a.Policy, func(ctx context.Context) error {
		return a.Notifier.SendVerification(ctx, notification)
	}); err != nil {
		a.Logger.Warn("verification email for %s not delivered: %v", record.Email, err)
	}
}

func (a *AccountsController) renderLookupError(ctx router.Context, id uuid.UUID, err error) error {
	if repository.IsRecordNotFound(err) {
		return RenderError(ctx, notFound(id))
	}

	a.Logger.Error("account lookup error: %v", err)
	return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve account"))
}
