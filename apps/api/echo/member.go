package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/member"
	"github.com/trezcool/engsoc/core/portal"
)

type memberApi struct {
	conf     *core.Config
	svc      member.Service
	reset    *member.PasswordReset
	portal   *portal.Service
	validate *validator.Validate
}

func registerMemberAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts Options) {
	api := memberApi{
		conf:     opts.Conf,
		svc:      opts.Members,
		reset:    opts.PasswordReset,
		portal:   opts.Portal,
		validate: opts.Validate,
	}

	mg := g.Group("/members")

	// un-authed endpoints
	mg.POST("/login", api.login)
	mg.POST("/password-reset", api.requestPasswordReset)
	mg.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag := mg.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.retrieveMe)
	ag.PUT("/me", api.updateMe)
	ag.POST("", api.create, adminMiddleware(api.svc))
}

// Handlers

func (api *memberApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}

	res, err := api.portal.Login(ctx.Request().Context(), data.MemberID, data.Password, api.token)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: res.Token, Member: res.Member})
}

func (api *memberApi) requestPasswordReset(ctx echo.Context) error {
	var data member.PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.reset.Request(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == member.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *memberApi) confirmPasswordReset(ctx echo.Context) error {
	var data member.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.reset.Confirm(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *memberApi) token(m member.Member) (string, error) {
	return GenerateToken(api.conf, NewClaims(api.conf, m))
}

func (api *memberApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *memberApi) retrieveMe(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) updateMe(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}

	var data member.UpdateMember
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMember")
	}
	if err = data.Validate(m, api.validate); err != nil {
		return err
	}

	m, err = api.svc.Update(ctx.Request().Context(), m, data)
	if err != nil {
		return errors.Wrap(err, "updating member")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) create(ctx echo.Context) error {
	var data member.NewMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMember")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	m, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating member")
	}
	return ctx.JSON(http.StatusCreated, m)
}

type (
	LoginRequest struct {
		MemberID string `json:"member_id"`
		Password string `json:"password"`
	}

	LoginResponse struct {
		Token  string        `json:"token"`
		Member member.Member `json:"member"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)
