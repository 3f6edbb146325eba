package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/member"
	"github.com/trezcool/engsoc/core/team"
)

type teamApi struct {
	svc      team.Service
	members  member.Service
	validate *validator.Validate
}

func registerTeamAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts Options) {
	api := teamApi{
		svc:      opts.Teams,
		members:  opts.Members,
		validate: opts.Validate,
	}

	tg := g.Group("/teams", jwt)
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.GET("/:id", api.retrieve)
	tg.POST("/:id/invites", api.invite)
	tg.DELETE("/:id/invites/:inviteId", api.cancelInvite)
	tg.PUT("/:id/members/:memberId", api.updateMemberRole)
	tg.DELETE("/:id/members/:memberId", api.removeMember)
}

func (api *teamApi) query(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	teams, err := api.svc.ListForMember(ctx.Request().Context(), m.ID)
	if err != nil {
		return errors.Wrap(err, "listing teams")
	}
	if teams == nil {
		teams = []team.Team{}
	}
	return ctx.JSON(http.StatusOK, teams)
}

func (api *teamApi) create(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	var data NewTeamRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeamRequest")
	}
	data.Name = core.CleanString(data.Name)
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	t, err := api.svc.Create(
		ctx.Request().Context(),
		team.Team{Name: data.Name, CompetitionID: data.CompetitionID, Description: data.Description},
		team.Member{MemberID: m.ID, Name: m.Name, Email: m.Email, Role: data.Role},
	)
	if err != nil {
		return errors.Wrap(err, "creating team")
	}
	return ctx.JSON(http.StatusCreated, t)
}

// retrieve only shows a team to its members.
func (api *teamApi) retrieve(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	t, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting team")
	}
	if !t.HasMember(m.ID) {
		return team.ErrNotFound
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teamApi) invite(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	var data team.NewInvite
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInvite")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	inv, err := api.svc.Invite(ctx.Request().Context(), ctx.Param("id"), m.ID, data)
	if err != nil {
		return errors.Wrap(err, "inviting")
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *teamApi) cancelInvite(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	if err = api.svc.CancelInvite(ctx.Request().Context(), ctx.Param("id"), m.ID, ctx.Param("inviteId")); err != nil {
		return errors.Wrap(err, "cancelling invite")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *teamApi) updateMemberRole(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	var data team.UpdateRole
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRole")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.UpdateMemberRole(ctx.Request().Context(), ctx.Param("id"), m.ID, ctx.Param("memberId"), data.Role)
	if err != nil {
		return errors.Wrap(err, "updating member role")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teamApi) removeMember(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	t, err := api.svc.RemoveMember(ctx.Request().Context(), ctx.Param("id"), m.ID, ctx.Param("memberId"))
	if err != nil {
		return errors.Wrap(err, "removing member")
	}
	return ctx.JSON(http.StatusOK, t)
}

type NewTeamRequest struct {
	Name          string `json:"name" validate:"required"`
	CompetitionID string `json:"competition_id"`
	Description   string `json:"description"`
	Role          string `json:"role"`
}
