package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/competition"
	"github.com/trezcool/engsoc/core/dashboard"
	"github.com/trezcool/engsoc/core/event"
	"github.com/trezcool/engsoc/core/member"
	"github.com/trezcool/engsoc/core/notification"
	"github.com/trezcool/engsoc/core/resource"
)

// catalogApi serves the read side of the portal: dashboard, events, resources, competitions and submissions.
type catalogApi struct {
	logger        core.Logger
	validate      *validator.Validate
	members       member.Service
	dashboard     dashboard.Service
	events        event.Service
	resources     resource.Service
	competitions  competition.Service
	notifications notification.Service
}

func registerCatalogAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts Options) {
	api := catalogApi{
		logger:        opts.Logger,
		validate:      opts.Validate,
		members:       opts.Members,
		dashboard:     opts.Dashboard,
		events:        opts.Events,
		resources:     opts.Resources,
		competitions:  opts.Competitions,
		notifications: opts.Notifications,
	}

	ag := g.Group("", jwt)
	ag.GET("/dashboard", api.retrieveDashboard)

	ag.GET("/events", api.queryEvents)
	ag.GET("/events/:id", api.retrieveEvent)
	ag.GET("/registrations", api.queryRegistrations)

	ag.GET("/resources", api.queryResources)
	ag.GET("/resources/:id", api.retrieveResource)

	ag.GET("/competitions/:id", api.retrieveCompetition)

	ag.GET("/submissions", api.querySubmissions)
	ag.GET("/submissions/:id", api.retrieveSubmission)
	ag.PUT("/submissions/:id/review", api.reviewSubmission, adminMiddleware(api.members))
}

func (api *catalogApi) retrieveDashboard(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	sum, err := api.dashboard.Get(ctx.Request().Context(), m.ID)
	if err != nil {
		return errors.Wrap(err, "getting dashboard")
	}
	return ctx.JSON(http.StatusOK, sum)
}

// Events

func (api *catalogApi) queryEvents(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	filter := event.QueryFilter{
		Search:   ctx.QueryParam("search"),
		Status:   event.Status(ctx.QueryParam("status")),
		Online:   boolParam(ctx, "online"),
		Upcoming: ctx.QueryParam("upcoming") == "true",
		Viewer:   m.ID,
	}
	for _, c := range ctx.QueryParams()["category"] {
		filter.Categories = append(filter.Categories, event.Category(c))
	}
	if registered := boolParam(ctx, "registered"); registered != nil && *registered {
		filter.RegisteredBy = m.ID
	}

	events, total, err := api.events.List(ctx.Request().Context(), filter, page, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "listing events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, Paginated{Count: total, Page: page.Number, Results: events})
}

func (api *catalogApi) retrieveEvent(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	evt, err := api.events.Get(ctx.Request().Context(), ctx.Param("id"), m.ID)
	if err != nil {
		return errors.Wrap(err, "getting event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *catalogApi) queryRegistrations(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	regs, err := api.events.Registrations(ctx.Request().Context(), m.ID)
	if err != nil {
		return errors.Wrap(err, "listing registrations")
	}
	if regs == nil {
		regs = []event.Registration{}
	}
	return ctx.JSON(http.StatusOK, regs)
}

// Resources

func (api *catalogApi) queryResources(ctx echo.Context) error {
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	filter := resource.QueryFilter{
		Search:   ctx.QueryParam("search"),
		Category: ctx.QueryParam("category"),
		Type:     resource.Type(ctx.QueryParam("type")),
		Featured: boolParam(ctx, "featured"),
	}
	res, total, err := api.resources.List(ctx.Request().Context(), filter, page, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "listing resources")
	}
	if ctx.QueryParam("grouped") == "true" {
		return ctx.JSON(http.StatusOK, Paginated{Count: total, Page: page.Number, Results: resource.Group(res)})
	}
	if res == nil {
		res = []resource.Resource{}
	}
	return ctx.JSON(http.StatusOK, Paginated{Count: total, Page: page.Number, Results: res})
}

func (api *catalogApi) retrieveResource(ctx echo.Context) error {
	r, err := api.resources.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting resource")
	}
	return ctx.JSON(http.StatusOK, r)
}

// Competitions & submissions

func (api *catalogApi) retrieveCompetition(ctx echo.Context) error {
	c, err := api.competitions.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting competition")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *catalogApi) querySubmissions(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	filter := competition.QueryFilter{
		MemberID: m.ID,
		Search:   ctx.QueryParam("search"),
		Status:   competition.SubmissionStatus(ctx.QueryParam("status")),
	}
	subs, total, err := api.competitions.ListSubmissions(ctx.Request().Context(), filter, page, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "listing submissions")
	}
	if ctx.QueryParam("grouped") == "true" {
		return ctx.JSON(http.StatusOK, Paginated{Count: total, Page: page.Number, Results: competition.GroupByStatus(subs)})
	}
	if subs == nil {
		subs = []competition.Submission{}
	}
	return ctx.JSON(http.StatusOK, Paginated{Count: total, Page: page.Number, Results: subs})
}

// retrieveSubmission only shows a member their own submissions; admins see all.
func (api *catalogApi) retrieveSubmission(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	sub, err := api.competitions.GetSubmission(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting submission")
	}
	if sub.MemberID != m.ID && !m.IsAdmin() {
		return competition.ErrSubmissionNotFound
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *catalogApi) reviewSubmission(ctx echo.Context) error {
	var data ReviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	sub, err := api.competitions.Review(ctx.Request().Context(), ctx.Param("id"), data.Status, data.Feedback)
	if err != nil {
		return errors.Wrap(err, "reviewing submission")
	}

	_, err = api.notifications.Create(ctx.Request().Context(), notification.Notification{
		MemberID: sub.MemberID,
		Title:    "Submission Reviewed",
		Message:  fmt.Sprintf("Your submission %q was %s.", sub.Title, sub.Status),
		Type:     notification.TypeFeedback,
		Link:     "/dashboard/submissions/" + sub.ID,
		LinkText: "View feedback",
	})
	if err != nil {
		api.logger.Error(fmt.Sprintf("creating notification: %v", err), errors.Wrap(err, "creating notification"))
	}
	return ctx.JSON(http.StatusOK, sub)
}

type ReviewRequest struct {
	Status   competition.SubmissionStatus `json:"status" validate:"required"`
	Feedback string                       `json:"feedback"`
}
