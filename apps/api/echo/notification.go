package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core/member"
	"github.com/trezcool/engsoc/core/notification"
)

type notificationApi struct {
	svc     notification.Service
	members member.Service
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts Options) {
	api := notificationApi{
		svc:     opts.Notifications,
		members: opts.Members,
	}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.query)
	ng.GET("/preview", api.preview)
	ng.POST("/read", api.markAllRead)
	ng.POST("/:id/read", api.markRead)
	ng.DELETE("/:id", api.destroy)
}

func (api *notificationApi) query(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	ns, total, err := api.svc.List(ctx.Request().Context(), m.ID, ctx.QueryParam("tab"), page)
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	if ns == nil {
		ns = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, Paginated{Count: total, Page: page.Number, Results: ns})
}

func (api *notificationApi) preview(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	rctx := ctx.Request().Context()
	unread, err := api.svc.UnreadCount(rctx, m.ID)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	ns, err := api.svc.Preview(rctx, m.ID)
	if err != nil {
		return errors.Wrap(err, "previewing notifications")
	}
	if ns == nil {
		ns = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, PreviewResponse{Unread: unread, Notifications: ns})
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	n, err := api.svc.MarkAllRead(ctx.Request().Context(), m.ID)
	if err != nil {
		return errors.Wrap(err, "marking notifications as read")
	}
	return ctx.JSON(http.StatusOK, MarkedResponse{Marked: n})
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	if err = api.svc.MarkRead(ctx.Request().Context(), m.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "marking notification as read")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) destroy(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	if err = api.svc.Delete(ctx.Request().Context(), m.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	PreviewResponse struct {
		Unread        int                         `json:"unread"`
		Notifications []notification.Notification `json:"notifications"`
	}

	MarkedResponse struct {
		Marked int `json:"marked"`
	}
)
