package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/member"
	"github.com/trezcool/engsoc/core/portal"
	"github.com/trezcool/engsoc/core/upload"
	"github.com/trezcool/engsoc/core/wizard"
)

// screenApi drives the portal screens: a client mounts one, fills it in step by step and unmounts it.
type screenApi struct {
	conf    *core.Config
	portal  *portal.Service
	members member.Service
}

func registerScreenAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts Options) {
	api := screenApi{
		conf:    opts.Conf,
		portal:  opts.Portal,
		members: opts.Members,
	}

	sg := g.Group("/screens", jwt)
	sg.POST("/registrations", api.openRegistration)
	sg.POST("/submissions", api.openSubmission)

	dg := sg.Group("/:id", api.screenMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("/fields", api.setFields)
	dg.POST("/advance", api.advance)
	dg.POST("/retreat", api.retreat)
	dg.POST("/files", api.addFile, middleware.BodyLimit(uploadBodyLimit(opts.Conf)))
	dg.DELETE("/files/:fileId", api.removeFile)
	dg.DELETE("", api.close)
}

// screenMiddleware puts the screen of the context member in the context.
func (api *screenApi) screenMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		m, err := getContextMember(ctx, api.members)
		if err != nil {
			return errors.Wrap(err, "getting context member")
		}
		s, err := api.portal.Screen(ctx.Param("id"), m.ID)
		if err != nil {
			return err
		}
		ctx.Set("object", s)
		return next(ctx)
	}
}

// uploadBodyLimit caps file uploads, with room for the multipart envelope.
func uploadBodyLimit(conf *core.Config) string {
	return fmt.Sprintf("%dM", conf.Portal.MaxUploadSizeMB+1)
}

func contextScreen(ctx echo.Context) (*portal.Screen, error) {
	s, ok := ctx.Get("object").(*portal.Screen)
	if !ok {
		return nil, errors.New("screen not found in echo.Context")
	}
	return s, nil
}

func (api *screenApi) openRegistration(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	var data OpenRegistrationRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OpenRegistrationRequest")
	}

	s, err := api.portal.OpenRegistration(ctx.Request().Context(), m, data.EventID)
	if err != nil {
		return errors.Wrap(err, "opening registration")
	}
	return ctx.JSON(http.StatusCreated, s.View())
}

func (api *screenApi) openSubmission(ctx echo.Context) error {
	m, err := getContextMember(ctx, api.members)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}
	var data OpenSubmissionRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OpenSubmissionRequest")
	}

	s, err := api.portal.OpenSubmission(ctx.Request().Context(), m, data.DeadlineID, data.TeamID)
	if err != nil {
		return errors.Wrap(err, "opening submission")
	}
	return ctx.JSON(http.StatusCreated, s.View())
}

func (api *screenApi) retrieve(ctx echo.Context) error {
	s, err := contextScreen(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s.View())
}

func (api *screenApi) setFields(ctx echo.Context) error {
	s, err := contextScreen(ctx)
	if err != nil {
		return err
	}
	// path params would be bound into the map too
	var values map[string]interface{}
	if err = json.NewDecoder(ctx.Request().Body).Decode(&values); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "fields must be a JSON object").SetInternal(err)
	}
	if err = s.SetFields(values); err != nil {
		return errors.Wrap(err, "setting fields")
	}
	return ctx.JSON(http.StatusOK, s.View())
}

// advance answers 202 while the submission runs, unless ?wait=true, which waits for its outcome.
// A failed submission is reported in the view, not as an error.
func (api *screenApi) advance(ctx echo.Context) error {
	s, err := contextScreen(ctx)
	if err != nil {
		return err
	}
	if err = s.Advance(); err != nil {
		return errors.Wrap(err, "advancing")
	}

	if ctx.QueryParam("wait") == "true" {
		wctx, cancel := context.WithTimeout(ctx.Request().Context(), api.waitTimeout())
		defer cancel()
		if err = s.Wait(wctx); err != nil && wctx.Err() == nil {
			ctx.Logger().Debugf("screen %s: %v", s.ID(), err)
		}
	}

	v := s.View()
	if v.Status == wizard.StatusSubmitting {
		return ctx.JSON(http.StatusAccepted, v)
	}
	return ctx.JSON(http.StatusOK, v)
}

// waitTimeout covers every attempt of the submission and the backoffs between them.
func (api *screenApi) waitTimeout() time.Duration {
	p := api.conf.Portal
	if p.OperationTimeout <= 0 {
		return time.Minute
	}
	d := time.Duration(p.OperationRetries+1) * p.OperationTimeout
	backoff := p.RetryBackoff
	for i := 0; i < p.OperationRetries; i++ {
		d += backoff
		backoff *= 2
	}
	return d
}

func (api *screenApi) retreat(ctx echo.Context) error {
	s, err := contextScreen(ctx)
	if err != nil {
		return err
	}
	if err = s.Retreat(); err != nil {
		return errors.Wrap(err, "retreating")
	}
	return ctx.JSON(http.StatusOK, s.View())
}

// addFile accepts a multipart `file`, or a JSON declaration {name, size, type} when uploads are simulated.
// The upload runs in the background: poll the screen for its progress.
func (api *screenApi) addFile(ctx echo.Context) error {
	s, err := contextScreen(ctx)
	if err != nil {
		return err
	}

	var f upload.File
	if strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := ctx.FormFile("file")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "a multipart `file` is required").SetInternal(err)
		}
		f = upload.File{
			Name: fh.Filename,
			Size: fh.Size,
			Type: fh.Header.Get(echo.HeaderContentType),
		}
		// rejected files are never read
		if err = s.CheckFile(f); err != nil {
			return errors.Wrap(err, "checking file")
		}

		src, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening uploaded file")
		}
		// the request's temporary files are removed once it returns
		content, err := ioutil.ReadAll(src)
		_ = src.Close()
		if err != nil {
			return errors.Wrap(err, "reading uploaded file")
		}
		f.Content = bytes.NewReader(content)
	} else {
		var data FileRequest
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to FileRequest")
		}
		f = upload.File{Name: core.CleanString(data.Name), Size: data.Size, Type: data.Type}
	}

	task, err := s.AddFile(f)
	if err != nil {
		return errors.Wrap(err, "adding file")
	}
	return ctx.JSON(http.StatusAccepted, task)
}

func (api *screenApi) removeFile(ctx echo.Context) error {
	s, err := contextScreen(ctx)
	if err != nil {
		return err
	}
	if err = s.RemoveFile(ctx.Param("fileId")); err != nil {
		return errors.Wrap(err, "removing file")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *screenApi) close(ctx echo.Context) error {
	s, err := contextScreen(ctx)
	if err != nil {
		return err
	}
	if err = api.portal.CloseScreen(s.ID(), s.Owner()); err != nil {
		return errors.Wrap(err, "closing screen")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	OpenRegistrationRequest struct {
		EventID string `json:"event_id"`
	}

	OpenSubmissionRequest struct {
		DeadlineID string `json:"deadline_id"`
		TeamID     string `json:"team_id"`
	}

	FileRequest struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
		Type string `json:"type"`
	}
)
