package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/competition"
	"github.com/trezcool/engsoc/core/dashboard"
	"github.com/trezcool/engsoc/core/event"
	"github.com/trezcool/engsoc/core/member"
	"github.com/trezcool/engsoc/core/notification"
	"github.com/trezcool/engsoc/core/portal"
	"github.com/trezcool/engsoc/core/resource"
	"github.com/trezcool/engsoc/core/team"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
		SignalShutdown func() // may be nil

		Members       member.Service
		PasswordReset *member.PasswordReset
		Dashboard     dashboard.Service
		Events        event.Service
		Resources     resource.Service
		Competitions  competition.Service
		Teams         team.Service
		Notifications notification.Service
		Portal        *portal.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(jwtConfig(conf))

	registerMemberAPI(v1, jwt, s.opts)
	registerCatalogAPI(v1, jwt, s.opts)
	registerTeamAPI(v1, jwt, s.opts)
	registerNotificationAPI(v1, jwt, s.opts)
	registerScreenAPI(v1, jwt, s.opts)
}

// Start blocks until the server is stopped. It returns nil once stopped gracefully.
func (s *server) Start() error {
	if err := s.app.Start(s.opts.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.Conf.AppName+" API!")
}
