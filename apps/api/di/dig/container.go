package dig_container

import (
	"fmt"
	"log"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/engsoc/apps/api/echo"
	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/competition"
	"github.com/trezcool/engsoc/core/dashboard"
	"github.com/trezcool/engsoc/core/event"
	"github.com/trezcool/engsoc/core/form"
	"github.com/trezcool/engsoc/core/member"
	"github.com/trezcool/engsoc/core/notification"
	"github.com/trezcool/engsoc/core/portal"
	"github.com/trezcool/engsoc/core/resource"
	"github.com/trezcool/engsoc/core/team"
	"github.com/trezcool/engsoc/core/upload"
	emailsvc "github.com/trezcool/engsoc/services/email"
	logsvc "github.com/trezcool/engsoc/services/logger"
	storagesvc "github.com/trezcool/engsoc/services/storage"
	"github.com/trezcool/engsoc/storage/database"
	sqlxrepos "github.com/trezcool/engsoc/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewLogrusEntry(conf, "API"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewLogrusEntry(conf, "DB"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, loggerParam.Logger); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newStorage(conf *core.Config, logger core.Logger) upload.Storage {
	storage, err := storagesvc.New(conf.Portal)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	return storage
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newRegistry(conf *core.Config, logger core.Logger) *portal.Registry {
	return portal.NewRegistry(conf.Portal.ScreenTTL, logger)
}

type portalParams struct {
	dig.In
	Conf          *core.Config
	Validator     *form.Validator
	Storage       upload.Storage
	Mailer        core.EmailService
	Logger        core.Logger
	Registry      *portal.Registry
	Members       member.Service
	Events        event.Service
	Competitions  competition.Service
	Teams         team.Service
	Notifications notification.Service
}

func newPortal(p portalParams) *portal.Service {
	return portal.NewService(portal.Deps{
		Conf:          p.Conf.Portal,
		Validator:     p.Validator,
		Storage:       p.Storage,
		Mailer:        p.Mailer,
		Logger:        p.Logger,
		Registry:      p.Registry,
		Members:       p.Members,
		Events:        p.Events,
		Competitions:  p.Competitions,
		Teams:         p.Teams,
		Notifications: p.Notifications,
	})
}

// Shutdown is signalled when the API must stop, eg: on a core.shutdown error.
type Shutdown struct {
	once sync.Once
	ch   chan struct{}
}

func newShutdown() *Shutdown {
	return &Shutdown{ch: make(chan struct{})}
}

func (s *Shutdown) Signal()               { s.once.Do(func() { close(s.ch) }) }
func (s *Shutdown) Done() <-chan struct{} { return s.ch }

type serverParams struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	Validate      *validator.Validate
	Translator    ut.Translator
	Shutdown      *Shutdown
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

func newServer(p serverParams) echoapi.Server {
	return echoapi.NewServer(echoapi.Options{
		Conf:           p.Conf,
		Logger:         p.Logger,
		Validate:       p.Validate,
		Translator:     p.Translator,
		SignalShutdown: p.Shutdown.Signal,
		Members:        p.Members,
		PasswordReset:  p.PasswordReset,
		Dashboard:      p.Dashboard,
		Events:         p.Events,
		Resources:      p.Resources,
		Competitions:   p.Competitions,
		Teams:          p.Teams,
		Notifications:  p.Notifications,
		Portal:         p.Portal,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newStorage))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(form.NewValidator))

	// repositories
	must(c.Provide(sqlxrepos.NewMemberRepository, dig.As(new(member.Repository))))
	must(c.Provide(sqlxrepos.NewEventRepository, dig.As(new(event.Repository))))
	must(c.Provide(sqlxrepos.NewResourceRepository, dig.As(new(resource.Repository))))
	must(c.Provide(sqlxrepos.NewCompetitionRepository, dig.As(new(competition.Repository))))
	must(c.Provide(sqlxrepos.NewTeamRepository, dig.As(new(team.Repository))))
	must(c.Provide(sqlxrepos.NewNotificationRepository, dig.As(new(notification.Repository))))

	// services
	must(c.Provide(member.NewService))
	must(c.Provide(member.NewPasswordReset))
	must(c.Provide(event.NewService))
	must(c.Provide(resource.NewService))
	must(c.Provide(competition.NewService))
	must(c.Provide(team.NewService))
	must(c.Provide(notification.NewService))
	must(c.Provide(dashboard.NewService))
	must(c.Provide(newRegistry))
	must(c.Provide(newPortal))

	must(c.Provide(newShutdown))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
