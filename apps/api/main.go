package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/oklog/run"
	"github.com/pkg/errors"

	dig_container "github.com/trezcool/engsoc/apps/api/di/dig"
	echoapi "github.com/trezcool/engsoc/apps/api/echo"
	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/member"
	"github.com/trezcool/engsoc/core/portal"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		dbLoggerParam dig_container.DBLoggerParam,
		db *sqlx.DB,
		validate *validator.Validate,
		translator ut.Translator,
		registry *portal.Registry,
		shutdown *dig_container.Shutdown,
		server echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

		core.InitValidators(validate, translator)
		member.InitValidators(validate, translator)

		if err := core.ParseEmailTemplates(conf); err != nil {
			apiLogger.Fatal("Failed to parse email templates", err)
		}

		member.LoadCommonPasswords(apiLogger)

		dbLogger := dbLoggerParam.Logger
		defer func() {
			if err := db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		defer apiLogger.Info("Application stopped")

		if err := serve(conf, apiLogger, registry, shutdown, server); err != nil {
			apiLogger.Error(fmt.Sprintf("application error: %v", err), err)
		}
	}))
}

// serve runs the API, the debug server and the screen janitor until one of them stops,
// a termination signal is received or a shutdown is signalled.
func serve(
	conf *core.Config,
	logger core.Logger,
	registry *portal.Registry,
	shutdown *dig_container.Shutdown,
	server echoapi.Server,
) error {
	var g run.Group

	// =========================================================================
	// API

	{
		g.Add(
			func() error {
				logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Addr))
				return server.Start()
			},
			func(error) {
				// give outstanding requests a deadline for completion
				ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
				defer cancel()
				if err := server.Stop(ctx); err != nil {
					logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
				}
				// cancel what the closed screens were still doing
				registry.CloseAll()
			},
		)
	}

	// =========================================================================
	// Debug
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	{
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)
		expvar.Publish("screens", expvar.Func(func() interface{} { return registry.Len() }))

		debug := &http.Server{Addr: conf.Server.DebugHost, Handler: http.DefaultServeMux}
		g.Add(
			func() error {
				if err := debug.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return errors.Wrap(err, "debug server")
				}
				return nil
			},
			func(error) {
				_ = debug.Close()
			},
		)
	}

	// =========================================================================
	// Screen janitor

	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(
			func() error {
				return registry.Run(ctx)
			},
			func(error) {
				cancel()
			},
		)
	}

	// =========================================================================
	// Shutdown

	{
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		g.Add(
			func() error {
				select {
				case <-ctx.Done():
					logger.Info("termination signal received: start shutdown...")
				case <-shutdown.Done():
					logger.Info("shutdown requested: start shutdown...")
				}
				return nil
			},
			func(error) {
				cancel()
			},
		)
	}

	return g.Run()
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
