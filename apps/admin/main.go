package main

import (
	"fmt"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/competition"
	"github.com/trezcool/engsoc/core/event"
	"github.com/trezcool/engsoc/core/member"
	"github.com/trezcool/engsoc/core/resource"
	logsvc "github.com/trezcool/engsoc/services/logger"
	"github.com/trezcool/engsoc/storage/database"
	sqlxrepos "github.com/trezcool/engsoc/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewLogrusEntry(conf, "ADMIN"), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(logger, err)
	defer db.Close()
	errAndDie(logger, database.Ping(db))

	// validation
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	member.InitValidators(validate, translator)
	member.LoadCommonPasswords(logger)

	// start CLI
	cli := commandLine{
		db:           db,
		logger:       logger,
		validate:     validate,
		translator:   translator,
		members:      member.NewService(sqlxrepos.NewMemberRepository(db)),
		events:       event.NewService(sqlxrepos.NewEventRepository(db)),
		resources:    resource.NewService(sqlxrepos.NewResourceRepository(db)),
		competitions: competition.NewService(sqlxrepos.NewCompetitionRepository(db)),
		out:          os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
