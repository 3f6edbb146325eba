package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/competition"
	"github.com/trezcool/engsoc/core/event"
	"github.com/trezcool/engsoc/core/member"
	"github.com/trezcool/engsoc/core/resource"
	"github.com/trezcool/engsoc/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword      // mockable
	runMigrationFunc = database.RunMigration // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db           *sqlx.DB
	logger       core.Logger
	validate     *validator.Validate
	translator   ut.Translator
	members      member.Service
	events       event.Service
	resources    resource.Service
	competitions competition.Service
	out          io.Writer
}

func (cli *commandLine) run(args []string) error {
	app := kingpin.New("admin", "EngSoc portal administration.")
	app.Terminate(nil)
	app.UsageWriter(cli.out)
	app.ErrorWriter(cli.out)

	migrateCmd := app.Command("migrate", "Run a database migration command (up, up-to, down, down-to, redo, reset, status, version, create, fix).")
	migrateName := migrateCmd.Arg("command", "The goose command.").Required().String()
	migrateArgs := migrateCmd.Arg("args", "The goose command arguments.").Strings()

	addMemberCmd := app.Command("addmember", "Create a member. The password will be prompted next.")
	addMemberID := addMemberCmd.Flag("member-id", "The society membership ID, eg: M100.").Required().String()
	addMemberName := addMemberCmd.Flag("name", "The member's full name.").Required().String()
	addMemberEmail := addMemberCmd.Flag("email", "The member's email.").Required().String()
	addMemberInst := addMemberCmd.Flag("institution", "The member's institution.").String()
	addMemberAdmin := addMemberCmd.Flag("admin", "Grant the admin role.").Bool()

	resetPasswordCmd := app.Command("resetpassword", "Reset a member's password. The password will be prompted next.")
	resetPasswordLogin := resetPasswordCmd.Flag("login", "The member's ID or email.").Short('l').Required().String()

	importCmd := app.Command("import", "Import events, resources and competitions from a YAML catalog.")
	importFile := importCmd.Arg("file", "The catalog file.").Required().ExistingFile()

	if len(args) < 2 {
		app.Usage(nil)
		return errHelp
	}

	cmd, err := app.Parse(args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(cli.out, "error: %v\n", err)
		app.Usage(args[1:])
		return errHelp
	}

	switch cmd {
	case migrateCmd.FullCommand():
		return cli.migrate(*migrateName, *migrateArgs...)
	case addMemberCmd.FullCommand():
		pwd, err := cli.promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			app.Usage(args[1:])
			return errHelp
		}
		confirm, err := cli.promptPassword("Confirm password:")
		if err != nil {
			return err
		}
		return cli.addMember(member.NewMember{
			MemberID:        *addMemberID,
			Name:            *addMemberName,
			Email:           *addMemberEmail,
			Institution:     *addMemberInst,
			Password:        pwd,
			PasswordConfirm: confirm,
		}, *addMemberAdmin)
	case resetPasswordCmd.FullCommand():
		pwd, err := cli.promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			app.Usage(args[1:])
			return errHelp
		}
		return cli.resetPassword(*resetPasswordLogin, pwd)
	case importCmd.FullCommand():
		return cli.importCatalog(*importFile)
	default:
		app.Usage(nil)
		return errHelp
	}
}

func (cli *commandLine) promptPassword(prompt string) (string, error) {
	_, _ = fmt.Fprint(cli.out, prompt)
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// translate turns validator errors into a core.ValidationError keyed by field.
func (cli *commandLine) translate(err error) error {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return err
	}
	fields := make(map[string]string, len(vErrs))
	for _, vErr := range vErrs {
		fields[vErr.Field()] = vErr.Translate(cli.translator)
	}
	return core.NewFieldsError(fields)
}
