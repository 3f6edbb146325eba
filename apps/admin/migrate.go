package main

func (cli *commandLine) migrate(command string, args ...string) error {
	return runMigrationFunc(cli.db, cli.logger, command, args...)
}
