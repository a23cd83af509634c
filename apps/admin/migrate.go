package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/homeworkhelper/api/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.store.SQL == nil {
		return errors.Errorf("migrations need the postgres engine (got %q)", cli.store.Engine)
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(context.Background(), args[0], cli.store.SQL, arguments...)
}
