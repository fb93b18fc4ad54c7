package main

import (
	"database/sql"

	"github.com/pressly/goose/v3"

	appfs "github.com/vairaa/kazi/fs"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrate(args []string) error {
	goose.SetBaseFS(appfs.FS)
	var rest []string
	if len(args) > 1 {
		rest = args[1:]
	}
	var db *sql.DB
	if cli.db != nil {
		db = cli.db.DB.DB
	}
	return gooseRunFunc(args[0], db, "migrations", rest...)
}
