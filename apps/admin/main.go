package main

import (
	"log"
	"os"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/user"
	emailsvc "github.com/vairaa/kazi/services/email"
	identitysvc "github.com/vairaa/kazi/services/identity"
	logsvc "github.com/vairaa/kazi/services/logger"
	"github.com/vairaa/kazi/storage/database"
)

func main() {
	defer os.Exit(0)

	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		std.Fatalf("loading config: %+v", err)
	}
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(false)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		std.Fatalf("%+v", err)
	}
	defer db.Close()

	usrRepo := database.NewUserRepository(db)
	profileRepo := database.NewProfileRepository(db)
	identity := identitysvc.NewService(database.NewAccountRepository(db))
	usrSvc := user.NewService(db, usrRepo, profileRepo, profileRepo, identity, emailsvc.NewConsoleService(), logger)

	// start CLI
	cli := commandLine{
		db:     db,
		usrSvc: usrSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
