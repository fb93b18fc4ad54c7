package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/vairaa/kazi/api/echo"
	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/task"
	"github.com/vairaa/kazi/core/user"
	emailsvc "github.com/vairaa/kazi/services/email"
	identitysvc "github.com/vairaa/kazi/services/identity"
	logsvc "github.com/vairaa/kazi/services/logger"
	"github.com/vairaa/kazi/storage/database"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		std.Fatalf("loading config: %+v", err)
	}

	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(conf.RollbarToken != "" && !conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("preparing database: " + err.Error())
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database: " + err.Error())
	}
	defer db.Close()
	if err := database.Migrate(db.DB.DB); err != nil {
		logger.Fatal("migrating database: " + err.Error())
	}

	// repositories
	usrRepo := database.NewUserRepository(db)
	taskRepo := database.NewTaskRepository(db)
	profileRepo := database.NewProfileRepository(db)
	acctRepo := database.NewAccountRepository(db)

	// services
	identity := identitysvc.NewService(acctRepo)
	var mailSvc core.EmailService
	if conf.SendgridAPIKey != "" {
		mailSvc = emailsvc.NewSendgridService(logger)
	} else {
		mailSvc = emailsvc.NewConsoleService()
	}
	usrSvc := user.NewService(db, usrRepo, profileRepo, profileRepo, identity, mailSvc, logger)
	taskSvc := task.NewService(db, taskRepo, usrRepo, logger)

	server := echoapi.NewServer(conf.Server.Addr, echoapi.Options{
		Logger:   logger,
		UserSvc:  usrSvc,
		TaskSvc:  taskSvc,
		Identity: identity,
	})

	serverErrs := make(chan error, 1)
	go func() {
		logger.Info("server listening on " + conf.Server.Addr)
		serverErrs <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrs:
		logger.Fatal("server error: " + err.Error())
	case sig := <-shutdown:
		logger.Info("shutting down on " + sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			logger.Error("graceful shutdown failed: " + err.Error())
		}
	}
}
