package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/skmethodistpj/laporan/core"
	"github.com/skmethodistpj/laporan/core/calendar"
	"github.com/skmethodistpj/laporan/core/report"
	"github.com/skmethodistpj/laporan/core/user"
	emailsvc "github.com/skmethodistpj/laporan/services/email"
	logsvc "github.com/skmethodistpj/laporan/services/logger"
	sheetsvc "github.com/skmethodistpj/laporan/services/sheets"
	"github.com/skmethodistpj/laporan/storage/database"
	inmemdb "github.com/skmethodistpj/laporan/storage/database/inmem"
	sqlxrepos "github.com/skmethodistpj/laporan/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	validate, translator := core.NewValidator()
	report.RegisterValidators(validate, translator)
	user.RegisterValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)

	cal := loadCalendar(conf, logger)

	cli := commandLine{
		conf:    conf,
		store:   sheetsvc.NewClient(conf.Sheets),
		cal:     cal,
		mailSvc: newMailService(conf, logger),
		out:     os.Stdout,
	}

	// set up DB
	var usrRepo user.Repository
	if conf.Database.Disabled {
		usrRepo = inmemdb.NewUserRepository()
	} else {
		db, err := openDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		cli.db = db
		usrRepo = sqlxrepos.NewUserRepository(db)
	}
	cli.usrSvc = user.NewService(usrRepo, validate)

	// start CLI
	err := cli.run(os.Args)
	if cli.db != nil {
		_ = cli.db.Close()
	}
	logger.Wait()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}

func openDB(conf *core.Config) (*sql.DB, error) {
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func loadCalendar(conf *core.Config, logger core.Logger) *calendar.Calendar {
	var cal *calendar.Calendar
	var err error
	if conf.CalendarFile != "" {
		cal, err = calendar.LoadFile(conf.CalendarFile)
	} else {
		cal, err = calendar.Default()
	}
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading calendar: %v", err), err)
	}
	return cal
}

func newMailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}
