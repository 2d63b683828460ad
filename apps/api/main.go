package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	echoapi "github.com/skmethodistpj/laporan/apps/api/echo"
	"github.com/skmethodistpj/laporan/core"
	"github.com/skmethodistpj/laporan/core/appstate"
	"github.com/skmethodistpj/laporan/core/assist"
	"github.com/skmethodistpj/laporan/core/calendar"
	"github.com/skmethodistpj/laporan/core/report"
	"github.com/skmethodistpj/laporan/core/user"
	exportsvc "github.com/skmethodistpj/laporan/services/export"
	genaisvc "github.com/skmethodistpj/laporan/services/genai"
	logsvc "github.com/skmethodistpj/laporan/services/logger"
	"github.com/skmethodistpj/laporan/services/metrics"
	sheetsvc "github.com/skmethodistpj/laporan/services/sheets"
	"github.com/skmethodistpj/laporan/storage/database"
	inmemdb "github.com/skmethodistpj/laporan/storage/database/inmem"
	sqlxrepo "github.com/skmethodistpj/laporan/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Wait()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	logger.Info(fmt.Sprintf("Application initializing : version %q, env %q", conf.Build, conf.Env))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	report.RegisterValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	// set up staff accounts
	usrRepo, closeDB, err := setUpUserRepository(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err := closeDB(); err != nil {
			dbLogger.Error(fmt.Sprintf("closing database: %v", err), err)
		}
	}()
	usrSvc := user.NewService(usrRepo, validate)

	// set up services
	cal, err := loadCalendar(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading calendar: %v", err), err)
	}
	report.TotalWeeks = cal.TotalWeeks

	exporter, err := exportsvc.New(exportsvc.OptionsFrom(conf))
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing print templates: %v", err), err)
	}

	metricsSvc := metrics.New(conf.Build)

	app := appstate.New(reportStore(conf, logger), appstate.Options{
		NavigateDelay:  conf.Sync.NavigateDelay,
		ReconcileDelay: conf.Sync.ReconcileDelay,
		SessionTTL:     conf.Server.JWTRefreshExpirationDelta + conf.Server.JWTExpirationDelta,
		Logger:         logger,
		Observer:       metricsSvc,
	})
	defer app.Close()

	// the first load runs in the background: the API serves the empty lists with status LOADING meanwhile
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Sheets.Timeout*2)
		defer cancel()
		if err := app.Load(ctx); err != nil {
			logger.Error(fmt.Sprintf("initial load: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - profiling
	// /debug/vars - build info
	// /metrics - prometheus

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, debugMux(metricsSvc)); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		App:        app,
		Calendar:   cal,
		UserSvc:    usrSvc,
		Assist:     assist.NewService(genaisvc.NewClient(conf.GenAI)),
		Exporter:   exporter,
		Metrics:    metricsSvc,
		Validate:   validate,
		Translator: translator,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpUserRepository returns the postgres staff repository, or an in-memory one when the database is disabled.
func setUpUserRepository(conf *core.Config) (user.Repository, func() error, error) {
	if conf.Database.Disabled {
		return inmemdb.NewUserRepository(), func() error { return nil }, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, nil, err
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return sqlxrepo.NewUserRepository(db), db.Close, nil
}

// reportStore returns the spreadsheet client. Without sheet urls DEV runs on an empty in-memory store.
func reportStore(conf *core.Config, logger core.Logger) appstate.Store {
	if conf.Sheets.AssemblyURL == "" || conf.Sheets.CaringURL == "" {
		if conf.Env != "DEV" {
			logger.Fatal("sheets.assembly_url and sheets.caring_url are required outside DEV")
		}
		logger.Warn("no sheet urls configured: reports are kept in memory")
		return inmemdb.NewReportStore()
	}
	return sheetsvc.NewClient(conf.Sheets)
}

func loadCalendar(conf *core.Config) (*calendar.Calendar, error) {
	if conf.CalendarFile != "" {
		return calendar.LoadFile(conf.CalendarFile)
	}
	return calendar.Default()
}

func debugMux(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", m.Handler())
	return mux
}
