package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"

	dig_container "github.com/trezcool/khidmat/apps/api/di/dig"
	echoapi "github.com/trezcool/khidmat/apps/api/echo"
	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/translation"
	"github.com/trezcool/khidmat/core/user"
	appfs "github.com/trezcool/khidmat/fs"
	"github.com/trezcool/khidmat/services/objectstore"
)

const reconcileTimeout = 15 * time.Minute

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		dbLoggerParam dig_container.DBLoggerParam,
		loggers dig_container.Loggers,
		db *sqlx.DB,
		store *objectstore.Store,
		reconciler *translation.Reconciler,
		server *echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		defer loggers.API.Close()
		apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

		core.ParseEmailTemplates(conf, appfs.FS, appfs.EmailTemplatesDir, apiLogger)

		user.LoadCommonPasswords(appfs.FS, appfs.CommonPasswords, apiLogger)

		dbLogger := dbLoggerParam.Logger
		defer func() {
			if err := db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		defer apiLogger.Info("Application stopped")

		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		if err := store.EnsureBucket(ctx, conf.Storage.Region); err != nil {
			apiLogger.Error(fmt.Sprintf("preparing uploads bucket: %v", err), err)
		}
		cancel()

		// =========================================================================
		// Start Reconciler
		//
		// Rows left in fallback state by an unreachable translation API are retried in the background.

		if spec := conf.Translate.ReconcileSchedule; spec != "" {
			scheduler := cron.New()
			if _, err := reconciler.Schedule(scheduler, spec, reconcileTimeout); err != nil {
				apiLogger.Fatal(fmt.Sprintf("scheduling reconciler: %v", err), err)
			}
			scheduler.Start()
			defer func() { <-scheduler.Stop().Done() }()
		}

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()

		// =========================================================================
		// Start API Service

		go func() {
			server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			apiLogger.Fatal(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			// asking listener to shut down and shed load
			if err := server.Shutdown(ctx); err != nil {
				apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					apiLogger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
