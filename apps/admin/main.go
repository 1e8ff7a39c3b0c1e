package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/blog"
	"github.com/trezcool/khidmat/core/faq"
	"github.com/trezcool/khidmat/core/offering"
	"github.com/trezcool/khidmat/core/page"
	"github.com/trezcool/khidmat/core/translation"
	"github.com/trezcool/khidmat/core/user"
	appfs "github.com/trezcool/khidmat/fs"
	cachesvc "github.com/trezcool/khidmat/services/cache"
	logsvc "github.com/trezcool/khidmat/services/logger"
	translatesvc "github.com/trezcool/khidmat/services/translate"
	"github.com/trezcool/khidmat/storage/database"
	sqlxrepos "github.com/trezcool/khidmat/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatal(err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	logger.Enable(false)

	// set up DB
	db, err := database.OpenX(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// set up the reconciler
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(appfs.FS, appfs.CommonPasswords, logger)

	client, err := translatesvc.NewClient(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("creating translate client: %v", err), err)
	}
	fanout := translation.NewFanout(client, nil)
	blogRepo := sqlxrepos.NewBlogRepository(db)
	pageRepo := sqlxrepos.NewPageRepository(db)
	rec := translation.NewReconciler(logger,
		offering.NewManager(sqlxrepos.NewOfferingRepository(db), fanout, validate),
		blog.NewManager(blogRepo, blogRepo, fanout, validate),
		faq.NewManager(sqlxrepos.NewFAQRepository(db), fanout, validate),
		page.NewAboutManager(pageRepo, fanout, validate),
		page.NewStatisticManager(pageRepo, fanout, validate),
	)

	// fixed rows must not be served stale from the API's shared cache
	var cache *cachesvc.Redis
	if conf.Redis.Addr != "" {
		cache = cachesvc.NewRedis(conf)
		rec.OnFixed(func(ctx context.Context, sources []string) {
			if err := cache.Invalidate(ctx, sources...); err != nil {
				logger.Warn(fmt.Sprintf("invalidating the public cache: %v", err), err)
			}
		})
	}

	// start CLI
	cli := commandLine{
		db:         db.DB,
		usrRepo:    sqlxrepos.NewUserRepository(db),
		reconciler: rec,
		validate:   validate,
		translator: translator,
		out:        os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if cache != nil {
		_ = cache.Close()
	}
	logger.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
