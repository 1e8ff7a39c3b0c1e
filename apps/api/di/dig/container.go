package dig_container

import (
	"context"
	"fmt"
	"log"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/khidmat/apps/api/echo"
	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/blog"
	"github.com/trezcool/khidmat/core/contact"
	"github.com/trezcool/khidmat/core/faq"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/media"
	"github.com/trezcool/khidmat/core/offering"
	"github.com/trezcool/khidmat/core/page"
	"github.com/trezcool/khidmat/core/review"
	"github.com/trezcool/khidmat/core/translation"
	"github.com/trezcool/khidmat/core/user"
	appfs "github.com/trezcool/khidmat/fs"
	cachesvc "github.com/trezcool/khidmat/services/cache"
	emailsvc "github.com/trezcool/khidmat/services/email"
	logsvc "github.com/trezcool/khidmat/services/logger"
	"github.com/trezcool/khidmat/services/metrics"
	"github.com/trezcool/khidmat/services/objectstore"
	translatesvc "github.com/trezcool/khidmat/services/translate"
	"github.com/trezcool/khidmat/storage/database"
	sqlxrepos "github.com/trezcool/khidmat/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Loggers gives main access to the concrete loggers, to flush them on exit.
type Loggers struct {
	API    *logsvc.RollbarLogger
	DB     *logsvc.RollbarLogger
	Worker *logsvc.RollbarLogger
}

func newZap(conf *core.Config) (*zap.Logger, error) {
	return logsvc.NewZap(conf)
}

func newLoggers(zl *zap.Logger, conf *core.Config) Loggers {
	api := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	api.Enable(!conf.Debug && conf.RollbarToken != "")
	return Loggers{
		API:    api,
		DB:     logsvc.NewRollbarLogger(zl.Named("db"), conf),
		Worker: logsvc.NewRollbarLogger(zl.Named("worker"), conf),
	}
}

func newLogger(l Loggers) core.Logger {
	return l.API
}

func newDBLogger(l Loggers) core.Logger {
	return l.DB
}

func newWorkerLogger(l Loggers) core.Logger {
	return l.Worker
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.OpenX(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func newDictionary() (*i18n.Dictionary, error) {
	return i18n.LoadDictionary(appfs.FS, appfs.CatalogsDir)
}

// newCache shares the public read cache through redis when it is configured.
func newCache(conf *core.Config, logger core.Logger) (core.Cache, error) {
	if conf.Redis.Addr != "" {
		rc := cachesvc.NewRedis(conf)
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			logger.Warn(fmt.Sprintf("redis unreachable, using the in-process cache: %v", err), err)
		} else {
			return rc, nil
		}
	}
	return cachesvc.NewLRU(conf.Server.CacheSize)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newFanout(tr translation.Translator, mtr *metrics.Metrics) *translation.Fanout {
	return translation.NewFanout(tr, mtr)
}

func newStore(conf *core.Config, logger core.Logger, mtr *metrics.Metrics) (*objectstore.Store, error) {
	return objectstore.NewStore(conf, logger, mtr)
}

func newMedia(store *objectstore.Store, conf *core.Config) *media.Service {
	return media.NewService(store, conf)
}

func newUserService(db *sqlx.DB, logger core.Logger) user.ServiceInterface {
	return user.NewService(sqlxrepos.NewUserRepository(db), logger)
}

func newOfferings(db *sqlx.DB, fanout *translation.Fanout, validate *validator.Validate) *offering.Manager {
	return offering.NewManager(sqlxrepos.NewOfferingRepository(db), fanout, validate)
}

func newBlogs(db *sqlx.DB, fanout *translation.Fanout, validate *validator.Validate) *blog.Manager {
	repo := sqlxrepos.NewBlogRepository(db)
	return blog.NewManager(repo, repo, fanout, validate)
}

func newFAQs(db *sqlx.DB, fanout *translation.Fanout, validate *validator.Validate) *faq.Manager {
	return faq.NewManager(sqlxrepos.NewFAQRepository(db), fanout, validate)
}

func newAbout(db *sqlx.DB, fanout *translation.Fanout, validate *validator.Validate) *page.AboutManager {
	return page.NewAboutManager(sqlxrepos.NewPageRepository(db), fanout, validate)
}

func newStatistics(db *sqlx.DB, fanout *translation.Fanout, validate *validator.Validate) *page.StatisticManager {
	return page.NewStatisticManager(sqlxrepos.NewPageRepository(db), fanout, validate)
}

func newReviews(db *sqlx.DB, validate *validator.Validate, mailer core.EmailService, conf *core.Config) *review.Service {
	return review.NewService(sqlxrepos.NewReviewRepository(db), validate, mailer, conf)
}

func newContacts(db *sqlx.DB, validate *validator.Validate, mailer core.EmailService, conf *core.Config) *contact.Service {
	return contact.NewService(sqlxrepos.NewContactRepository(db), validate, mailer, conf)
}

type sourcesParam struct {
	dig.In
	Logger     core.Logger `name:"workerLogger"`
	Offerings  *offering.Manager
	Blogs      *blog.Manager
	FAQs       *faq.Manager
	About      *page.AboutManager
	Statistics *page.StatisticManager
}

func newReconciler(p sourcesParam) *translation.Reconciler {
	return translation.NewReconciler(p.Logger, p.Offerings, p.Blogs, p.FAQs, p.About, p.Statistics)
}

type serverParam struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Cache      core.Cache
	Metrics    *metrics.Metrics
	Dictionary *i18n.Dictionary
	DB         *sqlx.DB

	UserSvc    user.ServiceInterface
	Offerings  *offering.Manager
	Blogs      *blog.Manager
	FAQs       *faq.Manager
	About      *page.AboutManager
	Statistics *page.StatisticManager
	Reviews    *review.Service
	Contacts   *contact.Service
	Media      *media.Service
	Fanout     *translation.Fanout
	Reconciler *translation.Reconciler
}

func newServer(p serverParam) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		Cache:      p.Cache,
		Metrics:    p.Metrics,
		Dictionary: p.Dictionary,
		UserSvc:    p.UserSvc,
		Offerings:  p.Offerings,
		Blogs:      p.Blogs,
		FAQs:       p.FAQs,
		About:      p.About,
		Statistics: p.Statistics,
		Reviews:    p.Reviews,
		Contacts:   p.Contacts,
		Media:      p.Media,
		Fanout:     p.Fanout,
		Reconciler: p.Reconciler,
		HealthCheck: func(ctx context.Context) error {
			err := p.DB.PingContext(ctx)
			if pinger, ok := p.Cache.(interface{ Ping(context.Context) error }); ok {
				err = multierr.Append(err, pinger.Ping(ctx))
			}
			return err
		},
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newZap))
	must(c.Provide(newLoggers))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newWorkerLogger, dig.Name("workerLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newDictionary))
	must(c.Provide(newCache))
	must(c.Provide(newEmailService))
	must(c.Provide(metrics.New))
	must(c.Provide(translatesvc.NewClient, dig.As(new(translation.Translator))))
	must(c.Provide(newFanout))
	must(c.Provide(newStore))
	must(c.Provide(newMedia))
	must(c.Provide(newUserService))
	must(c.Provide(newOfferings))
	must(c.Provide(newBlogs))
	must(c.Provide(newFAQs))
	must(c.Provide(newAbout))
	must(c.Provide(newStatistics))
	must(c.Provide(newReviews))
	must(c.Provide(newContacts))
	must(c.Provide(newReconciler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
