package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

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
	"github.com/trezcool/khidmat/services/metrics"
	inmemdb "github.com/trezcool/khidmat/storage/database/inmem"
	testutil "github.com/trezcool/khidmat/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

type httpErr struct {
	Error string `json:"error"`
}

type uploaderMock struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (u *uploaderMock) Upload(_ context.Context, key string, body io.ReadSeeker, _ int64, _ string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	u.mu.Lock()
	u.keys = append(u.keys, key)
	u.mu.Unlock()
	return "https://cdn.khidmat.test/" + key, nil
}

// offeringRepoMock fails the saves of the languages in failLangs.
type offeringRepoMock struct {
	offering.Repository

	mu        sync.Mutex
	failLangs map[i18n.Lang]bool
}

func (r *offeringRepoMock) failOn(langs ...i18n.Lang) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failLangs = make(map[i18n.Lang]bool, len(langs))
	for _, lang := range langs {
		r.failLangs[lang] = true
	}
}

func (r *offeringRepoMock) SaveOffering(ctx context.Context, o offering.Offering) (offering.Offering, error) {
	r.mu.Lock()
	fail := r.failLangs[o.Lang]
	r.mu.Unlock()
	if fail {
		return offering.Offering{}, errors.New("connection reset")
	}
	return r.Repository.SaveOffering(ctx, o)
}

// testApp is a Server backed by the in-memory repositories.
type testApp struct {
	*echoapi.Server

	conf     *core.Config
	auth     *echoapi.Auth
	logger   *testutil.Logger
	tr       *testutil.Translator
	mailer   *emailsvc.ConsoleServiceMock
	uploader *uploaderMock
	usrRepo  user.Repository

	offeringRepo *offeringRepoMock

	offerings  *offering.Manager
	blogs      *blog.Manager
	faqs       *faq.Manager
	about      *page.AboutManager
	statistics *page.StatisticManager
	reviews    *review.Service
	contacts   *contact.Service
}

func setup(t *testing.T, configure ...func(conf *core.Config)) *testApp {
	t.Helper()

	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.Server.FormRateLimit = 0 // unlimited
	conf.Storage.MaxUploadSize = 1 << 20
	for _, fn := range configure {
		fn(conf)
	}

	logger := &testutil.Logger{}
	validate, translator := testutil.NewValidator()
	core.ParseEmailTemplates(conf, appfs.FS, appfs.EmailTemplatesDir, logger)
	dict, err := i18n.LoadDictionary(appfs.FS, appfs.CatalogsDir)
	require.NoError(t, err)
	cache, err := cachesvc.NewLRU(conf.Server.CacheSize)
	require.NoError(t, err)

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	blogRepo := inmemdb.NewBlogRepository(db)
	pageRepo := inmemdb.NewPageRepository(db)
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)
	tr := &testutil.Translator{}
	uploader := &uploaderMock{}
	offeringRepo := &offeringRepoMock{Repository: inmemdb.NewOfferingRepository(db)}

	mtr := metrics.New()
	fanout := translation.NewFanout(tr, mtr)

	app := &testApp{
		conf:       conf,
		auth:       echoapi.NewAuth(conf),
		logger:     logger,
		tr:         tr,
		mailer:     mailer,
		uploader:   uploader,
		usrRepo:    usrRepo,
		offerings:  offering.NewManager(offeringRepo, fanout, validate),
		blogs:      blog.NewManager(blogRepo, blogRepo, fanout, validate),
		faqs:       faq.NewManager(inmemdb.NewFAQRepository(db), fanout, validate),
		about:      page.NewAboutManager(pageRepo, fanout, validate),
		statistics: page.NewStatisticManager(pageRepo, fanout, validate),
		reviews:    review.NewService(inmemdb.NewReviewRepository(db), validate, mailer, conf),
		contacts:   contact.NewService(inmemdb.NewContactRepository(db), validate, mailer, conf),
	}

	app.offeringRepo = offeringRepo
	app.Server = echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Cache:      cache,
		Metrics:    mtr,
		Dictionary: dict,
		UserSvc:    user.NewService(usrRepo, logger),
		Offerings:  app.offerings,
		Blogs:      app.blogs,
		FAQs:       app.faqs,
		About:      app.about,
		Statistics: app.statistics,
		Reviews:    app.reviews,
		Contacts:   app.contacts,
		Media:      media.NewService(uploader, conf),
		Fanout:     fanout,
		Reconciler: translation.NewReconciler(logger, app.offerings, app.blogs, app.faqs, app.about, app.statistics),
	})
	return app
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := app.auth.Token(app.auth.Claims(usr))
	require.NoError(t, err)
	return token
}

// editor creates an active `admin:` user and returns its token.
func (app *testApp) editor(t *testing.T) (user.User, string) {
	t.Helper()
	usr := testutil.CreateUser(t, app.usrRepo, "Editor", "editor", "editor@khidmat.test", "", []string{user.RoleAdmin}, true)
	return usr, app.token(t, usr)
}

func (app *testApp) owner(t *testing.T) (user.User, string) {
	t.Helper()
	usr := testutil.CreateUser(t, app.usrRepo, "Owner", "owner", "owner@khidmat.test", "", []string{user.RoleAdmin, user.RoleAdminOwner}, true)
	return usr, app.token(t, usr)
}

func newRequest(method, path string) (*http.Request, *httptest.ResponseRecorder) {
	return httptest.NewRequest(method, path, nil), httptest.NewRecorder()
}

func (app *testApp) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rdr = bytes.NewReader(b)
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		data, _ := json.Marshal(b)
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func marshal(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

// localized is the envelope of the public reads.
type localized[T any] struct {
	Lang i18n.Lang `json:"lang"`
	Dir  i18n.Dir  `json:"dir"`
	Data T         `json:"data"`
}

type writeResponse[T any] struct {
	Data   T                  `json:"data"`
	Report translation.Report `json:"translation_report"`
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
