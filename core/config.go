package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env            string
		Build          string
		Debug          bool
		TestMode       bool
		AppName        string
		SecretKey      string
		WorkDir        string
		RollbarToken   string
		SendgridApiKey string
		SiteURL        string // public site, linked from e-mails

		Server    ServerConfig
		Database  DatabaseConfig
		Redis     RedisConfig
		Storage   StorageConfig
		Translate TranslateConfig
		Mail      MailConfig

		defaultFromEmail mail.Address
	}

	ServerConfig struct {
		Host                      string
		Port                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		AllowedOrigins            []string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		FormRateLimit             float64 // public form submissions per second per client IP
		FormRateBurst             int
		CacheTTL                  time.Duration
		CacheSize                 int
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string // empty disables redis; the in-process cache is used instead
		Password string
		DB       int
	}

	StorageConfig struct {
		Endpoint      string
		Region        string
		Bucket        string
		AccessKey     string
		SecretKey     string
		UseSSL        bool
		PublicBaseURL string
		MaxUploadSize int64
	}

	TranslateConfig struct {
		Provider          string // google | mymemory
		BaseURL           string
		Timeout           time.Duration
		RateLimit         float64 // requests per second
		RateBurst         int
		ReconcileSchedule string // cron spec; empty disables the scheduled reconciler
	}

	MailConfig struct {
		ContactInbox string
	}
)

// Address returns the "host:port" of the database server.
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	return c.defaultFromEmail
}

func (c *Config) ContactInbox() mail.Address {
	if c.Mail.ContactInbox == "" {
		return c.defaultFromEmail
	}
	return mail.Address{Name: c.AppName, Address: c.Mail.ContactInbox}
}

// NewConfig loads the configuration of the current environment.
// ENV selects the environment: DEV (local; default), TEST, QA, PROD.
// It is also used as the prefix of the environment variables, e.g. PROD_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	setDefaults(v, env)

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(v.GetString("workDir"), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:            env,
		Build:          v.GetString("build"),
		Debug:          v.GetBool("debug"),
		TestMode:       v.GetBool("testMode"),
		AppName:        v.GetString("appName"),
		SecretKey:      v.GetString("secretKey"),
		WorkDir:        v.GetString("workDir"),
		RollbarToken:   v.GetString("rollbarToken"),
		SendgridApiKey: v.GetString("sendgridApiKey"),
		SiteURL:        strings.TrimRight(v.GetString("siteURL"), "/"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Port:                      v.GetString("server.port"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			AllowedOrigins:            v.GetStringSlice("server.allowedOrigins"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			FormRateLimit:             v.GetFloat64("server.formRateLimit"),
			FormRateBurst:             v.GetInt("server.formRateBurst"),
			CacheTTL:                  v.GetDuration("server.cacheTTL"),
			CacheSize:                 v.GetInt("server.cacheSize"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Storage: StorageConfig{
			Endpoint:      v.GetString("storage.endpoint"),
			Region:        v.GetString("storage.region"),
			Bucket:        v.GetString("storage.bucket"),
			AccessKey:     v.GetString("storage.accessKey"),
			SecretKey:     v.GetString("storage.secretKey"),
			UseSSL:        v.GetBool("storage.useSSL"),
			PublicBaseURL: strings.TrimRight(v.GetString("storage.publicBaseURL"), "/"),
			MaxUploadSize: v.GetInt64("storage.maxUploadSize"),
		},
		Translate: TranslateConfig{
			Provider:          v.GetString("translate.provider"),
			BaseURL:           v.GetString("translate.baseURL"),
			Timeout:           v.GetDuration("translate.timeout"),
			RateLimit:         v.GetFloat64("translate.rateLimit"),
			RateBurst:         v.GetInt("translate.rateBurst"),
			ReconcileSchedule: v.GetString("translate.reconcileSchedule"),
		},
		Mail: MailConfig{
			ContactInbox: v.GetString("mail.contactInbox"),
		},
	}

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.mail.ParseAddress(defaultFromEmail): %v", err)
	}
	conf.defaultFromEmail = *from

	if conf.Storage.PublicBaseURL == "" && conf.Storage.Endpoint != "" {
		scheme := "http"
		if conf.Storage.UseSSL {
			scheme = "https"
		}
		conf.Storage.PublicBaseURL = fmt.Sprintf("%s://%s/%s", scheme, conf.Storage.Endpoint, conf.Storage.Bucket)
	}
	return conf
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("build", "develop")
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "Khidmat")
	v.SetDefault("secretKey", "wq8-x1$+p=dk3&uohj2(h!x)#*cc(#yg4n^$cezm2emy")
	v.SetDefault("workDir", workDir())
	v.SetDefault("defaultFromEmail", "Khidmat <noreply@localhost>")
	v.SetDefault("siteURL", "http://localhost:3000")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.formRateLimit", 0.2)
	v.SetDefault("server.formRateBurst", 3)
	v.SetDefault("server.cacheTTL", 10*time.Minute)
	v.SetDefault("server.cacheSize", 1024)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "khidmat")
	v.SetDefault("database.user", "khidmat")
	v.SetDefault("database.password", "khidmat")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "khidmat")
	v.SetDefault("storage.accessKey", "")
	v.SetDefault("storage.secretKey", "")
	v.SetDefault("storage.useSSL", true)
	v.SetDefault("storage.publicBaseURL", "")
	v.SetDefault("storage.maxUploadSize", int64(5<<20))

	v.SetDefault("translate.provider", "google")
	v.SetDefault("translate.baseURL", "")
	v.SetDefault("translate.timeout", 10*time.Second)
	v.SetDefault("translate.rateLimit", 5.0)
	v.SetDefault("translate.rateBurst", 1)
	v.SetDefault("translate.reconcileSchedule", "@every 30m")

	v.SetDefault("mail.contactInbox", "")
}

// workDir walks up from the current directory until it finds go.mod.
// go test runs inside the package directory, which breaks relative paths.
func workDir() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	curr := wd
	for {
		if _, err := os.Stat(filepath.Join(curr, "go.mod")); err == nil {
			return curr
		}
		parent := filepath.Dir(curr)
		if parent == curr {
			return wd
		}
		curr = parent
	}
}
