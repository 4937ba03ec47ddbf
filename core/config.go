package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// template key -> env var holding its remote template id
var templateIDEnv = map[string]string{
	"welcome":            "EMAILJS_TEMPLATE_WELCOME",
	"trial_confirmation": "EMAILJS_TEMPLATE_TRIAL",
	"follow_up":          "EMAILJS_TEMPLATE_FOLLOWUP",
	"lesson_reminder":    "EMAILJS_TEMPLATE_REMINDER",
	"waitlist_contact":   "EMAILJS_TEMPLATE_WAITLIST",
}

type Config struct {
	AppName          string
	Env              string
	Build            string
	Debug            bool
	TestMode         bool
	SecretKey        string
	RollbarToken     string
	DefaultFromEmail mail.Address
	ContactEmail     string
	ReplyToEmail     string
	AdminEmails      []string

	Server struct {
		Address         string
		DebugAddress    string
		Host            string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	Airtable struct {
		APIURL      string
		BaseID      string
		AccessToken string
	}

	EmailJS struct {
		APIURL     string
		ServiceID  string
		PublicKey  string
		PrivateKey string
		Origin     string
	}

	Email struct {
		Provider       string // emailjs | sendgrid | console
		SendgridAPIKey string
		TemplateIDs    map[string]string // template key -> remote id overrides
	}

	Identity struct {
		APIURL    string
		APIKey    string
		ProjectID string
	}

	Session struct {
		TTL             time.Duration
		RevalidateAfter time.Duration
		RedisURL        string
		DBPath          string
	}
}

// NewConfig reads the configuration from the environment, after loading `config/.env.<env>` when present.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	env := strings.ToLower(os.Getenv("ENV")) // dev (default), test, prod
	if env == "" {
		env = "dev"
	}

	// defaults
	v.SetDefault("appName", "NihongoWithMoeno")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", env != "prod")
	v.SetDefault("testMode", env == "test")
	v.SetDefault("secretKey", "k2v!n1h0ng0-w1th-m03n0-d3v-s3cr3t")
	v.SetDefault("defaultFromEmail", "NihongoWithMoeno <noreply@nihongowithmoeno.com>")
	v.SetDefault("contactEmail", "nihongowithmoeno@gmail.com")
	v.SetDefault("replyToEmail", "moeno@nihongowithmoeno.com")
	v.SetDefault("adminEmails", "nihongowithmoeno@gmail.com,ijd.irving@gmail.com,mo4324eno@gmail.com")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("airtable.apiURL", "https://api.airtable.com/v0")
	v.SetDefault("emailjs.apiURL", "https://api.emailjs.com")
	v.SetDefault("emailjs.origin", "https://nihongowithmoeno.com")
	v.SetDefault("email.provider", "emailjs")
	v.SetDefault("identity.apiURL", "https://identitytoolkit.googleapis.com/v1")
	v.SetDefault("session.ttl", 7*24*time.Hour)
	v.SetDefault("session.revalidateAfter", 5*time.Minute)

	bind(v, map[string]string{
		"appName":                 "APP_NAME",
		"build":                   "BUILD",
		"debug":                   "DEBUG",
		"secretKey":               "SECRET_KEY",
		"rollbarToken":            "ROLLBAR_TOKEN",
		"defaultFromEmail":        "DEFAULT_FROM_EMAIL",
		"contactEmail":            "CONTACT_EMAIL",
		"replyToEmail":            "REPLY_TO_EMAIL",
		"adminEmails":             "ADMIN_EMAILS",
		"server.address":          "SERVER_ADDRESS",
		"server.debugAddress":     "SERVER_DEBUG_ADDRESS",
		"server.host":             "SERVER_HOST",
		"server.shutdownTimeout":  "SERVER_SHUTDOWN_TIMEOUT",
		"server.disableReqLogs":   "SERVER_DISABLE_REQ_LOGS",
		"airtable.apiURL":         "AIRTABLE_API_URL",
		"airtable.baseID":         "AIRTABLE_BASE_ID",
		"airtable.accessToken":    "AIRTABLE_ACCESS_TOKEN",
		"emailjs.apiURL":          "EMAILJS_API_URL",
		"emailjs.serviceID":       "EMAILJS_SERVICE_ID",
		"emailjs.publicKey":       "EMAILJS_PUBLIC_KEY",
		"emailjs.privateKey":      "EMAILJS_PRIVATE_KEY",
		"emailjs.origin":          "EMAILJS_ORIGIN",
		"email.provider":          "EMAIL_PROVIDER",
		"email.sendgridAPIKey":    "SENDGRID_API_KEY",
		"identity.apiURL":         "IDENTITY_API_URL",
		"identity.apiKey":         "FIREBASE_API_KEY",
		"identity.projectID":      "FIREBASE_PROJECT_ID",
		"session.ttl":             "SESSION_TTL",
		"session.revalidateAfter": "SESSION_REVALIDATE_AFTER",
		"session.redisURL":        "REDIS_URL",
		"session.dbPath":          "SESSION_DB_PATH",
	})
	for key, envVar := range templateIDEnv {
		_ = v.BindEnv("email.templateIDs."+key, envVar)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(ProjectRoot(), "config", ".env."+env)
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	conf := &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		ContactEmail: v.GetString("contactEmail"),
		ReplyToEmail: v.GetString("replyToEmail"),
		AdminEmails:  SplitList(v.GetString("adminEmails")),
	}
	if from, err := mail.ParseAddress(v.GetString("defaultFromEmail")); err == nil {
		conf.DefaultFromEmail = *from
	} else {
		conf.DefaultFromEmail = mail.Address{Address: v.GetString("defaultFromEmail")}
	}

	conf.Server.Address = v.GetString("server.address")
	conf.Server.DebugAddress = v.GetString("server.debugAddress")
	conf.Server.Host = v.GetString("server.host")
	conf.Server.ShutdownTimeout = v.GetDuration("server.shutdownTimeout")
	conf.Server.DisableReqLogs = v.GetBool("server.disableReqLogs")

	conf.Airtable.APIURL = v.GetString("airtable.apiURL")
	conf.Airtable.BaseID = v.GetString("airtable.baseID")
	conf.Airtable.AccessToken = v.GetString("airtable.accessToken")

	conf.EmailJS.APIURL = v.GetString("emailjs.apiURL")
	conf.EmailJS.ServiceID = v.GetString("emailjs.serviceID")
	conf.EmailJS.PublicKey = v.GetString("emailjs.publicKey")
	conf.EmailJS.PrivateKey = v.GetString("emailjs.privateKey")
	conf.EmailJS.Origin = v.GetString("emailjs.origin")

	conf.Email.Provider = strings.ToLower(v.GetString("email.provider"))
	conf.Email.SendgridAPIKey = v.GetString("email.sendgridAPIKey")
	conf.Email.TemplateIDs = make(map[string]string)
	for key := range templateIDEnv {
		if id := v.GetString("email.templateIDs." + key); id != "" {
			conf.Email.TemplateIDs[key] = id
		}
	}

	conf.Identity.APIURL = v.GetString("identity.apiURL")
	conf.Identity.APIKey = v.GetString("identity.apiKey")
	conf.Identity.ProjectID = v.GetString("identity.projectID")

	conf.Session.TTL = v.GetDuration("session.ttl")
	conf.Session.RevalidateAfter = v.GetDuration("session.revalidateAfter")
	conf.Session.RedisURL = v.GetString("session.redisURL")
	conf.Session.DBPath = v.GetString("session.dbPath")

	return conf
}

func bind(v *viper.Viper, keys map[string]string) {
	for key, envVar := range keys {
		if err := v.BindEnv(key, envVar); err != nil {
			log.Fatalf("config.BindEnv(%s): %v", key, err)
		}
	}
}

// ProjectRoot walks up from the working directory to the first directory holding a go.mod.
// go test runs from the package directory, so the dotenv lookup cannot rely on the cwd.
func ProjectRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
