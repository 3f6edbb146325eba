package core

import (
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
	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
		Path          string // sqlite only
	}

	PortalConfig struct {
		// simulated latencies; zero disables them
		LoginDelay   time.Duration
		SubmitDelay  time.Duration
		PaymentDelay time.Duration

		UploadTickInterval time.Duration
		UploadTickStep     int
		Storage            string // simulated | disk
		StorageDir         string
		MaxUploadSizeMB    int // request body cap of file uploads

		ScreenTTL        time.Duration
		OperationTimeout time.Duration
		OperationRetries int
		RetryBackoff     time.Duration
	}

	Config struct {
		AppName          string
		Build            string
		Env              string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		RollbarToken     string
		SendgridApiKey   string

		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Portal   PortalConfig
	}
)

// Address returns the database host:port.
func (c DatabaseConfig) Address() string {
	if c.Port == "" {
		return c.Host
	}
	return net.JoinHostPort(c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("appName", "EngSoc Portal")
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("secretKey", "q8u=v6k$2tn+e#bz0l!x7y(w4mh)c9f3o^rjdp&sg1a5i-*")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "EngSoc Portal <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("dbEngine", "sqlite")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbUser", "engsoc")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbName", "engsoc")
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("dbPath", "engsoc.db")

	v.SetDefault("loginDelay", 1500*time.Millisecond)
	v.SetDefault("submitDelay", 2*time.Second)
	v.SetDefault("paymentDelay", 2*time.Second)
	v.SetDefault("uploadTickInterval", 300*time.Millisecond)
	v.SetDefault("uploadTickStep", 10)
	v.SetDefault("storage", "simulated")
	v.SetDefault("storageDir", "uploads")
	v.SetDefault("maxUploadSizeMB", 100)
	v.SetDefault("screenTTL", 30*time.Minute)
	v.SetDefault("operationTimeout", 30*time.Second)
	v.SetDefault("operationRetries", 0)
	v.SetDefault("retryBackoff", 500*time.Millisecond)
}

// NewConfig loads the configuration from defaults, an optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the env name, eg: `PROD_DBHOST`.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("loginDelay", time.Duration(0))
		v.SetDefault("submitDelay", time.Duration(0))
		v.SetDefault("paymentDelay", time.Duration(0))
		v.SetDefault("uploadTickInterval", time.Millisecond)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(configDir(), ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return newConfigFrom(v, env)
}

func newConfigFrom(v *viper.Viper, env string) *Config {
	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		from = &mail.Address{Address: v.GetString("defaultFromEmail")}
	}

	return &Config{
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: *from,
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),

		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),

		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Addr:                      v.GetString("serverAddr"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			Name:          v.GetString("dbName"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
			Path:          v.GetString("dbPath"),
		},
		Portal: PortalConfig{
			LoginDelay:         v.GetDuration("loginDelay"),
			SubmitDelay:        v.GetDuration("submitDelay"),
			PaymentDelay:       v.GetDuration("paymentDelay"),
			UploadTickInterval: v.GetDuration("uploadTickInterval"),
			UploadTickStep:     v.GetInt("uploadTickStep"),
			Storage:            v.GetString("storage"),
			StorageDir:         v.GetString("storageDir"),
			MaxUploadSizeMB:    v.GetInt("maxUploadSizeMB"),
			ScreenTTL:          v.GetDuration("screenTTL"),
			OperationTimeout:   v.GetDuration("operationTimeout"),
			OperationRetries:   v.GetInt("operationRetries"),
			RetryBackoff:       v.GetDuration("retryBackoff"),
		},
	}
}

// NewTestConfig returns the configuration used by tests: no simulated latencies and a fast upload ticker.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	v.Set("debug", false)
	v.Set("testMode", true)
	v.Set("loginDelay", time.Duration(0))
	v.Set("submitDelay", time.Duration(0))
	v.Set("paymentDelay", time.Duration(0))
	v.Set("uploadTickInterval", time.Millisecond)
	v.Set("maxUploadSizeMB", 2)
	return newConfigFrom(v, "TEST")
}

func configDir() string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir
	}
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	return filepath.Join(wd, "config")
}
