package core

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage engines
const (
	EnginePostgres = "postgres"
	EngineMongo    = "mongodb"
	EngineMemory   = "memory"
)

// Identity providers
const (
	AuthFirebase = "firebase"
	AuthLocal    = "local"
	AuthNone     = "none"
)

type (
	Config struct {
		Env          string
		Build        string
		AppName      string
		Debug        bool
		TestMode     bool
		RollbarToken string

		Server   ServerConfig
		Database DatabaseConfig
		Auth     AuthConfig
		OpenAI   OpenAIConfig
	}

	ServerConfig struct {
		Host            string
		Port            string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	DatabaseConfig struct {
		Engine         string
		Host           string
		Port           string
		Name           string
		User           string
		Password       string
		AdminUser      string
		AdminPassword  string
		DisableTLS     bool
		URI            string // mongodb connection string
		ConnectTimeout time.Duration
		QueryTimeout   time.Duration
		MaxPoolSize    int
	}

	AuthConfig struct {
		Provider                string
		FirebaseProjectID       string
		FirebaseCredentialsFile string // service account JSON
		SecretKey               string
		TokenTTL                time.Duration
	}

	OpenAIConfig struct {
		APIKey      string
		Model       string
		BaseURL     string
		MaxTokens   int
		Temperature float32
		Timeout     time.Duration
	}
)

// Address returns the "host:port" of the database server.
func (d DatabaseConfig) Address() string {
	return net.JoinHostPort(d.Host, d.Port)
}

// Addr returns the address the API server listens on.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// Configured reports whether an OpenAI API key is available.
func (o OpenAIConfig) Configured() bool {
	return strings.TrimSpace(o.APIKey) != ""
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "HomeworkHelper AI")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.readTimeout", 10*time.Second)
	v.SetDefault("server.writeTimeout", 60*time.Second)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", EnginePostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "homeworkhelper")
	v.SetDefault("database.user", "homeworkhelper")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.uri", "mongodb://localhost:27017/homeworkhelper")
	v.SetDefault("database.connectTimeout", 30*time.Second)
	v.SetDefault("database.queryTimeout", 5*time.Second)
	v.SetDefault("database.maxPoolSize", 10)

	v.SetDefault("auth.provider", "")
	v.SetDefault("auth.firebaseProjectID", "")
	v.SetDefault("auth.firebaseCredentialsFile", "")
	v.SetDefault("auth.secretKey", "x7q!-mw2)hhk$+31=gb&uoxh2(h!v)#*c9(#yg4h^$cegm2emy")
	v.SetDefault("auth.tokenTTL", 7*24*time.Hour)

	v.SetDefault("openai.apiKey", "")
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.baseURL", "")
	v.SetDefault("openai.maxTokens", 1000)
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("openai.timeout", 30*time.Second)
}

// the original deployment's variable names keep working
func bindAliases(v *viper.Viper, env string) {
	aliases := map[string][]string{
		"server.port":                   {"PORT"},
		"database.uri":                  {"MONGO_URI"},
		"openai.apiKey":                 {"OPENAI_API_KEY"},
		"openai.model":                  {"OPENAI_MODEL"},
		"auth.firebaseProjectID":        {"FIREBASE_PROJECT_ID"},
		"auth.firebaseCredentialsFile": {"FIREBASE_ADMIN_SDK_KEY_PATH"},
	}
	for key, names := range aliases {
		envKey := env + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(append([]string{key, envKey}, names...)...)
	}
}

// NewConfig loads the application configuration from defaults, the optional
// config/.env.<env> file and the environment (prefixed with ENV, eg. DEV_DATABASE_ENGINE).
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()
	bindAliases(v, env)

	return fromViper(v, env)
}

func fromViper(v *viper.Viper, env string) *Config {
	conf := &Config{
		Env:          env,
		Build:        v.GetString("build"),
		AppName:      v.GetString("appName"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetString("server.port"),
			DebugHost:       v.GetString("server.debugHost"),
			ReadTimeout:     v.GetDuration("server.readTimeout"),
			WriteTimeout:    v.GetDuration("server.writeTimeout"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:         strings.ToLower(v.GetString("database.engine")),
			Host:           v.GetString("database.host"),
			Port:           v.GetString("database.port"),
			Name:           v.GetString("database.name"),
			User:           v.GetString("database.user"),
			Password:       v.GetString("database.password"),
			AdminUser:      v.GetString("database.adminUser"),
			AdminPassword:  v.GetString("database.adminPassword"),
			DisableTLS:     v.GetBool("database.disableTLS"),
			URI:            v.GetString("database.uri"),
			ConnectTimeout: v.GetDuration("database.connectTimeout"),
			QueryTimeout:   v.GetDuration("database.queryTimeout"),
			MaxPoolSize:    v.GetInt("database.maxPoolSize"),
		},
		Auth: AuthConfig{
			Provider:                strings.ToLower(v.GetString("auth.provider")),
			FirebaseProjectID:       v.GetString("auth.firebaseProjectID"),
			FirebaseCredentialsFile: v.GetString("auth.firebaseCredentialsFile"),
			SecretKey:               v.GetString("auth.secretKey"),
			TokenTTL:                v.GetDuration("auth.tokenTTL"),
		},
		OpenAI: OpenAIConfig{
			APIKey:      v.GetString("openai.apiKey"),
			Model:       v.GetString("openai.model"),
			BaseURL:     v.GetString("openai.baseURL"),
			MaxTokens:   v.GetInt("openai.maxTokens"),
			Temperature: float32(v.GetFloat64("openai.temperature")),
			Timeout:     v.GetDuration("openai.timeout"),
		},
	}

	// a Firebase project id alone selects the firebase provider
	if conf.Auth.Provider == "" {
		if conf.Auth.FirebaseProjectID != "" {
			conf.Auth.Provider = AuthFirebase
		} else {
			conf.Auth.Provider = AuthNone
		}
	}
	return conf
}

// NewTestConfig returns a Config suitable for tests: in-memory storage, no auth, no AI.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	v.Set("debug", false)
	v.Set("testMode", true)
	v.Set("database.engine", EngineMemory)
	v.Set("server.disableReqLogs", true)
	conf := fromViper(v, "TEST")
	return conf
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s) env=%s db=%s auth=%s", c.AppName, c.Build, c.Env, c.Database.Engine, c.Auth.Provider)
}
