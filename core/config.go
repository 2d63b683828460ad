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
		DebugHost                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Disabled      bool // DEV only: keep staff accounts in memory
	}

	// SheetsConfig points at the two spreadsheet-backed report endpoints.
	SheetsConfig struct {
		AssemblyURL string
		CaringURL   string
		Timeout     time.Duration
	}

	GenAIConfig struct {
		APIKey  string
		Model   string
		BaseURL string
		Timeout time.Duration
	}

	// PrintConfig drives the printable report pages.
	PrintConfig struct {
		Coordinator string // Penyelaras Guru Penyayang, signs caring reports
		LogoURL     string
		AutoPrint   bool
	}

	SyncConfig struct {
		NavigateDelay  time.Duration
		ReconcileDelay time.Duration
	}

	Config struct {
		Env             string
		Build           string
		Debug           bool
		TestMode        bool
		AppName         string
		SchoolName      string
		SecretKey       string
		WorkDir         string
		FrontendBaseURL string
		RollbarToken    string
		SendgridApiKey  string
		CalendarFile    string
		ReminderTo      []mail.Address

		Server   ServerConfig
		Database DatabaseConfig
		Sheets   SheetsConfig
		GenAI    GenAIConfig
		Sync     SyncConfig
		Print    PrintConfig

		defaultFromEmail string
	}
)

// NewConfig reads the configuration from defaults, the environment and the optional `config/.env.<env>` file.
// Environment variables are prefixed with the environment name, e.g. DEV_SHEETS_ASSEMBLY_URL.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Laporan HEM")
	v.SetDefault("schoolName", "SK METHODIST PETALING JAYA")
	v.SetDefault("secretKey", "k2v@9x!m7&qe$w3r#0z^lb8*nc-dp5ty")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Unit HEM <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("calendarFile", "")
	v.SetDefault("reminderTo", "")

	v.SetDefault("server.host", "0.0.0.0:8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 8*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "laporan")
	v.SetDefault("database.user", "laporan")
	v.SetDefault("database.password", "laporan")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", false)
	v.SetDefault("database.disabled", false)

	v.SetDefault("sheets.assembly_url", "")
	v.SetDefault("sheets.caring_url", "")
	v.SetDefault("sheets.timeout", 15*time.Second)

	v.SetDefault("genai.api_key", "")
	v.SetDefault("genai.model", "gemini-1.5-flash")
	v.SetDefault("genai.baseURL", "https://generativelanguage.googleapis.com")
	v.SetDefault("genai.timeout", 30*time.Second)

	v.SetDefault("sync.navigateDelay", 1200*time.Millisecond)
	v.SetDefault("sync.reconcileDelay", 2*time.Second)

	v.SetDefault("print.coordinator", "PN RITA SELVAMALAR")
	v.SetDefault("print.logoURL", "")
	v.SetDefault("print.autoPrint", true)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:             env,
		Build:           v.GetString("build"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		AppName:         v.GetString("appName"),
		SchoolName:      v.GetString("schoolName"),
		SecretKey:       v.GetString("secretKey"),
		WorkDir:         workDir,
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		RollbarToken:    v.GetString("rollbarToken"),
		SendgridApiKey:  v.GetString("sendgridApiKey"),
		CalendarFile:    v.GetString("calendarFile"),
		ReminderTo:      parseAddressList(v.GetString("reminderTo")),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ReadTimeout:               v.GetDuration("server.readTimeout"),
			WriteTimeout:              v.GetDuration("server.writeTimeout"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Disabled:      v.GetBool("database.disabled"),
		},
		Sheets: SheetsConfig{
			AssemblyURL: v.GetString("sheets.assembly_url"),
			CaringURL:   v.GetString("sheets.caring_url"),
			Timeout:     v.GetDuration("sheets.timeout"),
		},
		GenAI: GenAIConfig{
			APIKey:  v.GetString("genai.api_key"),
			Model:   v.GetString("genai.model"),
			BaseURL: v.GetString("genai.baseURL"),
			Timeout: v.GetDuration("genai.timeout"),
		},
		Sync: SyncConfig{
			NavigateDelay:  v.GetDuration("sync.navigateDelay"),
			ReconcileDelay: v.GetDuration("sync.reconcileDelay"),
		},
		Print: PrintConfig{
			Coordinator: v.GetString("print.coordinator"),
			LogoURL:     v.GetString("print.logoURL"),
			AutoPrint:   v.GetBool("print.autoPrint"),
		},
		defaultFromEmail: v.GetString("defaultFromEmail"),
	}
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Address: c.defaultFromEmail}
	}
	return *addr
}

func (c *Config) SetDefaultFromEmail(addr string) { c.defaultFromEmail = addr }

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// UseRemoteSheets reports whether both report endpoints are configured.
func (s SheetsConfig) UseRemoteSheets() bool {
	return s.AssemblyURL != "" && s.CaringURL != ""
}

func parseAddressList(s string) []mail.Address {
	if CleanString(s) == "" {
		return nil
	}
	list, err := mail.ParseAddressList(s)
	if err != nil {
		log.Printf("config: invalid address list %q: %v", s, err)
		return nil
	}
	addrs := make([]mail.Address, 0, len(list))
	for _, a := range list {
		addrs = append(addrs, *a)
	}
	return addrs
}
