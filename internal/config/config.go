package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Cron     CronConfig     `mapstructure:"cron"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Sales    SalesConfig    `mapstructure:"sales"`
	YouTube  YouTubeConfig  `mapstructure:"youtube"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Calendar CalendarConfig `mapstructure:"calendar"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
	// Timezone is the destination timezone every absolute instant is
	// projected into when computing calendar-day buckets.
	Timezone string `mapstructure:"timezone"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
	// AllowedOrigins is a comma-separated CORS allow-list; "*" allows any origin.
	AllowedOrigins string `mapstructure:"allowed_origins"`
	// RefreshKey, when set, is required in the x-refresh-key header of
	// manual refresh requests.
	RefreshKey string `mapstructure:"refresh_key"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type CronConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Refresh string `mapstructure:"refresh"`
}

// GatewayConfig configures the external action gateway every Google-backed
// source is reached through.
type GatewayConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	ExecutePath string        `mapstructure:"execute_path"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`

	// Connected-account scopes; per-source ids fall back to the default.
	AccountID         string `mapstructure:"account_id"`
	AccountIDYouTube  string `mapstructure:"account_id_youtube"`
	AccountIDSheets   string `mapstructure:"account_id_sheets"`
	AccountIDCalendar string `mapstructure:"account_id_calendar"`

	// Static identity fallback when the connected-account lookup yields nothing.
	UserID   string `mapstructure:"user_id"`
	EntityID string `mapstructure:"entity_id"`
}

type SalesConfig struct {
	SpreadsheetID string `mapstructure:"spreadsheet_id"`
	SheetName     string `mapstructure:"sheet_name"`
	Range         string `mapstructure:"range"`
	Currency      string `mapstructure:"currency"`

	// Operator overrides for header role resolution; tried before the
	// built-in synonym lists.
	ColDate      string `mapstructure:"col_date"`
	ColProduct   string `mapstructure:"col_product"`
	ColQuantity  string `mapstructure:"col_quantity"`
	ColAmount    string `mapstructure:"col_amount"`
	ColUnitPrice string `mapstructure:"col_unit_price"`
}

type YouTubeConfig struct {
	ChannelID     string `mapstructure:"channel_id"`
	ChannelHandle string `mapstructure:"channel_handle"`
}

type TelegramConfig struct {
	BotToken      string        `mapstructure:"bot_token"`
	APIBaseURL    string        `mapstructure:"api_base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ChannelID     string        `mapstructure:"channel_id"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
}

type CalendarConfig struct {
	CalendarID   string        `mapstructure:"calendar_id"`
	HorizonHours int           `mapstructure:"horizon_hours"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

func (c GatewayConfig) AccountFor(source string) string {
	var scoped string
	switch source {
	case "youtube":
		scoped = c.AccountIDYouTube
	case "sheets":
		scoped = c.AccountIDSheets
	case "calendar":
		scoped = c.AccountIDCalendar
	}
	if strings.TrimSpace(scoped) != "" {
		return strings.TrimSpace(scoped)
	}
	return strings.TrimSpace(c.AccountID)
}

func (c SalesConfig) EffectiveRange() string {
	if strings.TrimSpace(c.Range) != "" {
		return c.Range
	}
	sheet := strings.TrimSpace(c.SheetName)
	if sheet == "" {
		sheet = "Sales"
	}
	return sheet + "!A:Z"
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.timezone", "Europe/Moscow")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.allowed_origins", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.refresh", "@every 30m")
	v.SetDefault("gateway.base_url", "https://backend.composio.dev")
	v.SetDefault("gateway.execute_path", "/api/v3/tools/execute")
	v.SetDefault("gateway.timeout", "30s")
	v.SetDefault("sales.sheet_name", "Sales")
	v.SetDefault("sales.currency", "USD")
	v.SetDefault("telegram.api_base_url", "https://api.telegram.org")
	v.SetDefault("telegram.timeout", "15s")
	v.SetDefault("calendar.calendar_id", "primary")
	v.SetDefault("calendar.horizon_hours", 72)
	v.SetDefault("calendar.timeout", "15s")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
