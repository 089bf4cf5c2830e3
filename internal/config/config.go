package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/example/cardsync/internal/internaltypes"
)

const (
	DefaultTrelloBaseURL   = "https://api.trello.com/1"
	DefaultTrelloLists     = "A Fazer,Em andamento"
	DefaultCalendarID      = "primary"
	DefaultCredentialsFile = "credentials.json"
	DefaultTimezone        = "America/Sao_Paulo"
	DefaultMarker          = "#"
	DefaultScheduleCron    = "0 7 * * 1-5"
)

type Config struct {
	TrelloAPIKey  string   `yaml:"trello_api_key"`
	TrelloToken   string   `yaml:"trello_token"`
	TrelloBoardID string   `yaml:"trello_board_id"`
	TrelloBaseURL string   `yaml:"trello_base_url"`
	TrelloLists   []string `yaml:"trello_lists"`

	CalendarID      string `yaml:"google_calendar_id"`
	CredentialsFile string `yaml:"google_credentials_file"`

	Timezone         string        `yaml:"event_timezone"`
	AnnotationMarker string        `yaml:"annotation_marker"`
	HTTPTimeout      time.Duration `yaml:"http_timeout"`
	ScheduleCron     string        `yaml:"schedule_cron"`

	// optional collaborators; empty disables them
	DatabaseURL   string        `yaml:"database_url"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	LockTTL       time.Duration `yaml:"lock_ttl"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	location *time.Location
}

// Location is the loaded EVENT_TIMEZONE.
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Load reads path (a dotenv or yaml file, optional) and overlays the process
// environment. Every missing required key is reported in one ConfigurationError.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if err := readFile(v, path); err != nil {
			return Config{}, &internaltypes.ConfigurationError{Err: err}
		}
	}
	v.AutomaticEnv()

	cfg := Config{
		TrelloAPIKey:     strings.TrimSpace(v.GetString("TRELLO_API_KEY")),
		TrelloToken:      strings.TrimSpace(v.GetString("TRELLO_TOKEN")),
		TrelloBoardID:    strings.TrimSpace(v.GetString("TRELLO_BOARD_ID")),
		TrelloBaseURL:    strings.TrimRight(strings.TrimSpace(v.GetString("TRELLO_BASE_URL")), "/"),
		TrelloLists:      splitCSV(v.GetString("TRELLO_LISTS")),
		CalendarID:       strings.TrimSpace(v.GetString("GOOGLE_CALENDAR_ID")),
		CredentialsFile:  strings.TrimSpace(v.GetString("GOOGLE_CREDENTIALS_FILE")),
		Timezone:         strings.TrimSpace(v.GetString("EVENT_TIMEZONE")),
		AnnotationMarker: v.GetString("ANNOTATION_MARKER"),
		HTTPTimeout:      time.Duration(v.GetInt("HTTP_TIMEOUT_SECONDS")) * time.Second,
		ScheduleCron:     strings.TrimSpace(v.GetString("SCHEDULE_CRON")),
		DatabaseURL:      strings.TrimSpace(v.GetString("DATABASE_URL")),
		RedisAddr:        strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:    v.GetString("REDIS_PASSWORD"),
		RedisDB:          v.GetInt("REDIS_DB"),
		LockTTL:          time.Duration(v.GetInt("LOCK_TTL_SECONDS")) * time.Second,
		LogLevel:         strings.TrimSpace(v.GetString("LOG_LEVEL")),
		LogFormat:        strings.TrimSpace(v.GetString("LOG_FORMAT")),
	}
	if marker, ok := emptyableEnv("ANNOTATION_MARKER"); ok {
		cfg.AnnotationMarker = marker
	}
	if cfg.CalendarID == "" {
		cfg.CalendarID = DefaultCalendarID
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// emptyableEnv reads key from the environment, reporting an explicitly empty
// value as set. AutomaticEnv treats empty as unset, which would bring back the
// default.
func emptyableEnv(key string) (string, bool) {
	ev := viper.New()
	ev.AllowEmptyEnv(true)
	_ = ev.BindEnv(key)
	if !ev.IsSet(key) {
		return "", false
	}
	return ev.GetString(key), true
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("TRELLO_BASE_URL", DefaultTrelloBaseURL)
	v.SetDefault("TRELLO_LISTS", DefaultTrelloLists)
	v.SetDefault("GOOGLE_CALENDAR_ID", DefaultCalendarID)
	v.SetDefault("GOOGLE_CREDENTIALS_FILE", DefaultCredentialsFile)
	v.SetDefault("EVENT_TIMEZONE", DefaultTimezone)
	v.SetDefault("ANNOTATION_MARKER", DefaultMarker)
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	v.SetDefault("SCHEDULE_CRON", DefaultScheduleCron)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOCK_TTL_SECONDS", 600)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

// readFile loads path into v. A missing file is not an error: settings may
// come from the environment alone.
func readFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	v.SetConfigFile(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		v.SetConfigType("yaml")
	default:
		v.SetConfigType("env")
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	var missing []string
	if c.TrelloAPIKey == "" {
		missing = append(missing, "TRELLO_API_KEY")
	}
	if c.TrelloToken == "" {
		missing = append(missing, "TRELLO_TOKEN")
	}
	if c.TrelloBoardID == "" {
		missing = append(missing, "TRELLO_BOARD_ID")
	}
	if len(c.TrelloLists) == 0 {
		missing = append(missing, "TRELLO_LISTS")
	}

	var problems []error
	// "" and Local load fine but are not zone names the calendar API accepts
	if c.Timezone == "" || c.Timezone == "Local" {
		problems = append(problems, fmt.Errorf("EVENT_TIMEZONE: %q is not an IANA zone name", c.Timezone))
	} else if loc, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Errorf("EVENT_TIMEZONE: %w", err))
	} else {
		c.location = loc
	}
	if c.HTTPTimeout <= 0 {
		problems = append(problems, fmt.Errorf("HTTP_TIMEOUT_SECONDS must be >= 1"))
	}
	if c.RedisAddr != "" && c.LockTTL <= 0 {
		problems = append(problems, fmt.Errorf("LOCK_TTL_SECONDS must be >= 1"))
	}
	if _, err := cron.ParseStandard(c.ScheduleCron); err != nil {
		problems = append(problems, fmt.Errorf("SCHEDULE_CRON: %w", err))
	}

	if len(missing) == 0 && len(problems) == 0 {
		return nil
	}
	return &internaltypes.ConfigurationError{Missing: missing, Err: errors.Join(problems...)}
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	out := c
	out.TrelloAPIKey = redact(c.TrelloAPIKey)
	out.TrelloToken = redact(c.TrelloToken)
	out.RedisPassword = redact(c.RedisPassword)
	out.DatabaseURL = redactURL(c.DatabaseURL)
	return out
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func redactURL(s string) string {
	at := strings.LastIndex(s, "@")
	scheme := strings.Index(s, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return s
	}
	return s[:scheme+3] + "****" + s[at:]
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
