package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Engine names accepted by pdf.engine.
const (
	EngineChromedp = "chromedp"
	EngineRod      = "rod"
)

// Rules accepted by reports.advance_balance_rule.
const (
	AdvanceRuleConditional = "conditional"
	AdvanceRuleFormula     = "formula"
)

// PaperSize is a page size in inches.
type PaperSize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// PostgresConfig points at the API token database.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled reports whether a token database has been configured at all.
func (p PostgresConfig) Enabled() bool {
	return strings.TrimSpace(p.Host) != ""
}

// Config is the service configuration, read from YAML.
type Config struct {
	Server struct {
		Host        string `yaml:"host"`
		Port        string `yaml:"port"`
		Prefork     bool   `yaml:"prefork"`
		BodyLimitMB int    `yaml:"body_limit_mb"`
	} `yaml:"server"`

	Limits struct {
		MaxRecords  int `yaml:"max_records"`
		MaxPDFBytes int `yaml:"max_pdf_bytes"`
	} `yaml:"limits"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Cache struct {
		PDFCacheEnabled bool          `yaml:"pdf_cache_enabled"`
		PDFCacheTTL     time.Duration `yaml:"pdf_cache_ttl"`
		RedisHost       string        `yaml:"redis_host"`
		RateLimitDB     int           `yaml:"redis_rate_db"`
		PDFCacheDB      int           `yaml:"redis_pdf_db"`
	} `yaml:"cache"`

	PDF struct {
		Engine            string               `yaml:"engine"`
		DefaultPaper      string               `yaml:"default_paper"`
		PaperSizes        map[string]PaperSize `yaml:"paper_sizes"`
		TimeoutSecs       int                  `yaml:"timeout_secs"`
		RenderConcurrency int                  `yaml:"render_concurrency"`
		SettleMillis      int                  `yaml:"settle_ms"`
		ChromePath        string               `yaml:"chrome_path"`
		ChromeNoSandbox   bool                 `yaml:"chrome_no_sandbox"`
		ChromePoolSize    int                  `yaml:"chrome_pool_size"`
		UserDataDir       string               `yaml:"user_data_dir"`
	} `yaml:"pdf"`

	RateLimiter struct {
		Interval          time.Duration `yaml:"interval"`
		UserLimit         int           `yaml:"user_limit"`
		EnableUserLimiter bool          `yaml:"enable_user_limiter"`
	} `yaml:"rate_limiter"`

	Auth struct {
		Postgres       PostgresConfig `yaml:"postgres"`
		ReloadInterval time.Duration  `yaml:"reload_interval"`
	} `yaml:"auth"`

	Fetch struct {
		Timeout     time.Duration `yaml:"timeout"`
		MaxBytes    int           `yaml:"max_bytes"`
		Concurrency int           `yaml:"concurrency"`
	} `yaml:"fetch"`

	Branding struct {
		CompanyName string   `yaml:"company_name"`
		Address     []string `yaml:"address"`
		Email       string   `yaml:"email"`
		Website     string   `yaml:"website"`
		Watermark   string   `yaml:"watermark"`
		LogoPath    string   `yaml:"logo_path"`
	} `yaml:"branding"`

	Reports struct {
		AdvanceBalanceRule string `yaml:"advance_balance_rule"`
		TimeZone           string `yaml:"time_zone"`
	} `yaml:"reports"`
}

// DefaultPaperSizes mirrors the formats the report endpoints accept.
func DefaultPaperSizes() map[string]PaperSize {
	return map[string]PaperSize{
		"A0":      {Width: 33.11, Height: 46.81},
		"A1":      {Width: 23.39, Height: 33.11},
		"A2":      {Width: 16.54, Height: 23.39},
		"A3":      {Width: 11.69, Height: 16.54},
		"A4":      {Width: 8.27, Height: 11.69},
		"A5":      {Width: 5.83, Height: 8.27},
		"LETTER":  {Width: 8.5, Height: 11},
		"LEGAL":   {Width: 8.5, Height: 14},
		"TABLOID": {Width: 11, Height: 17},
	}
}

// Default returns a configuration with every default applied.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// Load reads the file named by CONFIG_PATH, falling back to config.yaml.
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFrom(path)
}

// LoadFrom reads and validates the YAML file at path. It panics when the file
// cannot be read or holds invalid values.
func LoadFrom(path string) Config {
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("config: read %s: %v", path, err))
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		panic(fmt.Sprintf("config: parse %s: %v", path, err))
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: %s: %v", path, err))
	}
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Server.BodyLimitMB == 0 {
		c.Server.BodyLimitMB = 100
	}
	if c.Limits.MaxPDFBytes == 0 {
		c.Limits.MaxPDFBytes = 200 << 20
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.PDF.Engine == "" {
		c.PDF.Engine = EngineChromedp
	}
	c.PDF.Engine = strings.ToLower(c.PDF.Engine)
	if len(c.PDF.PaperSizes) == 0 {
		c.PDF.PaperSizes = DefaultPaperSizes()
	} else {
		normalized := make(map[string]PaperSize, len(c.PDF.PaperSizes))
		for name, size := range c.PDF.PaperSizes {
			normalized[strings.ToUpper(name)] = size
		}
		c.PDF.PaperSizes = normalized
	}
	if c.PDF.DefaultPaper == "" {
		c.PDF.DefaultPaper = "A4"
	}
	c.PDF.DefaultPaper = strings.ToUpper(c.PDF.DefaultPaper)
	if c.PDF.TimeoutSecs == 0 {
		c.PDF.TimeoutSecs = 60
	}
	if c.PDF.RenderConcurrency == 0 {
		c.PDF.RenderConcurrency = 1
	}
	if c.PDF.SettleMillis == 0 {
		c.PDF.SettleMillis = 200
	}
	if c.RateLimiter.Interval == 0 {
		c.RateLimiter.Interval = time.Minute
	}
	if c.Auth.ReloadInterval == 0 {
		c.Auth.ReloadInterval = time.Minute
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 10 * time.Second
	}
	if c.Fetch.MaxBytes == 0 {
		c.Fetch.MaxBytes = 10 << 20
	}
	if c.Fetch.Concurrency == 0 {
		c.Fetch.Concurrency = 4
	}
	if c.Reports.AdvanceBalanceRule == "" {
		c.Reports.AdvanceBalanceRule = AdvanceRuleConditional
	}
	c.Reports.AdvanceBalanceRule = strings.ToLower(c.Reports.AdvanceBalanceRule)
	if c.Reports.TimeZone == "" {
		c.Reports.TimeZone = "Asia/Kolkata"
	}
}

// Validate reports the first invalid value in c.
func (c Config) Validate() error {
	switch c.PDF.Engine {
	case EngineChromedp, EngineRod:
	default:
		return fmt.Errorf("pdf.engine %q is not one of %s, %s", c.PDF.Engine, EngineChromedp, EngineRod)
	}
	if _, ok := c.PDF.PaperSizes[c.PDF.DefaultPaper]; !ok {
		return fmt.Errorf("pdf.default_paper %q is missing from pdf.paper_sizes", c.PDF.DefaultPaper)
	}
	for name, size := range c.PDF.PaperSizes {
		if size.Width <= 0 || size.Height <= 0 {
			return fmt.Errorf("pdf.paper_sizes.%s must have positive width and height", name)
		}
	}
	if c.PDF.TimeoutSecs < 0 {
		return fmt.Errorf("pdf.timeout_secs must not be negative")
	}
	if c.PDF.RenderConcurrency < 0 {
		return fmt.Errorf("pdf.render_concurrency must not be negative")
	}
	if c.PDF.ChromePoolSize < 0 {
		return fmt.Errorf("pdf.chrome_pool_size must not be negative")
	}
	if c.Limits.MaxRecords < 0 {
		return fmt.Errorf("limits.max_records must not be negative")
	}
	if c.Limits.MaxPDFBytes < 0 {
		return fmt.Errorf("limits.max_pdf_bytes must not be negative")
	}
	if c.RateLimiter.Interval < 0 {
		return fmt.Errorf("rate_limiter.interval must not be negative")
	}
	if c.RateLimiter.UserLimit < 0 {
		return fmt.Errorf("rate_limiter.user_limit must not be negative")
	}
	if c.Auth.ReloadInterval < 0 {
		return fmt.Errorf("auth.reload_interval must not be negative")
	}
	switch c.Reports.AdvanceBalanceRule {
	case AdvanceRuleConditional, AdvanceRuleFormula:
	default:
		return fmt.Errorf("reports.advance_balance_rule %q is not one of %s, %s",
			c.Reports.AdvanceBalanceRule, AdvanceRuleConditional, AdvanceRuleFormula)
	}
	if _, err := time.LoadLocation(c.Reports.TimeZone); err != nil {
		return fmt.Errorf("reports.time_zone: %w", err)
	}
	return nil
}

// RenderTimeout is the per-record render deadline; zero disables it.
func (c Config) RenderTimeout() time.Duration {
	return time.Duration(c.PDF.TimeoutSecs) * time.Second
}

// Location returns the report time zone, UTC if it cannot be loaded.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reports.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
