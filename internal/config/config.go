package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Target    TargetConfig    `mapstructure:"target"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Timeouts  TimeoutConfig   `mapstructure:"timeouts"`
	Artifacts ArtifactConfig  `mapstructure:"artifacts"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Security  SecurityConfig  `mapstructure:"security"`
	Scenarios ScenariosConfig `mapstructure:"scenarios"`
}

// TargetConfig describes the application under test. Credentials are only
// ever read from here, never from scenario definitions.
type TargetConfig struct {
	BaseURL       string `mapstructure:"baseURL"`
	AdminPath     string `mapstructure:"adminPath"` // route of the admin login, relative to BaseURL
	AdminEmail    string `mapstructure:"adminEmail"`
	AdminPassword string `mapstructure:"adminPassword"`
	TOTPSecret    string `mapstructure:"totpSecret"`
	FixturesDir   string `mapstructure:"fixturesDir"` // upload sources, e.g. public/test_image.png
}

type BrowserConfig struct {
	Driver          string        `mapstructure:"driver"` // chromedp, playwright
	ExecutablePath  string        `mapstructure:"executablePath"`
	Headless        bool          `mapstructure:"headless"`
	UserDataDir     string        `mapstructure:"userDataDir"`
	WindowWidth     int           `mapstructure:"windowWidth"`
	WindowHeight    int           `mapstructure:"windowHeight"`
	SlowMo          time.Duration `mapstructure:"slowMo"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	MaxSessions     int           `mapstructure:"maxSessions"`
}

// TimeoutConfig holds the independently configurable per-operation budgets.
type TimeoutConfig struct {
	Navigation   time.Duration `mapstructure:"navigation"`
	Locate       time.Duration `mapstructure:"locate"`
	Assertion    time.Duration `mapstructure:"assertion"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
	Scenario     time.Duration `mapstructure:"scenario"`
}

type ArtifactConfig struct {
	Dir              string `mapstructure:"dir"`
	CaptureOnSuccess bool   `mapstructure:"captureOnSuccess"`
	FullPage         bool   `mapstructure:"fullPage"`
	DOMSnapshot      bool   `mapstructure:"domSnapshot"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"` // debug, info, warn, error
	Development bool   `mapstructure:"development"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
	ApiKey         string   `mapstructure:"apiKey"`
}

type ScenariosConfig struct {
	Dir      string `mapstructure:"dir"` // extra YAML scenario files
	Parallel int    `mapstructure:"parallel"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("target.baseURL", "http://localhost:8080")
	v.SetDefault("target.adminPath", "/admin")
	v.SetDefault("target.adminEmail", "")
	v.SetDefault("target.adminPassword", "")
	v.SetDefault("target.totpSecret", "")
	v.SetDefault("target.fixturesDir", "public")

	v.SetDefault("browser.driver", "chromedp")
	v.SetDefault("browser.executablePath", "") // Attempt auto-detect if empty
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.userDataDir", "") // Empty means temporary profile
	v.SetDefault("browser.windowWidth", 1280)
	v.SetDefault("browser.windowHeight", 720)
	v.SetDefault("browser.slowMo", "0s")
	v.SetDefault("browser.shutdownTimeout", "10s")
	v.SetDefault("browser.maxSessions", 4)

	v.SetDefault("timeouts.navigation", "30s")
	v.SetDefault("timeouts.locate", "5s")
	v.SetDefault("timeouts.assertion", "10s")
	v.SetDefault("timeouts.pollInterval", "100ms")
	v.SetDefault("timeouts.scenario", "5m")

	v.SetDefault("artifacts.dir", "artifacts")
	v.SetDefault("artifacts.captureOnSuccess", false)
	v.SetDefault("artifacts.fullPage", true)
	v.SetDefault("artifacts.domSnapshot", true)

	v.SetDefault("server.port", 8090)
	v.SetDefault("server.readTimeout", "15s")
	v.SetDefault("server.writeTimeout", "15s")
	v.SetDefault("server.idleTimeout", "60s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("security.allowedOrigins", []string{"*"})
	v.SetDefault("security.apiKey", "")

	v.SetDefault("scenarios.dir", "")
	v.SetDefault("scenarios.parallel", 1)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.sablcheck")
		v.AddConfigPath("/etc/sablcheck")
	}

	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("SABLCHECK")

	err := v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	err = v.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration without consulting files or env.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func (c *Config) Validate() error {
	if c.Target.BaseURL == "" {
		return fmt.Errorf("target.baseURL must be set")
	}
	switch c.Browser.Driver {
	case "chromedp", "playwright":
	default:
		return fmt.Errorf("browser.driver must be chromedp or playwright, got %q", c.Browser.Driver)
	}
	if c.Browser.MaxSessions < 1 {
		return fmt.Errorf("browser.maxSessions must be at least 1")
	}
	if c.Timeouts.PollInterval <= 0 {
		return fmt.Errorf("timeouts.pollInterval must be positive")
	}
	for name, d := range map[string]time.Duration{
		"navigation": c.Timeouts.Navigation,
		"locate":     c.Timeouts.Locate,
		"assertion":  c.Timeouts.Assertion,
	} {
		if d < c.Timeouts.PollInterval {
			return fmt.Errorf("timeouts.%s (%s) must not be shorter than timeouts.pollInterval", name, d)
		}
	}
	return nil
}
