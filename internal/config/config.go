package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mrsinham/medbrain/internal/util"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "MEDBRAIN"

// Config holds every setting of the client and of the sandbox server.
type Config struct {
	APIURL         string        `mapstructure:"API_URL"`
	PredictURL     string        `mapstructure:"PREDICT_URL"`
	ChatURL        string        `mapstructure:"CHAT_URL"`
	RecordsPath    string        `mapstructure:"RECORDS_PATH"`
	SessionPath    string        `mapstructure:"SESSION_PATH"`
	ProfilePath    string        `mapstructure:"PROFILE_PATH"`
	LoginPath      string        `mapstructure:"LOGIN_PATH"`
	Token          string        `mapstructure:"TOKEN"`
	Timeout        time.Duration `mapstructure:"TIMEOUT"`
	PollInterval   time.Duration `mapstructure:"POLL_INTERVAL"`
	RevealInterval time.Duration `mapstructure:"REVEAL_INTERVAL"`
	GeoURL         string        `mapstructure:"GEO_URL"`
	GeoLat         string        `mapstructure:"GEO_LAT"`
	GeoLng         string        `mapstructure:"GEO_LNG"`
	AttachmentMax  string        `mapstructure:"ATTACHMENT_MAX_SIZE"`
	PAFormURL      string        `mapstructure:"PA_FORM_URL"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	LogFormat      string        `mapstructure:"LOG_FORMAT"`
	LogFile        string        `mapstructure:"LOG_FILE"`
	SandboxAddr    string        `mapstructure:"SANDBOX_ADDR"`
	SandboxSecret  string        `mapstructure:"SANDBOX_SECRET"`
}

// keys lists every setting, bound to MEDBRAIN_<KEY>.
var keys = []string{
	"API_URL", "PREDICT_URL", "CHAT_URL",
	"RECORDS_PATH", "SESSION_PATH", "PROFILE_PATH", "LOGIN_PATH",
	"TOKEN", "TIMEOUT", "POLL_INTERVAL", "REVEAL_INTERVAL",
	"GEO_URL", "GEO_LAT", "GEO_LNG",
	"ATTACHMENT_MAX_SIZE", "PA_FORM_URL",
	"LOG_LEVEL", "LOG_FORMAT", "LOG_FILE",
	"SANDBOX_ADDR", "SANDBOX_SECRET",
}

// DefaultPAFormURL is the external form opened by the PA generation path.
const DefaultPAFormURL = "https://docs.google.com/forms/d/e/1FAIpQLSfHCYq-sVvprhYCAL1h0h56uIx9b8CD75K1adgCJnzLANfcsw/viewform"

// Load reads settings from the optional file at path, then the environment,
// then any changed flag in flags whose name matches a key ("api-url" for API_URL).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("API_URL", "http://localhost:5002/api")
	v.SetDefault("PREDICT_URL", "http://127.0.0.1:5000/predict")
	v.SetDefault("CHAT_URL", "http://localhost:5001/api/content")
	v.SetDefault("RECORDS_PATH", "/auth/prescriptions")
	v.SetDefault("SESSION_PATH", "/auth/check")
	v.SetDefault("PROFILE_PATH", "/auth/update-profile")
	v.SetDefault("LOGIN_PATH", "/auth/login")
	v.SetDefault("TIMEOUT", 15*time.Second)
	v.SetDefault("POLL_INTERVAL", 10*time.Second)
	v.SetDefault("REVEAL_INTERVAL", 50*time.Millisecond)
	v.SetDefault("ATTACHMENT_MAX_SIZE", "5MB")
	v.SetDefault("PA_FORM_URL", DefaultPAFormURL)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("SANDBOX_ADDR", ":5002")
	v.SetDefault("SANDBOX_SECRET", "medbrain-sandbox")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("binding %s: %w", k, err)
		}
	}

	if flags != nil {
		for _, k := range keys {
			f := flags.Lookup(flagName(k))
			if f == nil {
				continue
			}
			if err := v.BindPFlag(k, f); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", f.Name, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// flagName maps a key to its command-line flag name.
func flagName(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", "-")
}

// Validate checks URLs, durations, sizes and the static location.
func (c *Config) Validate() error {
	var errs []error

	for name, raw := range map[string]string{
		"API_URL":     c.APIURL,
		"PREDICT_URL": c.PredictURL,
		"CHAT_URL":    c.ChatURL,
		"PA_FORM_URL": c.PAFormURL,
	} {
		if err := checkURL(raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.GeoURL != "" {
		if err := checkURL(c.GeoURL); err != nil {
			errs = append(errs, fmt.Errorf("GEO_URL: %w", err))
		}
	}

	for name, d := range map[string]time.Duration{
		"TIMEOUT":         c.Timeout,
		"POLL_INTERVAL":   c.PollInterval,
		"REVEAL_INTERVAL": c.RevealInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}

	if _, err := c.MaxAttachmentBytes(); err != nil {
		errs = append(errs, err)
	}
	if _, _, _, err := c.StaticLocation(); err != nil {
		errs = append(errs, err)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be \"json\" or \"console\", got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

// MaxAttachmentBytes parses ATTACHMENT_MAX_SIZE.
func (c *Config) MaxAttachmentBytes() (int64, error) {
	n, err := util.ParseSize(c.AttachmentMax)
	if err != nil {
		return 0, fmt.Errorf("ATTACHMENT_MAX_SIZE: %w", err)
	}
	return n, nil
}

// StaticLocation returns the configured fixed location. ok is false when GEO_LAT
// and GEO_LNG are both unset.
func (c *Config) StaticLocation() (lat, lng float64, ok bool, err error) {
	if c.GeoLat == "" && c.GeoLng == "" {
		return 0, 0, false, nil
	}
	lat, err = strconv.ParseFloat(c.GeoLat, 64)
	if err != nil || math.Abs(lat) > 90 || math.IsNaN(lat) {
		return 0, 0, false, fmt.Errorf("GEO_LAT must be a latitude, got %q", c.GeoLat)
	}
	lng, err = strconv.ParseFloat(c.GeoLng, 64)
	if err != nil || math.Abs(lng) > 180 || math.IsNaN(lng) {
		return 0, 0, false, fmt.Errorf("GEO_LNG must be a longitude, got %q", c.GeoLng)
	}
	return lat, lng, true, nil
}
