package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dpup/fireproof/server/internal/clients/firms"
	"github.com/dpup/fireproof/server/internal/clients/opencellid"
	"github.com/dpup/fireproof/server/internal/clients/ors"
	"github.com/dpup/fireproof/server/internal/clients/overpass"
	"github.com/dpup/fireproof/server/internal/lib/routing"
)

// Config represents the complete server configuration, read from the "fireproof" section
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Fires   FiresConfig   `koanf:"fires"`
	Routing RoutingConfig `koanf:"routing"`
	Towers  TowersConfig  `koanf:"towers"`
	Places  PlacesConfig  `koanf:"places"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	CorsOrigins     []string      `koanf:"cors_origins"`
	RateLimitRPS    int           `koanf:"rate_limit_rps"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// FiresConfig holds FIRMS fire telemetry settings
type FiresConfig struct {
	APIKey           string        `koanf:"api_key"`
	BaseURL          string        `koanf:"base_url"`
	Sensors          []string      `koanf:"sensors"`
	SearchRadiusKm   float64       `koanf:"search_radius_km"`
	LookbackDays     int           `koanf:"lookback_days"`
	BufferMultiplier float64       `koanf:"buffer_multiplier"`
	Timeout          time.Duration `koanf:"timeout"`

	// CacheTTL is how long feed responses are reused. Zero disables the cache.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// RoutingConfig holds OpenRouteService settings
type RoutingConfig struct {
	APIKey            string          `koanf:"api_key"`
	BaseURL           string          `koanf:"base_url"`
	Profile           routing.Profile `koanf:"profile"`
	Timeout           time.Duration   `koanf:"timeout"`
	RequestsPerMinute int             `koanf:"requests_per_minute"`
}

// TowersConfig holds OpenCellID settings. Tower mode is disabled without an API key.
type TowersConfig struct {
	APIKey         string        `koanf:"api_key"`
	BaseURL        string        `koanf:"base_url"`
	SearchRadiusKm float64       `koanf:"search_radius_km"`
	Timeout        time.Duration `koanf:"timeout"`
}

// PlacesConfig holds Overpass safe-place settings
type PlacesConfig struct {
	Mirrors        []string      `koanf:"mirrors"`
	SearchRadiusKm float64       `koanf:"search_radius_km"`
	Limit          int           `koanf:"limit"`
	CandidateCount int           `koanf:"candidate_count"`
	Timeout        time.Duration `koanf:"timeout"`
}

// Unmarshaler reads a config section into a struct. *koanf.Koanf satisfies it.
type Unmarshaler interface {
	Unmarshal(path string, o interface{}) error
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			CorsOrigins:     []string{"*"},
			RateLimitRPS:    10,
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Fires: FiresConfig{
			BaseURL:          firms.DefaultBaseURL,
			Sensors:          append([]string(nil), firms.DefaultSensors...),
			SearchRadiusKm:   50,
			LookbackDays:     1,
			BufferMultiplier: 1.5,
			Timeout:          30 * time.Second,
			CacheTTL:         5 * time.Minute,
		},
		Routing: RoutingConfig{
			BaseURL:           ors.DefaultBaseURL,
			Profile:           routing.ProfileDriving,
			Timeout:           30 * time.Second,
			RequestsPerMinute: 40, // free tier quota
		},
		Towers: TowersConfig{
			BaseURL:        opencellid.DefaultBaseURL,
			SearchRadiusKm: 10,
			Timeout:        15 * time.Second,
		},
		Places: PlacesConfig{
			Mirrors:        append([]string(nil), overpass.DefaultMirrors...),
			SearchRadiusKm: 20,
			Limit:          20,
			CandidateCount: 5,
			Timeout:        45 * time.Second,
		},
	}
}

// Load layers the "fireproof" section from src over the defaults, then applies credentials
// and the port from the environment.
func Load(src Unmarshaler, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()
	if src != nil {
		if err := src.Unmarshal("fireproof", cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fireproof section: %w", err)
		}
	}
	if getenv != nil {
		if err := cfg.applyEnvOverrides(getenv); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides(getenv func(string) string) error {
	if v := getenv("FIRMS_API_KEY"); v != "" {
		c.Fires.APIKey = v
	}
	if v := getenv("ORS_API_KEY"); v != "" {
		c.Routing.APIKey = v
	}
	if v := getenv("OPENCELLID_API_KEY"); v != "" {
		c.Towers.APIKey = v
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate rejects settings no component can run with. Missing API keys are allowed; the
// provider that needs one degrades on its own.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimitRPS <= 0 {
		errs = append(errs, errors.New("server.rate_limit_rps must be positive"))
	}
	if c.Fires.SearchRadiusKm <= 0 {
		errs = append(errs, errors.New("fires.search_radius_km must be positive"))
	}
	if c.Fires.LookbackDays < 1 || c.Fires.LookbackDays > 10 {
		errs = append(errs, errors.New("fires.lookback_days must be in 1-10"))
	}
	if c.Fires.CacheTTL < 0 {
		errs = append(errs, errors.New("fires.cache_ttl must not be negative"))
	}
	if len(c.Fires.Sensors) == 0 {
		errs = append(errs, errors.New("fires.sensors must not be empty"))
	}
	if !c.Routing.Profile.Valid() {
		errs = append(errs, fmt.Errorf("routing.profile %q is not supported", c.Routing.Profile))
	}
	if c.Routing.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("routing.requests_per_minute must be positive"))
	}
	if c.Places.Limit <= 0 || c.Places.CandidateCount <= 0 {
		errs = append(errs, errors.New("places.limit and places.candidate_count must be positive"))
	}
	for name, d := range map[string]time.Duration{
		"server.request_timeout": c.Server.RequestTimeout,
		"fires.timeout":          c.Fires.Timeout,
		"routing.timeout":        c.Routing.Timeout,
		"towers.timeout":         c.Towers.Timeout,
		"places.timeout":         c.Places.Timeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	return errors.Join(errs...)
}
