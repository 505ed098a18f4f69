package config

import (
	"errors"
	"event-location-service/internal/domain"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	SearchNominatim = "nominatim"
	SearchORS       = "ors"
)

// Config is the service configuration, read from the environment
// (optionally seeded from a .env file).
type Config struct {
	Port        string
	DBPath      string
	DatabaseURL string
	LogLevel    string

	SearchProvider    string
	NominatimURL      string
	NominatimAgent    string
	ORSKey            string
	ORSURL            string
	SearchCountry     string
	SearchLimit       int
	SearchCacheMaxAge time.Duration

	Fallback     domain.Coordinates
	MapZoom      int
	SessionTTL   time.Duration
	ReapInterval time.Duration
}

// LoadDotEnv loads .env if present. It reports whether a file was found.
func LoadDotEnv(paths ...string) bool {
	return godotenv.Load(paths...) == nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_PATH", "data/app.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("SEARCH_PROVIDER", SearchNominatim)
	v.SetDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("NOMINATIM_USER_AGENT", "event-location-service/1.0")
	v.SetDefault("ORS_API_KEY", "")
	v.SetDefault("ORS_URL", "https://api.openrouteservice.org")
	v.SetDefault("SEARCH_COUNTRY", "")
	v.SetDefault("SEARCH_LIMIT", 5)
	v.SetDefault("SEARCH_CACHE_MAX_AGE", "720h")

	v.SetDefault("FALLBACK_LAT", 31.900144)
	v.SetDefault("FALLBACK_LON", 35.206644)
	v.SetDefault("MAP_ZOOM", 10)
	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("SESSION_REAP_INTERVAL", "1m")
	return v
}

// Get returns the environment value for key or fallback when unset.
func Get(key, fallback string) string {
	v := newViper()
	if s := v.GetString(key); s != "" {
		return s
	}
	return fallback
}

// Load reads and validates the configuration.
func Load() (Config, error) {
	v := newViper()

	cfg := Config{
		Port:        v.GetString("PORT"),
		DBPath:      v.GetString("DB_PATH"),
		DatabaseURL: strings.TrimSpace(v.GetString("DATABASE_URL")),
		LogLevel:    v.GetString("LOG_LEVEL"),

		SearchProvider:    strings.ToLower(strings.TrimSpace(v.GetString("SEARCH_PROVIDER"))),
		NominatimURL:      v.GetString("NOMINATIM_URL"),
		NominatimAgent:    v.GetString("NOMINATIM_USER_AGENT"),
		ORSKey:            strings.TrimSpace(v.GetString("ORS_API_KEY")),
		ORSURL:            v.GetString("ORS_URL"),
		SearchCountry:     v.GetString("SEARCH_COUNTRY"),
		SearchLimit:       v.GetInt("SEARCH_LIMIT"),
		SearchCacheMaxAge: v.GetDuration("SEARCH_CACHE_MAX_AGE"),

		Fallback: domain.Coordinates{
			Lat: v.GetFloat64("FALLBACK_LAT"),
			Lon: v.GetFloat64("FALLBACK_LON"),
		},
		MapZoom:      v.GetInt("MAP_ZOOM"),
		SessionTTL:   v.GetDuration("SESSION_TTL"),
		ReapInterval: v.GetDuration("SESSION_REAP_INTERVAL"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	switch c.SearchProvider {
	case SearchNominatim:
		if strings.TrimSpace(c.NominatimAgent) == "" {
			errs = append(errs, errors.New("NOMINATIM_USER_AGENT is required"))
		}
	case SearchORS:
		if c.ORSKey == "" {
			errs = append(errs, errors.New("ORS_API_KEY is required when SEARCH_PROVIDER=ors"))
		}
	default:
		errs = append(errs, fmt.Errorf("SEARCH_PROVIDER must be %q or %q, got %q", SearchNominatim, SearchORS, c.SearchProvider))
	}
	if err := c.Fallback.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("FALLBACK_LAT/FALLBACK_LON: %w", err))
	}
	if c.MapZoom < 1 || c.MapZoom > 22 {
		errs = append(errs, fmt.Errorf("MAP_ZOOM must be between 1 and 22, got %d", c.MapZoom))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, errors.New("SESSION_TTL must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("load config: %w", errors.Join(errs...))
	}
	return nil
}
