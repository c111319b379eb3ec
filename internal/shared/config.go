package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Storage     StorageConfig     `toml:"storage"`
	Quota       QuotaConfig       `toml:"quota"`
	Cache       CacheConfig       `toml:"cache"`
	Analysis    AnalysisConfig    `toml:"analysis"`
}

// CredentialsConfig contains provider credentials.
type CredentialsConfig struct {
	Google GoogleConfig `toml:"google"`
}

// GoogleConfig contains the installed-app OAuth client descriptor for the
// YouTube Data API.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// StorageConfig contains database and token store settings.
type StorageConfig struct {
	DatabasePath string `toml:"database_path"`
	TokenPath    string `toml:"token_path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// QuotaConfig contains the daily unit budget and the per-endpoint cost table.
//
// Costs are configuration rather than constants so a provider pricing change
// does not require a rebuild.
type QuotaConfig struct {
	DailyBudget int            `toml:"daily_budget"`
	Costs       map[string]int `toml:"costs"`
}

// CacheConfig contains per-volatility TTLs in seconds.
type CacheConfig struct {
	ListingTTL int `toml:"listing_ttl"`
	VideoTTL   int `toml:"video_ttl"`
	SearchTTL  int `toml:"search_ttl"`
}

// AnalysisConfig contains taste analysis tuning.
type AnalysisConfig struct {
	TrackCap    int `toml:"track_cap"`
	TopArtists  int `toml:"top_artists"`
	TopChannels int `toml:"top_channels"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
