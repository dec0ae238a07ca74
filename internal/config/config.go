package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Region  RegionConfig  `yaml:"region" mapstructure:"region"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	OCR     OCRConfig     `yaml:"ocr" mapstructure:"ocr"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Map     MapConfig     `yaml:"map" mapstructure:"map"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// PathsConfig names the input and output files. Every command falls back to
// these when no flag is given.
type PathsConfig struct {
	Districts    string `yaml:"districts" mapstructure:"districts"`
	Roster       string `yaml:"roster" mapstructure:"roster"`
	Geocoded     string `yaml:"geocoded" mapstructure:"geocoded"`
	Streets      string `yaml:"streets" mapstructure:"streets"`
	Complete     string `yaml:"complete" mapstructure:"complete"`
	OutputDir    string `yaml:"output_dir" mapstructure:"output_dir"`
	StreetsPDF   string `yaml:"streets_pdf" mapstructure:"streets_pdf"`
	CandidatePDF string `yaml:"candidates_pdf" mapstructure:"candidates_pdf"`
}

// RegionConfig describes the municipality being canvassed.
type RegionConfig struct {
	City       string  `yaml:"city" mapstructure:"city"`
	PostalCode string  `yaml:"postal_code" mapstructure:"postal_code"`
	Country    string  `yaml:"country" mapstructure:"country"`
	CenterLat  float64 `yaml:"center_lat" mapstructure:"center_lat"`
	CenterLon  float64 `yaml:"center_lon" mapstructure:"center_lon"`
}

// GeocodeConfig configures the geocoding providers and the street resolver.
type GeocodeConfig struct {
	NominatimURL     string   `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	UserAgent        string   `yaml:"user_agent" mapstructure:"user_agent"`
	CountryCodes     []string `yaml:"country_codes" mapstructure:"country_codes"`
	GoogleKey        string   `yaml:"google_api_key" mapstructure:"google_api_key"`
	IntervalMs       int      `yaml:"interval_ms" mapstructure:"interval_ms"`
	TimeoutSecs      int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries          int      `yaml:"retries" mapstructure:"retries"`
	RetryPauseMs     int      `yaml:"retry_pause_ms" mapstructure:"retry_pause_ms"`
	Fallback         bool     `yaml:"fallback" mapstructure:"fallback"`
	CacheEnabled     bool     `yaml:"cache_enabled" mapstructure:"cache_enabled"`
	CacheTTLDays     int      `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
	BreakerFailures  int      `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs int      `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	PdfToPPMPath  string `yaml:"pdftoppm_path" mapstructure:"pdftoppm_path"`
	TesseractPath string `yaml:"tesseract_path" mapstructure:"tesseract_path"`
	Language      string `yaml:"language" mapstructure:"language"`
	DPI           int    `yaml:"dpi" mapstructure:"dpi"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// StoreConfig configures the geocode cache backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MapConfig configures rendered HTML maps.
type MapConfig struct {
	Title        string `yaml:"title" mapstructure:"title"`
	Party        string `yaml:"party" mapstructure:"party"`
	Zoom         int    `yaml:"zoom" mapstructure:"zoom"`
	TileURL      string `yaml:"tile_url" mapstructure:"tile_url"`
	Attribution  string `yaml:"attribution" mapstructure:"attribution"`
	MarkerRadius int    `yaml:"marker_radius" mapstructure:"marker_radius"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Port             int  `yaml:"port" mapstructure:"port"`
	TileProxy        bool `yaml:"tile_proxy" mapstructure:"tile_proxy"`
	TileCacheSize    int  `yaml:"tile_cache_size" mapstructure:"tile_cache_size"`
	TileCacheTTLMins int  `yaml:"tile_cache_ttl_mins" mapstructure:"tile_cache_ttl_mins"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("WAHLKARTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("paths.districts", "wahlbezirke_zuordnung.json")
	v.SetDefault("paths.roster", "")
	v.SetDefault("paths.geocoded", "wahlbezirke_all_streets_geocoded.csv")
	v.SetDefault("paths.streets", "wahlbezirke_map.csv")
	v.SetDefault("paths.complete", "wahlbezirke_complete.csv")
	v.SetDefault("paths.output_dir", ".")
	v.SetDefault("paths.streets_pdf", "Nümbrecht straßengenau.pdf")
	v.SetDefault("paths.candidates_pdf", "CDU-Kandidaten und ihre Bezirke.pdf")
	v.SetDefault("region.city", "Nümbrecht")
	v.SetDefault("region.postal_code", "51588")
	v.SetDefault("region.country", "Deutschland")
	v.SetDefault("region.center_lat", 50.9033978)
	v.SetDefault("region.center_lon", 7.5409481)
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "nuembrecht_geocoder")
	v.SetDefault("geocode.country_codes", []string{"de"})
	v.SetDefault("geocode.google_api_key", "")
	v.SetDefault("geocode.interval_ms", 1200)
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.retries", 3)
	v.SetDefault("geocode.retry_pause_ms", 5000)
	v.SetDefault("geocode.fallback", true)
	v.SetDefault("geocode.cache_enabled", true)
	v.SetDefault("geocode.cache_ttl_days", 90)
	v.SetDefault("geocode.breaker_failures", 5)
	v.SetDefault("geocode.breaker_reset_secs", 60)
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.pdftoppm_path", "pdftoppm")
	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.language", "deu")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.mistral_api_key", "")
	v.SetDefault("ocr.mistral_model", "mistral-ocr-latest")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "wahlkarte-cache.db")
	v.SetDefault("map.title", "CDU Wahlbezirke Nümbrecht 2024")
	v.SetDefault("map.party", "CDU")
	v.SetDefault("map.zoom", 12)
	v.SetDefault("map.tile_url", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("map.attribution", "&copy; OpenStreetMap contributors")
	v.SetDefault("map.marker_radius", 8)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.tile_proxy", true)
	v.SetDefault("server.tile_cache_size", 2048)
	v.SetDefault("server.tile_cache_ttl_mins", 1440)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Validate checks the settings a command mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "geocode":
		if c.Geocode.NominatimURL == "" {
			errs = append(errs, "geocode.nominatim_url is required")
		}
		if c.Geocode.UserAgent == "" {
			errs = append(errs, "geocode.user_agent is required")
		}
		if c.Geocode.Retries < 1 {
			errs = append(errs, "geocode.retries must be >= 1")
		}
		if c.Geocode.IntervalMs < 0 {
			errs = append(errs, "geocode.interval_ms must be >= 0")
		}
		errs = append(errs, c.validateRegion()...)
		errs = append(errs, c.validateStore()...)
	case "extract":
		if c.OCR.Provider == "mistral" && c.OCR.MistralKey == "" {
			errs = append(errs, "ocr.mistral_api_key is required for provider mistral")
		}
		errs = append(errs, c.validateRegion()...)
	case "render":
		if c.Map.Zoom < 1 || c.Map.Zoom > 19 {
			errs = append(errs, "map.zoom must be between 1 and 19")
		}
		if c.Map.MarkerRadius < 1 {
			errs = append(errs, "map.marker_radius must be > 0")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.TileProxy && c.Map.TileURL == "" {
			errs = append(errs, "map.tile_url is required for server.tile_proxy")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateRegion() []string {
	var errs []string
	if c.Region.City == "" {
		errs = append(errs, "region.city is required")
	}
	if c.Region.CenterLat < -90 || c.Region.CenterLat > 90 {
		errs = append(errs, "region.center_lat out of range")
	}
	if c.Region.CenterLon < -180 || c.Region.CenterLon > 180 {
		errs = append(errs, "region.center_lon out of range")
	}
	return errs
}

func (c *Config) validateStore() []string {
	if !c.Geocode.CacheEnabled {
		return nil
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return []string{"store.driver must be sqlite or postgres"}
	}
	if c.Store.DatabaseURL == "" {
		return []string{"store.database_url is required when geocode.cache_enabled"}
	}
	return nil
}
