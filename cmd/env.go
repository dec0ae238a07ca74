package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wahlkarte/wahlkarte/internal/district"
	"github.com/wahlkarte/wahlkarte/internal/model"
	"github.com/wahlkarte/wahlkarte/internal/resilience"
	"github.com/wahlkarte/wahlkarte/internal/roster"
	"github.com/wahlkarte/wahlkarte/internal/store"
	"github.com/wahlkarte/wahlkarte/internal/streets"
	"github.com/wahlkarte/wahlkarte/pkg/geocode"
)

// geocodeEnv holds the initialized geocoding stack.
type geocodeEnv struct {
	Client   *geocode.CascadeClient
	Resolver *geocode.Resolver
	Cache    store.Cache
}

// Close releases the cache connection.
func (e *geocodeEnv) Close() {
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
}

// initGeocoder builds the provider cascade (Nominatim, then Google when a key
// is set) with per-provider breakers and the optional cache, and wraps it in
// a street resolver for the configured region.
func initGeocoder(ctx context.Context) (*geocodeEnv, error) {
	if err := cfg.Validate("geocode"); err != nil {
		return nil, err
	}

	gc := cfg.Geocode
	timeout := geocode.WithTimeout(time.Duration(gc.TimeoutSecs) * time.Second)

	providers := []geocode.Provider{
		geocode.NewNominatim(
			timeout,
			geocode.WithBaseURL(gc.NominatimURL),
			geocode.WithInterval(time.Duration(gc.IntervalMs)*time.Millisecond),
			geocode.WithUserAgent(gc.UserAgent),
			geocode.WithCountryCodes(gc.CountryCodes...),
		),
	}
	if gc.GoogleKey != "" {
		providers = append(providers, geocode.NewGoogle(gc.GoogleKey, timeout))
		zap.L().Info("google geocoding fallback enabled")
	} else {
		zap.L().Debug("WAHLKARTE_GEOCODE_GOOGLE_API_KEY not set, google fallback disabled")
	}

	retry, breaker := resilience.FromGeocodeConfig(gc)
	cascadeOpts := []geocode.CascadeOption{
		geocode.WithBreakers(resilience.NewServiceBreakers(breaker)),
	}

	env := &geocodeEnv{}
	if gc.CacheEnabled {
		c, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return nil, eris.Wrap(err, "open geocode cache")
		}
		env.Cache = c
		ttl := time.Duration(gc.CacheTTLDays) * 24 * time.Hour
		cascadeOpts = append(cascadeOpts, geocode.WithCache(c, ttl))
		zap.L().Info("geocode cache enabled",
			zap.String("driver", cfg.Store.Driver),
			zap.Duration("ttl", ttl),
		)
	}

	env.Client = geocode.NewCascadeClient(providers, cascadeOpts...)
	env.Resolver = geocode.NewResolver(env.Client, region(),
		geocode.WithRetry(retry),
		geocode.WithFallback(gc.Fallback),
	)
	return env, nil
}

func region() geocode.Region {
	return geocode.Region{
		City:       cfg.Region.City,
		PostalCode: cfg.Region.PostalCode,
		Country:    cfg.Region.Country,
		CenterLat:  cfg.Region.CenterLat,
		CenterLon:  cfg.Region.CenterLon,
	}
}

// inputExists logs an error for a missing input file and reports whether
// the command may go on.
func inputExists(path, what string) bool {
	if _, err := os.Stat(path); err != nil {
		zap.L().Error("input file not found",
			zap.String("input", what),
			zap.String("path", path),
			zap.Error(err),
		)
		return false
	}
	return true
}

func loadRoster() (*roster.Roster, error) {
	if cfg.Paths.Roster == "" {
		return roster.Default(), nil
	}
	return roster.Load(cfg.Paths.Roster)
}

// loadInputs reads the district assignment, the roster and a street table.
// ok is false when a required file is missing.
func loadInputs(districtsPath, streetsPath string) (set *district.Set, ros *roster.Roster, records []model.StreetRecord, ok bool, err error) {
	if !inputExists(districtsPath, "districts") || !inputExists(streetsPath, "streets") {
		return nil, nil, nil, false, nil
	}
	set, err = district.Load(districtsPath)
	if err != nil {
		return nil, nil, nil, false, err
	}
	ros, err = loadRoster()
	if err != nil {
		return nil, nil, nil, false, err
	}
	records, err = streets.ReadCSV(streetsPath)
	if err != nil {
		return nil, nil, nil, false, err
	}
	return set, ros, records, true, nil
}

// orDefault returns flag unless it is empty.
func orDefault(flag, def string) string {
	if flag != "" {
		return flag
	}
	return def
}
