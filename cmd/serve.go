package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wahlkarte/wahlkarte/internal/district"
	"github.com/wahlkarte/wahlkarte/internal/mapview"
	"github.com/wahlkarte/wahlkarte/internal/model"
	"github.com/wahlkarte/wahlkarte/internal/roster"
	"github.com/wahlkarte/wahlkarte/internal/summary"
	"github.com/wahlkarte/wahlkarte/internal/tiles"
)

var servePort int

// errNoData means the district or street file is missing.
var errNoData = errors.New("input data not available")

// mapData is everything a live map or summary is built from.
type mapData struct {
	Set     *district.Set
	Roster  *roster.Roster
	Records []model.StreetRecord
}

// loadFunc reads the current inputs. It is called per request so edits to
// the CSV show up on reload.
type loadFunc func() (*mapData, error)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve rendered maps and live previews",
	Long:  "Serves the output directory over HTTP and renders maps and summaries from the current street table on request.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		load := func() (*mapData, error) {
			set, ros, records, ok, err := loadInputs(cfg.Paths.Districts, cfg.Paths.Complete)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errNoData
			}
			return &mapData{Set: set, Roster: ros, Records: records}, nil
		}

		var proxy *tiles.Proxy
		if cfg.Server.TileProxy {
			cache := tiles.NewCache(cfg.Server.TileCacheSize, time.Duration(cfg.Server.TileCacheTTLMins)*time.Minute)
			proxy = tiles.NewProxy(cfg.Map.TileURL, cfg.Geocode.UserAgent, cache)
			zap.L().Info("tile proxy enabled", zap.String("upstream", cfg.Map.TileURL))
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(cfg.Paths.OutputDir, load, proxy),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("dir", cfg.Paths.OutputDir),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter serves dir as static files plus the live endpoints. With a
// proxy, live maps load their tiles through /tiles.
func newRouter(dir string, load loadFunc, proxy *tiles.Proxy) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	var tileOpts []mapview.Option
	if proxy != nil {
		r.Mount("/tiles", http.StripPrefix("/tiles", proxy))
		r.Get("/api/tiles/stats", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, proxy.CacheStats())
		})
		tileOpts = append(tileOpts, mapview.WithTiles("/tiles/{z}/{x}/{y}.png", cfg.Map.Attribution))
	}

	r.Get("/maps/{mode}", func(w http.ResponseWriter, r *http.Request) {
		mode, err := mapview.ParseMode(chi.URLParam(r, "mode"))
		if err != nil || mode == mapview.ModeAddresses {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown map mode"})
			return
		}
		data, ok := loadOrFail(w, load)
		if !ok {
			return
		}
		page, err := buildPage(data.Records, data.Roster, data.Set, mode, tileOpts...)
		if errors.Is(err, mapview.ErrNoRecords) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no geocoded records"})
			return
		}
		if err != nil {
			zap.L().Error("build map failed", zap.String("mode", string(mode)), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "build map failed"})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := mapview.Render(w, page); err != nil {
			zap.L().Error("render map failed", zap.String("mode", string(mode)), zap.Error(err))
		}
	})

	r.Get("/api/summary/{table}", func(w http.ResponseWriter, r *http.Request) {
		data, ok := loadOrFail(w, load)
		if !ok {
			return
		}
		switch chi.URLParam(r, "table") {
		case "candidates":
			writeJSON(w, http.StatusOK, summary.Candidates(data.Set, data.Records, data.Roster))
		case "counties":
			writeJSON(w, http.StatusOK, summary.Counties(data.Set, data.Records, data.Roster))
		case "districts":
			writeJSON(w, http.StatusOK, summary.Districts(data.Set, data.Records, data.Roster))
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown summary table"})
		}
	})

	r.Handle("/*", http.FileServer(http.Dir(dir)))
	return r
}

func loadOrFail(w http.ResponseWriter, load loadFunc) (*mapData, bool) {
	data, err := load()
	if errors.Is(err, errNoData) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return nil, false
	}
	if err != nil {
		zap.L().Error("load inputs failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "load inputs failed"})
		return nil, false
	}
	return data, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
