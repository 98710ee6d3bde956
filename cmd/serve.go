package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/envirowatch/envirowatch/internal/app"
	"github.com/envirowatch/envirowatch/internal/model"
	"github.com/envirowatch/envirowatch/internal/session"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for facility search and incident reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initSearchEnv(cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		a := app.New(session.New(), env.Aggregator, nil)
		mux := newServeMux(a)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newServeMux builds the API routes over a shared app instance.
func newServeMux(a *app.App) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/issues", func(w http.ResponseWriter, r *http.Request) {
		type issue struct {
			Key   string `json:"key"`
			Label string `json:"label"`
		}
		out := make([]issue, 0, len(model.IssueOptions))
		for _, opt := range model.IssueOptions {
			out = append(out, issue{Key: opt.Key, Label: opt.Label})
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("GET /api/facilities", func(w http.ResponseWriter, r *http.Request) {
		center, err := parseCenter(r)
		if err != nil {
			http.Error(w, `{"error":"lat and lng are required and must be in range"}`, http.StatusBadRequest)
			return
		}

		if err := a.RequestFacilitySearch(r.Context(), center); err != nil {
			zap.L().Error("facility search failed", zap.Error(err))
			http.Error(w, `{"error":"facility search failed"}`, http.StatusBadGateway)
			return
		}

		facilities := a.State().Facilities()
		writeJSON(w, http.StatusOK, map[string]any{
			"count":      len(facilities),
			"facilities": facilities,
		})
	})

	mux.HandleFunc("POST /api/report", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Lat    float64  `json:"lat"`
			Lng    float64  `json:"lng"`
			Issues []string `json:"issues"`
			Notes  string   `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		coord := model.Coordinate{Lat: req.Lat, Lng: req.Lng}
		if !coord.Valid() {
			http.Error(w, `{"error":"lat and lng must be in range"}`, http.StatusBadRequest)
			return
		}

		inc, authority, err := a.SubmitIncidentAt(coord, req.Issues, req.Notes)
		if err != nil {
			if eris.Is(err, session.ErrNoIssues) {
				http.Error(w, `{"error":"at least one issue is required"}`, http.StatusBadRequest)
				return
			}
			zap.L().Error("incident submit failed", zap.Error(err))
			http.Error(w, `{"error":"submit failed"}`, http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"incident": inc,
			"authority": map[string]string{
				"name":        authority.Name,
				"phone":       authority.Phone,
				"description": authority.Description,
			},
		})
	})

	mux.HandleFunc("GET /api/incidents", func(w http.ResponseWriter, r *http.Request) {
		var incidents []model.Incident
		if q := r.URL.Query().Get("q"); q != "" {
			incidents = a.State().FilterIncidents(q)
		} else {
			incidents = a.State().Incidents()
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count":     len(incidents),
			"incidents": incidents,
		})
	})

	return mux
}

func parseCenter(r *http.Request) (model.Coordinate, error) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		return model.Coordinate{}, eris.Wrap(err, "parse lat")
	}
	lng, err := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err != nil {
		return model.Coordinate{}, eris.Wrap(err, "parse lng")
	}
	coord := model.Coordinate{Lat: lat, Lng: lng}
	if !coord.Valid() {
		return model.Coordinate{}, eris.Errorf("coordinates out of range: %f, %f", lat, lng)
	}
	return coord, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
