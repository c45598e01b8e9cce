package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Nestour97/dsp-scraper/internal/pipeline"
	"github.com/Nestour97/dsp-scraper/internal/store"
	"github.com/Nestour97/dsp-scraper/logger"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// filterFromQuery reads the common query parameters. An absent run_id
// means the latest run.
func (s *Server) filterFromQuery(r *http.Request) (store.RowFilter, error) {
	q := r.URL.Query()
	f := store.RowFilter{
		RunID:       q.Get("run_id"),
		Provider:    q.Get("provider"),
		CountryCode: q.Get("country"),
	}
	if f.RunID == "" {
		latest, err := s.store.LatestRunID(r.Context())
		if err != nil {
			return f, err
		}
		f.RunID = latest
	}
	return f, nil
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	f, err := s.filterFromQuery(r)
	if err != nil {
		s.fail(w, "resolving run", err)
		return
	}
	rows, err := s.store.Rows(r.Context(), f)
	if err != nil {
		s.fail(w, "querying rows", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": f.RunID,
		"count":  len(rows),
		"rows":   rows,
	})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	f, err := s.filterFromQuery(r)
	if err != nil {
		s.fail(w, "resolving run", err)
		return
	}
	diags, err := s.store.Diagnostics(r.Context(), f)
	if err != nil {
		s.fail(w, "querying diagnostics", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":      f.RunID,
		"count":       len(diags),
		"diagnostics": diags,
	})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := s.filterFromQuery(r)
	if err != nil {
		s.fail(w, "resolving run", err)
		return
	}
	rows, err := s.store.Rows(r.Context(), f)
	if err != nil {
		s.fail(w, "querying rows", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="prices.csv"`)
	if err := store.WriteCSV(w, rows); err != nil {
		logger.LogError("API", err, "streaming csv export")
	}
}

// scrapeRequest is the POST /api/scrape body. Supplying countries
// switches the run to test mode over just those markets.
type scrapeRequest struct {
	Countries []string `json:"countries"`
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scraping is not enabled on this instance"})
		return
	}

	var req scrapeRequest
	if r.Body != nil {
		// an empty body means a full run
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	opts := pipeline.Options{Mode: pipeline.ModeFull}
	if len(req.Countries) > 0 {
		opts = pipeline.Options{Mode: pipeline.ModeTest, CountryFilter: req.Countries}

		result, err := s.runner.RunOnce(r.Context(), opts)
		if err != nil {
			s.fail(w, "running test scrape", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"run_id":      result.RunID,
			"rows":        len(result.Rows),
			"diagnostics": len(result.Diagnostics),
			"elapsed":     result.Elapsed.String(),
		})
		return
	}

	// full runs take minutes; detach from the request
	go func() {
		if _, err := s.runner.RunOnce(context.Background(), opts); err != nil {
			logger.LogError("API", err, "background scrape failed")
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) fail(w http.ResponseWriter, action string, err error) {
	logger.LogError("API", err, "%s", action)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": action + " failed"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
