package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"carlog/internal/adapters/sink"
	"carlog/internal/app/logger"
	"carlog/internal/app/state"
	"carlog/internal/ports"
)

// Controller is the engine surface the dashboard API drives.
type Controller interface {
	GetState() state.Snapshot
	StartLogging(destination string) (logger.SessionStats, error)
	StopLogging() (int, error)
	ClearData() error
	LastDestination() string
}

// Handler serves the dashboard REST API. It only reads snapshots and issues
// control commands; it never touches engine internals.
type Handler struct {
	ctrl Controller
}

func New(ctrl Controller) *Handler {
	return &Handler{ctrl: ctrl}
}

// Routes mounts the API onto a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", h.status)
	mux.HandleFunc("/api/stats", h.stats)
	mux.HandleFunc("/api/start_logging", h.startLogging)
	mux.HandleFunc("/api/stop_logging", h.stopLogging)
	mux.HandleFunc("/api/clear_data", h.clearData)
	mux.HandleFunc("/api/download/csv", h.downloadCSV)
	return mux
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	snap := h.ctrl.GetState()

	values := make(map[string]any, len(snap.Values))
	for _, v := range snap.Values {
		if !v.Available {
			values[string(v.Param)] = sink.NotAvailable
			continue
		}
		values[string(v.Param)] = v.Value
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"connected":      snap.Connected,
		"is_logging":     snap.Logging,
		"values":         values,
		"total_records":  snap.RecordCount,
		"dropped_rows":   snap.DroppedRows,
		"session_id":     snap.SessionID,
		"log_start_time": isoOrNull(snap.StartedAt),
		"last_update":    isoOrNull(snap.LastUpdate),
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	snap := h.ctrl.GetState()
	writeJSON(w, http.StatusOK, map[string]any{
		"total_records":  snap.RecordCount,
		"dropped_rows":   snap.DroppedRows,
		"log_start_time": isoOrNull(snap.StartedAt),
		"last_update":    isoOrNull(snap.LastUpdate),
	})
}

func (h *Handler) startLogging(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var req struct {
		Destination string `json:"destination"`
	}
	if r.Body != nil {
		// An empty body means "pick a trip file name for me".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	info, err := h.ctrl.StartLogging(req.Destination)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidState) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"started":    true,
		"session_id": info.ID,
		"filename":   filepath.Base(info.Destination),
		"start_time": isoOrNull(info.StartedAt),
	})
}

func (h *Handler) stopLogging(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	n, err := h.ctrl.StopLogging()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stopped":       true,
		"total_records": n,
	})
}

func (h *Handler) clearData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	if err := h.ctrl.ClearData(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

func (h *Handler) downloadCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	path := h.ctrl.LastDestination()
	if path == "" {
		writeError(w, http.StatusNotFound, "no trip log available")
		return
	}
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "no trip log available")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func isoOrNull(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
