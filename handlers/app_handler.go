package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Dosada05/checked/db"
	"github.com/Dosada05/checked/storage"
)

const appVersion = "1.0.0"

// AppHandler serves the service-level endpoints: banner, health, database
// stats and maintenance.
type AppHandler struct {
	appName  string
	db       *sql.DB
	dbPath   string
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewAppHandler(appName string, conn *sql.DB, dbPath string, uploader storage.FileUploader, logger *slog.Logger) *AppHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppHandler{appName: appName, db: conn, dbPath: dbPath, uploader: uploader, logger: logger}
}

func (h *AppHandler) Root(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, jsonResponse{
		"name":        h.appName,
		"description": "Kenyan Chess Tournament Management System",
		"version":     appVersion,
		"docs":        "/docs",
	})
}

func (h *AppHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.logger.Error("health check failed", slog.Any("error", err))
		respond(w, r, http.StatusServiceUnavailable, jsonResponse{"status": "unhealthy"})
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"status": "healthy"})
}

func (h *AppHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := db.CollectStats(r.Context(), h.db, h.dbPath)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, stats)
}

func (h *AppHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if err := db.Optimize(r.Context(), h.db); err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"status": "optimized"})
}

// Backup snapshots the database and uploads the copy to object storage.
func (h *AppHandler) Backup(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		errorResponse(w, r, http.StatusServiceUnavailable, "Backup storage not configured")
		return
	}

	dir, err := os.MkdirTemp("", "checked-backup-")
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	defer os.RemoveAll(dir)

	snapshot, err := db.Snapshot(r.Context(), h.db, dir)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	f, err := os.Open(snapshot)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	res, err := h.uploader.Upload(r.Context(), storage.BackupKey(filepath.Base(snapshot)), "application/vnd.sqlite3", f)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to upload backup: %w", err))
		return
	}
	h.logger.Info("database backup uploaded", slog.String("key", res.Key), slog.Int64("bytes", info.Size()))
	respond(w, r, http.StatusOK, jsonResponse{
		"status":     "backed_up",
		"key":        res.Key,
		"size_bytes": info.Size(),
	})
}
