package admin

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"jewelpo/internal/apperr"
	"jewelpo/internal/audit"
	"jewelpo/internal/auth"
	"jewelpo/internal/logger"
	"jewelpo/internal/response"
)

// BackupInfo is one snapshot file in the backup directory.
type BackupInfo struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"created_at"`
}

func requirePlatformAdmin(r *http.Request) (auth.RequestContext, error) {
	rc, ok := auth.FromContext(r.Context())
	if !ok || !rc.IsPlatformAdmin() {
		return rc, apperr.Denied("Platform Admin access required.")
	}
	return rc, nil
}

// HandleCreateBackup writes a consistent snapshot of the database with VACUUM INTO.
func (h *Handler) HandleCreateBackup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc, err := requirePlatformAdmin(r)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	if err := os.MkdirAll(h.BackupDir, 0o750); err != nil {
		response.Error(ctx, w, fmt.Errorf("create backup dir: %w", err))
		return
	}

	name := fmt.Sprintf("jewelpo-%s.db", h.now().Format("20060102-150405"))
	path := filepath.Join(h.BackupDir, name)
	if _, err := os.Stat(path); err == nil {
		response.Error(ctx, w, apperr.Conflictf("Backup %s already exists.", name))
		return
	}
	if _, err := h.DB.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		response.Error(ctx, w, fmt.Errorf("vacuum into %s: %w", path, err))
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	err = audit.Log(ctx, h.DB, audit.Entry{
		CompanyID: rc.CompanyID, UserID: rc.UserID, ActionType: audit.BackupCreated,
		TargetType: audit.TargetDatabase, Details: "Created backup " + name, IPAddress: audit.ClientIP(ctx),
	})
	if err != nil {
		logger.FromContext(ctx).Warn("audit backup", zap.Error(err))
	}
	logger.FromContext(ctx).Info("backup created", zap.String("file", name), zap.Int64("bytes", info.Size()))
	response.Created(w, BackupInfo{Filename: name, Size: info.Size(), CreatedAt: info.ModTime().UTC().Format("2006-01-02 15:04:05")})
}

// HandleListBackups lists snapshot files, newest first.
func (h *Handler) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if _, err := requirePlatformAdmin(r); err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	entries, err := os.ReadDir(h.BackupDir)
	if os.IsNotExist(err) {
		response.JSON(w, []BackupInfo{})
		return
	}
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}

	backups := []BackupInfo{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".db") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Filename:  e.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime().UTC().Format("2006-01-02 15:04:05"),
		})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].Filename > backups[j].Filename })
	response.JSON(w, backups)
}
