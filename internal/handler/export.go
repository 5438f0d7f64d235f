package handler

import (
	"fmt"
	"net/http"

	"github.com/doglog/doglog/internal/service"
)

type ExportHandler struct {
	exportService *service.ExportService
}

func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
	}
}

// Export handles GET /export as a JSON download
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.exportService.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("doglog-%s.json", snapshot.ExportedAt.Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	writeJSON(w, http.StatusOK, snapshot)
}

// Archive handles POST /export/archive
func (h *ExportHandler) Archive(w http.ResponseWriter, r *http.Request) {
	archive, err := h.exportService.Archive(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, archive)
}
