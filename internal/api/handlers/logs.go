package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anttok/recognitiond/internal/apperr"
	"github.com/anttok/recognitiond/internal/storage"
	"github.com/anttok/recognitiond/pkg/dto"
)

type LogHandler struct {
	db *storage.PostgresStore
}

func NewLogHandler(db *storage.PostgresStore) *LogHandler {
	return &LogHandler{db: db}
}

func (h *LogHandler) List(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.db.ListSystemLogs(c.Request.Context(), limit)
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "list logs", err))
		return
	}
	resp := dto.LogListResponse{Logs: make([]dto.LogEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Logs = append(resp.Logs, dto.LogEntryResponse{
			ID: e.ID.String(), Timestamp: e.Timestamp.Format(time.RFC3339), Level: e.Level,
			Message: e.Message, Fields: e.Fields,
		})
	}
	c.JSON(http.StatusOK, resp)
}
