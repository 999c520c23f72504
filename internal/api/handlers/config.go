package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anttok/recognitiond/internal/apperr"
	"github.com/anttok/recognitiond/internal/storage"
	"github.com/anttok/recognitiond/pkg/dto"
)

type ConfigHandler struct {
	db *storage.PostgresStore
}

func NewConfigHandler(db *storage.PostgresStore) *ConfigHandler {
	return &ConfigHandler{db: db}
}

func (h *ConfigHandler) Get(c *gin.Context) {
	value, err := h.db.GetConfig(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "get config", err))
		return
	}
	if value == nil {
		respondErr(c, apperr.New(apperr.KindNotFound, "config key not found"))
		return
	}
	c.JSON(http.StatusOK, dto.ConfigEntryResponse{Key: c.Param("key"), Value: string(value)})
}

func (h *ConfigHandler) Set(c *gin.Context) {
	var req dto.ConfigSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Wrap(apperr.KindBadRequest, "invalid request", err))
		return
	}
	if err := h.db.SetConfig(c.Request.Context(), c.Param("key"), json.RawMessage(req.Value)); err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "set config", err))
		return
	}
	c.JSON(http.StatusOK, dto.ConfigEntryResponse{
		Key: c.Param("key"), Value: req.Value, UpdatedAt: time.Now().Format(time.RFC3339),
	})
}

func (h *ConfigHandler) List(c *gin.Context) {
	entries, err := h.db.ListConfig(c.Request.Context())
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "list config", err))
		return
	}
	resp := dto.ConfigListResponse{Entries: make([]dto.ConfigEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, dto.ConfigEntryResponse{
			Key: e.Key, Value: string(e.Value), UpdatedAt: e.UpdatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, resp)
}
