package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anttok/recognitiond/internal/apperr"
	"github.com/anttok/recognitiond/internal/auth"
	"github.com/anttok/recognitiond/internal/storage"
	"github.com/anttok/recognitiond/pkg/dto"
)

type AuthKeyHandler struct {
	db *storage.PostgresStore
}

func NewAuthKeyHandler(db *storage.PostgresStore) *AuthKeyHandler {
	return &AuthKeyHandler{db: db}
}

func generateRawKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// CreateKey issues a new credential; the raw key is returned once and
// never stored, only its hash.
func (h *AuthKeyHandler) CreateKey(c *gin.Context) {
	var req dto.CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Wrap(apperr.KindBadRequest, "invalid request", err))
		return
	}

	raw, err := generateRawKey()
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "generate key", err))
		return
	}

	key, err := h.db.CreateAPIKey(c.Request.Context(), req.Label, auth.HashKey(raw), req.Permissions)
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "create key", err))
		return
	}

	c.JSON(http.StatusCreated, dto.CreateKeyResponse{
		ID: key.ID.String(), Label: key.Label, Key: raw, Permissions: key.Permissions,
		CreatedAt: key.CreatedAt.Format(time.RFC3339),
	})
}

func (h *AuthKeyHandler) RevokeKey(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		respondErr(c, err)
		return
	}
	if err := h.db.RevokeAPIKey(c.Request.Context(), id); err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "revoke key", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}
