// Package auth implements API-key authentication and a coarse
// permission-string table for the facade's operation surface.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anttok/recognitiond/internal/storage"
)

const headerName = "X-API-Key"

// Permission strings recognized by RequirePermission. "*" and "admin"
// both grant every operation; a "prefix:*" grants every operation
// under that prefix.
const (
	PermPersonAll     = "person:*"
	PermAttendanceAll = "attendance:*"
	PermReportsAll    = "reports:*"
	PermConfigAll     = "config:*"
	PermLogsRead      = "logs:read"
	PermSystemAll     = "system:*"
	PermSyncAll       = "sync:*"
	PermAdmin         = "admin"
	PermAll           = "*"
)

// HashKey returns the stored form of a raw API key: keys are never
// persisted in clear text.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// APIKeyMiddleware validates the API key from the X-API-Key header
// against the single static key from configuration. If apiKey is
// empty, authentication is disabled (development mode).
func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		provided := c.GetHeader(headerName)
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing API key",
			})
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "invalid API key",
			})
			return
		}

		c.Next()
	}
}

// IssuedKeyMiddleware looks up X-API-Key against issued, per-key
// credentials and, on a match, stores the key's permission set in the
// gin context for RequirePermission. A miss here is not fatal — the
// static master key checked by APIKeyMiddleware still applies.
func IssuedKeyMiddleware(db *storage.PostgresStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(headerName)
		if provided == "" || db == nil {
			c.Next()
			return
		}
		key, err := db.LookupAPIKey(c.Request.Context(), HashKey(provided))
		if err == nil && key != nil {
			c.Set("permissions", key.Permissions)
		}
		c.Next()
	}
}

// Allows reports whether a key holding `granted` permissions may
// perform an operation requiring `required` (e.g. "attendance:mark").
func Allows(granted []string, required string) bool {
	prefix := required
	if i := strings.IndexByte(required, ':'); i >= 0 {
		prefix = required[:i] + ":*"
	}
	for _, g := range granted {
		if g == PermAll || g == PermAdmin || g == required || g == prefix {
			return true
		}
	}
	return false
}

// RequirePermission aborts with 403 unless the context's granted
// permissions (set by an issued-API-key lookup upstream) allow
// `required`. With no per-key permission set in context, it passes
// through — the static single-key mode has no finer-grained scoping.
func RequirePermission(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		granted, ok := c.Get("permissions")
		if !ok {
			c.Next()
			return
		}
		perms, _ := granted.([]string)
		if !Allows(perms, required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}
