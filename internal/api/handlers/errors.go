package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anttok/recognitiond/internal/apperr"
)

// respondErr writes err as a JSON error body, mapping its apperr.Kind to
// an HTTP status through the shared taxonomy instead of a per-call literal.
func respondErr(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(apperr.KindOf(err)), gin.H{"error": err.Error()})
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.UUID{}, apperr.New(apperr.KindBadRequest, "invalid "+name)
	}
	return id, nil
}
