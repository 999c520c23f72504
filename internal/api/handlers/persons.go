package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anttok/recognitiond/internal/apperr"
	"github.com/anttok/recognitiond/internal/models"
	"github.com/anttok/recognitiond/internal/storage"
	"github.com/anttok/recognitiond/pkg/dto"
)

type PersonHandler struct {
	db *storage.PostgresStore
}

func NewPersonHandler(db *storage.PostgresStore) *PersonHandler {
	return &PersonHandler{db: db}
}

func personToResponse(p models.Person) dto.PersonResponse {
	return dto.PersonResponse{
		PersonID: p.PersonID, Name: p.Name, Email: p.Email, Department: p.Department,
		Position: p.Position, Phone: p.Phone, Status: string(p.Status), Metadata: p.Metadata,
		CreatedAt: p.CreatedAt.Format(time.RFC3339), UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *PersonHandler) Upsert(c *gin.Context) {
	var req dto.UpsertPersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Wrap(apperr.KindBadRequest, "invalid request", err))
		return
	}

	person, err := h.db.UpsertPerson(c.Request.Context(), req.PersonID, req.Name)
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "upsert person", err))
		return
	}
	person.Email, person.Department, person.Position, person.Phone = req.Email, req.Department, req.Position, req.Phone
	if req.Metadata != nil {
		person.Metadata = req.Metadata
	}
	if err := h.db.UpdatePerson(c.Request.Context(), *person); err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "update person", err))
		return
	}

	c.JSON(http.StatusOK, personToResponse(*person))
}

func (h *PersonHandler) Get(c *gin.Context) {
	person, err := h.db.GetPerson(c.Request.Context(), c.Param("person_id"))
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "get person", err))
		return
	}
	if person == nil {
		respondErr(c, apperr.New(apperr.KindPersonNotFound, "person not found"))
		return
	}
	c.JSON(http.StatusOK, personToResponse(*person))
}

func (h *PersonHandler) List(c *gin.Context) {
	status := models.PersonStatus(c.Query("status"))
	persons, err := h.db.ListPersons(c.Request.Context(), status)
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "list persons", err))
		return
	}
	resp := dto.PersonListResponse{Persons: make([]dto.PersonResponse, 0, len(persons))}
	for _, p := range persons {
		resp.Persons = append(resp.Persons, personToResponse(p))
	}
	resp.Total = len(resp.Persons)
	c.JSON(http.StatusOK, resp)
}

func (h *PersonHandler) Update(c *gin.Context) {
	personID := c.Param("person_id")
	existing, err := h.db.GetPerson(c.Request.Context(), personID)
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "get person", err))
		return
	}
	if existing == nil {
		respondErr(c, apperr.New(apperr.KindPersonNotFound, "person not found"))
		return
	}

	var req dto.UpsertPersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Wrap(apperr.KindBadRequest, "invalid request", err))
		return
	}
	existing.Name, existing.Email = req.Name, req.Email
	existing.Department, existing.Position, existing.Phone = req.Department, req.Position, req.Phone
	if req.Metadata != nil {
		existing.Metadata = req.Metadata
	}

	if err := h.db.UpdatePerson(c.Request.Context(), *existing); err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "update person", err))
		return
	}
	c.JSON(http.StatusOK, personToResponse(*existing))
}

// Delete soft-deletes a person via a status flip; the row and its
// attendance history are never removed.
func (h *PersonHandler) Delete(c *gin.Context) {
	personID := c.Param("person_id")
	if err := h.db.SetPersonStatus(c.Request.Context(), personID, models.PersonStatusDeleted); err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "delete person", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
