package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anttok/recognitiond/internal/apperr"
	"github.com/anttok/recognitiond/internal/config"
	"github.com/anttok/recognitiond/internal/models"
	"github.com/anttok/recognitiond/internal/storage"
	"github.com/anttok/recognitiond/pkg/dto"
)

type AttendanceHandler struct {
	db  *storage.PostgresStore
	cfg config.AttendanceConfig
}

func NewAttendanceHandler(db *storage.PostgresStore, cfg config.AttendanceConfig) *AttendanceHandler {
	return &AttendanceHandler{db: db, cfg: cfg}
}

func attendanceToResponse(a models.AttendanceRow) dto.AttendanceResponse {
	resp := dto.AttendanceResponse{
		ID: a.ID.String(), PersonID: a.PersonID, PersonName: a.PersonName,
		CheckIn: a.CheckIn.Format(time.RFC3339), Date: a.Date.Format("2006-01-02"),
		DurationMinutes: a.DurationMinutes, Source: a.Source, Confidence: a.Confidence,
		MarkedBy: string(a.MarkedBy), Status: string(a.Status),
	}
	if a.CheckOut != nil {
		resp.CheckOut = a.CheckOut.Format(time.RFC3339)
	}
	return resp
}

// Mark implements manual mark_attendance: the row's MarkedBy is always
// set to "manual", so duplicate suppression (auto-only) never applies
// here.
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apperr.Wrap(apperr.KindBadRequest, "invalid request", err))
		return
	}

	person, err := h.db.GetPerson(c.Request.Context(), req.PersonID)
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "get person", err))
		return
	}
	if person == nil {
		respondErr(c, apperr.New(apperr.KindPersonNotFound, "person not found"))
		return
	}

	now := time.Now()
	row := models.AttendanceRow{
		ID: uuid.New(), PersonID: person.PersonID, PersonName: person.Name,
		CheckIn: now, Date: now.Truncate(24 * time.Hour), Source: req.Source,
		Confidence: req.Confidence, MarkedBy: models.MarkedByManual, Status: models.AttendanceStatusPresent,
	}

	marked, _, err := h.db.MarkAttendance(c.Request.Context(), row, h.cfg.DuplicateWindow)
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "mark attendance", err))
		return
	}
	c.JSON(http.StatusCreated, attendanceToResponse(*marked))
}

func (h *AttendanceHandler) Checkout(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, apperr.New(apperr.KindBadRequest, "invalid attendance id"))
		return
	}
	row, err := h.db.Checkout(c.Request.Context(), id, time.Now())
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "checkout", err))
		return
	}
	if row == nil {
		respondErr(c, apperr.New(apperr.KindNotFound, "attendance row not found"))
		return
	}
	c.JSON(http.StatusOK, attendanceToResponse(*row))
}

func (h *AttendanceHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, apperr.New(apperr.KindBadRequest, "invalid attendance id"))
		return
	}
	row, err := h.db.GetAttendance(c.Request.Context(), id)
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "get attendance", err))
		return
	}
	if row == nil {
		respondErr(c, apperr.New(apperr.KindNotFound, "attendance row not found"))
		return
	}
	c.JSON(http.StatusOK, attendanceToResponse(*row))
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *AttendanceHandler) List(c *gin.Context) {
	from, err := parseTimeQuery(c, "from")
	if err != nil {
		respondErr(c, apperr.New(apperr.KindBadRequest, "invalid from"))
		return
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		respondErr(c, apperr.New(apperr.KindBadRequest, "invalid to"))
		return
	}

	rows, total, err := h.db.ListAttendance(c.Request.Context(), storage.AttendanceFilter{
		PersonID: c.Query("person_id"), From: from, To: to, Limit: 50,
	})
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "list attendance", err))
		return
	}
	resp := dto.AttendanceListResponse{Attendance: make([]dto.AttendanceResponse, 0, len(rows)), Total: total}
	for _, r := range rows {
		resp.Attendance = append(resp.Attendance, attendanceToResponse(r))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AttendanceHandler) Today(c *gin.Context) {
	rows, err := h.db.TodayAttendance(c.Request.Context())
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "today attendance", err))
		return
	}
	resp := dto.AttendanceListResponse{Attendance: make([]dto.AttendanceResponse, 0, len(rows)), Total: len(rows)}
	for _, r := range rows {
		resp.Attendance = append(resp.Attendance, attendanceToResponse(r))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AttendanceHandler) ForPerson(c *gin.Context) {
	from, to := time.Now().AddDate(0, 0, -30), time.Now()
	if v, err := parseTimeQuery(c, "from"); err == nil && v != nil {
		from = *v
	}
	if v, err := parseTimeQuery(c, "to"); err == nil && v != nil {
		to = *v
	}

	rows, err := h.db.AttendanceForPerson(c.Request.Context(), c.Param("person_id"), from, to)
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "attendance for person", err))
		return
	}
	resp := dto.AttendanceListResponse{Attendance: make([]dto.AttendanceResponse, 0, len(rows)), Total: len(rows)}
	for _, r := range rows {
		resp.Attendance = append(resp.Attendance, attendanceToResponse(r))
	}
	c.JSON(http.StatusOK, resp)
}
