package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anttok/recognitiond/internal/apperr"
	"github.com/anttok/recognitiond/internal/storage"
	"github.com/anttok/recognitiond/pkg/dto"
)

type ReportHandler struct {
	db *storage.PostgresStore
}

func NewReportHandler(db *storage.PostgresStore) *ReportHandler {
	return &ReportHandler{db: db}
}

func (h *ReportHandler) Range(c *gin.Context) {
	var q dto.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondErr(c, apperr.Wrap(apperr.KindBadRequest, "invalid query", err))
		return
	}
	from, to, err := parseReportRange(q.From, q.To)
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindBadRequest, "invalid range", err))
		return
	}

	rows, total, err := h.db.ListAttendance(c.Request.Context(), storage.AttendanceFilter{
		PersonID: q.PersonID, From: &from, To: &to, Limit: 10000,
	})
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "report range", err))
		return
	}
	resp := dto.AttendanceListResponse{Attendance: make([]dto.AttendanceResponse, 0, len(rows)), Total: total}
	for _, r := range rows {
		resp.Attendance = append(resp.Attendance, attendanceToResponse(r))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReportHandler) DailySummary(c *gin.Context) {
	dateStr := c.Query("date")
	date := time.Now()
	if dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			respondErr(c, apperr.New(apperr.KindBadRequest, "invalid date"))
			return
		}
		date = parsed
	}

	summary, err := h.db.DailySummaryFor(c.Request.Context(), date)
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "daily summary", err))
		return
	}
	c.JSON(http.StatusOK, dto.DailySummaryResponse{
		Date: summary.Date.Format("2006-01-02"), PresentCount: summary.PresentCount, AvgMinutes: summary.AvgMinutes,
	})
}

// Export streams the attendance range as CSV or JSON per the format
// query parameter, defaulting to CSV.
func (h *ReportHandler) Export(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondErr(c, apperr.Wrap(apperr.KindBadRequest, "invalid query", err))
		return
	}
	from, to, err := parseReportRange(req.From, req.To)
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindBadRequest, "invalid range", err))
		return
	}

	rows, _, err := h.db.ListAttendance(c.Request.Context(), storage.AttendanceFilter{From: &from, To: &to, Limit: 100000})
	if err != nil {
		respondErr(c, apperr.Wrap(apperr.KindInternal, "export", err))
		return
	}

	if req.Format == "json" {
		resp := dto.AttendanceListResponse{Attendance: make([]dto.AttendanceResponse, 0, len(rows)), Total: len(rows)}
		for _, r := range rows {
			resp.Attendance = append(resp.Attendance, attendanceToResponse(r))
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=attendance.csv")
	w := csv.NewWriter(c.Writer)
	w.Write([]string{"id", "person_id", "person_name", "check_in", "check_out", "date", "source", "confidence", "marked_by", "status"})
	for _, r := range rows {
		checkOut := ""
		if r.CheckOut != nil {
			checkOut = r.CheckOut.Format(time.RFC3339)
		}
		w.Write([]string{
			r.ID.String(), r.PersonID, r.PersonName, r.CheckIn.Format(time.RFC3339), checkOut,
			r.Date.Format("2006-01-02"), r.Source, fmt.Sprintf("%.3f", r.Confidence), string(r.MarkedBy), string(r.Status),
		})
	}
	w.Flush()
}

func parseReportRange(fromStr, toStr string) (time.Time, time.Time, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -7)
	var err error
	if fromStr != "" {
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return from, to, err
		}
	}
	if toStr != "" {
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			return from, to, err
		}
	}
	return from, to, nil
}
