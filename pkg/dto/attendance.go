package dto

type MarkAttendanceRequest struct {
	PersonID string  `json:"person_id" binding:"required"`
	Source   string  `json:"source"`
	Confidence float32 `json:"confidence"`
}

type AttendanceResponse struct {
	ID              string  `json:"id"`
	PersonID        string  `json:"person_id"`
	PersonName      string  `json:"person_name"`
	CheckIn         string  `json:"check_in"`
	CheckOut        string  `json:"check_out,omitempty"`
	Date            string  `json:"date"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
	Source          string  `json:"source"`
	Confidence      float32 `json:"confidence"`
	MarkedBy        string  `json:"marked_by"`
	Status          string  `json:"status"`
}

type AttendanceListResponse struct {
	Attendance []AttendanceResponse `json:"attendance"`
	Total      int                  `json:"total"`
}

type DailySummaryResponse struct {
	Date         string  `json:"date"`
	PresentCount int     `json:"present_count"`
	AvgMinutes   float64 `json:"avg_minutes"`
}
