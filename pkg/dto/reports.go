package dto

type ReportQuery struct {
	From     string `form:"from"`
	To       string `form:"to"`
	PersonID string `form:"person_id"`
}

type ExportRequest struct {
	From   string `form:"from" binding:"required"`
	To     string `form:"to" binding:"required"`
	Format string `form:"format"`
}
