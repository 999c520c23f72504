package dto

type ConfigSetRequest struct {
	Value string `json:"value" binding:"required"`
}

type ConfigEntryResponse struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updated_at"`
}

type ConfigListResponse struct {
	Entries []ConfigEntryResponse `json:"entries"`
}
