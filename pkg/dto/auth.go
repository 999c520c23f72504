package dto

type CreateKeyRequest struct {
	Label       string   `json:"label" binding:"required"`
	Permissions []string `json:"permissions" binding:"required"`
}

// CreateKeyResponse carries the raw key exactly once, at creation time;
// only its hash is ever persisted.
type CreateKeyResponse struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Key         string   `json:"key"`
	Permissions []string `json:"permissions"`
	CreatedAt   string   `json:"created_at"`
}

type APIKeyResponse struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Permissions []string `json:"permissions"`
	CreatedAt   string   `json:"created_at"`
	RevokedAt   string   `json:"revoked_at,omitempty"`
}
