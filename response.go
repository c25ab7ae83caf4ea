package geotrace

// Status values returned in API bodies.
const (
	StatusSuccess = "success"
	StatusOK      = "ok"
)

// SuccessResponse is the body of an accepted telemetry record.
type SuccessResponse struct {
	Status   string         `json:"status" example:"success"`
	Received map[string]any `json:"received"` // the submitted object, echoed back
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error   string   `json:"error" example:"missing required fields"`
	Missing []string `json:"missing,omitempty"` // absent required keys
	Invalid []string `json:"invalid,omitempty"` // present keys with unusable values
	Detail  string   `json:"detail,omitempty"`  // internal error text, only when errors are exposed
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
