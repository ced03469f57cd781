package models

// API response structures. Field names match what the operator page expects.

// APIResponse is the generic success/failure envelope
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Status  string `json:"status,omitempty"`
}

// ErrorResponse is returned by every failing endpoint
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Status  string `json:"status,omitempty"`
}

// ConnectionTestResponse answers POST /test-postgresql
type ConnectionTestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Version string `json:"version"`
}

// ValidateResponse answers POST /validate-sqlite
type ValidateResponse struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	TableCount int      `json:"table_count"`
	Tables     []string `json:"tables"`
}

// OperationsResponse answers GET /operations
type OperationsResponse struct {
	Success    bool         `json:"success"`
	Operations []*Operation `json:"operations"`
}

// OperationResponse answers GET /operations/:id
type OperationResponse struct {
	Success   bool       `json:"success"`
	Operation *Operation `json:"operation"`
}

// HealthResponse answers GET /health
type HealthResponse struct {
	Status     string            `json:"status"`
	Tools      map[string]string `json:"tools"`
	Journal    string            `json:"journal"`
	Uptime     string            `json:"uptime"`
	NextBackup string            `json:"next_backup,omitempty"`
}

// StatsResponse answers GET /stats
type StatsResponse struct {
	Success    bool              `json:"success"`
	Operations []*OperationStats `json:"operations"`
}
