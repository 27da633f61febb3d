package api

import "time"

// dateTimeFormat is used for timestamps in API payloads.
const dateTimeFormat = time.RFC3339

// Asset describes one record in a transport-friendly format.
type Asset struct {
	ID                     string `json:"id"`
	SourceURL              string `json:"sourceUrl"`
	DurableURL             string `json:"durableUrl,omitempty"`
	MigrationState         string `json:"migrationState"`
	MigrationAttempts      int    `json:"migrationAttempts"`
	MigrationLastAttemptAt string `json:"migrationLastAttemptAt,omitempty"`
	MigrationError         string `json:"migrationError,omitempty"`
	ThumbnailURL           string `json:"thumbnailUrl,omitempty"`
	ThumbnailState         string `json:"thumbnailState"`
	ThumbnailPlaceholder   bool   `json:"thumbnailPlaceholder"`
	ThumbnailError         string `json:"thumbnailError,omitempty"`
	ThumbnailGeneratedAt   string `json:"thumbnailGeneratedAt,omitempty"`
	CreatedAt              string `json:"createdAt,omitempty"`
	UpdatedAt              string `json:"updatedAt,omitempty"`
}

// AssetListResponse wraps a filtered asset listing.
type AssetListResponse struct {
	Assets []Asset `json:"assets"`
}

// AssetResponse wraps a single asset lookup.
type AssetResponse struct {
	Asset Asset `json:"asset"`
}

// CreateAssetRequest registers a new source video for migration.
type CreateAssetRequest struct {
	SourceURL string `json:"sourceUrl"`
}

// RequeueResponse reports the outcome of a manual requeue.
type RequeueResponse struct {
	Asset      Asset  `json:"asset"`
	DispatchID string `json:"dispatchId,omitempty"`
}

// PermanentFailure is one entry in the operator-facing failure list.
type PermanentFailure struct {
	ID            string `json:"id"`
	SourceURL     string `json:"sourceUrl"`
	Attempts      int    `json:"attempts"`
	LastError     string `json:"lastError"`
	LastAttemptAt string `json:"lastAttemptAt,omitempty"`
}

// HealthResponse aggregates record counts for the operator health view.
type HealthResponse struct {
	Total             int                `json:"total"`
	Migration         map[string]int     `json:"migration"`
	Thumbnails        map[string]int     `json:"thumbnails"`
	SuccessRate       float64            `json:"successRate"`
	PermanentlyFailed []PermanentFailure `json:"permanentlyFailed"`
}

// DaemonStatus represents daemon runtime information.
type DaemonStatus struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid"`
	DBPath        string         `json:"dbPath"`
	LockFilePath  string         `json:"lockFilePath"`
	UptimeSeconds int64          `json:"uptimeSeconds"`
	Stats         map[string]int `json:"stats,omitempty"`
}

// ErrorResponse carries a transport-level failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}
