package assets

import (
	"strings"
	"time"
)

// MigrationState represents the byte-transfer lifecycle of an asset.
type MigrationState string

const (
	MigrationPending     MigrationState = "pending"
	MigrationDownloading MigrationState = "downloading"
	MigrationUploading   MigrationState = "uploading"
	MigrationCompleted   MigrationState = "completed"
	MigrationFailed      MigrationState = "failed"
)

// ThumbnailState represents the preview-image lifecycle of an asset.
type ThumbnailState string

const (
	ThumbnailAbsent     ThumbnailState = "absent"
	ThumbnailGenerating ThumbnailState = "generating"
	ThumbnailReady      ThumbnailState = "ready"
	ThumbnailFailed     ThumbnailState = "failed"
)

var migrationStates = []MigrationState{
	MigrationPending,
	MigrationDownloading,
	MigrationUploading,
	MigrationCompleted,
	MigrationFailed,
}

var migrationStateSet = func() map[MigrationState]struct{} {
	set := make(map[MigrationState]struct{}, len(migrationStates))
	for _, state := range migrationStates {
		set[state] = struct{}{}
	}
	return set
}()

// TransferStates are the mid-transfer states a worker owns after winning the
// claim. Failure writes from workers and the stuck-job detector are guarded
// on them so a record that reached a terminal state is never clobbered.
var TransferStates = []MigrationState{MigrationDownloading, MigrationUploading}

// MigrationStates returns the ordered list of known migration states.
func MigrationStates() []MigrationState {
	cp := make([]MigrationState, len(migrationStates))
	copy(cp, migrationStates)
	return cp
}

// ParseMigrationState converts a string into a known MigrationState.
func ParseMigrationState(value string) (MigrationState, bool) {
	normalized := MigrationState(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := migrationStateSet[normalized]
	return normalized, ok
}

// IsTransferState reports whether a state reflects an in-flight byte copy.
func IsTransferState(state MigrationState) bool {
	return state == MigrationDownloading || state == MigrationUploading
}

// AssetRecord tracks one video's migration and thumbnail lifecycle.
type AssetRecord struct {
	ID                     string
	SourceURL              string
	DurableURL             string
	MigrationState         MigrationState
	MigrationAttempts      int
	MigrationLastAttemptAt *time.Time
	MigrationError         string
	ThumbnailURL           string
	ThumbnailState         ThumbnailState
	ThumbnailPlaceholder   bool
	ThumbnailError         string
	ThumbnailGeneratedAt   *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// PermanentlyFailed reports whether the record exhausted its retry budget.
func (r AssetRecord) PermanentlyFailed(maxAttempts int) bool {
	return r.MigrationState == MigrationFailed && r.MigrationAttempts >= maxAttempts
}

// HasRealThumbnail reports whether a non-placeholder thumbnail exists. Such a
// thumbnail is never overwritten.
func (r AssetRecord) HasRealThumbnail() bool {
	return r.ThumbnailState == ThumbnailReady && !r.ThumbnailPlaceholder
}

// BestSource returns the preferred fetch URL for derived artifacts: the
// durable copy when migration completed, the provider URL otherwise.
func (r AssetRecord) BestSource() string {
	if r.DurableURL != "" {
		return r.DurableURL
	}
	return r.SourceURL
}

// PermanentFailure is one entry in the operator-facing failure list.
type PermanentFailure struct {
	ID            string     `json:"id"`
	SourceURL     string     `json:"source_url"`
	Attempts      int        `json:"attempts"`
	LastError     string     `json:"last_error"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}

// HealthSummary aggregates record counts for the operator health view.
type HealthSummary struct {
	Total             int                    `json:"total"`
	Migration         map[MigrationState]int `json:"migration"`
	Thumbnails        map[ThumbnailState]int `json:"thumbnails"`
	SuccessRate       float64                `json:"success_rate"`
	PermanentlyFailed []PermanentFailure     `json:"permanently_failed"`
}
