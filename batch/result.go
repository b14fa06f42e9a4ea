package batch

import "time"

// Status summarizes a finished batch.
type Status string

// Batch statuses.
const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPartial   Status = "partial"
	StatusUnknown   Status = "unknown"
)

// DeriveStatus classifies a batch from its counters.
func DeriveStatus(total, success, failed int) Status {
	switch {
	case failed == 0 && success == total && total > 0:
		return StatusCompleted
	case success == 0 && failed > 0:
		return StatusFailed
	case success > 0 && failed > 0:
		return StatusPartial
	default:
		return StatusUnknown
	}
}

// Failure reasons recorded for items that never produced an outcome.
const (
	ReasonTimeout   = "timeout"
	ReasonAborted   = "aborted"
	ReasonCancelled = "cancelled"
)

// Result is the finalized batch, shaped as the batch endpoint's response.
type Result struct {
	BatchID              string            `json:"batchId"`
	OwnerID              string            `json:"-"`
	Status               Status            `json:"status"`
	Processed            int               `json:"processed"`
	Failed               int               `json:"failed"`
	Total                int               `json:"total"`
	ProcessedAttachments []string          `json:"processedAttachments,omitempty"`
	FailedAttachments    map[string]string `json:"failedAttachments,omitempty"`
	ElapsedTime          string            `json:"elapsedTime"`
	Warnings             int               `json:"warnings"`
	DetailedStats        *DetailedStats    `json:"detailedStats,omitempty"`

	// Elapsed is the wall time from start to finalization.
	Elapsed time.Duration `json:"-"`

	// Excluded lists items removed by the filters.
	Excluded []string `json:"-"`
}

// DetailedStats are collected when Options.CollectDetailedStats is set.
type DetailedStats struct {
	BytesProcessed    int64 `json:"bytesProcessed"`
	BytesWritten      int64 `json:"bytesWritten"`
	TextConversions   int   `json:"textConversions"`
	JSONConversions   int   `json:"jsonConversions"`
	XMLConversions    int   `json:"xmlConversions"`
	BinaryConversions int   `json:"binaryConversions"`
	ConverterChanges  int   `json:"converterChanges"`

	// ByContentType counts successful conversions per media type.
	ByContentType map[string]int `json:"byContentType,omitempty"`

	// ByProvider counts successful conversions per source provider.
	ByProvider map[string]int `json:"byProvider,omitempty"`
}

// Outcome is the recorded result of one item.
type Outcome struct {
	Success bool
	Reason  string
}
