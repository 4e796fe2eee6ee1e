package workflow

import "time"

// State names the poller's position in its polling loop.
type State string

const (
	StateIdle        State = "idle"
	StatePolling     State = "polling"
	StateDispatching State = "dispatching"
	StateBackoff     State = "backoff"
)

// StatusSummary is a point-in-time snapshot of the poller for dashboards.
type StatusSummary struct {
	State        State     `json:"state"`
	ProcessorID  string    `json:"processor_id"`
	LastRecordID int64     `json:"last_record_id,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}
