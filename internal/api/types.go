package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueRecord describes a durable queue record in a transport-friendly
// format.
type QueueRecord struct {
	ID           int64  `json:"id"`
	DocumentID   string `json:"documentId"`
	DisplayName  string `json:"displayName,omitempty"`
	Kind         string `json:"kind"`
	Status       string `json:"status"`
	Priority     int    `json:"priority"`
	RetryCount   int    `json:"retryCount"`
	MaxRetries   int    `json:"maxRetries"`
	ProcessorID  string `json:"processorId,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	ErrorDetails string `json:"errorDetails,omitempty"`
	ResultData   string `json:"resultData,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
	StartedAt    string `json:"startedAt,omitempty"`
	CompletedAt  string `json:"completedAt,omitempty"`
	NextRetryAt  string `json:"nextRetryAt,omitempty"`
}

// QueueStats summarizes record counts per lifecycle state.
type QueueStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Retrying   int `json:"retrying"`
	Cancelled  int `json:"cancelled"`
	Skipped    int `json:"skipped"`
}

// SchedulerStatus summarizes the live scheduler for dashboards.
type SchedulerStatus struct {
	Running      bool       `json:"running"`
	PollerState  string     `json:"pollerState"`
	ProcessorID  string     `json:"processorId,omitempty"`
	LastRecordID int64      `json:"lastRecordId,omitempty"`
	LastError    string     `json:"lastError,omitempty"`
	QueueDepth   int        `json:"queueDepth"`
	InFlight     int        `json:"inFlight"`
	Stats        QueueStats `json:"stats"`
}

// QueueListResponse wraps a list of queue records.
type QueueListResponse struct {
	Records []QueueRecord `json:"records"`
}

// QueueRecordResponse wraps a single queue record.
type QueueRecordResponse struct {
	Record QueueRecord `json:"record"`
}

// CountResponse reports how many records an operation touched.
type CountResponse struct {
	Count int64 `json:"count"`
}

// SweepResponse reports the outcome of a stuck-record sweep.
type SweepResponse struct {
	Reset  int `json:"reset"`
	Failed int `json:"failed"`
}

// EnqueueRequest is the payload for admitting new work over the API.
type EnqueueRequest struct {
	DocumentID  string `json:"documentId"`
	Kind        string `json:"kind"`
	DisplayName string `json:"displayName,omitempty"`
	Priority    *int   `json:"priority,omitempty"`
	MaxRetries  *int   `json:"maxRetries,omitempty"`
}
