package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRetrying   Status = "retrying"
	StatusCancelled  Status = "cancelled"
	StatusSkipped    Status = "skipped"
)

// Kind identifies the work category of a record. It selects which external
// processor is invoked; scheduling policy ignores it.
type Kind string

const (
	KindTextExtraction Kind = "text_extraction"
	KindClassification Kind = "classification"
	KindSummarization  Kind = "summarization"
)

// ReclaimReason is the error message recorded when a stuck record exhausts
// its retry budget during a sweep.
const ReclaimReason = "reclaimed: exceeded processing timeout"

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusFailed,
	StatusRetrying,
	StatusCancelled,
	StatusSkipped,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var allKinds = []Kind{
	KindTextExtraction,
	KindClassification,
	KindSummarization,
}

var kindSet = func() map[Kind]struct{} {
	set := make(map[Kind]struct{}, len(allKinds))
	for _, kind := range allKinds {
		set[kind] = struct{}{}
	}
	return set
}()

// Record represents a durable unit of processing work persisted in SQLite.
type Record struct {
	ID           int64
	DocumentID   string
	DisplayName  string
	Kind         Kind
	Status       Status
	Priority     int
	RetryCount   int
	MaxRetries   int
	ProcessorID  string
	ErrorMessage string
	ErrorDetails string
	ResultData   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	NextRetryAt  *time.Time
}

// Stats aggregates record counts per lifecycle state.
type Stats struct {
	Total      int
	Pending    int
	InProgress int
	Completed  int
	Failed     int
	Retrying   int
	Cancelled  int
	Skipped    int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// AllKinds returns the ordered list of known work kinds.
func AllKinds() []Kind {
	cp := make([]Kind, len(allKinds))
	copy(cp, allKinds)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ParseKind converts a string into a known Kind. Hyphenated forms are
// accepted for operator convenience.
func ParseKind(value string) (Kind, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if normalized == "" {
		return "", false
	}
	kind := Kind(normalized)
	_, ok := kindSet[kind]
	return kind, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusSkipped:
		return true
	default:
		return false
	}
}

// IsEligible reports whether the record would be returned by GetEligible at
// the given instant.
func (r Record) IsEligible(now time.Time) bool {
	switch r.Status {
	case StatusPending:
		return true
	case StatusRetrying:
		return r.NextRetryAt != nil && !r.NextRetryAt.After(now)
	default:
		return false
	}
}

// RetriesExhausted reports whether the record has consumed its retry budget.
func (r Record) RetriesExhausted() bool {
	return r.RetryCount >= r.MaxRetries
}
