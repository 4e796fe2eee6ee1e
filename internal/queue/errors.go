package queue

import "errors"

// ErrUnknownKind indicates a work kind outside the supported set.
var ErrUnknownKind = errors.New("unknown work kind")

// ErrUnknownStatus indicates a status string outside the supported set.
var ErrUnknownStatus = errors.New("unknown status")
