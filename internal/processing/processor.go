package processing

import (
	"context"
	"fmt"

	"quire/internal/queue"
)

// Result captures the outcome reported by a processor.
type Result struct {
	Success      bool
	ErrorMessage string
	// Payload is an opaque serialized outcome stored on the queue record.
	Payload string
}

// Processor handles one work kind for a document.
type Processor interface {
	Process(ctx context.Context, documentID string) (Result, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, documentID string) (Result, error)

func (f ProcessorFunc) Process(ctx context.Context, documentID string) (Result, error) {
	return f(ctx, documentID)
}

// Dispatcher routes records to the processor registered for their kind.
type Dispatcher struct {
	processors map[queue.Kind]Processor
}

// NewDispatcher constructs an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{processors: make(map[queue.Kind]Processor)}
}

// Register installs the processor for a kind, replacing any previous one.
func (d *Dispatcher) Register(kind queue.Kind, processor Processor) {
	d.processors[kind] = processor
}

// Supports reports whether a processor is registered for the kind.
func (d *Dispatcher) Supports(kind queue.Kind) bool {
	_, ok := d.processors[kind]
	return ok
}

// Process invokes the processor registered for the kind.
func (d *Dispatcher) Process(ctx context.Context, kind queue.Kind, documentID string) (Result, error) {
	processor, ok := d.processors[kind]
	if !ok {
		return Result{}, fmt.Errorf("no processor registered for kind %q", kind)
	}
	return processor.Process(ctx, documentID)
}
