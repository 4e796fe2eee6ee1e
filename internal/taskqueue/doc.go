// Package taskqueue provides the in-process bounded admission queue that
// fans work out to the worker pool.
//
// Two interchangeable strategies implement the Queue contract: a plain FIFO
// queue and a strict-priority queue that drains higher priority buckets
// before touching lower ones. Admission is bounded; Enqueue blocks the
// caller when the queue is full rather than dropping work. A shared status
// table tracks each task from admission through its terminal state so
// observers can query outcomes without holding queue locks.
package taskqueue
