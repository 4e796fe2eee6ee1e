// Package workflow drives durable queue records through their lifecycle.
//
// The Poller is a single loop that claims eligible records, invokes the
// processor registered for the record's kind, and writes the outcome back.
// Claim races are expected and benign; infrastructure errors back the loop
// off without ever terminating it. The Reclaimer sweeps records whose
// claimant crashed or hung and returns them to the eligible pool or fails
// them when their retry budget is spent.
package workflow
