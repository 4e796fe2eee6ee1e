// Package processing defines the contract between the scheduler and the
// external collaborators that do the actual document work, plus the webhook
// client that reaches them over HTTP.
package processing
