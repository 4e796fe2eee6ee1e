// Package workers runs a fixed-size pool of loops that drain the ephemeral
// task queue. A failing task never terminates its worker loop; shutdown is
// cooperative and lets in-flight tasks finish.
package workers
