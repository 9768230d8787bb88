package server

import "time"

// MetricsCollector is an optional interface for collecting server metrics.
// Implementations can forward them to Prometheus, StatsD and the like.
//
// Methods are called from session goroutines and should not block.
type MetricsCollector interface {
	// RecordCommand records one command execution.
	// cmd is the keyword ("list", "get", "cd", "pwd", "exit", "invalid").
	// success is false when the requester was sent an error message.
	RecordCommand(cmd string, success bool, duration time.Duration)

	// RecordTransfer records one completed data-channel transfer.
	// operation is "list" or "get".
	RecordTransfer(operation string, bytes int64, duration time.Duration)

	// RecordConnection records a control connection attempt.
	// reason is "accepted" or "shutting_down".
	RecordConnection(accepted bool, reason string)
}
