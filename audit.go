package agentgate

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// AuditEntry is one record of a permission decision. Entries are emitted
// for every check, allowed or not, so the caller's audit trail is complete.
type AuditEntry struct {
	// ID is a unique identifier for this entry.
	ID string

	// Time is when the decision was made.
	Time time.Time

	// ActionType is the kind of action checked: "shell", "file", "domain".
	ActionType string

	// Detail is the raw command, path, or hostname that was checked.
	Detail string

	// Allowed is true when the decision was Allow.
	Allowed bool

	// SecurityLevel is the level in effect for the check.
	SecurityLevel SecurityLevel

	// Reason is the human-readable decision reason.
	Reason string

	// TaskID identifies the agent task on whose behalf the check ran.
	TaskID string
}

// AuditSink receives permission decisions as they are made. Implementations
// must be safe for concurrent use; the engine may be called from multiple
// goroutines.
type AuditSink interface {
	Record(entry AuditEntry)
}

// SlogAuditSink writes audit entries to a structured logger. It is the
// default sink when the caller does not supply one.
type SlogAuditSink struct {
	logger *slog.Logger
}

// NewSlogAuditSink creates a sink backed by the given logger.
// If logger is nil, slog.Default() is used.
func NewSlogAuditSink(logger *slog.Logger) *SlogAuditSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAuditSink{logger: logger}
}

func (s *SlogAuditSink) Record(entry AuditEntry) {
	level := slog.LevelInfo
	if !entry.Allowed {
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, "permission decision",
		"id", entry.ID,
		"action", entry.ActionType,
		"detail", entry.Detail,
		"allowed", entry.Allowed,
		"level", entry.SecurityLevel.String(),
		"reason", entry.Reason,
		"task_id", entry.TaskID,
	)
}

// NopAuditSink discards all entries. Useful in tests and for callers that
// have no audit trail.
type NopAuditSink struct{}

func (NopAuditSink) Record(AuditEntry) {}

// newAuditEntry stamps an entry with a fresh ID and the current time.
func newAuditEntry(actionType, detail string, allowed bool, level SecurityLevel, reason, taskID string) AuditEntry {
	return AuditEntry{
		ID:            uuid.NewString(),
		Time:          time.Now().UTC(),
		ActionType:    actionType,
		Detail:        detail,
		Allowed:       allowed,
		SecurityLevel: level,
		Reason:        reason,
		TaskID:        taskID,
	}
}
