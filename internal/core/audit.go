package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/bondweb/internal/logging"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionCreate      AuditAction = "create"
	ActionUpdate      AuditAction = "update"
	ActionDelete      AuditAction = "delete"
	ActionAddField    AuditAction = "add_field"
	ActionRemoveField AuditAction = "remove_field"
	ActionClearEdits  AuditAction = "clear_edits"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID        string        `json:"id"`
	Action    AuditAction   `json:"action"`
	Severity  AuditSeverity `json:"severity"`
	Dataset   string        `json:"dataset"`
	RecordID  string        `json:"recordId,omitempty"`
	Field     string        `json:"field,omitempty"`
	Actor     string        `json:"actor,omitempty"`
	IPAddress string        `json:"ipAddress,omitempty"`
	UserAgent string        `json:"userAgent,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionDelete, ActionRemoveField:
		return SeverityHigh
	case ActionClearEdits:
		return SeverityCritical
	case ActionAddField:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// DefaultAuditSize is the journal capacity when none is configured.
const DefaultAuditSize = 500

// Journal is a bounded in-memory audit log. Once full, the oldest entry
// is overwritten.
type Journal struct {
	mu      sync.Mutex
	entries []AuditEntry
	next    int
	full    bool
	now     func() time.Time
}

// NewJournal returns a journal holding at most size entries.
func NewJournal(size int) *Journal {
	if size <= 0 {
		size = DefaultAuditSize
	}
	return &Journal{entries: make([]AuditEntry, size), now: time.Now}
}

// Record appends an entry built from the request metadata in ctx and logs
// it.
func (j *Journal) Record(ctx context.Context, action AuditAction, dataset, recordID, field string) AuditEntry {
	e := AuditEntry{
		ID:        uuid.NewString(),
		Action:    action,
		Severity:  determineSeverity(action),
		Dataset:   dataset,
		RecordID:  recordID,
		Field:     field,
		Actor:     GetActorFromContext(ctx),
		IPAddress: GetIPAddressFromContext(ctx),
		UserAgent: GetUserAgentFromContext(ctx),
		CreatedAt: j.now().UTC(),
	}

	j.mu.Lock()
	j.entries[j.next] = e
	j.next = (j.next + 1) % len(j.entries)
	if j.next == 0 {
		j.full = true
	}
	j.mu.Unlock()

	logging.FromContext(ctx).Info("audit",
		slog.String("action", string(action)),
		slog.String("severity", string(e.Severity)),
		slog.String("dataset", dataset),
		slog.String("record_id", recordID),
		slog.String("field", field),
		slog.String("actor", e.Actor),
		slog.String("ip", e.IPAddress),
	)
	return e
}

// Entries returns up to limit entries, newest first. A limit of zero or
// less returns everything held.
func (j *Journal) Entries(limit int) []AuditEntry {
	j.mu.Lock()
	defer j.mu.Unlock()

	n := j.next
	if j.full {
		n = len(j.entries)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]AuditEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (j.next - i + len(j.entries)) % len(j.entries)
		out = append(out, j.entries[idx])
	}
	return out
}
