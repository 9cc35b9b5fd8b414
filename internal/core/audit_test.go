package core

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestJournal_NewestFirst(t *testing.T) {
	j := NewJournal(10)
	ctx := ContextWithIPAddress(context.Background(), "10.0.0.1")
	ctx = ContextWithUserAgent(ctx, "test-agent")

	j.Record(ctx, ActionCreate, "institutions", "1", "")
	j.Record(ctx, ActionDelete, "institutions", "2", "")

	got := j.Entries(0)
	if len(got) != 2 {
		t.Fatalf("Entries() len = %d, want 2", len(got))
	}
	if got[0].RecordID != "2" || got[1].RecordID != "1" {
		t.Errorf("order = %s,%s; want 2,1", got[0].RecordID, got[1].RecordID)
	}
	if got[0].Severity != SeverityHigh || got[1].Severity != SeverityMedium {
		t.Errorf("severities = %s,%s", got[0].Severity, got[1].Severity)
	}
	if got[0].IPAddress != "10.0.0.1" || got[0].UserAgent != "test-agent" {
		t.Errorf("request metadata not captured: %+v", got[0])
	}
	if got[0].ID == "" || got[0].ID == got[1].ID {
		t.Errorf("entry ids should be unique: %q %q", got[0].ID, got[1].ID)
	}
}

func TestJournal_Wraps(t *testing.T) {
	j := NewJournal(3)
	for i := range 5 {
		j.Record(context.Background(), ActionUpdate, "institutions", fmt.Sprint(i), "")
	}

	got := j.Entries(0)
	if len(got) != 3 {
		t.Fatalf("Entries() len = %d, want 3", len(got))
	}
	for i, want := range []string{"4", "3", "2"} {
		if got[i].RecordID != want {
			t.Errorf("entry %d = %s, want %s", i, got[i].RecordID, want)
		}
	}
	if got := j.Entries(2); len(got) != 2 || got[0].RecordID != "4" {
		t.Errorf("Entries(2) = %+v", got)
	}
}

func TestJournal_Empty(t *testing.T) {
	if got := NewJournal(0).Entries(5); len(got) != 0 {
		t.Errorf("Entries() = %v, want none", got)
	}
}

func TestJournal_Timestamp(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	j := NewJournal(1)
	j.now = func() time.Time { return fixed }

	e := j.Record(context.Background(), ActionClearEdits, "institutions", "", "")
	if !e.CreatedAt.Equal(fixed) || e.Severity != SeverityCritical {
		t.Errorf("entry = %+v", e)
	}
}
