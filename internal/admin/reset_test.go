package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/bondweb/internal/config"
	"github.com/JonMunkholm/bondweb/internal/core"
)

type fakeClearer struct {
	backends map[string]string
	fail     map[string]error
	cleared  []string
	deadline bool
}

func (f *fakeClearer) Datasets() []core.DatasetDefinition {
	return []core.DatasetDefinition{
		{Key: "institutions", Editable: true},
		{Key: "issuers"},
		{Key: "venues", Editable: true},
		{Key: "remote", Editable: true},
	}
}

func (f *fakeClearer) Backend(key string) string { return f.backends[key] }

func (f *fakeClearer) ClearEdits(ctx context.Context, key string) error {
	_, f.deadline = ctx.Deadline()
	if err := f.fail[key]; err != nil {
		return err
	}
	f.cleared = append(f.cleared, key)
	return nil
}

func TestResetAll(t *testing.T) {
	f := &fakeClearer{backends: map[string]string{
		"institutions": config.BackendCSV, "issuers": config.BackendCSV, "venues": config.BackendCSV, "remote": config.BackendPostgres,
	}}

	cleared, err := NewResetter(f, time.Second).ResetAll(context.Background())
	if err != nil {
		t.Fatalf("ResetAll() error = %v", err)
	}
	if len(cleared) != 2 || cleared[0] != "institutions" || cleared[1] != "venues" {
		t.Errorf("cleared = %v, want [institutions venues]", cleared)
	}
	if !f.deadline {
		t.Error("ClearEdits should run under a deadline")
	}
}

func TestResetAll_ContinuesAfterFailure(t *testing.T) {
	boom := errors.New("disk full")
	f := &fakeClearer{
		backends: map[string]string{"institutions": config.BackendCSV, "venues": config.BackendCSV},
		fail:     map[string]error{"institutions": boom},
	}

	cleared, err := NewResetter(f, 0).ResetAll(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped %v", err, boom)
	}
	if len(cleared) != 1 || cleared[0] != "venues" {
		t.Errorf("cleared = %v, want [venues]", cleared)
	}
}
