package overlay

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/bondweb/internal/record"
)

// fakeDB stores overlay_state rows in a map keyed by dataset.
type fakeDB struct {
	rows    map[string]string
	execErr error
	lastSQL string
}

func newFakeDB() *fakeDB {
	return &fakeDB{rows: map[string]string{}}
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastSQL = sql
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	f.rows[args[0].(string)] = args[1].(string)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	v, ok := f.rows[args[0].(string)]
	return fakeRow{value: v, found: ok}
}

type fakeRow struct {
	value string
	found bool
}

func (r fakeRow) Scan(dest ...any) error {
	if !r.found {
		return pgx.ErrNoRows
	}
	*dest[0].(*string) = r.value
	return nil
}

func TestPostgresBackend_NoRowIsEmpty(t *testing.T) {
	b := NewPostgresBackend(newFakeDB(), "institutions")
	data, err := b.Load(context.Background())
	if err != nil || data != nil {
		t.Fatalf("Load() = %q, %v; want nil, nil", data, err)
	}
}

func TestPostgresBackend_StoreRoundTrip(t *testing.T) {
	db := newFakeDB()
	ctx := context.Background()
	s := NewStore("institutions", NewPostgresBackend(db, "institutions"))

	if err := s.AddField(ctx, "country"); err != nil {
		t.Fatalf("AddField() error = %v", err)
	}
	if err := s.DeleteRecord(ctx, "2"); err != nil {
		t.Fatalf("DeleteRecord() error = %v", err)
	}
	if !strings.Contains(db.lastSQL, "ON CONFLICT (key) DO UPDATE") {
		t.Errorf("save should upsert, got %q", db.lastSQL)
	}

	o := mustGet(t, NewStore("institutions", NewPostgresBackend(db, "institutions")))
	if len(o.CustomFields) != 1 || !o.IsDeleted("2") {
		t.Errorf("overlay = %+v", o)
	}

	// Datasets do not share rows.
	other := mustGet(t, NewStore("issuers", NewPostgresBackend(db, "issuers")))
	if !other.IsEmpty() {
		t.Errorf("issuers overlay = %+v, want empty", other)
	}
}

func TestPostgresBackend_SaveError(t *testing.T) {
	db := newFakeDB()
	db.execErr = errors.New("connection reset")
	s := NewStore("institutions", NewPostgresBackend(db, "institutions"))

	err := s.AddRecord(context.Background(), record.New("id", "1"))
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("AddRecord() error = %v, want backend detail", err)
	}
}
