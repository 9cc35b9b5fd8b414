// Package gateway is the remote record backend: a hosted Postgres table
// that replaces the source file and local overlay for a dataset. Records
// come back already effective; edits are written straight to the table.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/bondweb/internal/record"
)

// ErrNotFound is wrapped by a GatewayError when an update or delete
// matches no row.
var ErrNotFound = errors.New("record not found")

// Gateway is a remote source of effective records.
type Gateway interface {
	List(ctx context.Context) ([]record.Record, error)
	GetByID(ctx context.Context, id string) (record.Record, bool, error)
	Create(ctx context.Context, r record.Record) error
	Update(ctx context.Context, id string, partial record.Record) error
	Delete(ctx context.Context, id string) error
}

// GatewayError is a failed backend call. Detail carries the backend's own
// message so it can be shown to the user unchanged.
type GatewayError struct {
	Op     string
	Detail string
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("gateway %s: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// wrap converts err into a *GatewayError for op, pulling the server
// message out of Postgres errors.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	ge := &GatewayError{Op: op, Err: err}
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		ge.Detail = pgErr.Message
		if pgErr.Detail != "" {
			ge.Detail += " (" + pgErr.Detail + ")"
		}
	case errors.Is(err, ErrNotFound):
		ge.Detail = err.Error()
	}
	return ge
}
