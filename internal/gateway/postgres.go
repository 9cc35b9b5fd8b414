package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/bondweb/internal/database"
	"github.com/JonMunkholm/bondweb/internal/record"
)

// Columns of the institutions table in display order. Any other record
// field lives in the custom_fields jsonb column.
var Columns = []string{
	"id", "name", "category", "country", "description",
	"website", "total_assets", "image_url",
}

const assetsColumn = "total_assets"

const selectInstitutions = `
	SELECT id, name, category, country, description, website,
	       total_assets::text, image_url, custom_fields::text
	FROM institutions`

// Postgres reads and writes the institutions table.
type Postgres struct {
	db database.DBTX
}

// NewPostgres returns a gateway over db.
func NewPostgres(db database.DBTX) *Postgres {
	return &Postgres{db: db}
}

// List returns all records ordered by name.
func (p *Postgres) List(ctx context.Context) ([]record.Record, error) {
	rows, err := p.db.Query(ctx, selectInstitutions+` ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, wrap("list", err)
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		r, err := scanInstitution(rows)
		if err != nil {
			return nil, wrap("list", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list", err)
	}
	return out, nil
}

// GetByID returns the record with id, or false when none exists.
func (p *Postgres) GetByID(ctx context.Context, id string) (record.Record, bool, error) {
	r, err := scanInstitution(p.db.QueryRow(ctx, selectInstitutions+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return record.Record{}, false, nil
	}
	if err != nil {
		return record.Record{}, false, wrap("get", err)
	}
	return r, true, nil
}

// Create inserts r. A duplicate id fails with the database's message.
func (p *Postgres) Create(ctx context.Context, r record.Record) error {
	fixed, custom, err := splitRecord(r)
	if err != nil {
		return wrap("create", err)
	}

	const q = `
		INSERT INTO institutions
			(id, name, category, country, description, website, total_assets, image_url, custom_fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7::text::numeric, $8, $9::jsonb)`

	_, err = p.db.Exec(ctx, q,
		fixed["id"], fixed["name"], fixed["category"], fixed["country"],
		fixed["description"], fixed["website"], NormalizeAssets(fixed[assetsColumn]),
		fixed["image_url"], custom,
	)
	return wrap("create", err)
}

// Update applies partial to the record with id. Fixed columns present in
// partial are overwritten; other fields are merged into custom_fields.
func (p *Postgres) Update(ctx context.Context, id string, partial record.Record) error {
	q, args, err := buildUpdate(id, partial)
	if err != nil {
		return wrap("update", err)
	}
	tag, err := p.db.Exec(ctx, q, args...)
	if err != nil {
		return wrap("update", err)
	}
	if tag.RowsAffected() == 0 {
		return wrap("update", fmt.Errorf("%w: %s", ErrNotFound, id))
	}
	return nil
}

// Delete removes the record with id.
func (p *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM institutions WHERE id = $1`, id)
	if err != nil {
		return wrap("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return wrap("delete", fmt.Errorf("%w: %s", ErrNotFound, id))
	}
	return nil
}

func scanInstitution(row pgx.Row) (record.Record, error) {
	var (
		id, name, category, country, description, website, imageURL string
		assets, custom                                             *string
	)
	if err := row.Scan(&id, &name, &category, &country, &description, &website, &assets, &imageURL, &custom); err != nil {
		return record.Record{}, err
	}

	r := record.New(
		"id", id,
		"name", name,
		"category", category,
		"country", country,
		"description", description,
		"website", website,
		assetsColumn, normalizedOrEmpty(assets),
		"image_url", imageURL,
	)

	if custom != nil && *custom != "" {
		var extra record.Record
		if err := json.Unmarshal([]byte(*custom), &extra); err != nil {
			return record.Record{}, fmt.Errorf("decode custom_fields of %s: %w", id, err)
		}
		for _, k := range extra.Keys() {
			if !r.Has(k) {
				r.Set(k, extra.Value(k))
			}
		}
	}
	return r, nil
}

// splitRecord separates the fixed columns of r from its extra fields,
// returning the extras as a JSON object.
func splitRecord(r record.Record) (map[string]string, string, error) {
	fixed := make(map[string]string, len(Columns))
	var extra record.Record
	for _, k := range r.Keys() {
		if isColumn(k) {
			fixed[k] = r.Value(k)
		} else {
			extra.Set(k, r.Value(k))
		}
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return nil, "", err
	}
	return fixed, string(data), nil
}

// buildUpdate renders the UPDATE statement for partial. The id column is
// never changed.
func buildUpdate(id string, partial record.Record) (string, []any, error) {
	var (
		sets []string
		args = []any{id}
	)
	fixed, custom, err := splitRecord(partial)
	if err != nil {
		return "", nil, err
	}

	for _, col := range Columns {
		v, ok := fixed[col]
		if !ok || col == "id" {
			continue
		}
		if col == assetsColumn {
			args = append(args, NormalizeAssets(v))
			sets = append(sets, fmt.Sprintf("%s = $%d::text::numeric", col, len(args)))
			continue
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if custom != "{}" {
		args = append(args, custom)
		sets = append(sets, fmt.Sprintf("custom_fields = custom_fields || $%d::jsonb", len(args)))
	}
	sets = append(sets, "updated_at = now()")

	q := "UPDATE institutions SET " + strings.Join(sets, ", ") + " WHERE id = $1"
	return q, args, nil
}

func isColumn(name string) bool {
	return slices.Contains(Columns, name)
}

// NormalizeAssets turns a user-entered amount into the value stored in the
// numeric column: nil for empty or non-numeric input, otherwise the
// canonical decimal text.
func NormalizeAssets(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	out := d.String()
	return &out
}

func normalizedOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	if n := NormalizeAssets(*s); n != nil {
		return *n
	}
	return ""
}
