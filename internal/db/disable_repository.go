package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SourceVMAP is the disables source type of vmap rows. Their entry is a
// map id and their flags a vmap.DisableFlag set.
const SourceVMAP = 6

// Disable is one row of the disables table.
type Disable struct {
	SourceType int16
	Entry      uint32
	Flags      uint32
	Comment    string
}

// DisableRepository reads and edits the disables table.
type DisableRepository struct {
	pool *pgxpool.Pool
}

// NewDisableRepository creates a new disable repository.
func NewDisableRepository(pool *pgxpool.Pool) *DisableRepository {
	return &DisableRepository{pool: pool}
}

// LoadBySource returns the rows of one source type ordered by entry.
func (r *DisableRepository) LoadBySource(ctx context.Context, sourceType int16) ([]Disable, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT source_type, entry, flags, comment
		 FROM disables WHERE source_type = $1 ORDER BY entry`, sourceType)
	if err != nil {
		return nil, fmt.Errorf("loading disables of source %d: %w", sourceType, err)
	}

	defer rows.Close()

	var out []Disable
	for rows.Next() {
		var (
			d     Disable
			entry int64
			flags int64
		)
		if err := rows.Scan(&d.SourceType, &entry, &flags, &d.Comment); err != nil {
			return nil, fmt.Errorf("scanning disables of source %d: %w", sourceType, err)
		}
		d.Entry = uint32(entry)
		d.Flags = uint32(flags)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Upsert inserts a row or replaces the flags and comment of an existing one.
func (r *DisableRepository) Upsert(ctx context.Context, d Disable) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO disables (source_type, entry, flags, comment)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (source_type, entry)
		 DO UPDATE SET flags = EXCLUDED.flags, comment = EXCLUDED.comment`,
		d.SourceType, int64(d.Entry), int64(d.Flags), d.Comment,
	)
	if err != nil {
		return fmt.Errorf("upserting disable %d/%d: %w", d.SourceType, d.Entry, err)
	}
	return nil
}

// Delete removes a row. Deleting a missing row is not an error.
func (r *DisableRepository) Delete(ctx context.Context, sourceType int16, entry uint32) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM disables WHERE source_type = $1 AND entry = $2`,
		sourceType, int64(entry),
	)
	if err != nil {
		return fmt.Errorf("deleting disable %d/%d: %w", sourceType, entry, err)
	}
	return nil
}
