package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"lcaweb/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS materials (
	id             TEXT PRIMARY KEY,
	position       INTEGER NOT NULL,
	name_de        TEXT NOT NULL DEFAULT '',
	name_en        TEXT NOT NULL DEFAULT '',
	name_fr        TEXT NOT NULL DEFAULT '',
	unit           TEXT NOT NULL,
	density        REAL,
	density_min    REAL,
	density_max    REAL,
	density_ranged INTEGER NOT NULL DEFAULT 0,
	gwp            REAL NOT NULL DEFAULT 0,
	ubp            REAL NOT NULL DEFAULT 0,
	energy         REAL NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS catalog_meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);`

var materialColumns = []string{
	"id", "position", "name_de", "name_en", "name_fr", "unit",
	"density", "density_min", "density_max", "density_ranged",
	"gwp", "ubp", "energy",
}

var upsertMaterial = func() string {
	sets := make([]string, 0, len(materialColumns)-1)
	for _, c := range materialColumns[1:] {
		sets = append(sets, c+" = excluded."+c)
	}
	return "ON CONFLICT(id) DO UPDATE SET " + strings.Join(sets, ", ")
}()

// Store persists the reference catalog in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the catalog database at path. ":memory:" is allowed.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate catalog db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From("materials").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count materials: %w", err)
	}
	return n, nil
}

// Version returns the stored catalog version, 0 when never seeded.
func (s *Store) Version(ctx context.Context) (int64, error) {
	query, args, err := sq.Select("value").From("catalog_meta").Where(sq.Eq{"key": "version"}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build version: %w", err)
	}
	var v int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	return v, nil
}

// Replace swaps the whole catalog in one transaction.
func (s *Store) Replace(ctx context.Context, version int64, records []domain.MaterialRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM materials"); err != nil {
		return fmt.Errorf("clear materials: %w", err)
	}

	for i, r := range records {
		var density, dmin, dmax sql.NullFloat64
		ranged := 0
		if r.Density != nil {
			density = sql.NullFloat64{Float64: r.Density.Value, Valid: true}
			if r.Density.Ranged {
				dmin = sql.NullFloat64{Float64: r.Density.Min, Valid: true}
				dmax = sql.NullFloat64{Float64: r.Density.Max, Valid: true}
				ranged = 1
			}
		}
		query, args, buildErr := sq.Insert("materials").
			Columns(materialColumns...).
			Values(r.ID, i, r.NameDE, r.NameEN, r.NameFR, r.Unit, density, dmin, dmax, ranged, r.GWP, r.UBP, r.Energy).
			Suffix(upsertMaterial).
			ToSql()
		if buildErr != nil {
			err = fmt.Errorf("build insert: %w", buildErr)
			return err
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert material %s: %w", r.ID, err)
		}
	}

	query, args, buildErr := sq.Insert("catalog_meta").
		Columns("key", "value").
		Values("version", version).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value").
		ToSql()
	if buildErr != nil {
		err = fmt.Errorf("build version upsert: %w", buildErr)
		return err
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("write version: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// EnsureSeeded fills an empty store from seed. A populated store is left alone.
func (s *Store) EnsureSeeded(ctx context.Context, seed SeedFile) (bool, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	version := seed.Version
	if version == 0 {
		version = 1
	}
	if err := s.Replace(ctx, version, seed.Materials); err != nil {
		return false, err
	}
	return true, nil
}

// Snapshot loads the stored records into an immutable Catalog.
func (s *Store) Snapshot(ctx context.Context) (*Catalog, error) {
	version, err := s.Version(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sq.Select(materialColumns...).From("materials").OrderBy("position", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build snapshot: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query materials: %w", err)
	}
	defer rows.Close()

	var records []domain.MaterialRecord
	for rows.Next() {
		var (
			r                   domain.MaterialRecord
			position, ranged    int
			density, dmin, dmax sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &position, &r.NameDE, &r.NameEN, &r.NameFR, &r.Unit,
			&density, &dmin, &dmax, &ranged, &r.GWP, &r.UBP, &r.Energy); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		switch {
		case ranged == 1 && dmin.Valid && dmax.Valid:
			d := domain.NewRange(dmin.Float64, dmax.Float64)
			if density.Valid {
				d.Value = density.Float64
			}
			r.Density = &d
		case density.Valid:
			r.Density = &domain.Density{Value: density.Float64}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}
	return New(version, records), nil
}
