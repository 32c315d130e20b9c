// Package settings persists the overlay configuration blob and the
// draggable panel layout in a local sqlite database. The telemetry client
// has no knowledge of this store.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // driver
)

var ErrNotFound = errors.New("setting not found")

type Store struct {
	db *sql.DB
}

// PanelLayout is the persisted position of one draggable control panel.
type PanelLayout struct {
	Panel   string  `json:"panel"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Visible bool    `json:"visible"`
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS kv(
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS panel_layout(
			panel TEXT PRIMARY KEY,
			x REAL NOT NULL,
			y REAL NOT NULL,
			visible INTEGER NOT NULL DEFAULT 1
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate settings db: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) SavePanelLayout(ctx context.Context, l PanelLayout) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO panel_layout(panel, x, y, visible) VALUES(?, ?, ?, ?)
		ON CONFLICT(panel) DO UPDATE SET
			x = excluded.x,
			y = excluded.y,
			visible = excluded.visible
	`, l.Panel, l.X, l.Y, boolToInt(l.Visible))
	if err != nil {
		return fmt.Errorf("save panel layout %s: %w", l.Panel, err)
	}
	return nil
}

func (s *Store) LoadPanelLayout(ctx context.Context, panel string) (PanelLayout, error) {
	var (
		l       PanelLayout
		visible int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT panel, x, y, visible FROM panel_layout WHERE panel = ?`, panel).
		Scan(&l.Panel, &l.X, &l.Y, &visible)
	if errors.Is(err, sql.ErrNoRows) {
		return PanelLayout{}, fmt.Errorf("%w: %s", ErrNotFound, panel)
	}
	if err != nil {
		return PanelLayout{}, fmt.Errorf("load panel layout %s: %w", panel, err)
	}
	l.Visible = visible != 0
	return l, nil
}

func (s *Store) AllPanelLayouts(ctx context.Context) ([]PanelLayout, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT panel, x, y, visible FROM panel_layout ORDER BY panel`)
	if err != nil {
		return nil, fmt.Errorf("list panel layouts: %w", err)
	}
	defer rows.Close()

	out := make([]PanelLayout, 0)
	for rows.Next() {
		var (
			l       PanelLayout
			visible int
		)
		if err := rows.Scan(&l.Panel, &l.X, &l.Y, &visible); err != nil {
			return nil, fmt.Errorf("scan panel layout: %w", err)
		}
		l.Visible = visible != 0
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate panel layouts: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
