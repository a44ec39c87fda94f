package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"imkit/internal/domain"
)

// SQLiteStore is a Store persisted in a SQLite file.
type SQLiteStore struct {
	pendingLocation

	db *sql.DB
	lg *zap.Logger
}

func NewSQLiteStore(dbPath string, lg *zap.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, lg: lg.Named("store")}
	if err := RunMigrations(db, s.lg); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) UserInfoByID(ctx context.Context, id string) (*domain.UserInfo, error) {
	var u domain.UserInfo
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, portrait FROM users WHERE id = ?`, id,
	).Scan(&u.UserID, &u.Name, &u.PortraitURI)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLiteStore) UserInfos(ctx context.Context) ([]domain.UserInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, portrait FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.UserInfo
	for rows.Next() {
		var u domain.UserInfo
		if err := rows.Scan(&u.UserID, &u.Name, &u.PortraitURI); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) GroupMap(ctx context.Context) (map[string]domain.Group, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, portrait FROM chat_groups`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make(map[string]domain.Group)
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.PortraitURI); err != nil {
			return nil, err
		}
		groups[g.ID] = g
	}
	return groups, rows.Err()
}

func (s *SQLiteStore) PutUser(ctx context.Context, u domain.UserInfo) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, portrait) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, portrait = excluded.portrait, updated_at = CURRENT_TIMESTAMP`,
		u.UserID, u.Name, u.PortraitURI,
	)
	return err
}

func (s *SQLiteStore) PutGroup(ctx context.Context, g domain.Group) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_groups (id, name, portrait) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, portrait = excluded.portrait, updated_at = CURRENT_TIMESTAMP`,
		g.ID, g.Name, g.PortraitURI,
	)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
