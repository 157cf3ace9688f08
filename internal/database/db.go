package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the Postgres connection pool
type DB struct {
	*sql.DB
}

// New opens a Postgres connection pool and verifies it with a ping
func New(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			_ = closeErr
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Schema creates the annotation tables read by AnnotationRepository
const Schema = `
CREATE TABLE IF NOT EXISTS projects (
	id           BIGINT PRIMARY KEY,
	name         TEXT NOT NULL,
	type         TEXT NOT NULL,
	items_count  INTEGER NOT NULL DEFAULT 0,
	team_id      BIGINT NOT NULL DEFAULT 0,
	workspace_id BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS project_tag_metas (
	project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	name       TEXT NOT NULL,
	value_type TEXT NOT NULL DEFAULT 'none',
	PRIMARY KEY (project_id, position)
);

CREATE TABLE IF NOT EXISTS datasets (
	id          BIGINT PRIMARY KEY,
	project_id  BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	items_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS videos (
	id           BIGINT PRIMARY KEY,
	dataset_id   BIGINT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	frames_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS video_annotations (
	video_id   BIGINT PRIMARY KEY REFERENCES videos(id) ON DELETE CASCADE,
	annotation JSONB NOT NULL DEFAULT '{"tags": []}'
);
`

// Migrate applies Schema
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
