package storefile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"quranrag/internal/domain"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS store_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	seq      INTEGER PRIMARY KEY,
	id       TEXT NOT NULL,
	content  TEXT NOT NULL,
	metadata TEXT,
	vector   TEXT
);`

// ReadSQLite decodes a store kept in a SQLite database. The database is opened query-only.
func ReadSQLite(ctx context.Context, path string) (*Blob, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("embeddings database %s: %w", path, domain.ErrNotFound)
		}
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()

	b, err := readMeta(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptStore, path, err)
	}
	if err := readDocuments(ctx, db, b); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptStore, path, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

func readMeta(ctx context.Context, db *sql.DB) (*Blob, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM store_meta`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	b := &Blob{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		switch key {
		case "name":
			b.Name = value
		case "embedder":
			b.Embedder = value
		case "model":
			b.Model = value
		case "dimension":
			if b.Dimension, err = strconv.Atoi(value); err != nil {
				return nil, fmt.Errorf("dimension: %w", err)
			}
		}
	}
	return b, rows.Err()
}

func readDocuments(ctx context.Context, db *sql.DB, b *Blob) error {
	rows, err := db.QueryContext(ctx, `SELECT id, content, metadata, vector FROM documents ORDER BY seq`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			doc           domain.Document
			meta, vecText sql.NullString
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &meta, &vecText); err != nil {
			return err
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &doc.Metadata); err != nil {
				return fmt.Errorf("document %s metadata: %w", doc.ID, err)
			}
		}
		if vecText.Valid && vecText.String != "" {
			var vec []float64
			if err := json.Unmarshal([]byte(vecText.String), &vec); err != nil {
				return fmt.Errorf("document %s vector: %w", doc.ID, err)
			}
			b.Vectors = append(b.Vectors, vec)
		}
		b.Documents = append(b.Documents, doc)
	}
	return rows.Err()
}

// WriteSQLite stores b in a new SQLite database at path.
func WriteSQLite(ctx context.Context, path string, b *Blob) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	meta := map[string]string{
		"name":      b.Name,
		"embedder":  b.Embedder,
		"model":     b.Model,
		"dimension": strconv.Itoa(b.Dimension),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO store_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return err
		}
	}
	for i, doc := range b.Documents {
		var metaJSON, vecJSON sql.NullString
		if len(doc.Metadata) > 0 {
			data, err := json.Marshal(doc.Metadata)
			if err != nil {
				return err
			}
			metaJSON = sql.NullString{String: string(data), Valid: true}
		}
		if i < len(b.Vectors) {
			data, err := json.Marshal(b.Vectors[i])
			if err != nil {
				return err
			}
			vecJSON = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (seq, id, content, metadata, vector) VALUES (?, ?, ?, ?, ?)`,
			i, doc.ID, doc.Content, metaJSON, vecJSON); err != nil {
			return err
		}
	}
	return tx.Commit()
}
