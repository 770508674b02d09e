package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Collections written by the collectors.
const (
	CollectionAnimeMAL     = "anime_mal"
	CollectionAnimeAniList = "anime_anilist"
	CollectionPictures     = "pictures"
)

// ErrInvalidKey reports an empty collection or key.
var ErrInvalidKey = errors.New("collection and key are required")

// Document is a stored JSON body with its bookkeeping timestamps.
type Document struct {
	Collection string          `json:"collection"`
	Key        string          `json:"key"`
	Body       json.RawMessage `json:"body"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Decode unmarshals the document body into dst.
func (d Document) Decode(dst any) error {
	if err := json.Unmarshal(d.Body, dst); err != nil {
		return fmt.Errorf("decode %s/%s: %w", d.Collection, d.Key, err)
	}
	return nil
}

func checkKey(collection, key string) error {
	if strings.TrimSpace(collection) == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	return nil
}

// Upsert stores doc as JSON under collection/key, replacing any previous body.
func (s *Store) Upsert(ctx context.Context, collection, key string, doc any) error {
	if err := checkKey(collection, key); err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, key, err)
	}
	now := formatTime(time.Now())
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO documents (collection, key, body, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(collection, key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		collection, key, string(body), now, now,
	); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, key, err)
	}
	return nil
}

// Get decodes the document at collection/key into dst. It reports false when
// no such document exists.
func (s *Store) Get(ctx context.Context, collection, key string, dst any) (bool, error) {
	doc, err := s.Document(ctx, collection, key)
	if err != nil {
		return false, err
	}
	if doc == nil {
		return false, nil
	}
	if dst == nil {
		return true, nil
	}
	return true, doc.Decode(dst)
}

// Document returns the raw document at collection/key, or nil when absent.
func (s *Store) Document(ctx context.Context, collection, key string) (*Document, error) {
	if err := checkKey(collection, key); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT collection, key, body, created_at, updated_at FROM documents WHERE collection = ? AND key = ?`,
		collection, key,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	return doc, nil
}

// Delete removes the document at collection/key and reports whether it existed.
func (s *Store) Delete(ctx context.Context, collection, key string) (bool, error) {
	if err := checkKey(collection, key); err != nil {
		return false, err
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM documents WHERE collection = ? AND key = ?`, collection, key)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Count returns the number of documents in collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM documents WHERE collection = ?`, collection,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return count, nil
}

// List returns documents in collection, most recently updated first. A
// non-positive limit returns every document.
func (s *Store) List(ctx context.Context, collection string, limit, offset int) ([]Document, error) {
	query := `SELECT collection, key, body, created_at, updated_at FROM documents
        WHERE collection = ? ORDER BY updated_at DESC, key ASC`
	args := []any{collection}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, max(offset, 0))
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Keys returns every key in collection in ascending order.
func (s *Store) Keys(ctx context.Context, collection string) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT key FROM documents WHERE collection = ? ORDER BY key`, collection)
	if err != nil {
		return nil, fmt.Errorf("keys %s: %w", collection, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func scanDocument(scanner interface{ Scan(dest ...any) error }) (*Document, error) {
	var (
		doc        Document
		body       string
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&doc.Collection, &doc.Key, &body, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	doc.Body = json.RawMessage(body)
	if created, err := parseTimeString(createdRaw); err == nil {
		doc.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		doc.UpdatedAt = updated
	}
	return &doc, nil
}
