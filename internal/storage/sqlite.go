// Package storage provides the SQLite implementation of the Store interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		note_id TEXT NOT NULL,
		content TEXT NOT NULL,
		word_count INTEGER NOT NULL,
		heading_path TEXT,
		topic TEXT,
		tags TEXT,
		embedding BLOB,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_note_id ON chunks(note_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_topic ON chunks(topic);

	CREATE TABLE IF NOT EXISTS embedding_cache (
		content_hash TEXT PRIMARY KEY,
		vector BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS topic_centroids (
		topic TEXT PRIMARY KEY,
		centroid BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// PutChunk inserts or replaces a chunk.
func (s *SQLiteStore) PutChunk(ctx context.Context, chunk *models.Chunk) error {
	headingJSON, err := json.Marshal(chunk.HeadingPath)
	if err != nil {
		return fmt.Errorf("failed to marshal heading path: %w", err)
	}
	tagsJSON, err := json.Marshal(chunk.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	metadataJSON, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	now := time.Now()
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = now
	}
	chunk.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO chunks
		 (id, note_id, content, word_count, heading_path, topic, tags, embedding, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chunk.ID, chunk.NoteID, chunk.Content, chunk.WordCount,
		string(headingJSON), chunk.Topic, string(tagsJSON),
		vectorToBlob(chunk.Embedding), string(metadataJSON),
		chunk.CreatedAt, chunk.UpdatedAt,
	)
	return err
}

// GetChunk returns a chunk by ID.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, note_id, content, word_count, heading_path, topic, tags, embedding, metadata, created_at, updated_at
		 FROM chunks WHERE id = ?`, id)
	chunk, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chunk not found: %s", id)
	}
	return chunk, err
}

// GetChunks returns the chunks for the given IDs, skipping unknown IDs.
func (s *SQLiteStore) GetChunks(ctx context.Context, ids []string) ([]*models.Chunk, error) {
	chunks := make([]*models.Chunk, 0, len(ids))
	for _, id := range ids {
		chunk, err := s.GetChunk(ctx, id)
		if err != nil {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// ListChunks returns chunks with offset and limit, newest first.
func (s *SQLiteStore) ListChunks(ctx context.Context, offset, limit int) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, note_id, content, word_count, heading_path, topic, tags, embedding, metadata, created_at, updated_at
		 FROM chunks ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows)
}

// AllChunks returns every stored chunk.
func (s *SQLiteStore) AllChunks(ctx context.Context) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, note_id, content, word_count, heading_path, topic, tags, embedding, metadata, created_at, updated_at
		 FROM chunks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows)
}

// DeleteChunk removes a chunk by ID.
func (s *SQLiteStore) DeleteChunk(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE id = ?`, id)
	return err
}

// CountChunks returns the number of stored chunks.
func (s *SQLiteStore) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

// SaveEmbedding upserts a cached embedding keyed by content hash.
func (s *SQLiteStore) SaveEmbedding(ctx context.Context, hash string, vector []float32, createdAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embedding_cache (content_hash, vector, created_at) VALUES (?, ?, ?)`,
		hash, vectorToBlob(vector), createdAt)
	return err
}

// LoadEmbeddings returns cached embeddings created at or after notBefore.
func (s *SQLiteStore) LoadEmbeddings(ctx context.Context, notBefore time.Time) (map[string][]float32, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT content_hash, vector FROM embedding_cache WHERE created_at >= ?`, notBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]float32)
	for rows.Next() {
		var hash string
		var blob []byte
		if err := rows.Scan(&hash, &blob); err != nil {
			return nil, err
		}
		out[hash] = blobToVector(blob)
	}
	return out, rows.Err()
}

// PruneEmbeddings deletes cached embeddings created before the cutoff.
func (s *SQLiteStore) PruneEmbeddings(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM embedding_cache WHERE created_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SaveCentroid upserts a topic centroid.
func (s *SQLiteStore) SaveCentroid(ctx context.Context, topic string, centroid []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO topic_centroids (topic, centroid) VALUES (?, ?)`,
		topic, vectorToBlob(centroid))
	return err
}

// LoadCentroids returns all persisted topic centroids.
func (s *SQLiteStore) LoadCentroids(ctx context.Context) (map[string][]float32, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT topic, centroid FROM topic_centroids`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]float32)
	for rows.Next() {
		var topic string
		var blob []byte
		if err := rows.Scan(&topic, &blob); err != nil {
			return nil, err
		}
		out[topic] = blobToVector(blob)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChunk(row rowScanner) (*models.Chunk, error) {
	var chunk models.Chunk
	var headingJSON, tagsJSON, metadataJSON string
	var embedding []byte
	err := row.Scan(&chunk.ID, &chunk.NoteID, &chunk.Content, &chunk.WordCount,
		&headingJSON, &chunk.Topic, &tagsJSON, &embedding, &metadataJSON,
		&chunk.CreatedAt, &chunk.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if headingJSON != "" {
		_ = json.Unmarshal([]byte(headingJSON), &chunk.HeadingPath)
	}
	if tagsJSON != "" {
		_ = json.Unmarshal([]byte(tagsJSON), &chunk.Tags)
	}
	if metadataJSON != "" {
		_ = json.Unmarshal([]byte(metadataJSON), &chunk.Metadata)
	}
	chunk.Embedding = blobToVector(embedding)
	return &chunk, nil
}

func scanChunks(rows *sql.Rows) ([]*models.Chunk, error) {
	var chunks []*models.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func vectorToBlob(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(f))
	}
	return out
}

func blobToVector(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}
