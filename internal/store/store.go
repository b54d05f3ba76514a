// Package store implements core.VectorStore on SQLite via
// github.com/mattn/go-sqlite3: the disk-backed fallback when pgvector
// isn't configured (spec.md §4.5's "degrades to JSON/BLOB-encoded
// embedding columns plus exhaustive in-process scan" path). Grounded on
// the teacher's internal/store/store.go: same driver, same
// CREATE-TABLE-IF-NOT-EXISTS-then-migrate bootstrap shape, and the same
// binary.Write/Read little-endian embedding serialization (generalized
// here from []float64 to []float32).
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"ragsum/internal/core"
)

// Store is a SQLite-backed core.VectorStore.
type Store struct {
	db  *sql.DB
	dim int
}

// NewStore opens (creating if needed) a SQLite database at
// <dataDir>/ragsum.db and runs its schema bootstrap.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, core.NewError(core.KindStoreUnavailable, "failed to create data directory", err)
	}

	dbPath := filepath.Join(dataDir, "ragsum.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, core.NewError(core.KindStoreUnavailable, "failed to open sqlite database", err)
	}

	s := &Store{db: db}
	if err := s.bootstrap(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) bootstrap() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS segments (
			collection TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			byte_start INTEGER NOT NULL,
			byte_end INTEGER NOT NULL,
			seg_type TEXT NOT NULL,
			heading_level INTEGER NOT NULL,
			section_title TEXT NOT NULL,
			seg_text TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			embedding BLOB,
			salience REAL NOT NULL,
			PRIMARY KEY (collection, doc_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_segments_hash ON segments (collection, content_hash)`,
		`CREATE TABLE IF NOT EXISTS summary_cache (
			cache_key TEXT PRIMARY KEY,
			payload TEXT NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return core.NewError(core.KindStoreUnavailable, "failed to create schema", err)
		}
	}
	return nil
}

func (s *Store) Initialize(ctx context.Context, collection string, dim int) error {
	s.dim = dim
	return nil
}

func (s *Store) HasDocument(ctx context.Context, collection, docID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM segments WHERE collection = ? AND doc_id = ?`, collection, docID).Scan(&count)
	if err != nil {
		return false, core.NewError(core.KindStoreUnavailable, "has_document query failed", err)
	}
	return count > 0, nil
}

func (s *Store) UpsertSegments(ctx context.Context, collection string, segments []*core.Segment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewError(core.KindStoreUnavailable, "failed to begin tx", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO segments (collection, doc_id, id, idx, byte_start, byte_end,
			seg_type, heading_level, section_title, seg_text, content_hash, embedding, salience)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(collection, doc_id, id) DO UPDATE SET
			idx=excluded.idx, byte_start=excluded.byte_start, byte_end=excluded.byte_end,
			seg_type=excluded.seg_type, heading_level=excluded.heading_level,
			section_title=excluded.section_title, seg_text=excluded.seg_text,
			content_hash=excluded.content_hash, embedding=excluded.embedding, salience=excluded.salience
	`)
	if err != nil {
		return core.NewError(core.KindStoreUnavailable, "failed to prepare upsert", err)
	}
	defer stmt.Close()

	for _, seg := range segments {
		blob, err := serializeEmbedding(seg.Embedding)
		if err != nil {
			return core.NewError(core.KindInternal, "failed to serialize embedding", err)
		}
		if _, err := stmt.ExecContext(ctx, collection, seg.DocID, seg.ID, seg.Index, seg.ByteStart, seg.ByteEnd,
			string(seg.Type), seg.HeadingLevel, seg.SectionTitle, seg.Text, seg.ContentHash, blob, seg.Salience); err != nil {
			return core.NewError(core.KindStoreUnavailable, "upsert segment failed", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.NewError(core.KindStoreUnavailable, "failed to commit upsert", err)
	}
	return nil
}

func (s *Store) GetDocumentSegments(ctx context.Context, collection, docID string) ([]*core.Segment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, idx, byte_start, byte_end, seg_type, heading_level, section_title,
		       seg_text, content_hash, embedding, salience
		FROM segments WHERE collection = ? AND doc_id = ? ORDER BY idx ASC
	`, collection, docID)
	if err != nil {
		return nil, core.NewError(core.KindStoreUnavailable, "get_document_segments query failed", err)
	}
	defer rows.Close()

	var out []*core.Segment
	for rows.Next() {
		seg, err := scanSegment(rows, docID)
		if err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}

// Search performs an exhaustive in-process cosine scan over every
// embedded segment in the collection (optionally scoped to one
// document). This is the fallback backend; spec.md §4.5 expects it to be
// correct, not fast.
func (s *Store) Search(ctx context.Context, q core.SearchQuery) ([]core.SearchResult, error) {
	if len(q.Vector) == 0 {
		return nil, core.NewError(core.KindInput, "search requires a non-empty query vector", nil)
	}

	query := `
		SELECT id, doc_id, idx, byte_start, byte_end, seg_type, heading_level, section_title,
		       seg_text, content_hash, embedding, salience
		FROM segments WHERE collection = ? AND embedding IS NOT NULL
	`
	args := []interface{}{q.Collection}
	if q.DocID != "" {
		query += " AND doc_id = ?"
		args = append(args, q.DocID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewError(core.KindStoreUnavailable, "search query failed", err)
	}
	defer rows.Close()

	var results []core.SearchResult
	for rows.Next() {
		var docID string
		seg, err := scanSegmentWithDocID(rows, &docID)
		if err != nil {
			return nil, err
		}
		seg.DocID = docID
		results = append(results, core.SearchResult{Segment: seg, QuerySimilarity: cosineSimilarity32(q.Vector, seg.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewError(core.KindStoreUnavailable, "search row iteration failed", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].QuerySimilarity != results[j].QuerySimilarity {
			return results[i].QuerySimilarity > results[j].QuerySimilarity
		}
		return results[i].Segment.ID < results[j].Segment.ID
	})

	k := q.K
	if k <= 0 || k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func (s *Store) GetByHash(ctx context.Context, collection string, hashes []string) (map[string]*core.Segment, error) {
	out := make(map[string]*core.Segment)
	if len(hashes) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(hashes))
	args := make([]interface{}, 0, len(hashes)+1)
	args = append(args, collection)
	for i, h := range hashes {
		placeholders[i] = "?"
		args = append(args, h)
	}
	query := fmt.Sprintf(`
		SELECT id, doc_id, idx, byte_start, byte_end, seg_type, heading_level, section_title,
		       seg_text, content_hash, embedding, salience
		FROM segments WHERE collection = ? AND content_hash IN (%s)
	`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewError(core.KindStoreUnavailable, "get_by_hash query failed", err)
	}
	defer rows.Close()

	for rows.Next() {
		var docID string
		seg, err := scanSegmentWithDocID(rows, &docID)
		if err != nil {
			return nil, err
		}
		seg.DocID = docID
		out[seg.ContentHash] = seg
	}
	return out, rows.Err()
}

func (s *Store) RemoveStale(ctx context.Context, collection, docID string, keepHashes map[string]bool) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, content_hash FROM segments WHERE collection = ? AND doc_id = ?`, collection, docID)
	if err != nil {
		return core.NewError(core.KindStoreUnavailable, "remove_stale query failed", err)
	}
	var staleIDs []string
	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			rows.Close()
			return core.NewError(core.KindStoreUnavailable, "remove_stale scan failed", err)
		}
		if !keepHashes[hash] {
			staleIDs = append(staleIDs, id)
		}
	}
	rows.Close()

	for _, id := range staleIDs {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM segments WHERE collection = ? AND doc_id = ? AND id = ?`, collection, docID, id); err != nil {
			return core.NewError(core.KindStoreUnavailable, "remove_stale delete failed", err)
		}
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, collection, docID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM segments WHERE collection = ? AND doc_id = ?`, collection, docID)
	if err != nil {
		return core.NewError(core.KindStoreUnavailable, "delete_document failed", err)
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, collection string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM segments WHERE collection = ?`, collection)
	if err != nil {
		return core.NewError(core.KindStoreUnavailable, "delete_collection failed", err)
	}
	return nil
}

func (s *Store) GetCachedSummary(ctx context.Context, key string) (*core.DocumentSummary, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM summary_cache WHERE cache_key = ?`, key).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, core.NewError(core.KindStoreUnavailable, "get_cached_summary failed", err)
	}
	var summary core.DocumentSummary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return nil, false, core.NewError(core.KindStoreCorruption, "corrupt cached summary payload", err)
	}
	return &summary, true, nil
}

func (s *Store) CacheSummary(ctx context.Context, key string, summary *core.DocumentSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return core.NewError(core.KindInternal, "failed to marshal summary", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO summary_cache (cache_key, payload) VALUES (?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET payload = excluded.payload
	`, key, string(payload))
	if err != nil {
		return core.NewError(core.KindStoreUnavailable, "cache_summary failed", err)
	}
	return nil
}

func (s *Store) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return core.NewError(core.KindStoreUnavailable, "vacuum failed", err)
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (core.Stats, error) {
	var total, docs int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM segments`).Scan(&total); err != nil {
		return core.Stats{}, core.NewError(core.KindStoreUnavailable, "stats count failed", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT doc_id) FROM segments`).Scan(&docs); err != nil {
		return core.Stats{}, core.NewError(core.KindStoreUnavailable, "stats doc count failed", err)
	}
	return core.Stats{Backend: "sqlite", TotalSegments: total, TotalDocuments: docs, EmbeddingDims: s.dim}, nil
}

func (s *Store) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSegment(rows rowScanner, docID string) (*core.Segment, error) {
	seg := &core.Segment{DocID: docID}
	var segType string
	var blob []byte
	if err := rows.Scan(&seg.ID, &seg.Index, &seg.ByteStart, &seg.ByteEnd, &segType,
		&seg.HeadingLevel, &seg.SectionTitle, &seg.Text, &seg.ContentHash, &blob, &seg.Salience); err != nil {
		return nil, core.NewError(core.KindStoreUnavailable, "scan segment failed", err)
	}
	seg.Type = core.SegmentType(segType)
	embedding, err := deserializeEmbedding(blob)
	if err != nil {
		return nil, core.NewError(core.KindStoreCorruption, "corrupt embedding blob", err)
	}
	seg.Embedding = embedding
	return seg, nil
}

func scanSegmentWithDocID(rows rowScanner, docID *string) (*core.Segment, error) {
	seg := &core.Segment{}
	var segType string
	var blob []byte
	if err := rows.Scan(&seg.ID, docID, &seg.Index, &seg.ByteStart, &seg.ByteEnd, &segType,
		&seg.HeadingLevel, &seg.SectionTitle, &seg.Text, &seg.ContentHash, &blob, &seg.Salience); err != nil {
		return nil, core.NewError(core.KindStoreUnavailable, "scan segment failed", err)
	}
	seg.Type = core.SegmentType(segType)
	embedding, err := deserializeEmbedding(blob)
	if err != nil {
		return nil, core.NewError(core.KindStoreCorruption, "corrupt embedding blob", err)
	}
	seg.Embedding = embedding
	return seg, nil
}

// serializeEmbedding converts a float32 slice to bytes for BLOB storage,
// little-endian, one binary.Write call per component.
func serializeEmbedding(embedding []float32) ([]byte, error) {
	if embedding == nil {
		return nil, nil
	}
	buf := new(bytes.Buffer)
	for _, val := range embedding {
		if err := binary.Write(buf, binary.LittleEndian, val); err != nil {
			return nil, fmt.Errorf("failed to serialize embedding: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// deserializeEmbedding converts a BLOB back into a float32 slice.
func deserializeEmbedding(data []byte) ([]float32, error) {
	if data == nil {
		return nil, nil
	}
	buf := bytes.NewReader(data)
	var embedding []float32
	for buf.Len() > 0 {
		var val float32
		if err := binary.Read(buf, binary.LittleEndian, &val); err != nil {
			return nil, fmt.Errorf("failed to deserialize embedding: %w", err)
		}
		embedding = append(embedding, val)
	}
	return embedding, nil
}

func cosineSimilarity32(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ core.VectorStore = (*Store)(nil)
