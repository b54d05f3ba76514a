// Package vectorstore implements core.VectorStore (spec.md §4.5): a
// disk-backed, HNSW-indexed Postgres/pgvector backend and an in-memory
// exhaustive-search backend. Grounded on the teacher's
// internal/vectorstore/pgvector.go (UPSERT/CreateIndex/GetStats shape,
// <=> cosine operator, idempotent "CREATE INDEX IF NOT EXISTS ... USING
// hnsw"), generalized from per-article embeddings to per-segment
// embeddings keyed by (collection, doc_id, content_hash) per spec.md §4.5.
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"ragsum/internal/core"
)

// PgVectorStore implements core.VectorStore against Postgres + pgvector.
type PgVectorStore struct {
	db  *sql.DB
	dim int
}

// NewPgVectorStore wraps an already-open *sql.DB (opened with
// sql.Open("postgres", dsn), the driver registered by github.com/lib/pq).
func NewPgVectorStore(db *sql.DB) *PgVectorStore {
	return &PgVectorStore{db: db}
}

// Initialize creates the segments and summary_cache tables and the HNSW
// index, all idempotently (IF NOT EXISTS), matching the teacher's
// CreateIndex existence check but folded into one bootstrap call since
// spec.md §4.5 calls this once per collection before first use.
func (p *PgVectorStore) Initialize(ctx context.Context, collection string, dim int) error {
	p.dim = dim

	if _, err := p.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return core.NewError(core.KindStoreUnavailable, "failed to create vector extension", err)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS segments (
			collection TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			id TEXT NOT NULL,
			idx INT NOT NULL,
			byte_start INT NOT NULL,
			byte_end INT NOT NULL,
			seg_type TEXT NOT NULL,
			heading_level INT NOT NULL,
			section_title TEXT NOT NULL,
			seg_text TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			embedding vector(%d),
			salience DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (collection, doc_id, id)
		);
		CREATE TABLE IF NOT EXISTS summary_cache (
			cache_key TEXT PRIMARY KEY,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`, dim)
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return core.NewError(core.KindStoreUnavailable, "failed to create schema", err)
	}

	indexQuery := `
		CREATE INDEX IF NOT EXISTS idx_segments_embedding_hnsw
		ON segments
		USING hnsw (embedding vector_cosine_ops)
		WITH (m = 16, ef_construction = 64)
	`
	if _, err := p.db.ExecContext(ctx, indexQuery); err != nil {
		return core.NewError(core.KindStoreUnavailable, "failed to create hnsw index", err)
	}

	return nil
}

// HasDocument reports whether any segment rows exist for docID.
func (p *PgVectorStore) HasDocument(ctx context.Context, collection, docID string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM segments WHERE collection = $1 AND doc_id = $2)`,
		collection, docID,
	).Scan(&exists)
	if err != nil {
		return false, core.NewError(core.KindStoreUnavailable, "has_document query failed", err)
	}
	return exists, nil
}

// UpsertSegments writes or updates segment rows, keyed by (collection,
// doc_id, id). Re-running extraction on unchanged content is therefore a
// no-op write, per spec.md §4.5's content-hash-addressed caching intent.
func (p *PgVectorStore) UpsertSegments(ctx context.Context, collection string, segments []*core.Segment) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewError(core.KindStoreUnavailable, "failed to begin tx", err)
	}
	defer tx.Rollback()

	stmt := `
		INSERT INTO segments (collection, doc_id, id, idx, byte_start, byte_end,
			seg_type, heading_level, section_title, seg_text, content_hash, embedding, salience)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12::vector,$13)
		ON CONFLICT (collection, doc_id, id) DO UPDATE SET
			idx = EXCLUDED.idx,
			byte_start = EXCLUDED.byte_start,
			byte_end = EXCLUDED.byte_end,
			seg_type = EXCLUDED.seg_type,
			heading_level = EXCLUDED.heading_level,
			section_title = EXCLUDED.section_title,
			seg_text = EXCLUDED.seg_text,
			content_hash = EXCLUDED.content_hash,
			embedding = EXCLUDED.embedding,
			salience = EXCLUDED.salience
	`
	for _, seg := range segments {
		var vec interface{}
		if seg.HasEmbedding() {
			vec = formatVector(seg.Embedding)
		}
		if _, err := tx.ExecContext(ctx, stmt,
			collection, seg.DocID, seg.ID, seg.Index, seg.ByteStart, seg.ByteEnd,
			string(seg.Type), seg.HeadingLevel, seg.SectionTitle, seg.Text, seg.ContentHash,
			vec, seg.Salience,
		); err != nil {
			return core.NewError(core.KindStoreUnavailable, "upsert segment failed", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.NewError(core.KindStoreUnavailable, "failed to commit upsert", err)
	}
	return nil
}

// GetDocumentSegments returns all segments for docID, ordered by index.
func (p *PgVectorStore) GetDocumentSegments(ctx context.Context, collection, docID string) ([]*core.Segment, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, idx, byte_start, byte_end, seg_type, heading_level, section_title,
		       seg_text, content_hash, embedding, salience
		FROM segments
		WHERE collection = $1 AND doc_id = $2
		ORDER BY idx ASC
	`, collection, docID)
	if err != nil {
		return nil, core.NewError(core.KindStoreUnavailable, "get_document_segments query failed", err)
	}
	defer rows.Close()

	var out []*core.Segment
	for rows.Next() {
		seg := &core.Segment{DocID: docID}
		var segType string
		var embeddingStr sql.NullString
		if err := rows.Scan(&seg.ID, &seg.Index, &seg.ByteStart, &seg.ByteEnd, &segType,
			&seg.HeadingLevel, &seg.SectionTitle, &seg.Text, &seg.ContentHash, &embeddingStr, &seg.Salience); err != nil {
			return nil, core.NewError(core.KindStoreUnavailable, "scan segment failed", err)
		}
		seg.Type = core.SegmentType(segType)
		if embeddingStr.Valid {
			seg.Embedding = parseVector(embeddingStr.String)
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}

// Search runs an HNSW-accelerated cosine nearest-neighbor query via the
// <=> operator, optionally scoped to a single document.
func (p *PgVectorStore) Search(ctx context.Context, q core.SearchQuery) ([]core.SearchResult, error) {
	if len(q.Vector) == 0 {
		return nil, core.NewError(core.KindInput, "search requires a non-empty query vector", nil)
	}
	vectorStr := formatVector(q.Vector)
	k := q.K
	if k <= 0 {
		k = 10
	}

	docFilter := ""
	args := []interface{}{q.Collection, vectorStr, k}
	if q.DocID != "" {
		docFilter = "AND doc_id = $4"
		args = append(args, q.DocID)
	}

	sqlQuery := fmt.Sprintf(`
		SELECT id, doc_id, idx, byte_start, byte_end, seg_type, heading_level, section_title,
		       seg_text, content_hash, embedding, salience,
		       1 - (embedding <=> $2::vector) AS similarity
		FROM segments
		WHERE collection = $1 AND embedding IS NOT NULL %s
		ORDER BY embedding <=> $2::vector
		LIMIT $3
	`, docFilter)

	rows, err := p.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, core.NewError(core.KindStoreUnavailable, "search query failed", err)
	}
	defer rows.Close()

	var out []core.SearchResult
	for rows.Next() {
		seg := &core.Segment{}
		var segType string
		var embeddingStr sql.NullString
		var similarity float64
		if err := rows.Scan(&seg.ID, &seg.DocID, &seg.Index, &seg.ByteStart, &seg.ByteEnd, &segType,
			&seg.HeadingLevel, &seg.SectionTitle, &seg.Text, &seg.ContentHash, &embeddingStr, &seg.Salience, &similarity); err != nil {
			return nil, core.NewError(core.KindStoreUnavailable, "scan search result failed", err)
		}
		seg.Type = core.SegmentType(segType)
		if embeddingStr.Valid {
			seg.Embedding = parseVector(embeddingStr.String)
		}
		out = append(out, core.SearchResult{Segment: seg, QuerySimilarity: similarity})
	}
	return out, rows.Err()
}

// GetByHash looks up segments by content hash in one batch query and
// returns them keyed by hash.
func (p *PgVectorStore) GetByHash(ctx context.Context, collection string, hashes []string) (map[string]*core.Segment, error) {
	if len(hashes) == 0 {
		return map[string]*core.Segment{}, nil
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, doc_id, idx, byte_start, byte_end, seg_type, heading_level, section_title,
		       seg_text, content_hash, embedding, salience
		FROM segments
		WHERE collection = $1 AND content_hash = ANY($2::text[])
	`, collection, pq.Array(hashes))
	if err != nil {
		return nil, core.NewError(core.KindStoreUnavailable, "get_by_hash query failed", err)
	}
	defer rows.Close()

	out := make(map[string]*core.Segment)
	for rows.Next() {
		seg := &core.Segment{}
		var segType string
		var embeddingStr sql.NullString
		if err := rows.Scan(&seg.ID, &seg.DocID, &seg.Index, &seg.ByteStart, &seg.ByteEnd, &segType,
			&seg.HeadingLevel, &seg.SectionTitle, &seg.Text, &seg.ContentHash, &embeddingStr, &seg.Salience); err != nil {
			return nil, core.NewError(core.KindStoreUnavailable, "scan by-hash result failed", err)
		}
		seg.Type = core.SegmentType(segType)
		if embeddingStr.Valid {
			seg.Embedding = parseVector(embeddingStr.String)
		}
		out[seg.ContentHash] = seg
	}
	return out, rows.Err()
}

// RemoveStale deletes segments for docID whose content hash is not in
// keepHashes, implementing spec.md §4.5's incremental re-extraction
// cleanup (segments whose source text changed or disappeared).
func (p *PgVectorStore) RemoveStale(ctx context.Context, collection, docID string, keepHashes map[string]bool) error {
	keep := make([]string, 0, len(keepHashes))
	for h := range keepHashes {
		keep = append(keep, h)
	}
	_, err := p.db.ExecContext(ctx, `
		DELETE FROM segments
		WHERE collection = $1 AND doc_id = $2 AND NOT (content_hash = ANY($3::text[]))
	`, collection, docID, pq.Array(keep))
	if err != nil {
		return core.NewError(core.KindStoreUnavailable, "remove_stale failed", err)
	}
	return nil
}

// DeleteDocument drops all segments for docID. Bulk deletes against an
// HNSW-indexed table can corrupt the index's graph structure, so per
// spec.md §4.5's delete_document/delete_collection contract this drops
// the index first and recreates it once the delete has committed.
func (p *PgVectorStore) DeleteDocument(ctx context.Context, collection, docID string) error {
	if err := p.dropHNSWIndex(ctx); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx, `DELETE FROM segments WHERE collection = $1 AND doc_id = $2`, collection, docID)
	if err != nil {
		return core.NewError(core.KindStoreUnavailable, "delete_document failed", err)
	}
	return p.createHNSWIndex(ctx)
}

// DeleteCollection drops every segment in a collection, with the same
// drop/recreate-index dance as DeleteDocument.
func (p *PgVectorStore) DeleteCollection(ctx context.Context, collection string) error {
	if err := p.dropHNSWIndex(ctx); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx, `DELETE FROM segments WHERE collection = $1`, collection)
	if err != nil {
		return core.NewError(core.KindStoreUnavailable, "delete_collection failed", err)
	}
	return p.createHNSWIndex(ctx)
}

// dropHNSWIndex removes the HNSW index ahead of a bulk delete.
func (p *PgVectorStore) dropHNSWIndex(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `DROP INDEX IF EXISTS idx_segments_embedding_hnsw`); err != nil {
		return core.NewError(core.KindStoreUnavailable, "failed to drop hnsw index", err)
	}
	return nil
}

// createHNSWIndex recreates the HNSW index after a bulk delete, matching
// the index definition in Initialize.
func (p *PgVectorStore) createHNSWIndex(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_segments_embedding_hnsw
		ON segments
		USING hnsw (embedding vector_cosine_ops)
		WITH (m = 16, ef_construction = 64)
	`)
	if err != nil {
		return core.NewError(core.KindStoreUnavailable, "failed to recreate hnsw index", err)
	}
	return nil
}

// GetCachedSummary looks up a synthesis-key-addressed cached summary
// (spec.md §4.6's two-level cache).
func (p *PgVectorStore) GetCachedSummary(ctx context.Context, key string) (*core.DocumentSummary, bool, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM summary_cache WHERE cache_key = $1`, key).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, core.NewError(core.KindStoreUnavailable, "get_cached_summary failed", err)
	}
	var summary core.DocumentSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, false, core.NewError(core.KindStoreCorruption, "corrupt cached summary payload", err)
	}
	return &summary, true, nil
}

// CacheSummary stores a DocumentSummary under its synthesis key.
func (p *PgVectorStore) CacheSummary(ctx context.Context, key string, summary *core.DocumentSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return core.NewError(core.KindInternal, "failed to marshal summary", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO summary_cache (cache_key, payload) VALUES ($1, $2)
		ON CONFLICT (cache_key) DO UPDATE SET payload = EXCLUDED.payload, created_at = NOW()
	`, key, payload)
	if err != nil {
		return core.NewError(core.KindStoreUnavailable, "cache_summary failed", err)
	}
	return nil
}

// Vacuum reclaims dead tuples; pgvector/HNSW indexes benefit from a
// regular VACUUM ANALYZE after heavy churn on top of the drop/recreate
// dance DeleteDocument/DeleteCollection already do around bulk deletes.
func (p *PgVectorStore) Vacuum(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `VACUUM ANALYZE segments`); err != nil {
		return core.NewError(core.KindStoreUnavailable, "vacuum failed", err)
	}
	return nil
}

// Stats reports segment/document counts and the configured dimension.
func (p *PgVectorStore) Stats(ctx context.Context) (core.Stats, error) {
	var total, docs int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM segments`).Scan(&total); err != nil {
		return core.Stats{}, core.NewError(core.KindStoreUnavailable, "stats count failed", err)
	}
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT doc_id) FROM segments`).Scan(&docs); err != nil {
		return core.Stats{}, core.NewError(core.KindStoreUnavailable, "stats doc count failed", err)
	}
	return core.Stats{Backend: "pgvector", TotalSegments: total, TotalDocuments: docs, EmbeddingDims: p.dim}, nil
}

// Close closes the underlying *sql.DB.
func (p *PgVectorStore) Close() error { return p.db.Close() }

// formatVector renders a []float32 as pgvector's literal syntax, e.g.
// "[0.1,0.2,0.3]", matching the teacher's formatVector helper.
func formatVector(v []float32) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%f", x)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// parseVector parses pgvector's textual output format back into a
// []float32.
func parseVector(s string) []float32 {
	s = strings.Trim(s, "[]")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]float32, 0, len(parts))
	for _, p := range parts {
		var f float64
		fmt.Sscanf(strings.TrimSpace(p), "%f", &f)
		out = append(out, float32(f))
	}
	return out
}

var _ core.VectorStore = (*PgVectorStore)(nil)
