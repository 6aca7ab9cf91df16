// Package sqlite implements the vector store on an embedded SQLite database
// using the pure-Go modernc driver. The default DSN is ":memory:", keeping
// the generation scoped to the process like the in-memory backend while
// exercising the same SQL path a file-backed deployment would use.
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"math"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"docrag/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	pos        INTEGER PRIMARY KEY AUTOINCREMENT,
	chunk_id   TEXT NOT NULL,
	doc_id     TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	content    TEXT NOT NULL,
	embedding  BLOB NOT NULL
)`

// Storage is a SQLite-backed vector store. Embeddings are stored as
// little-endian float64 BLOBs; similarity is scalar cosine computed after
// decode, with rowid order as the deterministic tie-break.
type Storage struct {
	db        *sql.DB
	dimension int
}

// Open creates a store on the given DSN. Pass ":memory:" for a
// session-scoped database or a file path for a durable one.
func Open(dsn string) (*Storage, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "cannot open sqlite database", goerr.V("dsn", dsn))
	}
	// a second connection would not see an in-memory database
	db.SetMaxOpenConns(1)
	return &Storage{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Storage) Close() error { return s.db.Close() }

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return goerr.New("invalid dimension", goerr.V("dimension", dimension))
	}
	if _, err := s.db.Exec(schema); err != nil {
		return goerr.Wrap(err, "cannot create chunks table")
	}
	if _, err := s.db.Exec(`DELETE FROM chunks`); err != nil {
		return goerr.Wrap(err, "cannot reset chunks table")
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return goerr.New("chunks and vectors length mismatch",
			goerr.V("chunks", len(chunks)), goerr.V("vectors", len(vectors)))
	}
	tx, err := s.db.Begin()
	if err != nil {
		return goerr.Wrap(err, "cannot begin insert transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO chunks(chunk_id, doc_id, seq, content, embedding) VALUES(?, ?, ?, ?, ?)`)
	if err != nil {
		return goerr.Wrap(err, "cannot prepare insert statement")
	}
	defer stmt.Close()

	for i, ch := range chunks {
		if len(vectors[i]) != s.dimension {
			return goerr.New("vector dimension mismatch",
				goerr.V("want", s.dimension), goerr.V("got", len(vectors[i])), goerr.V("chunk_id", ch.ID))
		}
		if _, err := stmt.Exec(ch.ID, ch.DocumentID, ch.Index, ch.Text, encodeEmbedding(vectors[i])); err != nil {
			return goerr.Wrap(err, "cannot insert chunk", goerr.V("chunk_id", ch.ID))
		}
	}
	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "cannot commit insert transaction")
	}
	return nil
}

func (s *Storage) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, goerr.New("topK must be positive", goerr.V("top_k", topK))
	}
	rows, err := s.db.Query(`SELECT chunk_id, doc_id, seq, content, embedding FROM chunks ORDER BY pos`)
	if err != nil {
		return nil, goerr.Wrap(err, "cannot scan chunks table")
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var ch domain.Chunk
		var blob []byte
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Index, &ch.Text, &blob); err != nil {
			return nil, goerr.Wrap(err, "cannot scan chunk row")
		}
		emb, err := decodeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		results = append(results, domain.SearchResult{Chunk: ch, Score: cosine(emb, vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "chunk scan failed")
	}

	sort.SliceStable(results, func(a, b int) bool { return results[a].Score > results[b].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

func (s *Storage) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, goerr.Wrap(err, "cannot count chunks")
	}
	return n, nil
}

func (s *Storage) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM chunks`); err != nil {
		return goerr.Wrap(err, "cannot clear chunks table")
	}
	return nil
}

// encodeEmbedding packs a vector as a little-endian sequence of IEEE 754
// float64 values; the length is derived from the BLOB size on decode.
func encodeEmbedding(vec []float64) []byte {
	b := make([]byte, len(vec)*8)
	for i, v := range vec {
		binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return b
}

func decodeEmbedding(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, goerr.New("invalid embedding blob length", goerr.V("len", len(b)))
	}
	vec := make([]float64, len(b)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return vec, nil
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
