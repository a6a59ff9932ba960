package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/foxseedlab/meetbot/internal/llm"
	"github.com/foxseedlab/meetbot/internal/memory"

	_ "modernc.org/sqlite"
)

const (
	defaultSearchLimit = 5
	snippetChars       = 200
	askContextHits     = 5
	dateLayout         = time.RFC3339
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {}, "did": {}, "do": {},
	"for": {}, "from": {}, "how": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {},
	"the": {}, "to": {}, "was": {}, "we": {}, "what": {}, "when": {}, "where": {}, "who": {}, "with": {},
}

const askPrompt = `Answer the question using only the meeting excerpts below.
If the excerpts do not contain the answer, say so briefly.

Excerpts:
%s

Question: %s
Answer:`

// SQLiteIndex keeps meeting documents in a local SQLite file with an FTS5
// index over their content. Search ranks hits by bm25.
type SQLiteIndex struct {
	db  *sql.DB
	llm llm.Generator
}

func NewSQLiteIndex(dbPath string, generator llm.Generator) (*SQLiteIndex, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; sqlite serializes anyway.
	db.SetMaxOpenConns(1)
	idx := &SQLiteIndex{db: db, llm: generator}
	if err := idx.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (s *SQLiteIndex) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS memory_documents (
  id TEXT PRIMARY KEY,
  meeting_id INTEGER NOT NULL,
  kind TEXT NOT NULL,
  content TEXT NOT NULL,
  platform TEXT NOT NULL,
  meeting_date TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memory_documents_meeting_id ON memory_documents (meeting_id);

CREATE VIRTUAL TABLE IF NOT EXISTS memory_documents_fts USING fts5(
  content,
  content='memory_documents',
  content_rowid='rowid',
  tokenize='unicode61'
);

CREATE TRIGGER IF NOT EXISTS memory_documents_ai AFTER INSERT ON memory_documents BEGIN
  INSERT INTO memory_documents_fts(rowid, content) VALUES (new.rowid, new.content);
END;
CREATE TRIGGER IF NOT EXISTS memory_documents_ad AFTER DELETE ON memory_documents BEGIN
  INSERT INTO memory_documents_fts(memory_documents_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
END;
CREATE TRIGGER IF NOT EXISTS memory_documents_au AFTER UPDATE ON memory_documents BEGIN
  INSERT INTO memory_documents_fts(memory_documents_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
  INSERT INTO memory_documents_fts(rowid, content) VALUES (new.rowid, new.content);
END;
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create memory_documents table: %w", err)
	}
	// Picks up documents written before the full-text index existed.
	if _, err := s.db.ExecContext(ctx, `INSERT INTO memory_documents_fts(memory_documents_fts) VALUES ('rebuild')`); err != nil {
		return fmt.Errorf("rebuild memory index: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func (s *SQLiteIndex) StoreMeeting(ctx context.Context, content memory.MeetingContent) (int, error) {
	docs := memory.Documents(content)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin memory tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_documents WHERE meeting_id = ?`, content.MeetingID); err != nil {
		return 0, fmt.Errorf("clear meeting documents: %w", err)
	}
	const stmt = `
INSERT INTO memory_documents (id, meeting_id, kind, content, platform, meeting_date)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  meeting_id=excluded.meeting_id,
  kind=excluded.kind,
  content=excluded.content,
  platform=excluded.platform,
  meeting_date=excluded.meeting_date;
`
	for _, d := range docs {
		if _, err := tx.ExecContext(ctx, stmt, d.ID, d.MeetingID, d.Kind, d.Content, d.Platform, d.MeetingDate.UTC().Format(dateLayout)); err != nil {
			return 0, fmt.Errorf("insert memory document %s: %w", d.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit memory tx: %w", err)
	}
	slog.Info("meeting stored in memory", "meeting_id", content.MeetingID, "documents", len(docs))
	return len(docs), nil
}

func (s *SQLiteIndex) Search(ctx context.Context, query string, limit int) ([]memory.SearchHit, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	terms := queryTerms(query)
	if len(terms) == 0 {
		return []memory.SearchHit{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT d.id, d.meeting_id, d.kind, d.content, d.platform, d.meeting_date, bm25(memory_documents_fts) AS bm25_rank
FROM memory_documents_fts
JOIN memory_documents d ON d.rowid = memory_documents_fts.rowid
WHERE memory_documents_fts MATCH ?
ORDER BY bm25_rank, d.meeting_date DESC, d.id
LIMIT ?`, matchExpr(terms), limit)
	if err != nil {
		return nil, fmt.Errorf("search memory: %w", err)
	}
	defer rows.Close()

	hits := []memory.SearchHit{}
	for rows.Next() {
		var (
			hit     memory.SearchHit
			content string
			date    string
			rank    float64
		)
		if err := rows.Scan(&hit.DocumentID, &hit.MeetingID, &hit.Kind, &content, &hit.Platform, &date, &rank); err != nil {
			return nil, fmt.Errorf("scan memory document: %w", err)
		}
		hit.MeetingDate, _ = time.Parse(dateLayout, date)
		hit.Score = score(rank)
		hit.Snippet = memory.Snippet(content, snippetChars)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory documents: %w", err)
	}
	return hits, nil
}

func (s *SQLiteIndex) Ask(ctx context.Context, question string) (memory.Answer, error) {
	answer := memory.Answer{Question: question, Sources: []memory.SearchHit{}}
	hits, err := s.Search(ctx, question, askContextHits)
	if err != nil {
		return memory.Answer{}, err
	}
	if len(hits) == 0 {
		answer.Answer = memory.NoRelevantAnswer
		return answer, nil
	}
	answer.Sources = hits

	var excerpts strings.Builder
	for i, h := range hits {
		fmt.Fprintf(&excerpts, "[%d] Meeting %d (%s, %s): %s\n", i+1, h.MeetingID, h.Platform, h.MeetingDate.Format("2006-01-02"), h.Snippet)
	}
	out, err := s.llm.Generate(ctx, fmt.Sprintf(askPrompt, excerpts.String(), question))
	if err != nil {
		if !errors.Is(err, llm.ErrUnavailable) {
			slog.Warn("memory answer generation failed; returning excerpts", "error", err)
		}
		answer.Answer = "Relevant excerpts from meeting history:\n" + excerpts.String()
		return answer, nil
	}
	answer.Answer = strings.TrimSpace(out)
	return answer, nil
}

func (s *SQLiteIndex) DeleteMeeting(ctx context.Context, meetingID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memory_documents WHERE meeting_id = ?`, meetingID); err != nil {
		return fmt.Errorf("delete meeting memory: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) History(ctx context.Context, limit int) ([]memory.MeetingEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT meeting_id, MAX(platform), MAX(meeting_date), COUNT(*)
FROM memory_documents
GROUP BY meeting_id
ORDER BY MAX(meeting_date) DESC, meeting_id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list memory history: %w", err)
	}
	defer rows.Close()
	entries := []memory.MeetingEntry{}
	for rows.Next() {
		var (
			e    memory.MeetingEntry
			date string
		)
		if err := rows.Scan(&e.MeetingID, &e.Platform, &date, &e.Documents); err != nil {
			return nil, fmt.Errorf("scan memory history: %w", err)
		}
		e.MeetingDate, _ = time.Parse(dateLayout, date)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func queryTerms(query string) []string {
	seen := map[string]struct{}{}
	var terms []string
	for _, w := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r == '\'' || r == '-' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') || r > 127)
	}) {
		if len(w) < 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
	}
	return terms
}

// matchExpr ORs the terms as quoted FTS5 strings so query punctuation is
// never parsed as syntax.
func matchExpr(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}

// score maps a bm25 rank to 1/(1+distance) with distance = 1/relevance.
// bm25 is negative, more so for better matches.
func score(rank float64) float64 {
	relevance := -rank
	if relevance <= 0 {
		return 0
	}
	return relevance / (1 + relevance)
}

// Shutdown lets the injector close the database on exit.
func (s *SQLiteIndex) Shutdown() error {
	return s.Close()
}
