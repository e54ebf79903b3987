// Package sqlite implements the document store on SQLite. Documents are
// stored as JSON and queried with json_extract.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dagucloud/watcher/internal/cmn/logger"
	"github.com/dagucloud/watcher/internal/cmn/logger/tag"
	"github.com/dagucloud/watcher/internal/core"
	"github.com/google/uuid"

	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed schema.sql
var schemaSQL string

// DefaultSize is the number of hits returned when a query sets no size.
const DefaultSize = 10

var (
	ErrIndexRequired    = errors.New("index name is required")
	ErrUnsupportedQuery = errors.New("unsupported query")
	ErrScriptResult     = errors.New("script query must return a boolean")
	ErrNoScriptService  = errors.New("script queries are not available")
)

var _ core.Store = (*Store)(nil)

// Store is a SQLite backed document store.
type Store struct {
	db      *sql.DB
	scripts core.ScriptService
}

// Open creates or opens the database at dsn. Script queries are compiled with
// scripts, which may be nil.
func Open(ctx context.Context, dsn string, scripts core.ScriptService) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{"PRAGMA busy_timeout = 5000", schemaSQL} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}
	return &Store{db: db, scripts: scripts}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Index implements core.Store. Writing an existing id replaces the document
// and bumps its version.
func (s *Store) Index(ctx context.Context, req core.IndexRequest) (core.IndexResponse, error) {
	if req.Index == "" {
		return core.IndexResponse{}, ErrIndexRequired
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	doc := req.Document
	if doc == nil {
		doc = map[string]any{}
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return core.IndexResponse{}, fmt.Errorf("failed to encode document: %w", err)
	}

	var version int64
	err = s.db.QueryRowContext(ctx, `
INSERT INTO documents (idx, id, body) VALUES (?, ?, ?)
ON CONFLICT (idx, id) DO UPDATE SET body = excluded.body, version = version + 1
RETURNING version`, req.Index, id, string(body)).Scan(&version)
	if err != nil {
		return core.IndexResponse{}, fmt.Errorf("failed to index document: %w", err)
	}

	logger.Debug(ctx, "Indexed document", tag.Index(req.Index), tag.String("id", id))
	return core.IndexResponse{Index: req.Index, ID: id, Created: version == 1, Version: version}, nil
}

// Search implements core.Store. The body understands "query" with match_all,
// term, script and bool.must clauses, and "size". The response has the
// {hits: {total, hits: [{_index, _id, _source}]}} shape.
func (s *Store) Search(ctx context.Context, req core.SearchRequest) (map[string]any, error) {
	q, err := s.plan(req)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, q.statement(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	total := 0
	hits := []any{}
	for rows.Next() {
		var index, id, body string
		if err := rows.Scan(&index, &id, &body); err != nil {
			return nil, fmt.Errorf("failed to read document: %w", err)
		}
		source, err := decode(body)
		if err != nil {
			return nil, err
		}
		ok, err := q.match(ctx, source)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		total++
		if len(hits) < q.size {
			hits = append(hits, map[string]any{"_index": index, "_id": id, "_source": source})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	return map[string]any{"hits": map[string]any{"total": total, "hits": hits}}, nil
}

// query is a search split into the filters SQLite evaluates and the script
// filters evaluated on the decoded documents.
type query struct {
	where   []string
	args    []any
	scripts []core.CompiledScript
	size    int
}

func (q *query) statement() string {
	stmt := "SELECT idx, id, body FROM documents"
	if len(q.where) > 0 {
		stmt += " WHERE " + strings.Join(q.where, " AND ")
	}
	return stmt + " ORDER BY rowid"
}

func (q *query) match(ctx context.Context, source map[string]any) (bool, error) {
	for _, script := range q.scripts {
		v, err := script.Run(ctx, map[string]any{"doc": source})
		if err != nil {
			return false, fmt.Errorf("script query failed: %w", err)
		}
		ok, isBool := v.(bool)
		if !isBool {
			return false, fmt.Errorf("%w, got %T", ErrScriptResult, v)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (s *Store) plan(req core.SearchRequest) (*query, error) {
	q := &query{size: DefaultSize}
	if len(req.Indices) > 0 {
		q.where = append(q.where, "idx IN ("+strings.TrimSuffix(strings.Repeat("?, ", len(req.Indices)), ", ")+")")
		for _, index := range req.Indices {
			q.args = append(q.args, index)
		}
	}
	for key, v := range req.Body {
		switch key {
		case "size":
			n, ok := v.(int)
			if !ok || n < 0 {
				return nil, fmt.Errorf("%w: size must be a non-negative integer", ErrUnsupportedQuery)
			}
			q.size = n
		case "query":
			if err := s.clause(q, v); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedQuery, key)
		}
	}
	return q, nil
}

func (s *Store) clause(q *query, v any) error {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return fmt.Errorf("%w: a query clause is an object with one key", ErrUnsupportedQuery)
	}
	for kind, body := range m {
		switch kind {
		case "match_all":
			return nil

		case "term":
			terms, ok := body.(map[string]any)
			if !ok || len(terms) == 0 {
				return fmt.Errorf("%w: term must map fields to values", ErrUnsupportedQuery)
			}
			for field, value := range terms {
				if inner, ok := value.(map[string]any); ok {
					value = inner["value"]
				}
				if b, ok := value.(bool); ok {
					value = 0
					if b {
						value = 1
					}
				}
				q.where = append(q.where, "json_extract(body, ?) = ?")
				q.args = append(q.args, "$."+field, value)
			}
			return nil

		case "script":
			if s.scripts == nil {
				return ErrNoScriptService
			}
			clause, _ := body.(map[string]any)
			script, err := core.ParseScript(clause["script"], "")
			if err != nil {
				return fmt.Errorf("%w: script: %v", ErrUnsupportedQuery, err)
			}
			compiled, err := s.scripts.Compile(script)
			if err != nil {
				return err
			}
			q.scripts = append(q.scripts, compiled)
			return nil

		case "bool":
			clauses, _ := body.(map[string]any)
			must, ok := clauses["must"].([]any)
			if !ok || len(clauses) != 1 {
				return fmt.Errorf("%w: bool supports must only", ErrUnsupportedQuery)
			}
			for _, c := range must {
				if err := s.clause(q, c); err != nil {
					return err
				}
			}
			return nil

		default:
			return fmt.Errorf("%w: %s", ErrUnsupportedQuery, kind)
		}
	}
	return nil
}

// decode reads a stored document, keeping integral numbers as ints.
func decode(body string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	var v map[string]any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return numbers(v).(map[string]any), nil
}

func numbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i)
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, item := range val {
			val[k] = numbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = numbers(item)
		}
		return val
	default:
		return v
	}
}
