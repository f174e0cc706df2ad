package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"

	"memberdesk/internal/adapters/storage"
	domain "memberdesk/internal/domain/document"
)

// serverNow renders the database clock in domain.TimeLayout.
const serverNow = "strftime('%Y-%m-%dT%H:%M:%fZ', 'now')"

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var sqlOps = map[domain.Op]string{
	domain.OpEqual:        "=",
	domain.OpNotEqual:     "!=",
	domain.OpLess:         "<",
	domain.OpLessEqual:    "<=",
	domain.OpGreater:      ">",
	domain.OpGreaterEqual: ">=",
}

// SQLiteStore implements Store over a single JSON document table.
type SQLiteStore struct {
	db    storage.SQLDB
	newID func() string
}

// NewSQLiteStore creates a new document store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{
		db:    db,
		newID: func() string { return uuid.New().String() },
	}
}

// Get fetches one document.
// PRE: collection and id are non-empty
// POST: Returns the document or domain.ErrNotFound
func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (domain.Document, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM document WHERE collection = ? AND id = ?", collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{ID: id, Data: json.RawMessage(data)}, nil
}

// Add inserts a document under a generated id.
// PRE: fields keys are plain identifiers
// POST: Document persisted; ServerTimestamp values resolved by the store clock
func (s *SQLiteStore) Add(ctx context.Context, collection string, fields domain.Fields) (string, error) {
	id := s.newID()
	if err := s.write(ctx, "INSERT INTO document (collection, id, data) VALUES (?, ?, %s)", collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// Set creates or replaces the document with the given id.
// PRE: collection and id are non-empty
// POST: Document body equals fields
func (s *SQLiteStore) Set(ctx context.Context, collection, id string, fields domain.Fields) error {
	return s.write(ctx,
		"INSERT INTO document (collection, id, data) VALUES (?, ?, %s) ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data",
		collection, id, fields)
}

func (s *SQLiteStore) write(ctx context.Context, stmt, collection, id string, fields domain.Fields) error {
	if collection == "" {
		return domain.ErrEmptyCollection
	}
	body, stamps, err := encodeFields(fields)
	if err != nil {
		return err
	}
	expr, stampArgs := stampExpr("json(?)", stamps)
	args := append([]any{collection, id, string(body)}, stampArgs...)
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(stmt, expr), args...)
	return err
}

// Update merges fields into an existing document.
// PRE: document exists
// POST: Listed fields replaced; others untouched; domain.ErrNotFound if missing
func (s *SQLiteStore) Update(ctx context.Context, collection, id string, fields domain.Fields) error {
	body, stamps, err := encodeFields(fields)
	if err != nil {
		return err
	}
	expr, stampArgs := stampExpr("json_patch(data, json(?))", stamps)
	args := append([]any{string(body)}, stampArgs...)
	args = append(args, collection, id)

	res, err := s.db.ExecContext(ctx, "UPDATE document SET data = "+expr+" WHERE collection = ? AND id = ?", args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Query returns documents matching all filters, ordered and limited.
// PRE: q.Collection is non-empty
// POST: Returns matching documents in the requested order
func (s *SQLiteStore) Query(ctx context.Context, q domain.Query) ([]domain.Document, error) {
	where, args, err := whereClause(q)
	if err != nil {
		return nil, err
	}
	query := "SELECT id, data FROM document" + where

	if q.OrderBy != "" {
		if !fieldName.MatchString(q.OrderBy) {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidField, q.OrderBy)
		}
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		query += " ORDER BY json_extract(data, ?) " + dir + ", rowid " + dir
		args = append(args, "$."+q.OrderBy)
	}
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Document
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		results = append(results, domain.Document{ID: id, Data: json.RawMessage(data)})
	}
	return results, rows.Err()
}

// Count returns the number of documents matching all filters.
// PRE: q.Collection is non-empty
// POST: Returns count >= 0; ordering and limit are ignored
func (s *SQLiteStore) Count(ctx context.Context, q domain.Query) (int, error) {
	where, args, err := whereClause(q)
	if err != nil {
		return 0, err
	}
	var count int
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM document"+where, args...).Scan(&count)
	return count, err
}

// whereClause builds the WHERE clause and args for Query/Count.
func whereClause(q domain.Query) (string, []any, error) {
	if q.Collection == "" {
		return "", nil, domain.ErrEmptyCollection
	}
	where := " WHERE collection = ?"
	args := []any{q.Collection}

	for _, f := range q.Filters {
		op, ok := sqlOps[f.Op]
		if !ok {
			return "", nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
		if !fieldName.MatchString(f.Field) {
			return "", nil, fmt.Errorf("%w: %q", domain.ErrInvalidField, f.Field)
		}
		where += " AND json_extract(data, ?) " + op + " ?"
		args = append(args, "$."+f.Field, sqlValue(f.Value))
	}
	return where, args, nil
}

// stampExpr wraps base in one json_set per server-stamped field.
func stampExpr(base string, stamps []string) (string, []any) {
	expr := base
	args := make([]any, 0, len(stamps))
	for _, field := range stamps {
		expr = "json_set(" + expr + ", ?, " + serverNow + ")"
		args = append(args, "$."+field)
	}
	return expr, args
}

// encodeFields marshals fields to JSON, normalizing times and separating
// out fields that carry the ServerTimestamp sentinel.
func encodeFields(fields domain.Fields) ([]byte, []string, error) {
	out := make(map[string]any, len(fields))
	var stamps []string
	for k, v := range fields {
		if !fieldName.MatchString(k) {
			return nil, nil, fmt.Errorf("%w: %q", domain.ErrInvalidField, k)
		}
		if domain.IsServerTimestamp(v) {
			stamps = append(stamps, k)
			continue
		}
		out[k] = jsonValue(v)
	}
	sort.Strings(stamps)
	body, err := json.Marshal(out)
	if err != nil {
		return nil, nil, err
	}
	return body, stamps, nil
}

func jsonValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return domain.FormatTime(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return domain.FormatTime(*t)
	}
	return v
}

// sqlValue converts a filter operand to what json_extract yields for it.
func sqlValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return domain.FormatTime(t)
	case bool:
		if t {
			return 1
		}
		return 0
	case fmt.Stringer:
		return t.String()
	}
	return v
}
