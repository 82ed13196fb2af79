package journal

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/reflecta/backend/internal/logging"
)

// Repository provides read and write-back access to journal entries.
type Repository struct {
	db *sql.DB

	// Prepared statement cache: statements are prepared on first use and
	// reused.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from cache.
func (r *Repository) PrepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another goroutine already prepared this, close our duplicate
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}

	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

const entryColumns = `object_id, title, description, creation_time, timestamp,
	activity, tags, comments, mime_type, file_path`

// scanEntry reads one row into an Entry, folding NULLs into absent keys.
func scanEntry(rows interface{ Scan(...interface{}) error }) (Entry, error) {
	var objectID string
	var title, description, creationTime, timestamp sql.NullString
	var activity, tags, comments, mimeType, filePath sql.NullString

	err := rows.Scan(&objectID, &title, &description, &creationTime,
		&timestamp, &activity, &tags, &comments, &mimeType, &filePath)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{ObjectID: objectID, Metadata: map[string]string{}}
	set := func(key string, v sql.NullString) {
		if v.Valid && v.String != "" {
			e.Metadata[key] = v.String
		}
	}
	set("title", title)
	set("description", description)
	set("creation_time", creationTime)
	set("timestamp", timestamp)
	set("activity", activity)
	set("tags", tags)
	set("comments", comments)
	set("mime_type", mimeType)
	if filePath.Valid {
		e.FilePath = filePath.String
	}
	return e, nil
}

// FindStarred returns every entry the user kept ("keep" flag set), in
// journal order.
func (r *Repository) FindStarred() ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE keep = 1 ORDER BY rowid`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			// one bad row must not abort the rest of the import
			logging.Error("failed to scan journal entry", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get retrieves a single entry by object id.
func (r *Repository) Get(objectID string) (Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE object_id = ?`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return Entry{}, err
	}
	return scanEntry(stmt.QueryRow(objectID))
}

// Insert adds an entry. Used by tests and seeding; the host normally owns
// journal writes.
func (r *Repository) Insert(e Entry, keep bool) error {
	query := `
	INSERT INTO entries (object_id, title, description, creation_time, timestamp,
		activity, tags, comments, mime_type, file_path, keep)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	get := func(key string) interface{} {
		if v, ok := e.Metadata[key]; ok {
			return v
		}
		return nil
	}
	keepFlag := 0
	if keep {
		keepFlag = 1
	}
	_, err := r.db.Exec(query, e.ObjectID, get("title"), get("description"),
		get("creation_time"), get("timestamp"), get("activity"), get("tags"),
		get("comments"), get("mime_type"), e.FilePath, keepFlag)
	return err
}

// UpdateMetadata writes back the given metadata keys for an entry. Only
// title, tags and comments are ever written by the activity.
func (r *Repository) UpdateMetadata(objectID string, meta map[string]string) error {
	for _, key := range []string{"title", "tags", "comments"} {
		v, ok := meta[key]
		if !ok {
			continue
		}
		query := fmt.Sprintf(`UPDATE entries SET %s = ? WHERE object_id = ?`, key)
		res, err := r.db.Exec(query, v, objectID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return sql.ErrNoRows
		}
	}
	return nil
}

// UpdateAsync writes back metadata without blocking the caller. The in-memory
// record stays the source of truth either way; done (if non-nil) receives the
// outcome, and failures are logged and never retried.
func (r *Repository) UpdateAsync(objectID string, meta map[string]string, done func(error)) {
	go func() {
		err := r.UpdateMetadata(objectID, meta)
		if err != nil {
			logging.Error("journal write-back failed", err,
				map[string]interface{}{"object_id": objectID})
		}
		if done != nil {
			done(err)
		}
	}()
}
