package docstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/jcorbin/autoblock/internal/blocks"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS folders (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	name      TEXT NOT NULL,
	parent_id INTEGER REFERENCES folders(id)
);
CREATE TABLE IF NOT EXISTS documents (
	id        TEXT PRIMARY KEY,
	title     TEXT NOT NULL,
	time      INTEGER NOT NULL,
	content   TEXT NOT NULL,
	folder_id INTEGER REFERENCES folders(id),
	digest    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_folder ON documents(folder_id);
`

// ErrNoFolder is returned when a referenced folder does not exist.
var ErrNoFolder = errors.New("folder does not exist")

// Folder groups documents; ParentID is nil for top level folders.
type Folder struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	ParentID  *int64   `json:"parent_id"`
	Documents []string `json:"documents"`
}

// SQLiteRepo stores documents, and the folders organizing them, in SQLite.
type SQLiteRepo struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at dsn and ensures its
// schema.
func OpenSQLite(ctx context.Context, dsn string) (_ *SQLiteRepo, rerr error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr != nil {
			_ = db.Close()
		}
	}()
	// in-memory databases exist per connection
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("migrate %v: %w", dsn, err)
	}
	return &SQLiteRepo{db: db}, nil
}

// Close closes the database.
func (sr *SQLiteRepo) Close() error { return sr.db.Close() }

// Load reads the document stored under id.
func (sr *SQLiteRepo) Load(ctx context.Context, id string) (blocks.Document, error) {
	var doc blocks.Document
	var content string
	err := sr.db.QueryRowContext(ctx, "SELECT content FROM documents WHERE id = ?", id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, fmt.Errorf("%w: %q", ErrNotExist, id)
	} else if err != nil {
		return doc, err
	}
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return doc, fmt.Errorf("decode document %q: %w", id, err)
	}
	return doc, nil
}

// Create inserts a new top level document.
func (sr *SQLiteRepo) Create(ctx context.Context, id string, doc blocks.Document) (rerr error) {
	if err := CheckID(id); err != nil {
		return err
	}
	content, sum, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	tx, err := sr.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if rerr != nil {
			_ = tx.Rollback()
		}
	}()
	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE id = ?", id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %q", ErrExists, id)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO documents (id, title, time, content, digest) VALUES (?, ?, ?, ?, ?)",
		id, titleOf(doc), doc.Time, content, sum,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Save replaces an existing document; unchanged content is not rewritten.
func (sr *SQLiteRepo) Save(ctx context.Context, id string, doc blocks.Document) (rerr error) {
	content, sum, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	tx, err := sr.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if rerr != nil {
			_ = tx.Rollback()
		}
	}()
	var prior []byte
	err = tx.QueryRowContext(ctx, "SELECT digest FROM documents WHERE id = ?", id).Scan(&prior)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %q", ErrNotExist, id)
	} else if err != nil {
		return err
	}
	if bytes.Equal(prior, sum) {
		return tx.Commit()
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET title = ?, time = ?, content = ?, digest = ? WHERE id = ?",
		titleOf(doc), doc.Time, content, sum, id,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// List describes every stored document, most recently changed first.
func (sr *SQLiteRepo) List(ctx context.Context) (_ []Entry, rerr error) {
	rows, err := sr.db.QueryContext(ctx, "SELECT id, title, time FROM documents ORDER BY time DESC, id")
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); rerr == nil {
			rerr = cerr
		}
	}()
	var entries []Entry
	for rows.Next() {
		var ent Entry
		if err := rows.Scan(&ent.ID, &ent.Title, &ent.Time); err != nil {
			return nil, err
		}
		entries = append(entries, ent)
	}
	return entries, rows.Err()
}

// CreateFolder adds a folder, under parent if non-nil, returning its id.
func (sr *SQLiteRepo) CreateFolder(ctx context.Context, name string, parent *int64) (int64, error) {
	if parent != nil {
		if ok, err := sr.folderExists(ctx, *parent); err != nil {
			return 0, err
		} else if !ok {
			return 0, fmt.Errorf("%w: %v", ErrNoFolder, *parent)
		}
	}
	res, err := sr.db.ExecContext(ctx, "INSERT INTO folders (name, parent_id) VALUES (?, ?)", name, parent)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// MoveDocument files a document under folder, or back to the top level if
// folder is nil.
func (sr *SQLiteRepo) MoveDocument(ctx context.Context, id string, folder *int64) error {
	if folder != nil {
		if ok, err := sr.folderExists(ctx, *folder); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("%w: %v", ErrNoFolder, *folder)
		}
	}
	res, err := sr.db.ExecContext(ctx, "UPDATE documents SET folder_id = ? WHERE id = ?", folder, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotExist, id)
	}
	return nil
}

// Folders lists every folder along with the ids of the documents in it.
func (sr *SQLiteRepo) Folders(ctx context.Context) (_ []Folder, rerr error) {
	rows, err := sr.db.QueryContext(ctx, `
		SELECT f.id, f.name, f.parent_id, d.id
		FROM folders f LEFT JOIN documents d ON d.folder_id = f.id
		ORDER BY f.id, d.id`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); rerr == nil {
			rerr = cerr
		}
	}()
	var folders []Folder
	for rows.Next() {
		var (
			id     int64
			name   string
			parent sql.NullInt64
			doc    sql.NullString
		)
		if err := rows.Scan(&id, &name, &parent, &doc); err != nil {
			return nil, err
		}
		if n := len(folders); n == 0 || folders[n-1].ID != id {
			f := Folder{ID: id, Name: name, Documents: []string{}}
			if parent.Valid {
				p := parent.Int64
				f.ParentID = &p
			}
			folders = append(folders, f)
		}
		if doc.Valid {
			f := &folders[len(folders)-1]
			f.Documents = append(f.Documents, doc.String)
		}
	}
	return folders, rows.Err()
}

func (sr *SQLiteRepo) folderExists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := sr.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM folders WHERE id = ?", id).Scan(&n)
	return n > 0, err
}

func encodeDocument(doc blocks.Document) (string, []byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", nil, err
	}
	sum, err := doc.Digest()
	if err != nil {
		return "", nil, err
	}
	return string(b), sum[:], nil
}
