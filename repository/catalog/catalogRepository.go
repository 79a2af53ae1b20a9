// repository/catalog/repo.go
package catalogrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/nathandem/library/model"
)

type Repo interface {
	CreateTitle(ctx context.Context, t *model.Title) (int64, error)
	TitleByID(ctx context.Context, id int64) (*model.Title, error)
	TitleName(ctx context.Context, id int64) (string, error)
	TitleExists(ctx context.Context, tx *sql.Tx, id int64) (bool, error)
	ListTitles(ctx context.Context) ([]model.Title, error)

	AddCopies(ctx context.Context, titleID int64, n int, joinedOn time.Time) (int64, error)
	ListCopies(ctx context.Context, titleID int64) ([]model.Copy, error)
	CopyForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Copy, error)
	UpdateCopy(ctx context.Context, tx *sql.Tx, c *model.Copy) error
	LockAvailableCopy(ctx context.Context, tx *sql.Tx, titleID int64) (int64, error)
	TitleNameByCopy(ctx context.Context, copyID int64) (string, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) CreateTitle(ctx context.Context, t *model.Title) (int64, error) {
	const q = `
		INSERT INTO titles (name, author, genre, publication_year)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, t.Name, t.Author, t.Genre, t.PublicationYear).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) TitleByID(ctx context.Context, id int64) (*model.Title, error) {
	const q = `
		SELECT t.id, t.name, t.author, t.genre, t.publication_year,
			COALESCE(COUNT(c.*) FILTER (WHERE c.status = 'AVAILABLE'), 0)::BIGINT AS available_copies
		FROM titles t
		LEFT JOIN copies c ON c.title_id = t.id
		WHERE t.id = $1
		GROUP BY t.id`
	var t model.Title
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&t.ID, &t.Name, &t.Author, &t.Genre, &t.PublicationYear, &t.AvailableCopies)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repo) TitleName(ctx context.Context, id int64) (string, error) {
	const q = `SELECT name FROM titles WHERE id = $1`
	var name string
	err := r.db.QueryRowContext(ctx, q, id).Scan(&name)
	return name, err
}

func (r *repo) TitleExists(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM titles WHERE id = $1)`
	var ok bool
	err := tx.QueryRowContext(ctx, q, id).Scan(&ok)
	return ok, err
}

func (r *repo) ListTitles(ctx context.Context) ([]model.Title, error) {
	const q = `
		SELECT t.id, t.name, t.author, t.genre, t.publication_year,
			COALESCE(COUNT(c.*) FILTER (WHERE c.status = 'AVAILABLE'), 0)::BIGINT AS available_copies
		FROM titles t
		LEFT JOIN copies c ON c.title_id = t.id
		GROUP BY t.id
		ORDER BY t.name, t.author`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Title
	for rows.Next() {
		var t model.Title
		if err := rows.Scan(&t.ID, &t.Name, &t.Author, &t.Genre, &t.PublicationYear, &t.AvailableCopies); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddCopies inserts n fresh copies in MAINTENANCE; a librarian activates them
// once checked in.
func (r *repo) AddCopies(ctx context.Context, titleID int64, n int, joinedOn time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	const ins = `INSERT INTO copies (title_id, status, joined_on) VALUES ($1, 'MAINTENANCE', $2)`
	for i := 0; i < n; i++ {
		if _, err = tx.ExecContext(ctx, ins, titleID, joinedOn); err != nil {
			return 0, err
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return int64(n), nil
}

func (r *repo) ListCopies(ctx context.Context, titleID int64) ([]model.Copy, error) {
	const q = `
		SELECT id, title_id, status, joined_on, left_on, left_cause
		FROM copies
		WHERE title_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, titleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Copy
	for rows.Next() {
		var c model.Copy
		if err := rows.Scan(&c.ID, &c.TitleID, &c.Status, &c.JoinedOn, &c.LeftOn, &c.LeftCause); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repo) CopyForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Copy, error) {
	const q = `
		SELECT id, title_id, status, joined_on, left_on, left_cause
		FROM copies
		WHERE id = $1
		FOR UPDATE`
	var c model.Copy
	err := tx.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.TitleID, &c.Status, &c.JoinedOn, &c.LeftOn, &c.LeftCause)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCopy persists status and retirement fields. The retirement invariant
// is checked on every write, not only on explicit retire calls.
func (r *repo) UpdateCopy(ctx context.Context, tx *sql.Tx, c *model.Copy) error {
	if err := c.Validate(); err != nil {
		return err
	}
	const q = `
		UPDATE copies
		SET status = $2,
			left_on = $3,
			left_cause = $4
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, c.ID, c.Status, c.LeftOn, c.LeftCause)
	return err
}

// LockAvailableCopy claims one AVAILABLE copy of the title, lowest id first.
// SKIP LOCKED prevents two transactions from being granted the same copy.
func (r *repo) LockAvailableCopy(ctx context.Context, tx *sql.Tx, titleID int64) (int64, error) {
	const q = `
		SELECT id
		FROM copies
		WHERE title_id = $1
		AND status = 'AVAILABLE'
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT 1`
	var id int64
	err := tx.QueryRowContext(ctx, q, titleID).Scan(&id)
	return id, err
}

func (r *repo) TitleNameByCopy(ctx context.Context, copyID int64) (string, error) {
	const q = `
		SELECT t.name
		FROM copies c
		JOIN titles t ON t.id = c.title_id
		WHERE c.id = $1`
	var name string
	err := r.db.QueryRowContext(ctx, q, copyID).Scan(&name)
	return name, err
}
