package sessions

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new session row.
func (r *PGRepo) Create(ctx context.Context, sess Session) error {
	const query = `
INSERT INTO contract_sessions (
    id,
    document_text,
    analysis,
    created_at,
    updated_at,
    expires_at
) VALUES ($1, $2, $3, $4, $5, $6)`

	analysis, err := analysisParam(sess)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		sess.ID,
		sess.Document,
		analysis,
		sess.CreatedAt,
		sess.UpdatedAt,
		sess.ExpiresAt,
	)
	return err
}

// GetByID loads a session row.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Session, error) {
	const query = `
SELECT id, document_text, analysis, created_at, updated_at, expires_at
FROM contract_sessions
WHERE id = $1`

	var sess Session
	var analysis []byte
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&sess.ID,
		&sess.Document,
		&analysis,
		&sess.CreatedAt,
		&sess.UpdatedAt,
		&sess.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	record, err := decodeRecord(analysis)
	if err != nil {
		return Session{}, err
	}
	sess.Record = record
	return sess, nil
}

// Update overwrites the document, analysis and timestamps of a session.
func (r *PGRepo) Update(ctx context.Context, sess Session) error {
	const query = `
UPDATE contract_sessions
SET document_text = $2,
    analysis = $3,
    updated_at = $4,
    expires_at = $5
WHERE id = $1`

	analysis, err := analysisParam(sess)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query,
		sess.ID,
		sess.Document,
		analysis,
		sess.UpdatedAt,
		sess.ExpiresAt,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes a session row.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM contract_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteExpired removes rows whose expiry is at or before now.
func (r *PGRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM contract_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func analysisParam(sess Session) (sql.NullString, error) {
	payload, err := encodeRecord(sess.Record)
	if err != nil || payload == nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(payload), Valid: true}, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
