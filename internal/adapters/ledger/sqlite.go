// Package ledger implements the durable call ledger.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dkeye/Pairline/internal/core"
	"github.com/dkeye/Pairline/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS calls (
	id            TEXT PRIMARY KEY,
	participant_a TEXT NOT NULL,
	participant_b TEXT NOT NULL,
	status        TEXT NOT NULL,
	started_at    INTEGER NOT NULL,
	ended_at      INTEGER
);
CREATE INDEX IF NOT EXISTS calls_status ON calls(status);

-- One row per user in an active call. The primary key is the
-- double-booking guard shared by every process using this file.
CREATE TABLE IF NOT EXISTS active_participants (
	user_id TEXT PRIMARY KEY,
	call_id TEXT NOT NULL REFERENCES calls(id)
);
CREATE INDEX IF NOT EXISTS active_participants_call ON active_participants(call_id);
`

// SQLiteLedger stores call records in a SQLite database.
type SQLiteLedger struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens or creates the ledger database at path.
func OpenSQLite(path string) (*SQLiteLedger, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Writers serialise in SQLite anyway; one connection keeps :memory: coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteLedger{db: db, path: path, now: time.Now}, nil
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *SQLiteLedger) CreateActiveCall(ctx context.Context, a, b domain.UserID) (domain.CallRecord, error) {
	if a == b {
		return domain.CallRecord{}, core.ErrSelfCall
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.CallRecord{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	rec := domain.CallRecord{
		ID:           domain.NewCallID(),
		ParticipantA: a,
		ParticipantB: b,
		Status:       domain.CallActive,
		StartedAt:    l.now().UTC().Truncate(time.Millisecond),
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO calls (id, participant_a, participant_b, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		string(rec.ID), string(a), string(b), string(rec.Status), rec.StartedAt.UnixMilli(),
	); err != nil {
		return domain.CallRecord{}, fmt.Errorf("insert call: %w", err)
	}
	for _, uid := range []domain.UserID{a, b} {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO active_participants (user_id, call_id) VALUES (?, ?) ON CONFLICT(user_id) DO NOTHING`,
			string(uid), string(rec.ID),
		)
		if err != nil {
			return domain.CallRecord{}, fmt.Errorf("claim participant %s: %w", uid, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return domain.CallRecord{}, fmt.Errorf("claim participant %s: %w", uid, err)
		} else if n == 0 {
			return domain.CallRecord{}, fmt.Errorf("%s: %w", uid, core.ErrAlreadyInCall)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.CallRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

func (l *SQLiteLedger) EndCall(ctx context.Context, id domain.CallID) (domain.CallRecord, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.CallRecord{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	rec, err := scanCall(tx.QueryRowContext(ctx,
		`SELECT id, participant_a, participant_b, status, started_at, ended_at FROM calls WHERE id = ?`, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CallRecord{}, fmt.Errorf("%s: %w", id, core.ErrCallNotFound)
	}
	if err != nil {
		return domain.CallRecord{}, fmt.Errorf("load call: %w", err)
	}
	if !rec.Active() {
		return rec, fmt.Errorf("%s: %w", id, core.ErrCallNotActive)
	}

	rec.Status = domain.CallEnded
	rec.EndedAt = l.now().UTC().Truncate(time.Millisecond)
	if _, err := tx.ExecContext(ctx,
		`UPDATE calls SET status = ?, ended_at = ? WHERE id = ?`,
		string(rec.Status), rec.EndedAt.UnixMilli(), string(id),
	); err != nil {
		return domain.CallRecord{}, fmt.Errorf("update call: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM active_participants WHERE call_id = ?`, string(id)); err != nil {
		return domain.CallRecord{}, fmt.Errorf("release participants: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.CallRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

func (l *SQLiteLedger) FindActiveCallsFor(ctx context.Context, userIDs []domain.UserID) ([]domain.CallRecord, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	args := make([]any, len(userIDs))
	for i, uid := range userIDs {
		args[i] = string(uid)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	rows, err := l.db.QueryContext(ctx, `
		SELECT DISTINCT c.id, c.participant_a, c.participant_b, c.status, c.started_at, c.ended_at
		FROM calls c
		JOIN active_participants p ON p.call_id = c.id
		WHERE p.user_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("find active calls: %w", err)
	}
	return collect(rows)
}

func (l *SQLiteLedger) ListActiveCalls(ctx context.Context) ([]domain.CallRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, participant_a, participant_b, status, started_at, ended_at FROM calls WHERE status = ? ORDER BY started_at`,
		string(domain.CallActive))
	if err != nil {
		return nil, fmt.Errorf("list active calls: %w", err)
	}
	return collect(rows)
}

// Get loads one record regardless of status.
func (l *SQLiteLedger) Get(ctx context.Context, id domain.CallID) (domain.CallRecord, error) {
	rec, err := scanCall(l.db.QueryRowContext(ctx,
		`SELECT id, participant_a, participant_b, status, started_at, ended_at FROM calls WHERE id = ?`, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CallRecord{}, fmt.Errorf("%s: %w", id, core.ErrCallNotFound)
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCall(s scanner) (domain.CallRecord, error) {
	var (
		rec              domain.CallRecord
		id, a, b, status string
		startedAt        int64
		endedAt          sql.NullInt64
	)
	if err := s.Scan(&id, &a, &b, &status, &startedAt, &endedAt); err != nil {
		return domain.CallRecord{}, err
	}
	rec.ID = domain.CallID(id)
	rec.ParticipantA = domain.UserID(a)
	rec.ParticipantB = domain.UserID(b)
	rec.Status = domain.CallStatus(status)
	rec.StartedAt = time.UnixMilli(startedAt).UTC()
	if endedAt.Valid {
		rec.EndedAt = time.UnixMilli(endedAt.Int64).UTC()
	}
	return rec, nil
}

func collect(rows *sql.Rows) ([]domain.CallRecord, error) {
	defer rows.Close()
	var out []domain.CallRecord
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
