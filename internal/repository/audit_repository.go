package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/mel-roster/internal/queue"
)

const auditSchema = `CREATE TABLE IF NOT EXISTS member_audit (
	id            CHAR(36)     NOT NULL PRIMARY KEY,
	workflow_id   VARCHAR(64)  NOT NULL DEFAULT '',
	session_id    VARCHAR(128) NOT NULL,
	kind          VARCHAR(16)  NOT NULL,
	operation     VARCHAR(16)  NOT NULL,
	member_id     VARCHAR(128) NOT NULL DEFAULT '',
	category      VARCHAR(32)  NOT NULL DEFAULT '',
	reason        TEXT         NOT NULL,
	hard_delete   BOOLEAN      NOT NULL DEFAULT FALSE,
	run_check     BOOLEAN      NOT NULL DEFAULT FALSE,
	occurred_at   DATETIME(3)  NOT NULL,
	recorded_at   DATETIME(3)  NOT NULL,
	KEY idx_member_audit_session (session_id, occurred_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// AuditRepo journals member mutations (table member_audit).
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// EnsureSchema creates the journal table if it does not exist.
func (r *AuditRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, auditSchema)
	return err
}

// Insert stores one event.  Redelivered events with a known id are ignored.
func (r *AuditRepo) Insert(ctx context.Context, ev queue.MemberMutationEvent) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT IGNORE INTO member_audit
		 (id, workflow_id, session_id, kind, operation, member_id, category, reason, hard_delete, run_check, occurred_at, recorded_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		ev.ID, ev.WorkflowID, ev.SessionID, ev.Kind, ev.Operation, ev.MemberID, ev.Category, ev.Reason,
		ev.HardDelete, ev.RunEligibilityCheck, ev.OccurredAt.UTC(), time.Now().UTC())
	return err
}

// ListBySession returns the events of a session, oldest first.
func (r *AuditRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]queue.MemberMutationEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, workflow_id, session_id, kind, operation, member_id, category, reason, hard_delete, run_check, occurred_at
		 FROM member_audit WHERE session_id=? ORDER BY occurred_at ASC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]queue.MemberMutationEvent, 0)
	for rows.Next() {
		var ev queue.MemberMutationEvent
		if err := rows.Scan(&ev.ID, &ev.WorkflowID, &ev.SessionID, &ev.Kind, &ev.Operation, &ev.MemberID,
			&ev.Category, &ev.Reason, &ev.HardDelete, &ev.RunEligibilityCheck, &ev.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
