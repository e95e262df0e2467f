package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/bryanwahyu/triangle-intel/internal/domain/session"
)

const sessionColumns = `session_id, schema_version, data, auto_populated_fields, user_entered_fields,
 foundation_status, product_status, routing_status, partnership_status, hindsight_status, alerts_status,
 created_at, updated_at`

// SessionRepository stores workflow_sessions rows. Rows of any schema
// version are migrated on read.
type SessionRepository struct{ base }

func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{newBase(db)}
}

func (r *SessionRepository) Upsert(ctx context.Context, rec session.Record) error {
	raw, err := session.Encode(rec)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", rec.SessionID, err)
	}
	q := `INSERT INTO workflow_sessions (` + sessionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)` + r.dialect.upsert([]string{"session_id"}, []string{
		"schema_version", "data", "auto_populated_fields", "user_entered_fields",
		"foundation_status", "product_status", "routing_status", "partnership_status", "hindsight_status", "alerts_status",
		"updated_at",
	})
	_, err = r.db.ExecContext(ctx, r.q(q),
		raw.SessionID, raw.SchemaVersion, jsonArg(raw.Data), jsonArg(raw.AutoPopulated), jsonArg(raw.UserEntered),
		raw.FoundationStatus, raw.ProductStatus, raw.RoutingStatus, raw.PartnershipStatus, raw.HindsightStatus, raw.AlertsStatus,
		raw.CreatedAt, raw.UpdatedAt,
	)
	return err
}

// Get returns sql.ErrNoRows for an unknown id.
func (r *SessionRepository) Get(ctx context.Context, id string) (*session.Record, error) {
	var raw session.RawRecord
	if err := r.db.GetContext(ctx, &raw, r.q(`SELECT `+sessionColumns+` FROM workflow_sessions WHERE session_id = ?`), id); err != nil {
		return nil, err
	}
	rec, err := session.Migrate(raw)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Recent returns the newest sessions. Rows that cannot be decoded are skipped.
func (r *SessionRepository) Recent(ctx context.Context, limit int) ([]session.Record, error) {
	if limit <= 0 {
		limit = 10
	}
	var raws []session.RawRecord
	if err := r.db.SelectContext(ctx, &raws, r.q(`SELECT `+sessionColumns+` FROM workflow_sessions ORDER BY created_at DESC LIMIT ?`), limit); err != nil {
		return nil, err
	}
	out := make([]session.Record, 0, len(raws))
	for _, raw := range raws {
		rec, err := session.Migrate(raw)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *SessionRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM workflow_sessions`)
	return n, err
}

type EventRepository struct{ base }

func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{newBase(db)}
}

func (r *EventRepository) Append(ctx context.Context, e session.Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("encode event data: %w", err)
	}
	_, err = r.db.ExecContext(ctx, r.q(`INSERT INTO network_intelligence_events
 (event_type, session_id, event_data, intelligence_summary, created_at) VALUES (?, ?, ?, ?, ?)`),
		e.Type, e.SessionID, string(data), e.Summary, e.CreatedAt)
	return err
}
