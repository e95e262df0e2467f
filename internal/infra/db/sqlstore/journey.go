package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bryanwahyu/triangle-intel/internal/domain/cascade"
)

type journeyRow struct {
	SessionID    string    `db:"user_session_id"`
	CurrentStage string    `db:"current_stage"`
	Completed    []byte    `db:"completed_stages"`
	Accumulated  []byte    `db:"accumulated_intelligence"`
	Quality      float64   `db:"quality"`
	LastActivity time.Time `db:"last_activity"`
}

// JourneyRepository stores the progressive cascade state in journey_state.
type JourneyRepository struct{ base }

func NewJourneyRepository(db *sqlx.DB) *JourneyRepository {
	return &JourneyRepository{newBase(db)}
}

func (r *JourneyRepository) Get(ctx context.Context, sessionID string) (*cascade.State, error) {
	var row journeyRow
	err := r.db.GetContext(ctx, &row, r.q(`SELECT user_session_id, current_stage, completed_stages,
 accumulated_intelligence, quality, last_activity FROM journey_state WHERE user_session_id = ?`), sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cascade.ErrStateNotFound
	}
	if err != nil {
		return nil, err
	}

	st := cascade.NewState(row.SessionID)
	st.CurrentStage = cascade.Stage(row.CurrentStage)
	st.LastActivity = row.LastActivity
	if len(row.Completed) > 0 {
		if err := json.Unmarshal(row.Completed, &st.CompletedStages); err != nil {
			return nil, fmt.Errorf("decode completed stages: %w", err)
		}
	}
	if len(row.Accumulated) > 0 {
		if err := json.Unmarshal(row.Accumulated, &st.Accumulated); err != nil {
			return nil, fmt.Errorf("decode accumulated intelligence: %w", err)
		}
	}
	if st.Accumulated.Stages == nil {
		st.Accumulated.Stages = map[cascade.Stage]cascade.StageAnalysis{}
	}
	return &st, nil
}

func (r *JourneyRepository) Save(ctx context.Context, st cascade.State) error {
	completed, err := json.Marshal(st.CompletedStages)
	if err != nil {
		return err
	}
	acc, err := json.Marshal(st.Accumulated)
	if err != nil {
		return err
	}
	q := `INSERT INTO journey_state (user_session_id, current_stage, completed_stages, accumulated_intelligence, quality, last_activity)
 VALUES (?, ?, ?, ?, ?, ?)` + r.dialect.upsert([]string{"user_session_id"},
		[]string{"current_stage", "completed_stages", "accumulated_intelligence", "quality", "last_activity"})
	_, err = r.db.ExecContext(ctx, r.q(q),
		st.SessionID, string(st.CurrentStage), string(completed), string(acc), st.Accumulated.Quality, st.LastActivity)
	return err
}
