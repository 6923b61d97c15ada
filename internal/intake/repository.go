package intake

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error)
	Save(ctx context.Context, c *Conversation) error
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	query := `SELECT id, patient_id, history, engine_state, report, is_complete, created_at, updated_at
		FROM conversations WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	var c Conversation
	var historyJSON, stateJSON []byte

	err := row.Scan(
		&c.ID,
		&c.PatientID,
		&historyJSON,
		&stateJSON,
		&c.Report,
		&c.IsComplete,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "query conversation")
	}

	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &c.History); err != nil {
			return nil, errors.Wrap(err, "unmarshal history")
		}
	}
	if len(stateJSON) > 0 {
		if err := json.Unmarshal(stateJSON, &c.Engine); err != nil {
			return nil, errors.Wrap(err, "unmarshal engine state")
		}
	}

	return &c, nil
}

func (r *postgresRepo) Save(ctx context.Context, c *Conversation) error {
	historyJSON, err := json.Marshal(c.History)
	if err != nil {
		return errors.Wrap(err, "marshal history")
	}
	stateJSON, err := json.Marshal(c.Engine)
	if err != nil {
		return errors.Wrap(err, "marshal engine state")
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()

	query := `
		INSERT INTO conversations (id, patient_id, history, engine_state, report, is_complete, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			history = $3,
			engine_state = $4,
			report = $5,
			is_complete = $6,
			updated_at = $8
	`
	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.PatientID, historyJSON, stateJSON, c.Report, c.IsComplete, c.CreatedAt, c.UpdatedAt)
	return errors.Wrap(err, "save conversation")
}
