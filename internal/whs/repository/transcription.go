package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/worksafe/worksafe-backend/pkg/database"
)

// Transcription is a free-text consultation record attached to a case.
type Transcription struct {
	ID          string    `db:"id" json:"id"`
	ExceptionID *string   `db:"exception_id" json:"exception_id,omitempty"`
	CreatedBy   *string   `db:"created_by" json:"created_by,omitempty"`
	Content     string    `db:"content" json:"content"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TranscriptionRepository handles transcription persistence
type TranscriptionRepository struct {
	db *database.DB
}

// NewTranscriptionRepository creates a new transcription repository
func NewTranscriptionRepository(db *database.DB) *TranscriptionRepository {
	return &TranscriptionRepository{db: db}
}

// Create creates a transcription
func (r *TranscriptionRepository) Create(ctx context.Context, t *Transcription) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	query := `
		INSERT INTO transcriptions (id, exception_id, created_by, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.db.QueryRowxContext(ctx, query, t.ID, t.ExceptionID, t.CreatedBy, t.Content).Scan(&t.CreatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// ListForException lists a case's transcriptions, newest first
func (r *TranscriptionRepository) ListForException(ctx context.Context, exceptionID string) ([]*Transcription, error) {
	var transcriptions []*Transcription

	query := `
		SELECT id, exception_id, created_by, content, created_at
		FROM transcriptions
		WHERE exception_id = $1
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &transcriptions, query, exceptionID); err != nil {
		return nil, err
	}

	return transcriptions, nil
}
