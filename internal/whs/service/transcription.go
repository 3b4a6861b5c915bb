package service

import (
	"context"

	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// TranscriptionService manages consultation transcriptions attached to cases
type TranscriptionService struct {
	transcriptions *repository.TranscriptionRepository
	exceptions     *repository.ExceptionRepository
	logger         *logger.Logger
}

// NewTranscriptionService creates a new transcription service
func NewTranscriptionService(transcriptions *repository.TranscriptionRepository, exceptions *repository.ExceptionRepository, log *logger.Logger) *TranscriptionService {
	return &TranscriptionService{
		transcriptions: transcriptions,
		exceptions:     exceptions,
		logger:         log,
	}
}

// Create attaches a transcription to a case
func (s *TranscriptionService) Create(ctx context.Context, exceptionID, content, createdBy string) (*repository.Transcription, error) {
	if _, err := s.exceptions.GetByID(ctx, exceptionID); err != nil {
		return nil, err
	}

	t := &repository.Transcription{
		ExceptionID: &exceptionID,
		CreatedBy:   &createdBy,
		Content:     content,
	}
	if err := s.transcriptions.Create(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("transcription_id", t.ID).
		Str("exception_id", exceptionID).
		Msg("transcription recorded")

	return t, nil
}

// ListForException lists a case's transcriptions, newest first
func (s *TranscriptionService) ListForException(ctx context.Context, exceptionID string) ([]*repository.Transcription, error) {
	return s.transcriptions.ListForException(ctx, exceptionID)
}
