package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RMahshie/tunecheck/internal/repository"
	"github.com/RMahshie/tunecheck/pkg/models"
	"github.com/RMahshie/tunecheck/pkg/tuning"
	"github.com/google/uuid"
)

// PostgresReadingRepository implements ReadingRepository for PostgreSQL
type PostgresReadingRepository struct {
	db *sql.DB
}

// NewPostgresReadingRepository creates a new PostgreSQL reading repository
func NewPostgresReadingRepository(db *sql.DB) repository.ReadingRepository {
	return &PostgresReadingRepository{db: db}
}

const readingColumns = `id, session_id, predicted_frequency, closest_note, reference_frequency,
	cents_difference, judgment, feedback, estimator, frame_count, audio_key, created_at`

// Create inserts a new reading
func (r *PostgresReadingRepository) Create(ctx context.Context, reading *models.Reading) error {
	query := `
		INSERT INTO readings (` + readingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	var sessionID sql.NullString
	if reading.SessionID != "" {
		sessionID = sql.NullString{String: reading.SessionID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		reading.ID,
		sessionID,
		reading.PredictedFrequency,
		reading.ClosestNote,
		reading.ReferenceFrequency,
		reading.CentsDifference,
		string(reading.Judgment),
		reading.Feedback,
		reading.Estimator,
		reading.FrameCount,
		reading.AudioKey,
		reading.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

// GetByID retrieves a reading by ID
func (r *PostgresReadingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Reading, error) {
	query := `SELECT ` + readingColumns + ` FROM readings WHERE id = $1`

	reading, err := scanReading(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return reading, nil
}

// ListBySession retrieves a session's readings, newest first
func (r *PostgresReadingRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*models.Reading, error) {
	query := `
		SELECT ` + readingColumns + `
		FROM readings
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings := make([]*models.Reading, 0)
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}

	return readings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner) (*models.Reading, error) {
	var reading models.Reading
	var sessionID, audioKey sql.NullString
	var judgment string

	err := row.Scan(
		&reading.ID,
		&sessionID,
		&reading.PredictedFrequency,
		&reading.ClosestNote,
		&reading.ReferenceFrequency,
		&reading.CentsDifference,
		&judgment,
		&reading.Feedback,
		&reading.Estimator,
		&reading.FrameCount,
		&audioKey,
		&reading.CreatedAt)
	if err != nil {
		return nil, err
	}

	reading.Judgment = tuning.Judgment(judgment)
	if sessionID.Valid {
		reading.SessionID = sessionID.String
	}
	if audioKey.Valid {
		reading.AudioKey = &audioKey.String
	}

	return &reading, nil
}
