package postgresql

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence"
)

// AnalysisRepository stores accept/return decision records.
type AnalysisRepository struct {
	q      querier
	logger *slog.Logger
}

// NewAnalysisRepository creates a new analysis repository.
func NewAnalysisRepository(q querier, logger *slog.Logger) *AnalysisRepository {
	return &AnalysisRepository{q: q, logger: logger}
}

func (ar *AnalysisRepository) Append(ctx context.Context, analysis *models.Analysis) error {
	query := `
		INSERT INTO analyses (id, subprocess_id, stage, action, justification, caller_title, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := ar.q.ExecContext(ctx, query,
		analysis.ID,
		analysis.SubprocessID,
		analysis.Stage,
		analysis.Action,
		analysis.Justification,
		analysis.CallerTitle,
		analysis.Date,
	)
	if err != nil {
		return persistence.NewStoreError("Append", "analysis", analysis.ID, err)
	}

	return nil
}

// BySubprocess returns analyses newest first.
func (ar *AnalysisRepository) BySubprocess(ctx context.Context, subprocessID int64) ([]*models.Analysis, error) {
	query := `
		SELECT id, subprocess_id, stage, action, justification, caller_title, date
		FROM analyses
		WHERE subprocess_id = $1
		ORDER BY date DESC
	`

	rows, err := ar.q.QueryContext(ctx, query, subprocessID)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			ar.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var analyses []*models.Analysis

	for rows.Next() {
		var analysis models.Analysis

		err := rows.Scan(
			&analysis.ID,
			&analysis.SubprocessID,
			&analysis.Stage,
			&analysis.Action,
			&analysis.Justification,
			&analysis.CallerTitle,
			&analysis.Date,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}

		analyses = append(analyses, &analysis)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analyses: %w", err)
	}

	return analyses, nil
}

// ClearForSubprocess removes the stage's analyses so a new review round
// starts clean.
func (ar *AnalysisRepository) ClearForSubprocess(ctx context.Context, subprocessID int64, stage models.AnalysisStage) error {
	query := `DELETE FROM analyses WHERE subprocess_id = $1 AND stage = $2`

	_, err := ar.q.ExecContext(ctx, query, subprocessID, stage)
	if err != nil {
		return persistence.NewStoreError("ClearForSubprocess", "analysis", "", err)
	}

	return nil
}
