package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence"
)

// MapRepository exposes the competency-map shape the transition guards
// inspect: the map record itself plus its activities, knowledge items and
// competency links.
type MapRepository struct {
	q      querier
	logger *slog.Logger
}

// NewMapRepository creates a new map repository.
func NewMapRepository(q querier, logger *slog.Logger) *MapRepository {
	return &MapRepository{q: q, logger: logger}
}

func (mr *MapRepository) GetByID(ctx context.Context, id int64) (*models.CompetencyMap, error) {
	query := `
		SELECT id, subprocess_id, sugestoes, sugestoes_apresentadas_em, created_at
		FROM competency_maps
		WHERE id = $1
	`

	var competencyMap models.CompetencyMap

	err := mr.q.QueryRowContext(ctx, query, id).Scan(
		&competencyMap.ID,
		&competencyMap.SubprocessID,
		&competencyMap.Sugestoes,
		&competencyMap.SugestoesApresentadasEm,
		&competencyMap.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrMapNotFound
		}

		return nil, fmt.Errorf("failed to scan competency map: %w", err)
	}

	return &competencyMap, nil
}

// Save inserts the map when its ID is zero, assigning the generated
// identifier, and updates it otherwise.
func (mr *MapRepository) Save(ctx context.Context, competencyMap *models.CompetencyMap) error {
	if competencyMap.ID == 0 {
		query := `
			INSERT INTO competency_maps (subprocess_id, sugestoes, sugestoes_apresentadas_em, created_at)
			VALUES ($1, $2, $3, NOW())
			RETURNING id, created_at
		`

		err := mr.q.QueryRowContext(ctx, query,
			competencyMap.SubprocessID,
			competencyMap.Sugestoes,
			competencyMap.SugestoesApresentadasEm,
		).Scan(&competencyMap.ID, &competencyMap.CreatedAt)
		if err != nil {
			return persistence.NewStoreError("Save", "map", "", err)
		}

		return nil
	}

	query := `
		UPDATE competency_maps SET
			sugestoes = $2,
			sugestoes_apresentadas_em = $3
		WHERE id = $1
	`

	result, err := mr.q.ExecContext(ctx, query,
		competencyMap.ID,
		competencyMap.Sugestoes,
		competencyMap.SugestoesApresentadasEm,
	)
	if err != nil {
		return persistence.NewStoreError("Save", "map", strconv.FormatInt(competencyMap.ID, 10), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.ErrMapNotFound
	}

	return nil
}

// Activities loads the map's activities together with their knowledge items
// and competency links.
func (mr *MapRepository) Activities(ctx context.Context, mapID int64) ([]*models.Activity, error) {
	query := `SELECT id, map_id, description FROM activities WHERE map_id = $1 ORDER BY id`

	rows, err := mr.q.QueryContext(ctx, query, mapID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			mr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var (
		activities []*models.Activity
		byID       = make(map[int64]*models.Activity)
	)

	for rows.Next() {
		var activity models.Activity

		err := rows.Scan(&activity.ID, &activity.MapID, &activity.Description)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}

		activities = append(activities, &activity)
		byID[activity.ID] = &activity
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}

	err = mr.loadKnowledge(ctx, mapID, byID)
	if err != nil {
		return nil, err
	}

	err = mr.loadActivityCompetencyLinks(ctx, mapID, byID, nil)
	if err != nil {
		return nil, err
	}

	return activities, nil
}

// Competencies loads the map's competencies together with their activity
// links.
func (mr *MapRepository) Competencies(ctx context.Context, mapID int64) ([]*models.Competency, error) {
	query := `SELECT id, map_id, description FROM competencies WHERE map_id = $1 ORDER BY id`

	rows, err := mr.q.QueryContext(ctx, query, mapID)
	if err != nil {
		return nil, fmt.Errorf("failed to query competencies: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			mr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var (
		competencies []*models.Competency
		byID         = make(map[int64]*models.Competency)
	)

	for rows.Next() {
		var competency models.Competency

		err := rows.Scan(&competency.ID, &competency.MapID, &competency.Description)
		if err != nil {
			return nil, fmt.Errorf("failed to scan competency: %w", err)
		}

		competencies = append(competencies, &competency)
		byID[competency.ID] = &competency
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating competencies: %w", err)
	}

	err = mr.loadActivityCompetencyLinks(ctx, mapID, nil, byID)
	if err != nil {
		return nil, err
	}

	return competencies, nil
}

// SaveActivity upserts the activity row and rewrites its knowledge items and
// competency links from the aggregate.
func (mr *MapRepository) SaveActivity(ctx context.Context, activity *models.Activity) error {
	if activity.ID == 0 {
		query := `INSERT INTO activities (map_id, description) VALUES ($1, $2) RETURNING id`

		err := mr.q.QueryRowContext(ctx, query, activity.MapID, activity.Description).Scan(&activity.ID)
		if err != nil {
			return persistence.NewStoreError("SaveActivity", "activity", "", err)
		}
	} else {
		query := `UPDATE activities SET description = $2 WHERE id = $1`

		_, err := mr.q.ExecContext(ctx, query, activity.ID, activity.Description)
		if err != nil {
			return persistence.NewStoreError("SaveActivity", "activity", strconv.FormatInt(activity.ID, 10), err)
		}
	}

	_, err := mr.q.ExecContext(ctx, `DELETE FROM knowledge_items WHERE activity_id = $1`, activity.ID)
	if err != nil {
		return persistence.NewStoreError("SaveActivity", "activity", strconv.FormatInt(activity.ID, 10), err)
	}

	for i := range activity.Knowledge {
		activity.Knowledge[i].ActivityID = activity.ID

		query := `INSERT INTO knowledge_items (activity_id, description) VALUES ($1, $2) RETURNING id`

		err := mr.q.QueryRowContext(ctx, query, activity.ID, activity.Knowledge[i].Description).Scan(&activity.Knowledge[i].ID)
		if err != nil {
			return persistence.NewStoreError("SaveActivity", "activity", strconv.FormatInt(activity.ID, 10), err)
		}
	}

	_, err = mr.q.ExecContext(ctx, `DELETE FROM activity_competencies WHERE activity_id = $1`, activity.ID)
	if err != nil {
		return persistence.NewStoreError("SaveActivity", "activity", strconv.FormatInt(activity.ID, 10), err)
	}

	for _, competencyID := range activity.CompetencyIDs {
		query := `
			INSERT INTO activity_competencies (activity_id, competency_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`

		_, err := mr.q.ExecContext(ctx, query, activity.ID, competencyID)
		if err != nil {
			return persistence.NewStoreError("SaveActivity", "activity", strconv.FormatInt(activity.ID, 10), err)
		}
	}

	return nil
}

// SaveCompetency upserts the competency row and rewrites its activity links
// from the aggregate.
func (mr *MapRepository) SaveCompetency(ctx context.Context, competency *models.Competency) error {
	if competency.ID == 0 {
		query := `INSERT INTO competencies (map_id, description) VALUES ($1, $2) RETURNING id`

		err := mr.q.QueryRowContext(ctx, query, competency.MapID, competency.Description).Scan(&competency.ID)
		if err != nil {
			return persistence.NewStoreError("SaveCompetency", "competency", "", err)
		}
	} else {
		query := `UPDATE competencies SET description = $2 WHERE id = $1`

		_, err := mr.q.ExecContext(ctx, query, competency.ID, competency.Description)
		if err != nil {
			return persistence.NewStoreError("SaveCompetency", "competency", strconv.FormatInt(competency.ID, 10), err)
		}
	}

	_, err := mr.q.ExecContext(ctx, `DELETE FROM activity_competencies WHERE competency_id = $1`, competency.ID)
	if err != nil {
		return persistence.NewStoreError("SaveCompetency", "competency", strconv.FormatInt(competency.ID, 10), err)
	}

	for _, activityID := range competency.ActivityIDs {
		query := `
			INSERT INTO activity_competencies (activity_id, competency_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`

		_, err := mr.q.ExecContext(ctx, query, activityID, competency.ID)
		if err != nil {
			return persistence.NewStoreError("SaveCompetency", "competency", strconv.FormatInt(competency.ID, 10), err)
		}
	}

	return nil
}

// ClearSugestoes resets the suggestion round of the map.
func (mr *MapRepository) ClearSugestoes(ctx context.Context, mapID int64) error {
	query := `
		UPDATE competency_maps SET
			sugestoes = '',
			sugestoes_apresentadas_em = NULL
		WHERE id = $1
	`

	result, err := mr.q.ExecContext(ctx, query, mapID)
	if err != nil {
		return persistence.NewStoreError("ClearSugestoes", "map", strconv.FormatInt(mapID, 10), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.ErrMapNotFound
	}

	return nil
}

func (mr *MapRepository) loadKnowledge(ctx context.Context, mapID int64, activities map[int64]*models.Activity) error {
	query := `
		SELECT k.id, k.activity_id, k.description
		FROM knowledge_items k
		JOIN activities a ON a.id = k.activity_id
		WHERE a.map_id = $1
		ORDER BY k.id
	`

	rows, err := mr.q.QueryContext(ctx, query, mapID)
	if err != nil {
		return fmt.Errorf("failed to query knowledge items: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			mr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	for rows.Next() {
		var knowledge models.Knowledge

		err := rows.Scan(&knowledge.ID, &knowledge.ActivityID, &knowledge.Description)
		if err != nil {
			return fmt.Errorf("failed to scan knowledge item: %w", err)
		}

		if activity, ok := activities[knowledge.ActivityID]; ok {
			activity.Knowledge = append(activity.Knowledge, knowledge)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating knowledge items: %w", err)
	}

	return nil
}

// loadActivityCompetencyLinks fills CompetencyIDs on activities and
// ActivityIDs on competencies; either side may be nil.
func (mr *MapRepository) loadActivityCompetencyLinks(
	ctx context.Context,
	mapID int64,
	activities map[int64]*models.Activity,
	competencies map[int64]*models.Competency,
) error {
	query := `
		SELECT ac.activity_id, ac.competency_id
		FROM activity_competencies ac
		JOIN activities a ON a.id = ac.activity_id
		WHERE a.map_id = $1
	`

	rows, err := mr.q.QueryContext(ctx, query, mapID)
	if err != nil {
		return fmt.Errorf("failed to query activity-competency links: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			mr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	for rows.Next() {
		var activityID, competencyID int64

		err := rows.Scan(&activityID, &competencyID)
		if err != nil {
			return fmt.Errorf("failed to scan activity-competency link: %w", err)
		}

		if activity, ok := activities[activityID]; ok {
			activity.CompetencyIDs = append(activity.CompetencyIDs, competencyID)
		}

		if competency, ok := competencies[competencyID]; ok {
			competency.ActivityIDs = append(competency.ActivityIDs, activityID)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating activity-competency links: %w", err)
	}

	return nil
}
