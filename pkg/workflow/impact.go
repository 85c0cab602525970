package workflow

import (
	"context"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence"
)

// MapSyncImpactChecker reports impact when the revised cadastre left the
// competency map out of sync: an activity no longer linked to any competency,
// or a competency whose activities were all removed. A subprocess without a
// map is always impacted, since the map must be built before homologation.
type MapSyncImpactChecker struct {
	persistence persistence.Persistence
}

// NewMapSyncImpactChecker creates the default impact checker.
func NewMapSyncImpactChecker(p persistence.Persistence) *MapSyncImpactChecker {
	return &MapSyncImpactChecker{persistence: p}
}

func (c *MapSyncImpactChecker) HasImpact(ctx context.Context, subprocess *models.Subprocess) (bool, error) {
	if subprocess.MapID == nil {
		return true, nil
	}

	activities, err := c.persistence.Maps().Activities(ctx, *subprocess.MapID)
	if err != nil {
		return false, err
	}

	for _, activity := range activities {
		if len(activity.CompetencyIDs) == 0 {
			return true, nil
		}
	}

	competencies, err := c.persistence.Maps().Competencies(ctx, *subprocess.MapID)
	if err != nil {
		return false, err
	}

	for _, competency := range competencies {
		if len(competency.ActivityIDs) == 0 {
			return true, nil
		}
	}

	return false, nil
}
