package converter

import (
	"encoding/json"

	"github.com/DRSN-tech/match-service/internal/domain"
)

// MatchConverter преобразует сущности Match между domain и моделью PostgreSQL.
// Список сигналов сериализуется в JSONB с сохранением порядка.
type MatchConverter struct{}

func NewMatchConverter() MatchConverter {
	return MatchConverter{}
}

func (MatchConverter) ToModel(entity *domain.Match) (*MatchModel, error) {
	reasons, err := json.Marshal(entity.Reasons)
	if err != nil {
		return nil, err
	}

	return &MatchModel{
		ProjectID:              entity.ProjectID,
		ProductID:              entity.ProductID,
		Score:                  int32(entity.Score),
		Tier:                   string(entity.Tier),
		Reasons:                reasons,
		EvidenceProjectImageID: entity.EvidenceProjectImageID,
		EvidenceProductImageID: entity.EvidenceProductImageID,
		RunID:                  entity.RunID,
		UpdatedAt:              entity.UpdatedAt,
	}, nil
}

func (MatchConverter) ToEntity(model *MatchModel) (*domain.Match, error) {
	var reasons []domain.MatchReason
	if len(model.Reasons) > 0 {
		if err := json.Unmarshal(model.Reasons, &reasons); err != nil {
			return nil, err
		}
	}

	return &domain.Match{
		ProjectID:              model.ProjectID,
		ProductID:              model.ProductID,
		Score:                  int(model.Score),
		Tier:                   domain.Tier(model.Tier),
		Reasons:                reasons,
		EvidenceProjectImageID: model.EvidenceProjectImageID,
		EvidenceProductImageID: model.EvidenceProductImageID,
		RunID:                  model.RunID,
		UpdatedAt:              model.UpdatedAt,
	}, nil
}

func (c MatchConverter) ToArrEntity(models []*MatchModel) ([]domain.Match, error) {
	result := make([]domain.Match, 0, len(models))
	for _, model := range models {
		entity, err := c.ToEntity(model)
		if err != nil {
			return nil, err
		}
		result = append(result, *entity)
	}

	return result, nil
}

// RunConverter преобразует сущности Run между domain и моделью PostgreSQL.
type RunConverter struct{}

func NewRunConverter() RunConverter {
	return RunConverter{}
}

func (RunConverter) ToModel(entity *domain.Run) *RunModel {
	return &RunModel{
		RunID:               entity.RunID,
		Status:              string(entity.Status),
		StartedAt:           entity.StartedAt,
		CompletedAt:         entity.CompletedAt,
		ProjectsCount:       int32(entity.ProjectsCount),
		ProductsCount:       int32(entity.ProductsCount),
		MatchesUpserted:     int32(entity.MatchesUpserted),
		MatchesDeletedStale: int32(entity.MatchesDeletedStale),
		ErrorMessage:        entity.ErrorMessage,
	}
}

func (RunConverter) ToEntity(model *RunModel) *domain.Run {
	return &domain.Run{
		RunID:               model.RunID,
		Status:              domain.RunStatus(model.Status),
		StartedAt:           model.StartedAt,
		CompletedAt:         model.CompletedAt,
		ProjectsCount:       int(model.ProjectsCount),
		ProductsCount:       int(model.ProductsCount),
		MatchesUpserted:     int(model.MatchesUpserted),
		MatchesDeletedStale: int(model.MatchesDeletedStale),
		ErrorMessage:        model.ErrorMessage,
	}
}
