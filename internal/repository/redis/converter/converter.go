package converter

import (
	"github.com/DRSN-tech/match-service/internal/domain"
)

// MatchConverter преобразует матчи между доменным и кэшируемым представлением.
type MatchConverter struct{}

func NewMatchConverter() MatchConverter {
	return MatchConverter{}
}

func (MatchConverter) ToRedisModel(entity *domain.Match) MatchRedisModel {
	reasons := make([]MatchReasonRedisModel, 0, len(entity.Reasons))
	for _, r := range entity.Reasons {
		reasons = append(reasons, MatchReasonRedisModel{Kind: r.Kind, Score: r.Score})
	}

	return MatchRedisModel{
		ProjectID:              entity.ProjectID,
		ProductID:              entity.ProductID,
		Score:                  entity.Score,
		Tier:                   string(entity.Tier),
		Reasons:                reasons,
		EvidenceProjectImageID: entity.EvidenceProjectImageID,
		EvidenceProductImageID: entity.EvidenceProductImageID,
		RunID:                  entity.RunID,
		UpdatedAt:              entity.UpdatedAt,
	}
}

func (MatchConverter) ToEntity(model MatchRedisModel) domain.Match {
	reasons := make([]domain.MatchReason, 0, len(model.Reasons))
	for _, r := range model.Reasons {
		reasons = append(reasons, domain.MatchReason{Kind: r.Kind, Score: r.Score})
	}

	return domain.Match{
		ProjectID:              model.ProjectID,
		ProductID:              model.ProductID,
		Score:                  model.Score,
		Tier:                   domain.Tier(model.Tier),
		Reasons:                reasons,
		EvidenceProjectImageID: model.EvidenceProjectImageID,
		EvidenceProductImageID: model.EvidenceProductImageID,
		RunID:                  model.RunID,
		UpdatedAt:              model.UpdatedAt,
	}
}

func (c MatchConverter) ToArrRedisModel(entities []domain.Match) []MatchRedisModel {
	models := make([]MatchRedisModel, 0, len(entities))
	for i := range entities {
		models = append(models, c.ToRedisModel(&entities[i]))
	}

	return models
}

func (c MatchConverter) ToArrEntity(models []MatchRedisModel) []domain.Match {
	entities := make([]domain.Match, 0, len(models))
	for _, model := range models {
		entities = append(entities, c.ToEntity(model))
	}

	return entities
}
