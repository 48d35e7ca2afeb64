package usecase

import (
	"sort"

	"github.com/DRSN-tech/match-service/internal/domain"
	"github.com/DRSN-tech/match-service/pkg/vec"
)

// candidate — пара проект-продукт до отбора по порогу и top-N.
type candidate struct {
	productID int64
	score     int
}

// matchAll вычисляет матчи каждого проекта против всех продуктов:
// score из косинусной близости агрегатов, уровень уверенности по порогам,
// не более topN матчей на проект, пара изображений-доказательств на каждый матч.
// Порядок кандидатов детерминирован: score по убыванию, при равенстве — product id
// по возрастанию.
func matchAll(projects, products map[int64]*domain.ItemAggregate, topN int) []domain.Match {
	projectIDs := sortedIDs(projects)
	productIDs := sortedIDs(products)

	result := make([]domain.Match, 0)
	for _, projectID := range projectIDs {
		projectAgg := projects[projectID]

		candidates := make([]candidate, 0, len(productIDs))
		for _, productID := range productIDs {
			similarity := vec.CosineSimilarity(projectAgg.MeanVector, products[productID].MeanVector)
			candidates = append(candidates, candidate{
				productID: productID,
				score:     domain.ScoreFromSimilarity(similarity),
			})
		}

		// Стабильная сортировка поверх прохода по возрастанию product id
		// даёт воспроизводимый порядок при равных score.
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].score > candidates[j].score
		})

		if len(candidates) > topN {
			candidates = candidates[:topN]
		}

		for _, cand := range candidates {
			tier, ok := domain.TierForScore(cand.score)
			if !ok {
				continue
			}

			match := domain.NewMatch(projectID, cand.productID, cand.score, tier)
			match.EvidenceProjectImageID, match.EvidenceProductImageID =
				bestEvidencePair(projectAgg, products[cand.productID])

			result = append(result, *match)
		}
	}

	return result
}

// bestEvidencePair перебирает все пары изображений проекта и продукта и возвращает
// пару с максимальной попарной близостью. Стоимость O(изображения × изображения)
// на матч; количество изображений на элемент ограничивается при загрузке,
// а количество матчей — top-N, поэтому перебор не защищается дополнительно.
func bestEvidencePair(project, product *domain.ItemAggregate) (string, string) {
	var (
		bestProjectImage string
		bestProductImage string
		bestSimilarity   = -1.0
	)

	for _, projectImageID := range project.ImageIDs {
		for _, productImageID := range product.ImageIDs {
			similarity := vec.CosineSimilarity(
				project.VectorByImageID[projectImageID],
				product.VectorByImageID[productImageID],
			)
			if similarity > bestSimilarity {
				bestSimilarity = similarity
				bestProjectImage = projectImageID
				bestProductImage = productImageID
			}
		}
	}

	return bestProjectImage, bestProductImage
}

func sortedIDs(aggregates map[int64]*domain.ItemAggregate) []int64 {
	ids := make([]int64, 0, len(aggregates))
	for id := range aggregates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
