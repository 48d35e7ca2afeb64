package usecase

import (
	"github.com/DRSN-tech/match-service/internal/domain"
	"github.com/DRSN-tech/match-service/pkg/vec"
)

type groupKey struct {
	itemType domain.ItemType
	itemID   int64
}

// aggregateEmbeddings группирует эмбеддинги по (тип элемента, id элемента)
// и строит по одной визуальной сигнатуре на элемент: нормализованное среднее
// всех его image-векторов. Исходные векторы сохраняются в агрегате для
// последующего поиска пары-доказательства. Один проход, порядок входа не важен.
// Возвращает два непересекающихся набора: агрегаты проектов и продуктов.
func aggregateEmbeddings(embeddings []domain.ImageEmbedding) (map[int64]*domain.ItemAggregate, map[int64]*domain.ItemAggregate) {
	grouped := make(map[groupKey][]domain.ImageEmbedding)
	order := make([]groupKey, 0)
	for _, emb := range embeddings {
		key := groupKey{itemType: emb.ItemType, itemID: emb.ItemID}
		if _, ok := grouped[key]; !ok {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], emb)
	}

	projects := make(map[int64]*domain.ItemAggregate)
	products := make(map[int64]*domain.ItemAggregate)

	for _, key := range order {
		group := grouped[key]

		vectors := make([][]float32, 0, len(group))
		for _, emb := range group {
			vectors = append(vectors, emb.Vector)
		}

		agg := domain.NewItemAggregate(key.itemID, key.itemType, vec.Normalize(vec.Mean(vectors, len(vectors[0]))))
		for _, emb := range group {
			agg.ImageIDs = append(agg.ImageIDs, emb.ImageID)
			// Попарные векторы храним нормализованными: скалярное произведение
			// при поиске пары-доказательства тогда равно косинусу.
			agg.VectorByImageID[emb.ImageID] = vec.Normalize(emb.Vector)
		}

		switch key.itemType {
		case domain.ItemTypeProject:
			projects[key.itemID] = agg
		case domain.ItemTypeProduct:
			products[key.itemID] = agg
		}
	}

	return projects, products
}

// filterByMembership оставляет только агрегаты элементов, существующих в каталоге.
// Эмбеддинги удалённых элементов молча отбрасываются: каталог — источник истины.
func filterByMembership(aggregates map[int64]*domain.ItemAggregate, memberIDs []int64) map[int64]*domain.ItemAggregate {
	members := make(map[int64]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		members[id] = struct{}{}
	}

	result := make(map[int64]*domain.ItemAggregate, len(aggregates))
	for id, agg := range aggregates {
		if _, ok := members[id]; ok {
			result[id] = agg
		}
	}

	return result
}
