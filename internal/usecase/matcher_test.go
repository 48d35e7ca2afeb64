package usecase

import (
	"testing"

	"github.com/DRSN-tech/match-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildAggregates(embeddings ...domain.ImageEmbedding) (map[int64]*domain.ItemAggregate, map[int64]*domain.ItemAggregate) {
	return aggregateEmbeddings(embeddings)
}

func TestMatchAll(t *testing.T) {
	t.Run("assigns tiers and drops pairs below threshold", func(t *testing.T) {
		projects, products := buildAggregates(
			emb(1, domain.ItemTypeProject, "p1.jpg", 1, 0),
			emb(101, domain.ItemTypeProduct, "g101.jpg", 1, 0),
			emb(102, domain.ItemTypeProduct, "g102.jpg", 0.6, 0.8),
			emb(103, domain.ItemTypeProduct, "g103.jpg", 0.45, 0.893028),
			emb(104, domain.ItemTypeProduct, "g104.jpg", 0, 1),
		)

		matches := matchAll(projects, products, 50)

		require.Len(t, matches, 3)
		assert.Equal(t, int64(101), matches[0].ProductID)
		assert.Equal(t, domain.TierStrong, matches[0].Tier)
		assert.Equal(t, 100, matches[0].Score)
		assert.Equal(t, int64(102), matches[1].ProductID)
		assert.Equal(t, domain.TierLikely, matches[1].Tier)
		assert.Equal(t, int64(103), matches[2].ProductID)
		assert.Equal(t, domain.TierPossible, matches[2].Tier)
	})

	t.Run("caps matches per project", func(t *testing.T) {
		projects, products := buildAggregates(
			emb(1, domain.ItemTypeProject, "p1.jpg", 1, 0),
			emb(101, domain.ItemTypeProduct, "g101.jpg", 1, 0),
			emb(102, domain.ItemTypeProduct, "g102.jpg", 0.6, 0.8),
			emb(103, domain.ItemTypeProduct, "g103.jpg", 0.45, 0.893028),
		)

		matches := matchAll(projects, products, 2)

		require.Len(t, matches, 2)
		assert.Equal(t, int64(101), matches[0].ProductID)
		assert.Equal(t, int64(102), matches[1].ProductID)
	})

	t.Run("equal scores break ties by ascending product id", func(t *testing.T) {
		projects, products := buildAggregates(
			emb(1, domain.ItemTypeProject, "p1.jpg", 0.8, 0.6),
			emb(202, domain.ItemTypeProduct, "g202.jpg", 0.8, 0.6),
			emb(201, domain.ItemTypeProduct, "g201.jpg", 0.8, 0.6),
		)

		matches := matchAll(projects, products, 50)
		require.Len(t, matches, 2)
		assert.Equal(t, int64(201), matches[0].ProductID)
		assert.Equal(t, int64(202), matches[1].ProductID)

		// Усечение top-N при равных score тоже детерминировано.
		capped := matchAll(projects, products, 1)
		require.Len(t, capped, 1)
		assert.Equal(t, int64(201), capped[0].ProductID)
	})

	t.Run("picks closest image pair as evidence", func(t *testing.T) {
		projects, products := buildAggregates(
			emb(1, domain.ItemTypeProject, "p/far.jpg", 0, 1),
			emb(1, domain.ItemTypeProject, "p/near.jpg", 1, 0),
			emb(101, domain.ItemTypeProduct, "g/far.jpg", 0.7, 0.714143),
			emb(101, domain.ItemTypeProduct, "g/near.jpg", 1, 0),
		)

		matches := matchAll(projects, products, 50)

		require.Len(t, matches, 1)
		assert.Equal(t, "p/near.jpg", matches[0].EvidenceProjectImageID)
		assert.Equal(t, "g/near.jpg", matches[0].EvidenceProductImageID)
	})

	t.Run("match carries similarity reason with same score", func(t *testing.T) {
		projects, products := buildAggregates(
			emb(1, domain.ItemTypeProject, "p1.jpg", 1, 0),
			emb(101, domain.ItemTypeProduct, "g101.jpg", 1, 0),
		)

		matches := matchAll(projects, products, 50)

		require.Len(t, matches, 1)
		require.Len(t, matches[0].Reasons, 1)
		assert.Equal(t, domain.ReasonEmbeddingSimilarity, matches[0].Reasons[0].Kind)
		assert.Equal(t, matches[0].Score, matches[0].Reasons[0].Score)
	})

	t.Run("no products yields no matches", func(t *testing.T) {
		projects, _ := buildAggregates(
			emb(1, domain.ItemTypeProject, "p1.jpg", 1, 0),
		)

		matches := matchAll(projects, map[int64]*domain.ItemAggregate{}, 50)
		assert.Empty(t, matches)
	})

	t.Run("projects are processed in ascending id order", func(t *testing.T) {
		projects, products := buildAggregates(
			emb(2, domain.ItemTypeProject, "p2.jpg", 1, 0),
			emb(1, domain.ItemTypeProject, "p1.jpg", 1, 0),
			emb(101, domain.ItemTypeProduct, "g101.jpg", 1, 0),
		)

		matches := matchAll(projects, products, 50)

		require.Len(t, matches, 2)
		assert.Equal(t, int64(1), matches[0].ProjectID)
		assert.Equal(t, int64(2), matches[1].ProjectID)
	})
}
