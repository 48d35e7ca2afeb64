package qdrant

import (
	"context"

	"github.com/DRSN-tech/match-service/internal/cfg"
	"github.com/DRSN-tech/match-service/internal/domain"
	"github.com/DRSN-tech/match-service/pkg/e"
	"github.com/DRSN-tech/match-service/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

// Ключи payload, под которыми пайплайн векторизации складывает метаданные точки.
const (
	payloadItemID   = "item_id"
	payloadItemType = "item_type"
	payloadImageID  = "image_id"
)

// EmbeddingRepo репозиторий для чтения embedding-векторов изображений из Qdrant.
type EmbeddingRepo struct {
	client *qdrant.Client
	cfg    *cfg.QdrantCfg
	logger logger.Logger
}

func NewEmbeddingRepo(client *qdrant.Client, cfg *cfg.QdrantCfg, logger logger.Logger) *EmbeddingRepo {
	return &EmbeddingRepo{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// FetchAll постранично вычитывает всю коллекцию эмбеддингов. Точки с неполным
// payload или вектором неверной размерности пропускаются с предупреждением:
// одна битая точка не должна срывать пересчёт целиком.
func (q *EmbeddingRepo) FetchAll(ctx context.Context) ([]domain.ImageEmbedding, error) {
	embeddings := make([]domain.ImageEmbedding, 0)

	var offset *qdrant.PointId
	for {
		resp, err := q.client.GetPointsClient().Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: q.cfg.QdrantCollectionName,
			Limit:          &q.cfg.ScrollBatchSize,
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		for _, point := range resp.GetResult() {
			emb, ok := q.parsePoint(point)
			if !ok {
				continue
			}

			embeddings = append(embeddings, emb)
		}

		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}

	return embeddings, nil
}

func (q *EmbeddingRepo) parsePoint(point *qdrant.RetrievedPoint) (domain.ImageEmbedding, bool) {
	payload := point.GetPayload()

	itemID := payload[payloadItemID].GetIntegerValue()
	if itemID == 0 {
		q.logger.Warnf("Skipping point %s: missing %s in payload", point.GetId(), payloadItemID)
		return domain.ImageEmbedding{}, false
	}

	itemType := domain.ItemType(payload[payloadItemType].GetStringValue())
	if itemType != domain.ItemTypeProject && itemType != domain.ItemTypeProduct {
		q.logger.Warnf("Skipping point %s: unknown %s %q", point.GetId(), payloadItemType, payload[payloadItemType].GetStringValue())
		return domain.ImageEmbedding{}, false
	}

	imageID := payload[payloadImageID].GetStringValue()
	if imageID == "" {
		q.logger.Warnf("Skipping point %s: missing %s in payload", point.GetId(), payloadImageID)
		return domain.ImageEmbedding{}, false
	}

	vector := point.GetVectors().GetVector().GetData()
	if uint64(len(vector)) != q.cfg.VectorSize {
		q.logger.Warnf("Skipping point %s: vector size %d, expected %d", point.GetId(), len(vector), q.cfg.VectorSize)
		return domain.ImageEmbedding{}, false
	}

	return *domain.NewImageEmbedding(itemID, itemType, imageID, vector), true
}
