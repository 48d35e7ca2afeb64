package usecase

import "context"

type EventProducer interface {
	PublishRebuildCompleted(ctx context.Context, res *RebuildRes) error
}

// ImageLinker превращает идентификатор изображения-доказательства в ссылку,
// пригодную для отображения.
type ImageLinker interface {
	ResolveURL(ctx context.Context, imageID string) (string, error)
}
