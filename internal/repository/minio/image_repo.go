package minio

import (
	"context"
	"net/url"

	"github.com/DRSN-tech/match-service/internal/cfg"
	"github.com/DRSN-tech/match-service/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// ImageRepo выдаёт ссылки на изображения-доказательства, лежащие в MinIO.
// Бакет наполняется сервисом каталога, здесь он только читается.
type ImageRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewImageRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *ImageRepo {
	return &ImageRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// ResolveURL возвращает presigned-ссылку на изображение по ключу объекта.
func (i *ImageRepo) ResolveURL(ctx context.Context, imageID string) (string, error) {
	presigned, err := i.mc.PresignedGetObject(ctx, i.cfg.BucketName, imageID, i.cfg.PresignTTL, url.Values{})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return presigned.String(), nil
}
