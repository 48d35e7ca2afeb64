package clients

import (
	"context"

	config "github.com/DRSN-tech/match-service/internal/cfg"
	"github.com/DRSN-tech/match-service/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

func NewMinIOClient(cfg *config.Config) (*minio.Client, error) {
	minioClient, err := minio.New(cfg.Minio.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Minio.MinioRootUser, cfg.Minio.MinioRootPassword, ""),
		Secure: cfg.Minio.MinioUseSSL,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return minioClient, nil
}

// EnsureBucket проверяет доступность бакета с изображениями каталога.
// Бакет наполняется сервисом каталога, поэтому здесь он не создаётся:
// его отсутствие — ошибка конфигурации.
func EnsureBucket(ctx context.Context, client *minio.Client, bucketName string) error {
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return err
	}

	if !exists {
		return e.Wrap(bucketName, e.ErrBucketNotFound)
	}

	return nil
}
