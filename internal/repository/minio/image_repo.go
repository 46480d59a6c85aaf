package minio

import (
	"context"

	"github.com/DRSN-tech/catalog-backend/internal/cfg"
	"github.com/DRSN-tech/catalog-backend/internal/domain"
	"github.com/DRSN-tech/catalog-backend/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// Имена загрузок уникальны (префикс — метка времени), объект по ключу никогда не меняется.
const immutableCacheControl = "public, max-age=31536000, immutable"

// ImageRepo хранит копии загруженных изображений в бакете MinIO.
type ImageRepo struct {
	mc     *minio.Client
	bucket string
}

func NewImageRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *ImageRepo {
	return &ImageRepo{
		mc:     mc,
		bucket: cfg.BucketName,
	}
}

// Put загружает файл image.LocalPath под ключом image.ObjectKey и возвращает ключ.
func (i *ImageRepo) Put(ctx context.Context, image *domain.Image) (string, error) {
	info, err := i.mc.FPutObject(ctx, i.bucket, image.ObjectKey, image.LocalPath, minio.PutObjectOptions{
		ContentType:  image.ContentType,
		CacheControl: immutableCacheControl,
	})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return info.Key, nil
}

// Remove удаляет объект. Отсутствующий объект ошибкой не считается.
func (i *ImageRepo) Remove(ctx context.Context, key string) error {
	err := i.mc.RemoveObject(ctx, i.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
