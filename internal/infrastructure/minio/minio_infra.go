package minio

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"sync"
	"time"

	"github.com/DRSN-tech/catalog-backend/internal/domain"
	"github.com/DRSN-tech/catalog-backend/internal/usecase"
	"github.com/DRSN-tech/catalog-backend/pkg/e"
	"github.com/DRSN-tech/catalog-backend/pkg/jitter"
	"github.com/DRSN-tech/catalog-backend/pkg/logger"
)

// ImageRepository — объектное хранилище изображений.
type ImageRepository interface {
	Put(ctx context.Context, image *domain.Image) (string, error)
	Remove(ctx context.Context, key string) error
}

// MinioInfrastructure копирует сохранённые загрузки в MinIO в фоне и убирает копии удалённых товаров.
// Локальный файл остаётся источником истины: ошибки зеркалирования только логируются.
type MinioInfrastructure struct {
	minioRepo   ImageRepository
	logger      logger.Logger
	shutdownCtx context.Context
	wg          sync.WaitGroup
	maxRetries  int
	backoff     jitter.Backoff
	opTimeout   time.Duration
}

func NewMinioInfrastructure(minioRepo ImageRepository, logger logger.Logger, shutdownCtx context.Context) *MinioInfrastructure {
	return &MinioInfrastructure{
		minioRepo:   minioRepo,
		logger:      logger,
		shutdownCtx: shutdownCtx,
		maxRetries:  3,
		backoff: jitter.Backoff{
			Base:   time.Second,
			Max:    10 * time.Second,
			Factor: jitter.DefaultFactor,
		},
		opTimeout: 30 * time.Second,
	}
}

// MirrorImage запускает фоновую загрузку файла. Ключ объекта совпадает с публичным путём.
func (m *MinioInfrastructure) MirrorImage(image *usecase.SavedImage) {
	if image == nil {
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(image.FileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	obj := domain.NewImage(image.PublicPath, image.LocalPath, contentType)

	m.background("mirror "+obj.ObjectKey, func(ctx context.Context) error {
		key, err := m.minioRepo.Put(ctx, obj)
		if err == nil {
			m.logger.Debugf("mirrored %s", key)
		}
		return err
	})
}

// DropImage в фоне удаляет копию изображения с ключом objectKey.
func (m *MinioInfrastructure) DropImage(objectKey string) {
	if objectKey == "" {
		return
	}

	m.background("drop "+objectKey, func(ctx context.Context) error {
		return m.minioRepo.Remove(ctx, objectKey)
	})
}

// background выполняет fn в отдельной горутине с повторами и экспоненциальной задержкой.
func (m *MinioInfrastructure) background(what string, fn func(ctx context.Context) error) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		const op = "MinioInfrastructure.background"

		ctx, cancel := context.WithTimeout(m.shutdownCtx, m.opTimeout)
		defer cancel()

		for attempt := 0; attempt < m.maxRetries; attempt++ {
			err := fn(ctx)
			if err == nil {
				return
			}

			if attempt == m.maxRetries-1 {
				m.logger.Warnf("%v", e.Wrap(op, fmt.Errorf("all %d attempts to %s failed: %w", m.maxRetries, what, err)))
				return
			}

			delay := m.backoff.Delay(attempt)
			m.logger.Warnf("%s failed, retrying in %v (attempt %d): %v", what, delay, attempt+1, err)

			if err := jitter.Sleep(ctx, delay); err != nil {
				m.logger.Warnf("%s interrupted by shutdown", what)
				return
			}
		}
	}()
}

// Wait ожидает завершения всех фоновых операций с учётом таймаута завершения приложения.
func (m *MinioInfrastructure) Wait(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("minio mirror timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}
