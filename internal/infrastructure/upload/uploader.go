package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/DRSN-tech/catalog-backend/internal/usecase"
	"github.com/DRSN-tech/catalog-backend/pkg/e"
	"github.com/jimlawless/whereami"
)

const dirPerm = 0o755

var whitespaceRun = regexp.MustCompile(`\s+`)

// Uploader сохраняет загруженные файлы в каталог, который раздаётся как статика.
// Тип, размер и содержимое файла не проверяются.
type Uploader struct {
	dir          string // каталог на диске
	publicPrefix string // префикс относительного URL, например "uploads"
	now          func() time.Time
}

func NewUploader(dir, publicPrefix string) *Uploader {
	return &Uploader{
		dir:          dir,
		publicPrefix: publicPrefix,
		now:          time.Now,
	}
}

// EnsureDir создаёт каталог загрузок вместе с родителями, если его нет.
func (u *Uploader) EnsureDir() error {
	if err := os.MkdirAll(u.dir, dirPerm); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Save записывает содержимое под сгенерированным именем и возвращает публичный путь uploads/<имя>.
func (u *Uploader) Save(ctx context.Context, image *usecase.ProductImage) (*usecase.SavedImage, error) {
	const op = "Uploader.Save"

	name := FileName(image.Filename, u.now())
	localPath := filepath.Join(u.dir, name)

	dst, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if _, err := io.Copy(dst, image.Content); err != nil {
		dst.Close()
		os.Remove(localPath)
		return nil, e.Wrap(op, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(localPath)
		return nil, e.Wrap(op, err)
	}

	return usecase.NewSavedImage(name, localPath, path.Join(u.publicPrefix, name)), nil
}

// FileName строит имя вида <unix millis>-<имя без расширения><расширение>,
// заменяя каждую последовательность пробельных символов в имени на "-".
// Каталоги в имени от клиента отбрасываются.
func FileName(original string, now time.Time) string {
	base := original
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}

	ext := filepath.Ext(base)
	stem := whitespaceRun.ReplaceAllString(strings.TrimSuffix(base, ext), "-")

	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), stem, ext)
}
