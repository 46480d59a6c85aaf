package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/DRSN-tech/catalog-backend/internal/domain"
	"github.com/DRSN-tech/catalog-backend/pkg/e"
	"github.com/jimlawless/whereami"
)

const filePerm = 0o644

// ProductRepo хранит всю коллекцию товаров одним JSON-массивом в файле.
type ProductRepo struct {
	path string
}

func NewProductRepo(path string) *ProductRepo {
	return &ProductRepo{path: path}
}

// ReadAll читает коллекцию. Отсутствующий или пустой (только пробельные символы) файл — пустая коллекция.
// Нечитаемый JSON — пустая коллекция и ошибка, оборачивающая e.ErrCorruptStore.
func (r *ProductRepo) ReadAll(ctx context.Context) ([]domain.Product, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.Product{}, nil
		}
		return []domain.Product{}, e.Wrap(whereami.WhereAmI(), err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []domain.Product{}, nil
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return []domain.Product{}, e.Wrap(r.path, errors.Join(e.ErrCorruptStore, err))
	}
	if products == nil {
		// файл содержит "null"
		products = []domain.Product{}
	}

	return products, nil
}

// WriteAll перезаписывает файл целиком: JSON с отступом в два пробела пишется во временный
// файл рядом и переименовывается поверх старого.
func (r *ProductRepo) WriteAll(ctx context.Context, products []domain.Product) error {
	if products == nil {
		products = []domain.Product{}
	}

	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // после успешного Rename файла уже нет

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if err := tmp.Close(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
