package pgdb

import (
	"context"

	"github.com/DRSN-tech/catalog-backend/internal/domain"
	"github.com/DRSN-tech/catalog-backend/pkg/e"
	"github.com/DRSN-tech/catalog-backend/pkg/tr"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// ProductRepo хранит коллекцию товаров в PostgreSQL. Порядок коллекции задаётся колонкой position.
type ProductRepo struct {
	pool *pgxpool.Pool
}

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

// ReadAll возвращает все товары в порядке вставки. Пустая таблица — пустой срез.
func (p *ProductRepo) ReadAll(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT id, name, description, price, category, power, image_url
		FROM products
		ORDER BY position
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return []domain.Product{}, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.Product, 0)
	for rows.Next() {
		var pr domain.Product
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.Description, &pr.Price, &pr.Category, &pr.Power, &pr.ImageURL); err != nil {
			return []domain.Product{}, e.Wrap(whereami.WhereAmI(), err)
		}
		result = append(result, pr)
	}

	if err := rows.Err(); err != nil {
		return []domain.Product{}, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

// WriteAll заменяет содержимое таблицы коллекцией целиком в одной транзакции.
func (p *ProductRepo) WriteAll(ctx context.Context, products []domain.Product) (err error) {
	const op = "ProductRepo.WriteAll"

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, p.pool)
	if err != nil {
		return e.Wrap(op, err)
	}
	// Если произошла ошибка, транзакция откатывается
	defer func() {
		if err != nil && tx.IsActive() {
			_ = tx.Rollback(ctx)
		}
	}()

	var raw any = tx.Transaction()
	pgxTx, ok := raw.(pgx.Tx)
	if !ok {
		return e.Wrap(op, e.ErrTransactionNotFound)
	}
	ctx = tr.WithTx(ctx, pgxTx)

	if err = p.deleteAll(ctx); err != nil {
		return e.Wrap(op, err)
	}

	if err = p.insertAll(ctx, products); err != nil {
		return e.Wrap(op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

func (p *ProductRepo) deleteAll(ctx context.Context) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM products`); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (p *ProductRepo) insertAll(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO products (position, id, name, description, price, category, power, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for i, pr := range products {
		batch.Queue(query, i, pr.ID, pr.Name, pr.Description, pr.Price, pr.Category, pr.Power, pr.ImageURL)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
