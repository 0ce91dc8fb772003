package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/linemk/ace-store/internal/domain/models"
)

var ErrProductNotFound = errors.New("product not found")

// ProductStorage описывает методы чтения каталога товаров.
// Ядро заказов каталог не изменяет, только читает.
type ProductStorage interface {
	// GetProductByIDTx получает товар по id внутри транзакции заказа,
	// чтобы цена и флаги доступности читались согласованно с резервированием.
	GetProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error)
}

// productRepository — конкретная реализация ProductStorage.
type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт новый репозиторий товаров.
func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

// GetProductByIDTx ищет товар по id в таблице products.
func (r *productRepository) GetProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	product := &models.Product{}
	query := "SELECT id, name, price_cents, currency, status, is_locked FROM products WHERE id = $1"
	row := tx.QueryRowContext(ctx, query, id)
	if err := row.Scan(&product.ID, &product.Name, &product.PriceCents, &product.Currency, &product.Status, &product.IsLocked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}
