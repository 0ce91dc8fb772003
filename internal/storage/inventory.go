package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInventoryNotFound = errors.New("inventory entry not found")
)

// InventoryStorage — Inventory Ledger: единственное место, где изменяются остатки.
type InventoryStorage interface {
	// Reserve атомарно списывает qty единиц остатка. Проверка и списание —
	// один условный UPDATE: конкурентные резервы одной и той же строки
	// никогда не уведут остаток в минус. Если size == nil, выбирается
	// строка товара с наибольшим остатком (при равенстве — с меньшим id).
	Reserve(ctx context.Context, tx *sql.Tx, productID int64, size *string, qty int) error
	// Restock атомарно возвращает qty единиц на остаток. Ручной инструмент
	// компенсации и админских корректировок, в потоке заказа не участвует.
	Restock(ctx context.Context, productID int64, size *string, qty int) error
}

// inventoryRepository — конкретная реализация InventoryStorage.
type inventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository создаёт новый репозиторий остатков.
func NewInventoryRepository(db *sql.DB) InventoryStorage {
	return &inventoryRepository{db: db}
}

// Запрос для резервирования конкретного размера: условие stock >= qty
// входит в сам UPDATE, отдельного SELECT перед списанием нет.
const reserveBySizeQuery = `UPDATE inventory SET stock = stock - $1 WHERE product_id = $2 AND size = $3 AND stock >= $1`

// Запрос для безразмерного резервирования: целимся в строку с наибольшим
// остатком, чтобы распределять спрос подальше от почти исчерпанных строк.
// Повтор условия stock >= $1 во внешнем UPDATE обязателен: Postgres
// перепроверяет его на актуальной версии строки после взятия блокировки.
const reserveAnySizeQuery = `
	UPDATE inventory SET stock = stock - $1
	WHERE id = (
		SELECT id FROM inventory
		WHERE product_id = $2 AND stock >= $1
		ORDER BY stock DESC, id ASC
		LIMIT 1
	) AND stock >= $1`

// Reserve списывает остаток одним условным UPDATE внутри транзакции заказа.
func (r *inventoryRepository) Reserve(ctx context.Context, tx *sql.Tx, productID int64, size *string, qty int) error {
	var (
		res sql.Result
		err error
	)
	if size != nil {
		res, err = tx.ExecContext(ctx, reserveBySizeQuery, qty, productID, *size)
	} else {
		res, err = tx.ExecContext(ctx, reserveAnySizeQuery, qty, productID)
	}
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	if affected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// Restock увеличивает остаток строки (product, size); size == nil указывает
// на безразмерную строку (сравнение через IS NOT DISTINCT FROM).
func (r *inventoryRepository) Restock(ctx context.Context, productID int64, size *string, qty int) error {
	query := `UPDATE inventory SET stock = stock + $1 WHERE product_id = $2 AND size IS NOT DISTINCT FROM $3`
	res, err := r.db.ExecContext(ctx, query, qty, productID, size)
	if err != nil {
		return fmt.Errorf("failed to restock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to restock: %w", err)
	}
	if affected == 0 {
		return ErrInventoryNotFound
	}
	return nil
}
