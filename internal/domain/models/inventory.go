package models

// InventoryEntry представляет остаток товара по конкретному размеру.
// Size == nil означает безразмерную позицию.
// Поле Stock изменяется только через резервирование в Inventory Ledger.
type InventoryEntry struct {
	ID        int64
	ProductID int64
	Size      *string
	Stock     int
}
