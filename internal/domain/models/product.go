package models

// Статусы товара, выставляются админкой каталога
const (
	ProductStatusAvailable    = "available"
	ProductStatusHidden       = "hidden"
	ProductStatusDiscontinued = "discontinued"
)

// Product представляет товар из каталога.
// Ядро заказов только читает его: цена, валюта и флаги доступности.
type Product struct {
	ID         int64  // Уникальный идентификатор товара
	Name       string // Название товара
	PriceCents int    // Цена в минорных единицах валюты (копейки/пайсы)
	Currency   string // Код валюты (ISO 4217)
	Status     string // Статус доступности (см. константы выше)
	IsLocked   bool   // Товар заблокирован админкой и не продаётся
}

// Available возвращает true, если товар можно класть в заказ.
func (p *Product) Available() bool {
	return !p.IsLocked && p.Status == ProductStatusAvailable
}
