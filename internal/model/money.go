package model

import "math"

// MaxPrice ограничивает сумму одной цены или заказа, чтобы перевод в центы не переполнял int64.
const MaxPrice = 1_000_000.0

// ToCents переводит сумму в минимальные единицы валюты с округлением.
func ToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// FromCents переводит минимальные единицы валюты обратно в сумму.
func FromCents(c int64) float64 {
	return float64(c) / 100
}
