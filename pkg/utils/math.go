package utils

import (
	"math"
)

// math.go - математические утилиты для анализа качества фида
//
// Назначение:
// Вспомогательные математические функции для расчёта оценок.
// Все функции являются чистыми (pure functions) без побочных эффектов.
//
// Функции:
// - Clamp: ограничение значения диапазоном
// - Clamp01: ограничение диапазоном [0, 1]
// - NearlyEqual: сравнение float64 с допуском
// - PriceToPips: перевод разницы цен в пипсы

// PipFactor - множитель перевода цены в пипсы (пятый знак после запятой).
const PipFactor = 1e5

// Clamp ограничивает значение диапазоном [lo, hi].
//
// Примеры:
//   - Clamp(120, 0, 100) = 100
//   - Clamp(-5, 0, 100) = 0
//   - Clamp(42, 0, 100) = 42
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Clamp01 ограничивает значение диапазоном [0, 1].
func Clamp01(value float64) float64 {
	return Clamp(value, 0, 1)
}

// NearlyEqual сравнивает два float64 с абсолютным допуском.
//
// Используется в тестах и при сравнении выровненных ценовых рядов,
// где прямое == ненадёжно из-за накопленной погрешности.
func NearlyEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// PriceToPips переводит абсолютную разницу цен в пипсы.
//
// Пример: PriceToPips(1.10010 - 1.10000) = 10.000...
func PriceToPips(diff float64) float64 {
	return diff * PipFactor
}
