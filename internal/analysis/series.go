package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"griffin/internal/models"
)

// series.go - выравнивание ценовых рядов двух брокеров
//
// Ряды лидера и фолловера тикают в разные моменты, поэтому перед
// корреляцией их нужно привести к общей временной сетке. Строим
// объединение меток времени и заполняем пропуски forward-fill'ом
// (несём последнее известное значение), а префикс до первого значения -
// backward-fill'ом. Интерполяции нет: между тиками цена считается
// неизменной.

// alignBidSeries выравнивает bid-ряды двух буферов тиков на объединении
// их меток времени. Оба буфера упорядочены по времени приёма.
// Возвращает две колонки одинаковой длины.
func alignBidSeries(a, b []models.Tick) (x, y []float64) {
	n := len(a) + len(b)
	x = make([]float64, 0, n)
	y = make([]float64, 0, n)

	var (
		i, j         int
		lastA, lastB float64
		haveA, haveB bool
	)

	for i < len(a) || j < len(b) {
		var ts float64
		switch {
		case i >= len(a):
			ts = b[j].Timestamp
		case j >= len(b):
			ts = a[i].Timestamp
		default:
			ts = math.Min(a[i].Timestamp, b[j].Timestamp)
		}

		// Продвигаем оба ряда через все тики с этой меткой времени
		for i < len(a) && a[i].Timestamp == ts {
			lastA = a[i].Bid
			haveA = true
			i++
		}
		for j < len(b) && b[j].Timestamp == ts {
			lastB = b[j].Bid
			haveB = true
			j++
		}

		// ffill: NaN - маркер "значения ещё не было", добьём backward-fill'ом
		if haveA {
			x = append(x, lastA)
		} else {
			x = append(x, math.NaN())
		}
		if haveB {
			y = append(y, lastB)
		} else {
			y = append(y, math.NaN())
		}
	}

	backfill(x)
	backfill(y)
	return x, y
}

// backfill заменяет NaN-префикс первым валидным значением.
// После ffill NaN может остаться только в начале колонки.
func backfill(col []float64) {
	firstValid := math.NaN()
	for _, v := range col {
		if !math.IsNaN(v) {
			firstValid = v
			break
		}
	}
	for i := range col {
		if math.IsNaN(col[i]) {
			col[i] = firstValid
		} else {
			break
		}
	}
}

// pointwiseEqual сообщает, совпадают ли колонки поэлементно.
// Идентичные ряды дают вырожденную корреляцию, вызывающий обязан
// обработать этот случай до расчёта Пирсона.
func pointwiseEqual(x, y []float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// pearson считает корреляцию Пирсона; вырожденный результат (NaN на
// константном ряде) коэрцируется в 0.0.
func pearson(x, y []float64) float64 {
	corr := stat.Correlation(x, y, nil)
	if math.IsNaN(corr) {
		return 0.0
	}
	return corr
}
