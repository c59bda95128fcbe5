package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// normality.go - тест распределения интервалов между тиками
//
// Настоящий фид имеет "рваные" межтиковые интервалы; синтезированный -
// подозрительно регулярные. KPI аутентичности использует p-value теста
// нормальности: применяем Jarque-Bera (статистика асимптотически
// распределена как хи-квадрат с двумя степенями свободы), p-value
// калиброван так же, как у классического теста: малые значения -
// распределение далеко от нормального.
//
// Контракт ошибок: вырожденный вход (нулевая дисперсия, NaN) даёт 0.0 -
// "максимально подозрительно": идеально регулярные интервалы сами по
// себе признак синтетики.

// minNormalitySamples - минимальное количество интервалов для теста;
// при меньшем объёме KPI возвращает нейтральные 0.5.
const minNormalitySamples = 50

// NormalityPValue возвращает p-value теста Jarque-Bera для выборки.
// Вызывающий гарантирует len(samples) >= minNormalitySamples.
func NormalityPValue(samples []float64) float64 {
	n := float64(len(samples))
	if n < 2 {
		return 0.0
	}

	std := stat.StdDev(samples, nil)
	if !(std > 1e-12) { // нулевая дисперсия или NaN
		return 0.0
	}

	skew := stat.Skew(samples, nil)
	exKurtosis := stat.ExKurtosis(samples, nil)
	jb := n / 6 * (skew*skew + exKurtosis*exKurtosis/4)
	if math.IsNaN(jb) || math.IsInf(jb, 0) {
		return 0.0
	}

	p := distuv.ChiSquared{K: 2}.Survival(jb)
	if math.IsNaN(p) {
		return 0.0
	}
	return p
}
