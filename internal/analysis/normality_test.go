package analysis

import (
	"math"
	"math/rand"
	"testing"
)

func TestNormalityPValueGaussianSample(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	samples := make([]float64, 200)
	for i := range samples {
		samples[i] = rng.NormFloat64()*0.01 + 0.05
	}

	p := NormalityPValue(samples)
	if p < 0.05 {
		t.Errorf("gaussian sample rejected as non-normal: p = %v", p)
	}
	if p > 1 {
		t.Errorf("p-value out of range: %v", p)
	}
}

func TestNormalityPValueUniformSample(t *testing.T) {
	// Равномерное распределение: тяжёлый отрицательный эксцесс,
	// тест должен его уверенно отвергать
	samples := make([]float64, 200)
	for i := range samples {
		samples[i] = float64(i) / 200
	}

	if p := NormalityPValue(samples); p > 0.01 {
		t.Errorf("uniform sample accepted as normal: p = %v", p)
	}
}

func TestNormalityPValueDegenerateInput(t *testing.T) {
	constant := make([]float64, 100)
	for i := range constant {
		constant[i] = 0.05
	}
	if p := NormalityPValue(constant); p != 0.0 {
		t.Errorf("zero-variance sample: p = %v, want 0.0", p)
	}

	if p := NormalityPValue([]float64{1.0}); p != 0.0 {
		t.Errorf("single sample: p = %v, want 0.0", p)
	}
	if p := NormalityPValue(nil); p != 0.0 {
		t.Errorf("empty sample: p = %v, want 0.0", p)
	}

	withNaN := make([]float64, 100)
	for i := range withNaN {
		withNaN[i] = float64(i)
	}
	withNaN[50] = math.NaN()
	if p := NormalityPValue(withNaN); p != 0.0 {
		t.Errorf("NaN-contaminated sample: p = %v, want 0.0", p)
	}
}
