package dsp

import (
	"math"
	"testing"
)

func TestMagnitudesFullScaleSine(t *testing.T) {
	const n = 2048
	f := NewFFT(n)
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 32 * float64(i) / n))
	}
	dst := make([]float32, n/2)
	f.Magnitudes(samples, dst)

	// 32 cycles land at FFT bin 32, which is dst index 31 with DC dropped
	if got := dst[31]; math.Abs(float64(got)-1) > 0.05 {
		t.Fatalf("full-scale sine bin magnitude = %v, want about 1.0", got)
	}
	// energy elsewhere stays a fraction of the peak
	for i, m := range dst {
		if i >= 29 && i <= 33 {
			continue // window leakage around the tone
		}
		if m > 0.05 {
			t.Errorf("bin %d magnitude = %v, want near 0", i, m)
		}
	}
}

func TestMagnitudesSilence(t *testing.T) {
	const n = 256
	f := NewFFT(n)
	dst := make([]float32, n/2)
	f.Magnitudes(make([]float32, n), dst)
	for i, m := range dst {
		if m != 0 {
			t.Fatalf("silent input produced magnitude %v at bin %d", m, i)
		}
	}
}

func TestMagnitudesScaleLinearly(t *testing.T) {
	const n = 512
	f := NewFFT(n)
	full := make([]float32, n)
	half := make([]float32, n)
	for i := range full {
		s := math.Sin(2 * math.Pi * 8 * float64(i) / n)
		full[i] = float32(s)
		half[i] = float32(s * 0.5)
	}
	a := make([]float32, n/2)
	b := make([]float32, n/2)
	f.Magnitudes(full, a)
	f.Magnitudes(half, b)
	if math.Abs(float64(a[7])/2-float64(b[7])) > 1e-3 {
		t.Fatalf("halving amplitude gave %v vs %v", a[7], b[7])
	}
}

func TestSize(t *testing.T) {
	if got := NewFFT(1024).Size(); got != 1024 {
		t.Fatalf("Size = %d", got)
	}
}
