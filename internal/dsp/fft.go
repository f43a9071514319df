// Package dsp holds the fixed-size spectrum transform behind the analyser.
package dsp

import (
	"math"
	"math/cmplx"

	"github.com/viterin/vek/vek32"
)

// FFT is a fixed-size Hanning-windowed radix-2 transform. Allocate once,
// reuse; the scratch buffers make Magnitudes allocation-free.
type FFT struct {
	n          int
	window     []float32
	normFactor float32
	bitPerm    []int // bit-reversal permutation table
	c          []complex128
	tmp1, tmp2 []float32
}

// NewFFT creates a transform of size n, which must be a power of two.
func NewFFT(n int) *FFT {
	f := &FFT{
		n:       n,
		window:  make([]float32, n),
		bitPerm: make([]int, n),
		c:       make([]complex128, n),
		tmp1:    make([]float32, n),
		tmp2:    make([]float32, n),
	}
	for i := range f.window {
		w := float32(0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1))))
		f.window[i] = w
		f.normFactor += w
		f.bitPerm[i] = i
	}
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			f.bitPerm[i], f.bitPerm[j] = f.bitPerm[j], f.bitPerm[i]
		}
	}
	return f
}

// Size returns the transform length.
func (f *FFT) Size() int { return f.n }

// Magnitudes computes n/2 windowed magnitude bins (DC excluded, Nyquist
// included) from exactly n samples into dst, normalized for the window so a
// full-scale sine lands near 1.0 in its bin.
func (f *FFT) Magnitudes(samples []float32, dst []float32) {
	vek32.Mul_Into(f.tmp1, samples[:f.n], f.window)
	vek32.Gather_Into(f.tmp2, f.tmp1, f.bitPerm)
	c := f.c
	for i := range c {
		c[i] = complex(float64(f.tmp2[i]), 0)
	}
	n := f.n
	for span := 2; span <= n; span <<= 1 {
		ang := 2 * math.Pi / float64(span)
		wspan := complex(math.Cos(ang), math.Sin(ang))
		for i := 0; i < n; i += span {
			w := complex(1, 0)
			for j := 0; j < span/2; j++ {
				u := c[i+j]
				v := c[i+j+span/2] * w
				c[i+j] = u + v
				c[i+j+span/2] = u - v
				w *= wspan
			}
		}
	}
	m := n / 2
	for i := 0; i < m; i++ {
		dst[i] = float32(cmplx.Abs(c[1+i])) // skip DC
	}
	// window normalization; double everything but Nyquist for the
	// discarded mirror half of a real-valued transform
	vek32.DivNumber_Inplace(dst[:m], f.normFactor*0.5)
	dst[m-1] *= 0.5
}
