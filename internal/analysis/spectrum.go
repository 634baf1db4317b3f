package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/pendulab/internal/dynamo"
)

// uniformSlack is the relative spacing tolerance for a uniform grid.
const uniformSlack = 1e-6

// PowerSpectrum returns the magnitude of the real FFT of a uniformly
// sampled series, with its mean removed, and the frequency in Hz of each
// bin from 0 up to Nyquist.
func PowerSpectrum(times, series []float64) (freqs, power []float64, err error) {
	dt, err := uniformStep(times, series)
	if err != nil {
		return nil, nil, err
	}

	n := len(series)
	centered := make([]float64, n)
	copy(centered, series)
	floats.AddConst(-stat.Mean(series, nil), centered)

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, centered)

	freqs = make([]float64, len(coeff))
	power = make([]float64, len(coeff))
	for i, c := range coeff {
		freqs[i] = fft.Freq(i) / dt
		power[i] = cmplx.Abs(c)
	}
	return freqs, power, nil
}

// DominantFrequency returns the frequency in Hz of the strongest non-DC
// spectral peak, refined by parabolic interpolation between bins.
func DominantFrequency(times, series []float64) (float64, error) {
	freqs, power, err := PowerSpectrum(times, series)
	if err != nil {
		return 0, err
	}
	if len(power) < 3 {
		return 0, fmt.Errorf("%w: spectrum has %d bins", ErrInsufficientData, len(power))
	}

	k := 1 + floats.MaxIdx(power[1:])
	if power[k] == 0 {
		return 0, fmt.Errorf("%w: series is constant", ErrInsufficientData)
	}
	if k == len(power)-1 {
		return freqs[k], nil
	}

	a, b, c := power[k-1], power[k], power[k+1]
	shift := 0.0
	if den := a - 2*b + c; den != 0 {
		shift = 0.5 * (a - c) / den
	}
	return freqs[k] + shift*(freqs[1]-freqs[0]), nil
}

func uniformStep(times, series []float64) (float64, error) {
	if len(times) != len(series) {
		return 0, fmt.Errorf("%w: %d times, %d samples", dynamo.ErrDimensionMismatch, len(times), len(series))
	}
	if len(times) < 4 {
		return 0, fmt.Errorf("%w: need at least 4 samples, got %d", ErrInsufficientData, len(times))
	}
	if err := dynamo.ValidateTimes(times); err != nil {
		return 0, err
	}

	dt := (times[len(times)-1] - times[0]) / float64(len(times)-1)
	for i := 1; i < len(times); i++ {
		if math.Abs(times[i]-times[i-1]-dt) > uniformSlack*dt {
			return 0, fmt.Errorf("%w: spectrum needs uniform sampling, step %d is %v not %v", dynamo.ErrInvalidTimes, i, times[i]-times[i-1], dt)
		}
	}
	return dt, nil
}
