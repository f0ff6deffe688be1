package indicator

import "math"

// NeutralADX fills every index that has not accumulated enough smoothing yet,
// and stands in for the whole series when the input cannot be used.
const NeutralADX = 0.0

// ADXWarmup is the first index carrying a smoothed value for the given window.
func ADXWarmup(window int) int {
	if window < 1 {
		window = 1
	}
	return 2*window - 1
}

// ADX computes a Wilder-smoothed average directional index. Output has the same
// length as close and every element is a number in [0, 100]: warm-up indices hold
// NeutralADX and non-finite results carry the previous value forward.
// Mismatched or empty inputs yield a neutral series.
func ADX(high, low, close []float64, window int) []float64 {
	n := len(close)
	out := neutral(n)
	if n == 0 || len(high) != n || len(low) != n || window < 1 {
		return out
	}

	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
		tr[i] = math.Max(high[i]-low[i], math.Max(math.Abs(high[i]-close[i-1]), math.Abs(low[i]-close[i-1])))
	}

	if n <= window {
		return out
	}
	w := float64(window)
	var sTR, sPlus, sMinus float64
	for i := 1; i <= window; i++ {
		sTR += tr[i]
		sPlus += plusDM[i]
		sMinus += minusDM[i]
	}
	dx := make([]float64, n)
	dx[window] = directionalIndex(sPlus, sMinus, sTR)
	for i := window + 1; i < n; i++ {
		sTR = sTR - sTR/w + tr[i]
		sPlus = sPlus - sPlus/w + plusDM[i]
		sMinus = sMinus - sMinus/w + minusDM[i]
		dx[i] = directionalIndex(sPlus, sMinus, sTR)
	}

	first := ADXWarmup(window)
	if first >= n {
		return out
	}
	var sum float64
	for i := window; i <= first; i++ {
		sum += dx[i]
	}
	adx := sum / w
	out[first] = adx
	for i := first + 1; i < n; i++ {
		adx = (adx*(w-1) + dx[i]) / w
		out[i] = adx
	}
	return fillForward(out)
}

func directionalIndex(plusDM, minusDM, trueRange float64) float64 {
	if trueRange <= 0 {
		return 0
	}
	plusDI := 100 * plusDM / trueRange
	minusDI := 100 * minusDM / trueRange
	total := plusDI + minusDI
	if total <= 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / total
}

func neutral(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = NeutralADX
	}
	return out
}

func fillForward(values []float64) []float64 {
	last := NeutralADX
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			values[i] = last
			continue
		}
		v = math.Min(100, math.Max(0, v))
		values[i] = v
		last = v
	}
	return values
}
