package technical

// Levels holds classic pivot-point support and resistance levels derived
// from a trailing window of bars.
type Levels struct {
	Pivot       float64
	Support1    float64
	Support2    float64
	Resistance1 float64
	Resistance2 float64
}

// PivotWindow is the number of trailing bars used for level detection.
const PivotWindow = 20

// SupportResistance computes pivot levels from the trailing-window high,
// trailing-window low, and the last close.
func SupportResistance(highs, lows, closes []float64, window int) (Levels, bool) {
	if window <= 0 || len(closes) == 0 || len(highs) != len(closes) || len(lows) != len(closes) {
		return Levels{}, false
	}
	if len(closes) < window {
		window = len(closes)
	}

	start := len(closes) - window
	high := highs[start]
	low := lows[start]
	for i := start + 1; i < len(closes); i++ {
		if highs[i] > high {
			high = highs[i]
		}
		if lows[i] < low {
			low = lows[i]
		}
	}

	c := closes[len(closes)-1]
	pivot := (high + low + c) / 3
	return Levels{
		Pivot:       pivot,
		Support1:    2*pivot - high,
		Support2:    pivot - (high - low),
		Resistance1: 2*pivot - low,
		Resistance2: pivot + (high - low),
	}, true
}

// NearLevel reports whether price is within tolerance (fractional, e.g.
// 0.05) of the given level.
func NearLevel(price, level, tolerance float64) bool {
	if level == 0 {
		return false
	}
	diff := price - level
	if diff < 0 {
		diff = -diff
	}
	denom := level
	if denom < 0 {
		denom = -denom
	}
	return diff/denom <= tolerance
}
