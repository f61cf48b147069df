package health

func appendBounded[T any](history []T, v T, limit int) []T {
	history = append(history, v)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}

func minMax(values []float64) (min, max float64) {
	min, max = values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

func lastNBelow(values []float64, n int, threshold float64) bool {
	if len(values) < n {
		return false
	}
	for _, v := range values[len(values)-n:] {
		if v >= threshold {
			return false
		}
	}
	return true
}

func lastNIdentical(values []float64, n int) bool {
	if len(values) < n {
		return false
	}
	tail := values[len(values)-n:]
	for _, v := range tail[1:] {
		if v != tail[0] {
			return false
		}
	}
	return true
}
