package patterns

import "math"

// FindPeaks returns indexes of local maxima separated by at least minDistance
// bars and standing at least minProminence above the higher of the two
// flanking minima.
func FindPeaks(values []float64, minDistance int, minProminence float64) []int {
	var peaks []int
	for i := 1; i < len(values)-1; i++ {
		if values[i] <= values[i-1] || values[i] < values[i+1] {
			continue
		}
		if minProminence > 0 && prominence(values, i) < minProminence {
			continue
		}
		if len(peaks) > 0 && i-peaks[len(peaks)-1] < minDistance {
			// keep the higher of the two close peaks
			if values[i] > values[peaks[len(peaks)-1]] {
				peaks[len(peaks)-1] = i
			}
			continue
		}
		peaks = append(peaks, i)
	}
	return peaks
}

// FindValleys returns indexes of local minima, mirroring FindPeaks.
func FindValleys(values []float64, minDistance int, minProminence float64) []int {
	inverted := make([]float64, len(values))
	for i, v := range values {
		inverted[i] = -v
	}
	return FindPeaks(inverted, minDistance, minProminence)
}

// prominence measures how far a peak rises above the higher of the lowest
// points on each side before a taller value is reached.
func prominence(values []float64, peak int) float64 {
	leftMin := values[peak]
	for i := peak - 1; i >= 0; i-- {
		if values[i] > values[peak] {
			break
		}
		if values[i] < leftMin {
			leftMin = values[i]
		}
	}
	rightMin := values[peak]
	for i := peak + 1; i < len(values); i++ {
		if values[i] > values[peak] {
			break
		}
		if values[i] < rightMin {
			rightMin = values[i]
		}
	}
	return values[peak] - math.Max(leftMin, rightMin)
}

// Mean computes the arithmetic mean (0 for empty input).
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev computes the population standard deviation.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	var sq float64
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// Slope fits a least-squares line through (0..n-1, values) and returns its
// slope per bar.
func Slope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
