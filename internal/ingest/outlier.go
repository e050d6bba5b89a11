package ingest

import "sort"

// OutlierIndices flags positions whose value falls outside
// [Q1 − k·IQR, Q3 + k·IQR]. Used by data cleaning and by the consistency
// validator; never by the ingestion commit rule.
func OutlierIndices(values []float64, k float64) []int {
	if len(values) < 4 {
		return nil
	}

	q1, q3 := quartiles(values)
	iqr := q3 - q1
	lower := q1 - k*iqr
	upper := q3 + k*iqr

	var out []int
	for i, v := range values {
		if v < lower || v > upper {
			out = append(out, i)
		}
	}
	return out
}

// quartiles computes Q1 and Q3 by linear interpolation over the sorted
// copy of the input.
func quartiles(values []float64) (float64, float64) {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return percentile(sorted, 0.25), percentile(sorted, 0.75)
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := p * float64(len(sorted)-1)
	lo := int(pos)
	frac := pos - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
