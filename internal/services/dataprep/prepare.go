// Package dataprep cleans and aligns raw close series before they enter the
// pair pipeline.
package dataprep

import (
	"math"
	"time"

	"RelVal/internal/domain/models"
)

// ForwardFill replaces NaN values with the last observed value. Leading NaNs
// have nothing to carry and are dropped.
func ForwardFill(s models.TimeSeries) models.TimeSeries {
	times := make([]time.Time, 0, s.Len())
	values := make([]float64, 0, s.Len())
	last, seen := 0.0, false
	for i, v := range s.Values {
		if math.IsNaN(v) {
			if !seen {
				continue
			}
			v = last
		}
		last, seen = v, true
		times = append(times, s.Times[i])
		values = append(values, v)
	}
	return models.TimeSeries{Times: times, Values: values}
}

// Synchronize keeps only the timestamps present in both series.
func Synchronize(a, b models.TimeSeries) (models.TimeSeries, models.TimeSeries) {
	var (
		at, bt []time.Time
		av, bv []float64
	)
	i, j := 0, 0
	for i < a.Len() && j < b.Len() {
		ta, tb := a.Times[i], b.Times[j]
		switch {
		case ta.Equal(tb):
			at = append(at, ta)
			bt = append(bt, tb)
			av = append(av, a.Values[i])
			bv = append(bv, b.Values[j])
			i++
			j++
		case ta.Before(tb):
			i++
		default:
			j++
		}
	}
	return models.TimeSeries{Times: at, Values: av}, models.TimeSeries{Times: bt, Values: bv}
}

// Prepare forward-fills both series and then synchronizes them.
func Prepare(a, b models.TimeSeries) (models.TimeSeries, models.TimeSeries) {
	return Synchronize(ForwardFill(a), ForwardFill(b))
}
