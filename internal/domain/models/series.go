package models

import (
	"fmt"
	"time"
)

// TimeSeries is an ordered sequence of (timestamp, value) points.
// Timestamps are unique and strictly increasing.
type TimeSeries struct {
	Times  []time.Time
	Values []float64
}

// NewTimeSeries builds a series and checks the index invariants.
func NewTimeSeries(times []time.Time, values []float64) (TimeSeries, error) {
	if len(times) != len(values) {
		return TimeSeries{}, fmt.Errorf("time series: %d timestamps but %d values", len(times), len(values))
	}
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			return TimeSeries{}, fmt.Errorf("time series: timestamp %s at %d is not after %s",
				times[i].Format(time.RFC3339), i, times[i-1].Format(time.RFC3339))
		}
	}
	return TimeSeries{Times: times, Values: values}, nil
}

func (s TimeSeries) Len() int { return len(s.Times) }

func (s TimeSeries) Empty() bool { return len(s.Times) == 0 }

// First returns the earliest timestamp, zero time for an empty series.
func (s TimeSeries) First() time.Time {
	if s.Empty() {
		return time.Time{}
	}
	return s.Times[0]
}

// Last returns the latest timestamp, zero time for an empty series.
func (s TimeSeries) Last() time.Time {
	if s.Empty() {
		return time.Time{}
	}
	return s.Times[len(s.Times)-1]
}

// Slice copies points [i, j) into a new series.
func (s TimeSeries) Slice(i, j int) TimeSeries {
	times := make([]time.Time, j-i)
	values := make([]float64, j-i)
	copy(times, s.Times[i:j])
	copy(values, s.Values[i:j])
	return TimeSeries{Times: times, Values: values}
}

// WithValues returns a series on the same index carrying vals.
func (s TimeSeries) WithValues(vals []float64) TimeSeries {
	times := make([]time.Time, len(s.Times))
	copy(times, s.Times)
	return TimeSeries{Times: times, Values: vals}
}

// SameIndex reports whether both series have identical timestamps.
func (s TimeSeries) SameIndex(o TimeSeries) bool {
	if len(s.Times) != len(o.Times) {
		return false
	}
	for i := range s.Times {
		if !s.Times[i].Equal(o.Times[i]) {
			return false
		}
	}
	return true
}

// LastValue returns the most recent value; ok is false for an empty series.
func (s TimeSeries) LastValue() (float64, bool) {
	if s.Empty() {
		return 0, false
	}
	return s.Values[len(s.Values)-1], true
}
