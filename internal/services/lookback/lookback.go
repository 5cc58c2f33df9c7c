// Package lookback resolves lookback windows such as "2Y", "6M", "26W" or "10D"
// and slices a time series to the trailing window ending at its last timestamp.
package lookback

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"RelVal/internal/domain/models"
)

const (
	DefaultRegression = "2Y"
	DefaultOU         = "26W"
)

type Unit int

const (
	Years Unit = iota + 1
	Months
	Fixed
)

// Spec is either a calendar offset (years or months) or a fixed duration.
type Spec struct {
	raw      string
	unit     Unit
	count    int
	duration time.Duration
}

// Parse accepts "<n>Y" and "<n>M" as calendar offsets, "<n>W" and "<n>D" as
// fixed durations, and otherwise anything time.ParseDuration accepts ("36h").
// Unit letters are case-insensitive, so "6m" means six months.
func Parse(s string) (Spec, error) {
	raw := strings.TrimSpace(s)
	if len(raw) < 2 {
		return Spec{}, fmt.Errorf("lookback %q: too short", s)
	}
	num, suffix := raw[:len(raw)-1], strings.ToUpper(raw[len(raw)-1:])

	switch suffix {
	case "Y", "M", "W", "D":
		n, err := strconv.Atoi(num)
		if err != nil {
			return Spec{}, fmt.Errorf("lookback %q: invalid count: %w", s, err)
		}
		if n <= 0 {
			return Spec{}, fmt.Errorf("lookback %q: count must be positive", s)
		}
		switch suffix {
		case "Y":
			return Spec{raw: raw, unit: Years, count: n}, nil
		case "M":
			return Spec{raw: raw, unit: Months, count: n}, nil
		case "W":
			return Spec{raw: raw, unit: Fixed, duration: time.Duration(n) * 7 * 24 * time.Hour}, nil
		default:
			return Spec{raw: raw, unit: Fixed, duration: time.Duration(n) * 24 * time.Hour}, nil
		}
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return Spec{}, fmt.Errorf("lookback %q: %w", s, err)
	}
	if d <= 0 {
		return Spec{}, fmt.Errorf("lookback %q: duration must be positive", s)
	}
	return Spec{raw: raw, unit: Fixed, duration: d}, nil
}

// MustParse is Parse for constants; it panics on error.
func MustParse(s string) Spec {
	spec, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return spec
}

// Calendar builds a years or months offset.
func Calendar(unit Unit, n int) Spec {
	suffix := "Y"
	if unit == Months {
		suffix = "M"
	}
	return Spec{raw: strconv.Itoa(n) + suffix, unit: unit, count: n}
}

// Duration builds a fixed-length window.
func Duration(d time.Duration) Spec {
	return Spec{raw: d.String(), unit: Fixed, duration: d}
}

func (s Spec) String() string { return s.raw }

func (s Spec) IsZero() bool { return s.unit == 0 }

func (s Spec) Unit() Unit { return s.unit }

// Start returns the inclusive window start for a window ending at end.
// Calendar offsets clip to month end: 31 Mar minus one month is the last day of February.
func (s Spec) Start(end time.Time) time.Time {
	switch s.unit {
	case Years:
		return addMonths(end, -12*s.count)
	case Months:
		return addMonths(end, -s.count)
	default:
		return end.Add(-s.duration)
	}
}

// Slice returns the contiguous points of series inside [Start(last), last].
// A window longer than the history yields the whole series. Fewer than min
// resulting points is an InsufficientDataError tagged with stage.
func Slice(series models.TimeSeries, spec Spec, min int, stage string) (models.TimeSeries, error) {
	if series.Empty() {
		return models.TimeSeries{}, &models.InsufficientDataError{Stage: stage, Have: 0, Need: min}
	}
	start := spec.Start(series.Last())
	i := sort.Search(series.Len(), func(k int) bool { return !series.Times[k].Before(start) })
	out := series.Slice(i, series.Len())
	if out.Len() < min {
		return models.TimeSeries{}, &models.InsufficientDataError{Stage: stage, Have: out.Len(), Need: min}
	}
	return out, nil
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + n
	y += floorDiv(total, 12)
	month := time.Month(total-floorDiv(total, 12)*12 + 1)
	if last := daysIn(y, month, t.Location()); d > last {
		d = last
	}
	hh, mm, ss := t.Clock()
	return time.Date(y, month, d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
