package models

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrAlignment        = errors.New("series not aligned")
)

// InsufficientDataError is returned when a stage has fewer points than it needs.
type InsufficientDataError struct {
	Stage string
	Have  int
	Need  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: have %d points, need at least %d", e.Stage, e.Have, e.Need)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// AlignmentError is returned when two series that must share an index do not.
type AlignmentError struct {
	Stage  string
	Reason string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("%s: series not aligned: %s", e.Stage, e.Reason)
}

func (e *AlignmentError) Is(target error) bool { return target == ErrAlignment }

// CheckAligned returns an AlignmentError when a and b differ in length or timestamps.
func CheckAligned(stage string, a, b TimeSeries) error {
	if a.Len() != b.Len() {
		return &AlignmentError{Stage: stage, Reason: fmt.Sprintf("lengths %d and %d differ", a.Len(), b.Len())}
	}
	for i := range a.Times {
		if !a.Times[i].Equal(b.Times[i]) {
			return &AlignmentError{Stage: stage, Reason: fmt.Sprintf("timestamps differ at position %d", i)}
		}
	}
	return nil
}
