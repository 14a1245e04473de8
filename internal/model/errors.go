package model

import "fmt"

// DataError reports empty, duplicated or non-overlapping input data.
type DataError struct {
	Symbol string
	Reason string
}

func (e *DataError) Error() string {
	if e.Symbol == "" {
		return "data error: " + e.Reason
	}
	return fmt.Sprintf("data error (%s): %s", e.Symbol, e.Reason)
}

// RangeError reports a month, year, date or count outside the supported bounds.
type RangeError struct {
	Field  string
	Value  string
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ModelFitError reports a forecast model that could not be fitted.
type ModelFitError struct {
	Symbol string
	Reason string
	Err    error
}

func (e *ModelFitError) Error() string {
	msg := "model fit failed"
	if e.Symbol != "" {
		msg += " (" + e.Symbol + ")"
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ModelFitError) Unwrap() error { return e.Err }

// PredictionError reports a prediction request the model refuses to evaluate.
type PredictionError struct {
	Date   string
	Reason string
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction for %s rejected: %s", e.Date, e.Reason)
}
