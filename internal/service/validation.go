package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"geotrace/internal/models"
)

// Decoding and validation errors.
var (
	ErrEmptyRecord   = errors.New("no data provided")
	ErrMalformedJSON = errors.New("malformed JSON body")
	ErrNotAnObject   = errors.New("body must be a JSON object")
	ErrInvalidRecord = errors.New("invalid telemetry record")
)

// ValidationError lists the required fields that are absent or unusable.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidRecord, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRecord }

const (
	minLatitude  = -90.0
	maxLatitude  = 90.0
	minLongitude = -180.0
	maxLongitude = 180.0
)

// DecodeRecord reads exactly one JSON object from r. Numbers are kept as
// json.Number so that they are echoed and stored with their original text.
func DecodeRecord(r io.Reader) (models.TelemetryRecord, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyRecord
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformedJSON)
	}

	if v == nil {
		return nil, ErrEmptyRecord // a literal null
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotAnObject
	}
	return models.TelemetryRecord(obj), nil
}

// ValidateRecord checks the required fields of rec. It returns a
// *ValidationError, or nil when rec is acceptable.
func ValidateRecord(rec models.TelemetryRecord) error {
	verr := &ValidationError{}
	for _, field := range models.RequiredFields {
		if _, ok := rec[field]; !ok {
			verr.Missing = append(verr.Missing, field)
			continue
		}
		if !validField(rec, field) {
			verr.Invalid = append(verr.Invalid, field)
		}
	}
	if len(verr.Missing) == 0 && len(verr.Invalid) == 0 {
		return nil
	}
	return verr
}

func validField(rec models.TelemetryRecord, field string) bool {
	switch field {
	case models.FieldLatitude:
		v, ok := rec.Float(field)
		return ok && v >= minLatitude && v <= maxLatitude
	case models.FieldLongitude:
		v, ok := rec.Float(field)
		return ok && v >= minLongitude && v <= maxLongitude
	case models.FieldTimestamp:
		s, ok := rec.String(field)
		if !ok {
			return false
		}
		_, err := parseTimestamp(s)
		return err == nil
	default:
		return true
	}
}
