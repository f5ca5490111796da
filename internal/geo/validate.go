package geo

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultCategory is assigned when a point arrives without one.
const DefaultCategory = "Unknown"

var validate = validator.New()

// RawPoint is an unvalidated candidate point. Pointer fields distinguish
// "absent" from zero values so missing coordinates can be rejected.
type RawPoint struct {
	Timestamp *string  `json:"timestamp"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Category  *string  `json:"category"`
	VenueID   *int64   `json:"venue_id"`
	Address   *string  `json:"address"`
	Duration  *float64 `json:"duration"`
}

// ValidationError carries every field-level problem found in a candidate
// point or trajectory, so batch imports can report all of them at once.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// Validate checks a raw point and normalizes it into a Point. It returns the
// full list of field errors rather than stopping at the first, plus non-fatal
// warnings (e.g. a missing timestamp, which the caller stamps at import time).
// It never mutates its input.
func Validate(raw RawPoint) (Point, []string, error) {
	var fields []string

	// validator range tags reject NaN and +/-Inf too, but the finite check
	// runs first so the message names the real problem.
	if raw.Latitude != nil && !isFinite(*raw.Latitude) {
		fields = append(fields, "latitude: must be a finite number")
	}
	if raw.Longitude != nil && !isFinite(*raw.Longitude) {
		fields = append(fields, "longitude: must be a finite number")
	}

	if err := validate.Struct(raw); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return Point{}, nil, err
		}
		for _, fe := range verrs {
			fields = append(fields, fieldMessage(fe))
		}
	}

	if len(fields) > 0 {
		return Point{}, nil, &ValidationError{Fields: dedupeByField(fields)}
	}

	var warnings []string
	p := Point{
		Latitude:  *raw.Latitude,
		Longitude: *raw.Longitude,
		Category:  DefaultCategory,
	}
	if raw.Timestamp != nil && *raw.Timestamp != "" {
		p.Timestamp = *raw.Timestamp
	} else {
		warnings = append(warnings, "no timestamp, assigning at import time")
	}
	if raw.Category != nil && *raw.Category != "" {
		p.Category = *raw.Category
	}
	if raw.VenueID != nil {
		v := *raw.VenueID
		p.VenueID = &v
	}
	if raw.Address != nil {
		p.Address = *raw.Address
	}
	if raw.Duration != nil {
		p.Duration = *raw.Duration
	}
	return p, warnings, nil
}

func fieldMessage(fe validator.FieldError) string {
	name := strings.ToLower(fe.StructField())
	switch fe.Tag() {
	case "required":
		return name + ": required"
	case "gte", "lte":
		if name == "latitude" {
			return "latitude: must be between -90 and 90"
		}
		return "longitude: must be between -180 and 180"
	default:
		return fmt.Sprintf("%s: invalid (%s)", name, fe.Tag())
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// dedupeByField keeps the first message per field prefix so a NaN latitude
// does not report both a range error and a finiteness error.
func dedupeByField(msgs []string) []string {
	seen := make(map[string]bool, len(msgs))
	out := msgs[:0]
	for _, m := range msgs {
		field, _, _ := strings.Cut(m, ":")
		if seen[field] {
			continue
		}
		seen[field] = true
		out = append(out, m)
	}
	return out
}
