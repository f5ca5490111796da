// Package builder owns the in-progress, user-authored point sequence and the
// three mutually-exclusive input modes used to grow it.
package builder

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vonfeng/AgentMove-Public/internal/geo"
)

// InputMode selects the acquisition source for subsequent points. Exactly one
// mode is active at a time; switching never discards authored points.
type InputMode int

const (
	ModeMap InputMode = iota
	ModeForm
	ModeJSON
)

func (m InputMode) String() string {
	switch m {
	case ModeMap:
		return "map"
	case ModeForm:
		return "form"
	case ModeJSON:
		return "json"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

var (
	ErrWrongMode  = errors.New("operation not available in current input mode")
	ErrEmpty      = errors.New("trajectory has no points")
	ErrIndexRange = errors.New("point index out of range")
)

// ImportReport summarizes a JSON import attempt. Errors non-empty means the
// import was aborted and nothing was added.
type ImportReport struct {
	PointCount int
	Errors     []string
	Warnings   []string
}

// Builder holds the mutable authoring state. It is not safe for concurrent
// use; the session controller is its only caller.
type Builder struct {
	mode   InputMode
	points []geo.Point
	json   string // last JSON paste, cleared with the rest of the transient state
	now    func() time.Time
	log    *zap.Logger
}

func New(log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{mode: ModeMap, now: time.Now, log: log}
}

func (b *Builder) Mode() InputMode { return b.mode }
func (b *Builder) Len() int        { return len(b.points) }

// Points returns a copy of the committed sequence in authoring order.
func (b *Builder) Points() []geo.Point {
	out := make([]geo.Point, len(b.points))
	copy(out, b.points)
	return out
}

// Labels returns the 1-based display labels for the committed points. Labels
// are positional, never stored, so removal re-labels for free.
func (b *Builder) Labels() []string {
	labels := make([]string, len(b.points))
	for i := range b.points {
		labels[i] = fmt.Sprintf("%d", i+1)
	}
	return labels
}

// SwitchMode re-binds the acquisition source. Authored points survive.
func (b *Builder) SwitchMode(m InputMode) {
	if m == b.mode {
		return
	}
	b.log.Debug("input mode switched",
		zap.Stringer("from", b.mode), zap.Stringer("to", m))
	b.mode = m
}

// AddMapPoint appends a point from a map click, stamping the current time and
// the default category. Outside MAP mode the click is ignored; the return
// value reports whether a point was added.
func (b *Builder) AddMapPoint(lat, lng float64) bool {
	if b.mode != ModeMap {
		return false
	}
	p, _, err := geo.Validate(geo.RawPoint{Latitude: &lat, Longitude: &lng})
	if err != nil {
		b.log.Warn("map click rejected", zap.Error(err))
		return false
	}
	p.Timestamp = b.now().Format(time.RFC3339)
	b.points = append(b.points, p)
	return true
}

// AddFormPoint validates and appends a point from form fields. On failure the
// point is not appended and the field errors go back to the caller so the
// form can be corrected in place.
func (b *Builder) AddFormPoint(raw geo.RawPoint) ([]string, error) {
	if b.mode != ModeForm {
		return nil, ErrWrongMode
	}
	p, warnings, err := geo.Validate(raw)
	if err != nil {
		return nil, err
	}
	if p.Timestamp == "" {
		p.Timestamp = b.now().Format(time.RFC3339)
	}
	b.points = append(b.points, p)
	return warnings, nil
}

// RemovePoint deletes the point at index i. Everything after it shifts down,
// which re-labels the remainder since labels are positional.
func (b *Builder) RemovePoint(i int) error {
	if i < 0 || i >= len(b.points) {
		return fmt.Errorf("%w: %d of %d", ErrIndexRange, i, len(b.points))
	}
	b.points = append(b.points[:i], b.points[i+1:]...)
	return nil
}

type importPayload struct {
	Points []json.RawMessage `json:"points"`
}

// ImportJSON parses a pasted document and replaces the whole in-progress
// sequence. The import is all-or-nothing: any parse failure or invalid point
// aborts it, and the report collects one error per bad point so the author
// sees everything at once.
func (b *Builder) ImportJSON(text string) (ImportReport, error) {
	if b.mode != ModeJSON {
		return ImportReport{}, ErrWrongMode
	}
	b.json = text

	var payload importPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		report := ImportReport{Errors: []string{"invalid JSON: " + err.Error()}}
		return report, fmt.Errorf("import aborted: %s", report.Errors[0])
	}
	if payload.Points == nil {
		report := ImportReport{Errors: []string{`missing "points" array`}}
		return report, fmt.Errorf("import aborted: %s", report.Errors[0])
	}

	report := ImportReport{}
	imported := make([]geo.Point, 0, len(payload.Points))
	stamp := b.now().Format(time.RFC3339)
	for i, rawMsg := range payload.Points {
		var raw geo.RawPoint
		if err := json.Unmarshal(rawMsg, &raw); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("point %d: not an object (%v)", i+1, err))
			continue
		}
		p, warnings, err := geo.Validate(raw)
		if err != nil {
			var verr *geo.ValidationError
			if errors.As(err, &verr) {
				for _, field := range verr.Fields {
					report.Errors = append(report.Errors, fmt.Sprintf("point %d: %s", i+1, field))
				}
			} else {
				report.Errors = append(report.Errors, fmt.Sprintf("point %d: %v", i+1, err))
			}
			continue
		}
		for _, w := range warnings {
			report.Warnings = append(report.Warnings, fmt.Sprintf("point %d: %s", i+1, w))
		}
		if p.Timestamp == "" {
			p.Timestamp = stamp
		}
		imported = append(imported, p)
	}

	if len(report.Errors) > 0 {
		return report, fmt.Errorf("import aborted: %d invalid point(s)", len(payload.Points)-len(imported))
	}

	b.points = imported
	report.PointCount = len(imported)
	b.log.Info("trajectory imported", zap.Int("points", report.PointCount))
	return report, nil
}

// Clear empties the committed sequence and all mode-specific transient state.
func (b *Builder) Clear() {
	b.points = nil
	b.json = ""
}

// Finalize produces a trajectory from the committed points, assigning fresh
// session-scoped identifiers. It fails with zero points.
func (b *Builder) Finalize() (geo.Trajectory, error) {
	if len(b.points) == 0 {
		return geo.Trajectory{}, ErrEmpty
	}
	id := uuid.NewString()[:8]
	return geo.Trajectory{
		UserID: "custom_" + id,
		TrajID: id,
		Points: b.Points(),
	}, nil
}
