// Package overlay keeps the visual map representation (markers plus a
// connecting line) in lockstep with the logical trajectory. The synchronizer
// is the only writer of overlay state; rendering goes through a Backend so
// tests can run against an in-memory fake.
package overlay

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
	"go.uber.org/zap"

	"github.com/vonfeng/AgentMove-Public/internal/gateway"
	"github.com/vonfeng/AgentMove-Public/internal/geo"
)

type MarkerKind int

const (
	KindPoint MarkerKind = iota
	KindGroundTruth
	KindPredicted
)

func (k MarkerKind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindGroundTruth:
		return "ground_truth"
	case KindPredicted:
		return "predicted"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Marker is one drawable map marker.
type Marker struct {
	Index     int
	Latitude  float64
	Longitude float64
	Label     string
	Kind      MarkerKind
}

// Handle identifies a drawn element for later removal.
type Handle int

// Backend is the rendering surface.
type Backend interface {
	DrawMarker(m Marker) Handle
	DrawPolyline(coords [][2]float64) Handle
	Remove(h Handle)
}

const (
	earthRadiusMeters = 6371000.0

	// The service has no geocode for the predicted venue, so the mismatch
	// marker is drawn a fixed distance north-east of the last known point.
	// A visual approximation, kept on purpose.
	fallbackOffsetMeters  = 150.0
	fallbackOffsetBearing = 45.0
)

// Synchronizer owns the overlay state. Not safe for concurrent use; the
// session controller is its only caller.
type Synchronizer struct {
	backend  Backend
	markers  map[int]Handle // trajectory markers by point index
	extra    []Handle       // prediction markers, drawn on top
	polyline *Handle
	log      *zap.Logger
}

func NewSynchronizer(b Backend, log *zap.Logger) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Synchronizer{
		backend: b,
		markers: make(map[int]Handle),
		log:     log,
	}
}

// Render replaces the whole overlay with markers and a connecting line for
// the given points. Full-replace semantics make the call idempotent: the
// overlay can never drift from the logical state, whatever it showed before.
func (s *Synchronizer) Render(points []geo.Point) {
	s.Clear()

	coords := make([][2]float64, 0, len(points))
	for i, p := range points {
		s.markers[i] = s.backend.DrawMarker(Marker{
			Index:     i,
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Label:     fmt.Sprintf("%d", i+1),
			Kind:      KindPoint,
		})
		coords = append(coords, [2]float64{p.Latitude, p.Longitude})
	}
	if len(coords) >= 2 {
		h := s.backend.DrawPolyline(coords)
		s.polyline = &h
	}
	s.log.Debug("overlay rendered", zap.Int("markers", len(points)))
}

// RenderPrediction draws the prediction markers on top of the existing
// trajectory overlay. A ground-truth marker goes at the true coordinates; a
// fallback "predicted" marker appears only on a mismatch with ground-truth
// coordinates present, offset from the last trajectory point.
func (s *Synchronizer) RenderPrediction(gt *gateway.GroundTruth, match bool, last geo.Point) {
	if gt == nil || (gt.Latitude == 0 && gt.Longitude == 0) {
		return
	}
	s.extra = append(s.extra, s.backend.DrawMarker(Marker{
		Latitude:  gt.Latitude,
		Longitude: gt.Longitude,
		Label:     "Actual: " + gt.VenueID.String(),
		Kind:      KindGroundTruth,
	}))
	if match {
		return
	}
	lat, lng := offsetFrom(last.Latitude, last.Longitude, fallbackOffsetBearing, fallbackOffsetMeters)
	s.extra = append(s.extra, s.backend.DrawMarker(Marker{
		Latitude:  lat,
		Longitude: lng,
		Label:     "Predicted (approx. position)",
		Kind:      KindPredicted,
	}))
}

// Clear removes every marker and the polyline. Skipping this before a
// re-render would orphan backend handles.
func (s *Synchronizer) Clear() {
	for _, h := range s.markers {
		s.backend.Remove(h)
	}
	s.markers = make(map[int]Handle)
	for _, h := range s.extra {
		s.backend.Remove(h)
	}
	s.extra = nil
	if s.polyline != nil {
		s.backend.Remove(*s.polyline)
		s.polyline = nil
	}
}

// MarkerCount reports trajectory plus prediction markers currently drawn.
func (s *Synchronizer) MarkerCount() int {
	return len(s.markers) + len(s.extra)
}

// HasPolyline reports whether a connecting line is drawn.
func (s *Synchronizer) HasPolyline() bool { return s.polyline != nil }

// offsetFrom computes the destination point from (lat, lng) along the given
// bearing (degrees) for the given distance (meters).
func offsetFrom(lat, lng, bearing, distance float64) (float64, float64) {
	p := s2.LatLngFromDegrees(lat, lng)
	bearingRad := bearing * math.Pi / 180
	angular := distance / earthRadiusMeters

	lat1 := p.Lat.Radians()
	lng1 := p.Lng.Radians()

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angular) +
		math.Cos(lat1)*math.Sin(angular)*math.Cos(bearingRad))
	lng2 := lng1 + math.Atan2(
		math.Sin(bearingRad)*math.Sin(angular)*math.Cos(lat1),
		math.Cos(angular)-math.Sin(lat1)*math.Sin(lat2))

	return lat2 * 180 / math.Pi, lng2 * 180 / math.Pi
}
