package geo

import (
	"github.com/golang/geo/s2"
)

const earthRadiusMeters = 6371000.0

// Point is one visited-location record in a trajectory.
type Point struct {
	Timestamp string  `json:"timestamp"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Category  string  `json:"category"`
	VenueID   *int64  `json:"venue_id,omitempty"`
	Address   string  `json:"address,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
}

// Trajectory is an ordered sequence of points for one user. Order is visit
// order and is index-significant; it is never sorted after construction.
type Trajectory struct {
	UserID string  `json:"user_id"`
	TrajID string  `json:"traj_id"`
	Points []Point `json:"points"`
}

func (t Trajectory) Len() int { return len(t.Points) }

// LastPoint returns the final point of the trajectory, or false when empty.
func (t Trajectory) LastPoint() (Point, bool) {
	if len(t.Points) == 0 {
		return Point{}, false
	}
	return t.Points[len(t.Points)-1], true
}

// Span returns the total great-circle length of the trajectory in meters.
func (t Trajectory) Span() float64 {
	total := 0.0
	for i := 1; i < len(t.Points); i++ {
		total += Distance(t.Points[i-1], t.Points[i])
	}
	return total
}

// Distance returns the great-circle distance between two points in meters.
func Distance(a, b Point) float64 {
	p1 := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	p2 := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return p1.Distance(p2).Radians() * earthRadiusMeters
}
