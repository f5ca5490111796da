package builder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vonfeng/AgentMove-Public/internal/geo"
)

func newTestBuilder() *Builder {
	b := New(nil)
	b.now = func() time.Time { return time.Date(2024, 11, 25, 8, 30, 0, 0, time.UTC) }
	return b
}

func f(v float64) *float64 { return &v }

func TestAddMapPointOnlyInMapMode(t *testing.T) {
	b := newTestBuilder()

	require.True(t, b.AddMapPoint(31.23, 121.47))
	assert.Equal(t, 1, b.Len())

	// Clicks in other modes are silently ignored.
	b.SwitchMode(ModeForm)
	assert.False(t, b.AddMapPoint(31.24, 121.48))
	assert.Equal(t, 1, b.Len())
}

func TestAddMapPointStampsDefaults(t *testing.T) {
	b := newTestBuilder()
	require.True(t, b.AddMapPoint(31.23, 121.47))

	p := b.Points()[0]
	assert.Equal(t, geo.DefaultCategory, p.Category)
	assert.Equal(t, "2024-11-25T08:30:00Z", p.Timestamp)
}

func TestAddMapPointRejectsBadCoords(t *testing.T) {
	b := newTestBuilder()
	assert.False(t, b.AddMapPoint(91.0, 121.47))
	assert.Zero(t, b.Len())
}

func TestAddFormPoint(t *testing.T) {
	b := newTestBuilder()
	b.SwitchMode(ModeForm)

	warnings, err := b.AddFormPoint(geo.RawPoint{Latitude: f(31.23), Longitude: f(121.47)})
	require.NoError(t, err)
	assert.Len(t, warnings, 1) // missing timestamp
	assert.Equal(t, 1, b.Len())

	// Invalid form input surfaces the error and appends nothing.
	_, err = b.AddFormPoint(geo.RawPoint{Latitude: f(200)})
	require.Error(t, err)
	var verr *geo.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
	assert.Equal(t, 1, b.Len())
}

func TestAddFormPointWrongMode(t *testing.T) {
	b := newTestBuilder()
	_, err := b.AddFormPoint(geo.RawPoint{Latitude: f(31.0), Longitude: f(121.0)})
	assert.ErrorIs(t, err, ErrWrongMode)
}

func TestSwitchModeKeepsPoints(t *testing.T) {
	b := newTestBuilder()
	b.AddMapPoint(31.23, 121.47)
	b.AddMapPoint(31.24, 121.48)

	b.SwitchMode(ModeForm)
	assert.Equal(t, 2, b.Len())
	b.SwitchMode(ModeJSON)
	assert.Equal(t, 2, b.Len())
}

func TestRemovePointRelabels(t *testing.T) {
	b := newTestBuilder()
	for i := 0; i < 4; i++ {
		b.AddMapPoint(31.0+float64(i), 121.0)
	}

	require.NoError(t, b.RemovePoint(1))
	points := b.Points()
	require.Len(t, points, 3)
	assert.Equal(t, 31.0, points[0].Latitude)
	assert.Equal(t, 33.0, points[1].Latitude)
	assert.Equal(t, 34.0, points[2].Latitude)
	assert.Equal(t, []string{"1", "2", "3"}, b.Labels())
}

func TestRemovePointBadIndex(t *testing.T) {
	b := newTestBuilder()
	b.AddMapPoint(31.0, 121.0)

	assert.ErrorIs(t, b.RemovePoint(-1), ErrIndexRange)
	assert.ErrorIs(t, b.RemovePoint(1), ErrIndexRange)
	assert.Equal(t, 1, b.Len())
}

func TestImportJSONAllOrNothing(t *testing.T) {
	b := newTestBuilder()
	b.SwitchMode(ModeJSON)

	// One invalid point among two valid ones: nothing is imported and the
	// error list covers exactly the invalid point.
	text := `{"points": [
		{"latitude": 31.23, "longitude": 121.47},
		{"longitude": 121.48},
		{"latitude": 31.25, "longitude": 121.49}
	]}`
	report, err := b.ImportJSON(text)
	require.Error(t, err)
	assert.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "point 2")
	assert.Zero(t, b.Len())
}

func TestImportJSONSuccess(t *testing.T) {
	b := newTestBuilder()
	b.AddMapPoint(30.0, 120.0) // pre-existing point, replaced wholesale
	b.SwitchMode(ModeJSON)

	text := `{"points": [
		{"timestamp": "2024-11-25T09:00:00", "latitude": 31.23, "longitude": 121.47, "category": "Office"},
		{"latitude": 31.24, "longitude": 121.48}
	]}`
	report, err := b.ImportJSON(text)
	require.NoError(t, err)
	assert.Equal(t, 2, report.PointCount)
	assert.Len(t, report.Warnings, 1) // second point has no timestamp

	points := b.Points()
	require.Len(t, points, 2)
	assert.Equal(t, "Office", points[0].Category)
	assert.NotEmpty(t, points[1].Timestamp)
}

func TestImportJSONMalformed(t *testing.T) {
	b := newTestBuilder()
	b.SwitchMode(ModeJSON)

	_, err := b.ImportJSON("{not json")
	require.Error(t, err)

	report, err := b.ImportJSON(`{"trajectory": []}`)
	require.Error(t, err)
	assert.Contains(t, report.Errors[0], `"points"`)

	// Wrong mode is a state error, not a parse error.
	b.SwitchMode(ModeMap)
	_, err = b.ImportJSON(`{"points": []}`)
	assert.ErrorIs(t, err, ErrWrongMode)
}

func TestClearDropsTransientState(t *testing.T) {
	b := newTestBuilder()
	b.AddMapPoint(31.0, 121.0)
	b.SwitchMode(ModeJSON)
	_, _ = b.ImportJSON(`{"points": [{"latitude": 31.1, "longitude": 121.1}]}`)

	b.Clear()
	assert.Zero(t, b.Len())
	assert.Empty(t, b.json)
}

func TestFinalize(t *testing.T) {
	b := newTestBuilder()
	_, err := b.Finalize()
	assert.ErrorIs(t, err, ErrEmpty)

	b.AddMapPoint(31.0, 121.0)
	traj, err := b.Finalize()
	require.NoError(t, err)
	assert.NotEmpty(t, traj.UserID)
	assert.NotEmpty(t, traj.TrajID)
	assert.Len(t, traj.Points, 1)

	// Identifiers are fresh per finalize.
	traj2, err := b.Finalize()
	require.NoError(t, err)
	assert.NotEqual(t, traj.TrajID, traj2.TrajID)
}
