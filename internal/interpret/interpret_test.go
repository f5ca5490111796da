package interpret

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vonfeng/AgentMove-Public/internal/gateway"
)

func TestInterpretMatch(t *testing.T) {
	res := &gateway.PredictionResult{
		Prediction:  &gateway.Prediction{VenueID: "42", Explanation: "returns to office after lunch"},
		GroundTruth: &gateway.GroundTruth{VenueID: "42", Latitude: 31.24, Longitude: 121.49},
	}
	d, err := Interpret(res)
	require.NoError(t, err)
	assert.Equal(t, VerdictCorrect, d.Verdict)
	assert.True(t, d.Match())
	assert.Equal(t, "42", d.PredictedVenue)
	assert.Equal(t, "42", d.ActualVenue)
	assert.Equal(t, "returns to office after lunch", d.Explanation)
}

func TestInterpretMismatch(t *testing.T) {
	res := &gateway.PredictionResult{
		Prediction:  &gateway.Prediction{VenueID: "42"},
		GroundTruth: &gateway.GroundTruth{VenueID: "7"},
	}
	d, err := Interpret(res)
	require.NoError(t, err)
	assert.Equal(t, VerdictIncorrect, d.Verdict)
	assert.False(t, d.Match())
}

func TestInterpretNumericStringEquivalence(t *testing.T) {
	// Mixed id types arrive canonicalized by the gateway decoding layer, so
	// a JSON number 42 and a JSON string "42" yield the same verdict.
	var res gateway.PredictionResult
	require.NoError(t, json.Unmarshal([]byte(`{
		"prediction": {"venue_id": "42"},
		"ground_truth": {"venue_id": 42}
	}`), &res))

	d, err := Interpret(&res)
	require.NoError(t, err)
	assert.Equal(t, VerdictCorrect, d.Verdict)
}

func TestInterpretModuleOutputs(t *testing.T) {
	var res gateway.PredictionResult
	require.NoError(t, json.Unmarshal([]byte(`{
		"prediction": {"venue_id": "1"},
		"ground_truth": {"venue_id": "1"},
		"module_outputs": {
			"memory": {"frequent_locations": ["Home", "Office"]},
			"spatial_world": "business district, dense POI coverage"
		}
	}`), &res))

	d, err := Interpret(&res)
	require.NoError(t, err)
	assert.Contains(t, d.Modules.Memory, "frequent_locations")
	assert.Equal(t, "business district, dense POI coverage", d.Modules.SpatialWorld)
	// Absent module reads as an explicit marker, never an empty field.
	assert.Equal(t, NotAvailable, d.Modules.SocialWorld)
}

func TestInterpretModulesDefaultWhenOmitted(t *testing.T) {
	d, err := Interpret(&gateway.PredictionResult{
		Prediction:  &gateway.Prediction{VenueID: "1"},
		GroundTruth: &gateway.GroundTruth{VenueID: "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, NotAvailable, d.Modules.Memory)
	assert.Equal(t, NotAvailable, d.Modules.SpatialWorld)
	assert.Equal(t, NotAvailable, d.Modules.SocialWorld)
}

func TestInterpretDegradedOneSide(t *testing.T) {
	d, err := Interpret(&gateway.PredictionResult{
		Prediction: &gateway.Prediction{VenueID: "42"},
	})
	require.NoError(t, err)
	assert.Equal(t, VerdictUnknown, d.Verdict)
	assert.Equal(t, "42", d.PredictedVenue)
	assert.Equal(t, NotAvailable, d.ActualVenue)
}

func TestInterpretEmptyVenueIDs(t *testing.T) {
	// Both objects present but neither carries a venue id: two absent
	// venues must not read as a correct prediction.
	d, err := Interpret(&gateway.PredictionResult{
		Prediction:  &gateway.Prediction{Explanation: "stays home"},
		GroundTruth: &gateway.GroundTruth{Latitude: 31.23, Longitude: 121.47},
	})
	require.NoError(t, err)
	assert.Equal(t, VerdictUnknown, d.Verdict)
	assert.Equal(t, NotAvailable, d.PredictedVenue)
	assert.Equal(t, NotAvailable, d.ActualVenue)
}

func TestInterpretIncomplete(t *testing.T) {
	for _, res := range []*gateway.PredictionResult{nil, {}} {
		_, err := Interpret(res)
		require.Error(t, err)
		var ierr *InterpretationError
		require.ErrorAs(t, err, &ierr)
		assert.Contains(t, err.Error(), "incomplete")
	}
}
