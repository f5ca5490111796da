package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vonfeng/AgentMove-Public/internal/geo"
)

func TestVenueIDCanonicalization(t *testing.T) {
	tests := []struct {
		name string
		json string
		want VenueID
	}{
		{"number", `42`, "42"},
		{"string", `"42"`, "42"},
		{"float with zero fraction", `42.0`, "42"},
		{"null", `null`, ""},
		{"plain string", `"venue_19"`, "venue_19"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v VenueID
			require.NoError(t, json.Unmarshal([]byte(tt.json), &v))
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestTrajectoryDetailDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/trajectory/Shanghai/1/1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"trajectory": {
				"user_id": "1",
				"traj_id": "1",
				"trajectory_points": [
					{"timestamp": "t1", "latitude": 31.23, "longitude": 121.47, "category": "Home", "venue_id": 7}
				],
				"ground_truth": {"venue_id": 42, "latitude": 31.24, "longitude": 121.49, "address": "Office"},
				"metadata": {"total_points": 1, "has_historical": true}
			}
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	detail, err := c.TrajectoryDetail(context.Background(), "Shanghai", "1", "1")
	require.NoError(t, err)
	assert.Equal(t, "1", detail.UserID)
	require.Len(t, detail.Points, 1)
	assert.Equal(t, "Home", detail.Points[0].Category)
	require.NotNil(t, detail.GroundTruth)
	assert.Equal(t, VenueID("42"), detail.GroundTruth.VenueID)

	traj := detail.Trajectory()
	assert.Equal(t, "1", traj.TrajID)
	assert.Len(t, traj.Points, 1)
}

func TestPredictSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var req PredictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Shanghai", req.City)
		assert.Equal(t, "qwen2.5-7b", req.Model)
		_, _ = w.Write([]byte(`{
			"success": true,
			"prediction": {
				"prediction": {"venue_id": "42", "explanation": "returns to office after lunch"},
				"ground_truth": {"venue_id": 42, "latitude": 31.24, "longitude": 121.49}
			}
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	result, err := c.Predict(context.Background(), PredictRequest{
		City: "Shanghai", Model: "qwen2.5-7b", Platform: "SiliconFlow", PromptType: "agent_move_v6",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Prediction)
	assert.Equal(t, VenueID("42"), result.Prediction.VenueID)
}

func TestFailureMessagePreference(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
		want string
	}{
		{
			"message preferred",
			500,
			`{"success": false, "error": "KeyError: 'ground_stay'", "error_type": "KeyError", "message": "Prediction failed. Check server logs for details."}`,
			"Prediction failed. Check server logs for details.",
		},
		{
			"error fallback",
			500,
			`{"success": false, "error": "KeyError: 'ground_stay'"}`,
			"KeyError: 'ground_stay'",
		},
		{
			"status fallback",
			502,
			`<html>bad gateway</html>`,
			"HTTP 502",
		},
		{
			"structured failure with 200 status",
			200,
			`{"success": false, "error": "agent not initialized"}`,
			"agent not initialized",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(srv.URL)
			_, err := c.Predict(context.Background(), PredictRequest{City: "Shanghai"})
			require.Error(t, err)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.want, apiErr.Error())
			assert.Equal(t, tt.code, apiErr.Status)
		})
	}
}

func TestHealthAndModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/health":
			_, _ = w.Write([]byte(`{"status": "healthy", "agent_loaded": true}`))
		case "/api/models":
			_, _ = w.Write([]byte(`{
				"success": true,
				"platforms": {"SiliconFlow": ["qwen2.5-7b", "qwen2.5-72b"]},
				"prompt_types": {"agent_move_v6": "AgentMove (Full Framework)"}
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.True(t, h.AgentLoaded)

	m, err := c.Models(context.Background())
	require.NoError(t, err)
	assert.Contains(t, m.Platforms, "SiliconFlow")
	assert.Len(t, m.Platforms["SiliconFlow"], 2)
}

func TestDatasets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/datasets", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"success": true,
			"datasets": [
				{"name": "Shanghai", "available": true},
				{"name": "Beijing", "available": false}
			]
		}`))
	}))
	defer srv.Close()

	list, err := New(srv.URL).Datasets(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Shanghai", list[0].Name)
	assert.True(t, list[0].Available)
	assert.False(t, list[1].Available)
}

func TestNon200SuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"success": true,
			"trajectory": {"user_id": "custom_ab12", "traj_id": "ab12", "trajectory_points": [
				{"timestamp": "2024-01-15T09:00:00Z", "latitude": 31.23, "longitude": 121.47, "category": "Home"}
			]}
		}`))
	}))
	defer srv.Close()

	saved, err := New(srv.URL).SaveCustom(context.Background(), geo.Trajectory{
		UserID: "custom_ab12", TrajID: "ab12",
		Points: []geo.Point{{Timestamp: "2024-01-15T09:00:00Z", Latitude: 31.23, Longitude: 121.47}},
	})
	require.NoError(t, err)
	assert.Equal(t, "custom_ab12", saved.UserID)
	assert.Len(t, saved.Points, 1)
}

func TestTrajectoriesLimitParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{
			"success": true,
			"trajectories": [
				{"user_id": "1", "traj_id": "1", "length": 5, "time_range": {"start": "a", "end": "b"}},
				{"user_id": "1", "traj_id": "2", "length": 3}
			]
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	list, err := c.Trajectories(context.Background(), "Shanghai", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 5, list[0].Length)
	require.NotNil(t, list[0].TimeRange)
	assert.Nil(t, list[1].TimeRange)
}

func TestGatewayUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1")
	_, err := c.Health(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "transport failures are not APIErrors")
}
