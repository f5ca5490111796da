package gateway

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/vonfeng/AgentMove-Public/internal/geo"
)

// VenueID is the canonical (string) form of a venue identifier. The service
// emits venue ids as JSON numbers in some payloads and strings in others;
// unmarshalling canonicalizes numbers to trimmed decimal text so "42" and 42
// compare equal with plain string equality.
type VenueID string

func (v *VenueID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = VenueID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if f, err := n.Float64(); err == nil {
		*v = VenueID(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	*v = VenueID(n.String())
	return nil
}

func (v VenueID) String() string { return string(v) }

// Dataset is one entry in the city/dataset catalog.
type Dataset struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// TimeRange bounds the timestamps of a trajectory.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TrajectorySummary is one row in a trajectory listing.
type TrajectorySummary struct {
	UserID    string     `json:"user_id"`
	TrajID    string     `json:"traj_id"`
	Length    int        `json:"length"`
	TimeRange *TimeRange `json:"time_range,omitempty"`
}

// UserSummary is one row in a user listing, with trajectory statistics.
type UserSummary struct {
	UserID          string  `json:"user_id"`
	TrajectoryCount int     `json:"trajectory_count"`
	AvgLength       float64 `json:"avg_length"`
	MinLength       int     `json:"min_length"`
	MaxLength       int     `json:"max_length"`
}

// TrajectoryMetadata carries display hints attached to a trajectory detail.
type TrajectoryMetadata struct {
	TotalPoints   int  `json:"total_points"`
	HasHistorical bool `json:"has_historical"`
}

// TrajectoryDetail is the full trajectory payload for one (city, user, traj).
type TrajectoryDetail struct {
	UserID      string              `json:"user_id"`
	TrajID      string              `json:"traj_id"`
	Points      []geo.Point         `json:"trajectory_points"`
	GroundTruth *GroundTruth        `json:"ground_truth,omitempty"`
	Metadata    *TrajectoryMetadata `json:"metadata,omitempty"`
}

// Trajectory converts the detail payload into the client-side model.
func (d TrajectoryDetail) Trajectory() geo.Trajectory {
	return geo.Trajectory{UserID: d.UserID, TrajID: d.TrajID, Points: d.Points}
}

// Prediction is the agent's answer for the next location.
type Prediction struct {
	VenueID     VenueID `json:"venue_id"`
	Explanation string  `json:"explanation"`
}

// GroundTruth is the actually-visited next location.
type GroundTruth struct {
	VenueID   VenueID `json:"venue_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// ModuleOutputs holds the per-module intermediate results of the agent. Any
// of the three may be absent.
type ModuleOutputs struct {
	Memory       json.RawMessage `json:"memory,omitempty"`
	SpatialWorld json.RawMessage `json:"spatial_world,omitempty"`
	SocialWorld  json.RawMessage `json:"social_world,omitempty"`
}

// PredictionResult is the full prediction payload.
type PredictionResult struct {
	UserID            string         `json:"user_id,omitempty"`
	TrajID            string         `json:"traj_id,omitempty"`
	Prediction        *Prediction    `json:"prediction"`
	GroundTruth       *GroundTruth   `json:"ground_truth"`
	ModuleOutputs     *ModuleOutputs `json:"module_outputs,omitempty"`
	ContextTrajectory []geo.Point    `json:"context_trajectory,omitempty"`
	IsExample         bool           `json:"is_example,omitempty"`
}

// PredictRequest selects the trajectory and the agent configuration for one
// prediction run.
type PredictRequest struct {
	City       string `json:"city_name"`
	Model      string `json:"model_name"`
	Platform   string `json:"platform"`
	PromptType string `json:"prompt_type"`
	UserID     string `json:"user_id,omitempty"`
	TrajID     string `json:"traj_id,omitempty"`
}

// ValidateResult reports server-side validation of a candidate point sequence.
type ValidateResult struct {
	Valid      bool     `json:"valid"`
	PointCount int      `json:"point_count"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
}

// Health is the service status payload.
type Health struct {
	Status      string `json:"status"`
	AgentLoaded bool   `json:"agent_loaded"`
}

// Models catalogs the platforms, their models, and the prompt types.
type Models struct {
	Platforms   map[string][]string `json:"platforms"`
	PromptTypes map[string]string   `json:"prompt_types"`
}
