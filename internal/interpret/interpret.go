// Package interpret turns raw prediction responses into a displayable
// correctness verdict and module-output breakdown.
package interpret

import (
	"bytes"
	"encoding/json"

	"github.com/vonfeng/AgentMove-Public/internal/gateway"
)

// NotAvailable fills any display field the response did not provide, so the
// UI never renders an absent value.
const NotAvailable = "Not available"

type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
	VerdictUnknown   Verdict = "unknown"
)

// Modules is the per-module breakdown of the agent's intermediate outputs.
// Every field is populated; missing modules read NotAvailable.
type Modules struct {
	Memory       string
	SpatialWorld string
	SocialWorld  string
}

// DisplayModel is everything the UI needs to present a prediction outcome.
type DisplayModel struct {
	Verdict        Verdict
	PredictedVenue string
	ActualVenue    string
	Explanation    string
	Modules        Modules
	GroundTruth    *gateway.GroundTruth
}

func (d *DisplayModel) Match() bool { return d.Verdict == VerdictCorrect }

// InterpretationError marks a well-formed HTTP success whose payload is
// semantically incomplete. Distinct from a gateway failure so the user sees a
// more specific message.
type InterpretationError struct {
	Reason string
}

func (e *InterpretationError) Error() string {
	return "prediction response incomplete: " + e.Reason
}

// Interpret derives the display model from a prediction response. The match
// verdict compares canonical venue ids (string equality after numeric
// canonicalization); it is only computed when both ids are non-empty,
// otherwise it stays VerdictUnknown. A response missing both the prediction
// and the ground truth cannot be displayed at all and fails; a response
// missing only one of them degrades the affected fields to NotAvailable.
func Interpret(res *gateway.PredictionResult) (*DisplayModel, error) {
	if res == nil || (res.Prediction == nil && res.GroundTruth == nil) {
		return nil, &InterpretationError{Reason: "response carries neither a prediction nor a ground truth"}
	}

	d := &DisplayModel{
		Verdict:        VerdictUnknown,
		PredictedVenue: NotAvailable,
		ActualVenue:    NotAvailable,
		Explanation:    NotAvailable,
		Modules: Modules{
			Memory:       NotAvailable,
			SpatialWorld: NotAvailable,
			SocialWorld:  NotAvailable,
		},
		GroundTruth: res.GroundTruth,
	}

	if res.Prediction != nil {
		if res.Prediction.VenueID != "" {
			d.PredictedVenue = res.Prediction.VenueID.String()
		}
		if res.Prediction.Explanation != "" {
			d.Explanation = res.Prediction.Explanation
		}
	}
	if res.GroundTruth != nil && res.GroundTruth.VenueID != "" {
		d.ActualVenue = res.GroundTruth.VenueID.String()
	}

	// The verdict needs both ids; an empty id on either side stays Unknown
	// so two absent venues never read as a correct prediction.
	if res.Prediction != nil && res.GroundTruth != nil &&
		res.Prediction.VenueID != "" && res.GroundTruth.VenueID != "" {
		if res.Prediction.VenueID == res.GroundTruth.VenueID {
			d.Verdict = VerdictCorrect
		} else {
			d.Verdict = VerdictIncorrect
		}
	}

	if mo := res.ModuleOutputs; mo != nil {
		d.Modules.Memory = formatModule(mo.Memory)
		d.Modules.SpatialWorld = formatModule(mo.SpatialWorld)
		d.Modules.SocialWorld = formatModule(mo.SocialWorld)
	}

	return d, nil
}

func formatModule(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" || string(trimmed) == "{}" || string(trimmed) == `""` {
		return NotAvailable
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return string(trimmed)
	}
	return buf.String()
}
