package session

import (
	"github.com/vonfeng/AgentMove-Public/internal/builder"
	"github.com/vonfeng/AgentMove-Public/internal/geo"
)

// Authoring operations delegate to the builder and keep the overlay in
// lockstep with the in-progress points. They funnel through the controller
// so nothing else ever writes overlay state.

func (c *Controller) InputMode() builder.InputMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builder.Mode()
}

// SwitchInputMode re-binds the acquisition source for subsequent authoring
// calls. Authored points survive the switch.
func (c *Controller) SwitchInputMode(m builder.InputMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builder.SwitchMode(m)
}

func (c *Controller) AuthoredPoints() []geo.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builder.Points()
}

// AddMapPoint appends a map-click point. Ignored outside MAP mode.
func (c *Controller) AddMapPoint(lat, lng float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.builder.AddMapPoint(lat, lng) {
		return false
	}
	c.authoringChangedLocked()
	return true
}

// AddFormPoint appends a validated form point; on failure nothing changes and
// the field errors go back for correction.
func (c *Controller) AddFormPoint(raw geo.RawPoint) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	warnings, err := c.builder.AddFormPoint(raw)
	if err != nil {
		return nil, err
	}
	c.authoringChangedLocked()
	return warnings, nil
}

// RemoveAuthoredPoint deletes one authored point; later points re-label.
func (c *Controller) RemoveAuthoredPoint(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.builder.RemovePoint(i); err != nil {
		return err
	}
	c.authoringChangedLocked()
	return nil
}

// ImportJSON replaces the authored sequence from a pasted document,
// all-or-nothing.
func (c *Controller) ImportJSON(text string) (builder.ImportReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	report, err := c.builder.ImportJSON(text)
	if err != nil {
		return report, err
	}
	c.authoringChangedLocked()
	return report, nil
}

// ClearAuthoring empties the authored points and their transient input state.
func (c *Controller) ClearAuthoring() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builder.Clear()
	c.authoringChangedLocked()
}

// authoringChangedLocked mirrors the builder's points onto the overlay and
// bumps the epoch so an in-flight prediction cannot draw over them. Editing
// while a prediction is in flight abandons it: the session falls back to
// Loaded immediately instead of waiting on a response it will drop anyway.
func (c *Controller) authoringChangedLocked() {
	c.epoch++
	if c.state == StatePredicting {
		c.state = StateLoaded
	}
	c.overlay.Render(c.builder.Points())
}
