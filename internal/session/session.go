// Package session owns the single active trajectory and the state machine
// around loading, authoring, and predicting. The controller is the only
// component that mutates the overlay or the current trajectory; UI surfaces
// (CLI, HTTP handlers) go through it and never touch shared state directly.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/vonfeng/AgentMove-Public/internal/builder"
	"github.com/vonfeng/AgentMove-Public/internal/gateway"
	"github.com/vonfeng/AgentMove-Public/internal/geo"
	"github.com/vonfeng/AgentMove-Public/internal/interpret"
	"github.com/vonfeng/AgentMove-Public/internal/overlay"
)

type State int

const (
	StateEmpty State = iota
	StateLoaded
	StatePredicting
	StateResultShown
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StatePredicting:
		return "predicting"
	case StateResultShown:
		return "result_shown"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StateError rejects an action attempted in the wrong session state, before
// any network call is made.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while session is %s", e.Op, e.State)
}

// ErrStale marks a response that arrived after the session moved on. The
// response is dropped; nothing was mutated.
var ErrStale = errors.New("response superseded by a newer action")

// Notifier receives user-facing error notifications. Gateway failures are
// funneled here exactly once, at the call site.
type Notifier func(msg string)

type Option func(*Controller)

func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) { c.log = log }
}

func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notify = n }
}

func WithCity(city string) Option {
	return func(c *Controller) { c.city = city }
}

// Controller is the session state machine. All mutation is serialized behind
// its mutex; gateway calls run outside the lock and their continuations
// re-validate state and epoch before applying, so a stale response can never
// overwrite a newer state.
type Controller struct {
	mu      sync.Mutex
	state   State
	city    string
	epoch   uint64
	traj    *geo.Trajectory
	result  *interpret.DisplayModel
	gw      gateway.Client
	overlay *overlay.Synchronizer
	builder *builder.Builder
	notify  Notifier
	log     *zap.Logger
}

func New(gw gateway.Client, ov *overlay.Synchronizer, opts ...Option) *Controller {
	c := &Controller{
		state:   StateEmpty,
		city:    "Shanghai",
		gw:      gw,
		overlay: ov,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.builder = builder.New(c.log)
	if c.notify == nil {
		log := c.log
		c.notify = func(msg string) { log.Warn("notification", zap.String("msg", msg)) }
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) City() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.city
}

// Trajectory returns a copy of the current trajectory, or false when none is
// loaded.
func (c *Controller) Trajectory() (geo.Trajectory, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.traj == nil {
		return geo.Trajectory{}, false
	}
	t := *c.traj
	t.Points = append([]geo.Point(nil), c.traj.Points...)
	return t, true
}

// Result returns the last interpreted prediction outcome, if one is shown.
func (c *Controller) Result() (*interpret.DisplayModel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateResultShown || c.result == nil {
		return nil, false
	}
	return c.result, true
}

// Load fetches a trajectory by id and makes it the current one, replacing
// whatever was there wholesale. Allowed from any state; an in-flight predict
// is not cancelled but its result will be dropped by the epoch guard.
func (c *Controller) Load(ctx context.Context, userID, trajID string) error {
	c.mu.Lock()
	city := c.city
	c.mu.Unlock()

	detail, err := c.gw.TrajectoryDetail(ctx, city, userID, trajID)
	if err != nil {
		c.notify("Failed to load trajectory: " + err.Error())
		return fmt.Errorf("loading trajectory %s/%s/%s: %w", city, userID, trajID, err)
	}
	if len(detail.Points) == 0 {
		c.notify("Trajectory " + trajID + " has no points")
		return fmt.Errorf("trajectory %s/%s/%s is empty", city, userID, trajID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyTrajectoryLocked(detail.Trajectory())
	c.log.Info("trajectory loaded",
		zap.String("user", userID), zap.String("traj", trajID),
		zap.Int("points", len(detail.Points)))
	return nil
}

// LoadRandom picks a random trajectory from the city's listing and loads it.
func (c *Controller) LoadRandom(ctx context.Context) error {
	c.mu.Lock()
	city := c.city
	c.mu.Unlock()

	list, err := c.gw.Trajectories(ctx, city, 0)
	if err != nil {
		c.notify("Failed to list trajectories: " + err.Error())
		return fmt.Errorf("listing trajectories for %s: %w", city, err)
	}
	if len(list) == 0 {
		c.notify("No trajectories available for " + city)
		return fmt.Errorf("no trajectories available for %s", city)
	}
	pick := list[rand.Intn(len(list))]
	return c.Load(ctx, pick.UserID, pick.TrajID)
}

// LoadExample fetches the canned example: its embedded trajectory becomes the
// current one and its precomputed result is shown immediately.
func (c *Controller) LoadExample(ctx context.Context) error {
	res, err := c.gw.Example(ctx)
	if err != nil {
		c.notify("Failed to load example: " + err.Error())
		return fmt.Errorf("loading example: %w", err)
	}
	if len(res.ContextTrajectory) == 0 {
		c.notify("Example has no trajectory")
		return errors.New("example has no trajectory")
	}
	d, err := interpret.Interpret(res)
	if err != nil {
		c.notify("Example result unusable: " + err.Error())
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyTrajectoryLocked(geo.Trajectory{
		UserID: res.UserID,
		TrajID: res.TrajID,
		Points: res.ContextTrajectory,
	})
	c.showResultLocked(d)
	return nil
}

// SaveCustom validates the authored points remotely, submits them, and loads
// the saved trajectory (with server-assigned identifiers) as the current one.
func (c *Controller) SaveCustom(ctx context.Context) error {
	traj, err := c.builder.Finalize()
	if err != nil {
		return err
	}

	raws := make([]geo.RawPoint, len(traj.Points))
	for i := range traj.Points {
		p := traj.Points[i]
		raws[i] = geo.RawPoint{
			Timestamp: &p.Timestamp,
			Latitude:  &p.Latitude,
			Longitude: &p.Longitude,
			Category:  &p.Category,
			VenueID:   p.VenueID,
			Address:   &p.Address,
		}
	}
	check, err := c.gw.ValidatePoints(ctx, raws)
	if err != nil {
		c.notify("Failed to validate trajectory: " + err.Error())
		return fmt.Errorf("validating custom trajectory: %w", err)
	}
	if !check.Valid {
		c.notify(fmt.Sprintf("Trajectory rejected: %d error(s)", len(check.Errors)))
		return &geo.ValidationError{Fields: check.Errors}
	}

	saved, err := c.gw.SaveCustom(ctx, traj)
	if err != nil {
		c.notify("Failed to save trajectory: " + err.Error())
		return fmt.Errorf("saving custom trajectory: %w", err)
	}
	applied := saved.Trajectory()
	if len(applied.Points) == 0 {
		applied.Points = traj.Points
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyTrajectoryLocked(applied)
	c.log.Info("custom trajectory saved",
		zap.String("user", applied.UserID), zap.String("traj", applied.TrajID))
	return nil
}

// Predict submits the current trajectory and shows the interpreted result.
// It requires a loaded trajectory and rejects re-entrant calls while a
// prediction is in flight. A response arriving after the session moved on is
// dropped with ErrStale.
func (c *Controller) Predict(ctx context.Context, model, platform, promptType string) (*interpret.DisplayModel, error) {
	c.mu.Lock()
	if c.state == StatePredicting {
		c.mu.Unlock()
		return nil, &StateError{Op: "predict", State: StatePredicting}
	}
	if c.traj == nil || (c.state != StateLoaded && c.state != StateResultShown) {
		state := c.state
		c.mu.Unlock()
		return nil, &StateError{Op: "predict", State: state}
	}
	// Re-predicting from a shown result starts from a clean trajectory
	// overlay so old prediction markers cannot pile up.
	if c.state == StateResultShown {
		c.overlay.Render(c.traj.Points)
		c.result = nil
	}
	req := gateway.PredictRequest{
		City:       c.city,
		Model:      model,
		Platform:   platform,
		PromptType: promptType,
		UserID:     c.traj.UserID,
		TrajID:     c.traj.TrajID,
	}
	c.state = StatePredicting
	c.epoch++
	e := c.epoch
	c.mu.Unlock()

	res, err := c.gw.Predict(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePredicting || c.epoch != e {
		c.log.Info("stale prediction response dropped",
			zap.Uint64("epoch", e), zap.Uint64("current", c.epoch))
		return nil, ErrStale
	}
	if err != nil {
		// Back to LOADED: the trajectory overlay is untouched and the
		// failure goes to the notification channel.
		c.state = StateLoaded
		c.epoch++
		c.notify("Prediction failed: " + err.Error())
		return nil, fmt.Errorf("predicting %s/%s: %w", req.UserID, req.TrajID, err)
	}
	d, err := interpret.Interpret(res)
	if err != nil {
		c.state = StateLoaded
		c.epoch++
		c.notify("Prediction result unusable: " + err.Error())
		return nil, err
	}
	c.showResultLocked(d)
	c.log.Info("prediction shown",
		zap.String("verdict", string(d.Verdict)),
		zap.String("predicted", d.PredictedVenue),
		zap.String("actual", d.ActualVenue))
	return d, nil
}

// Clear discards the current trajectory and result and empties the overlay.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// SwitchCity invalidates the current trajectory: it belongs to the previous
// city's coordinate frame.
func (c *Controller) SwitchCity(city string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if city == c.city {
		return
	}
	c.city = city
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.traj = nil
	c.result = nil
	c.state = StateEmpty
	c.epoch++
	c.overlay.Clear()
}

func (c *Controller) applyTrajectoryLocked(t geo.Trajectory) {
	c.traj = &t
	c.result = nil
	c.state = StateLoaded
	c.epoch++
	c.overlay.Render(t.Points)
}

func (c *Controller) showResultLocked(d *interpret.DisplayModel) {
	c.result = d
	c.state = StateResultShown
	c.epoch++
	if last, ok := c.traj.LastPoint(); ok {
		c.overlay.RenderPrediction(d.GroundTruth, d.Match(), last)
	}
}
