// Package gateway is the typed client for the remote prediction/trajectory
// service. The service is a black box: every call returns either a decoded
// payload or an *APIError carrying the structured failure envelope.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vonfeng/AgentMove-Public/internal/geo"
)

// Client is the gateway surface the session controller depends on. Tests
// substitute their own implementation.
type Client interface {
	Datasets(ctx context.Context) ([]Dataset, error)
	Trajectories(ctx context.Context, city string, limit int) ([]TrajectorySummary, error)
	Users(ctx context.Context, city, search string, limit int) ([]UserSummary, error)
	UserTrajectories(ctx context.Context, city, userID string) ([]TrajectorySummary, error)
	TrajectoryDetail(ctx context.Context, city, userID, trajID string) (*TrajectoryDetail, error)
	ValidatePoints(ctx context.Context, points []geo.RawPoint) (*ValidateResult, error)
	SaveCustom(ctx context.Context, traj geo.Trajectory) (*TrajectoryDetail, error)
	Predict(ctx context.Context, req PredictRequest) (*PredictionResult, error)
	Health(ctx context.Context) (*Health, error)
	Models(ctx context.Context) (*Models, error)
	Example(ctx context.Context) (*PredictionResult, error)
}

// APIError is a non-2xx response or a structured failure from the service.
// The display string prefers the human-readable message, then the raw error,
// then a status-derived fallback.
type APIError struct {
	Status  int
	ErrType string
	Err     string
	Message string
	Details json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != "" {
		return e.Err
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// HTTPClient talks JSON over HTTP to the service.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

type Option func(*HTTPClient)

func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *HTTPClient) { c.log = log }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *HTTPClient) { c.http = h }
}

func New(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 120 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Datasets lists the cities the service has trajectory data for.
func (c *HTTPClient) Datasets(ctx context.Context) ([]Dataset, error) {
	var env struct {
		Datasets []Dataset `json:"datasets"`
	}
	if err := c.get(ctx, "/api/datasets", nil, &env); err != nil {
		return nil, err
	}
	return env.Datasets, nil
}

func (c *HTTPClient) Trajectories(ctx context.Context, city string, limit int) ([]TrajectorySummary, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var env struct {
		Trajectories []TrajectorySummary `json:"trajectories"`
	}
	if err := c.get(ctx, "/api/trajectories/"+url.PathEscape(city), q, &env); err != nil {
		return nil, err
	}
	return env.Trajectories, nil
}

func (c *HTTPClient) Users(ctx context.Context, city, search string, limit int) ([]UserSummary, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var env struct {
		Users []UserSummary `json:"users"`
	}
	if err := c.get(ctx, "/api/users/"+url.PathEscape(city), q, &env); err != nil {
		return nil, err
	}
	return env.Users, nil
}

func (c *HTTPClient) UserTrajectories(ctx context.Context, city, userID string) ([]TrajectorySummary, error) {
	path := fmt.Sprintf("/api/users/%s/%s/trajectories", url.PathEscape(city), url.PathEscape(userID))
	var env struct {
		Trajectories []TrajectorySummary `json:"trajectories"`
	}
	if err := c.get(ctx, path, nil, &env); err != nil {
		return nil, err
	}
	return env.Trajectories, nil
}

func (c *HTTPClient) TrajectoryDetail(ctx context.Context, city, userID, trajID string) (*TrajectoryDetail, error) {
	path := fmt.Sprintf("/api/trajectory/%s/%s/%s",
		url.PathEscape(city), url.PathEscape(userID), url.PathEscape(trajID))
	var env struct {
		Trajectory *TrajectoryDetail `json:"trajectory"`
	}
	if err := c.get(ctx, path, nil, &env); err != nil {
		return nil, err
	}
	if env.Trajectory == nil {
		return nil, &APIError{Status: http.StatusOK, Message: "empty trajectory payload"}
	}
	return env.Trajectory, nil
}

func (c *HTTPClient) ValidatePoints(ctx context.Context, points []geo.RawPoint) (*ValidateResult, error) {
	body := map[string]any{"points": points}
	var env struct {
		Result *ValidateResult `json:"result"`
	}
	if err := c.post(ctx, "/api/validate", body, &env); err != nil {
		return nil, err
	}
	if env.Result == nil {
		return nil, &APIError{Status: http.StatusOK, Message: "empty validation payload"}
	}
	return env.Result, nil
}

func (c *HTTPClient) SaveCustom(ctx context.Context, traj geo.Trajectory) (*TrajectoryDetail, error) {
	var env struct {
		Trajectory *TrajectoryDetail `json:"trajectory"`
	}
	if err := c.post(ctx, "/api/trajectory/custom", traj, &env); err != nil {
		return nil, err
	}
	if env.Trajectory == nil {
		return nil, &APIError{Status: http.StatusOK, Message: "empty trajectory payload"}
	}
	return env.Trajectory, nil
}

func (c *HTTPClient) Predict(ctx context.Context, req PredictRequest) (*PredictionResult, error) {
	c.log.Info("prediction requested",
		zap.String("city", req.City),
		zap.String("user", req.UserID),
		zap.String("traj", req.TrajID),
		zap.String("model", req.Model),
		zap.String("platform", req.Platform))
	var env struct {
		Prediction *PredictionResult `json:"prediction"`
	}
	if err := c.post(ctx, "/api/predict", req, &env); err != nil {
		return nil, err
	}
	if env.Prediction == nil {
		return nil, &APIError{Status: http.StatusOK, Message: "empty prediction payload"}
	}
	return env.Prediction, nil
}

func (c *HTTPClient) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.get(ctx, "/api/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *HTTPClient) Models(ctx context.Context) (*Models, error) {
	var m Models
	if err := c.get(ctx, "/api/models", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *HTTPClient) Example(ctx context.Context) (*PredictionResult, error) {
	var env struct {
		Prediction *PredictionResult `json:"prediction"`
	}
	if err := c.get(ctx, "/api/example", nil, &env); err != nil {
		return nil, err
	}
	if env.Prediction == nil {
		return nil, &APIError{Status: http.StatusOK, Message: "empty example payload"}
	}
	return env.Prediction, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

type failureEnvelope struct {
	Success   *bool           `json:"success"`
	Error     string          `json:"error"`
	ErrorType string          `json:"error_type"`
	Message   string          `json:"message"`
	Details   json.RawMessage `json:"details"`
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading gateway response: %w", err)
	}

	var failure failureEnvelope
	_ = json.Unmarshal(data, &failure)
	failed := resp.StatusCode < 200 || resp.StatusCode >= 300 ||
		(failure.Success != nil && !*failure.Success)
	if failed {
		apiErr := &APIError{
			Status:  resp.StatusCode,
			ErrType: failure.ErrorType,
			Err:     failure.Error,
			Message: failure.Message,
			Details: failure.Details,
		}
		c.log.Warn("gateway call failed",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("error", apiErr.Error()))
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding gateway response for %s: %w", req.URL.Path, err)
	}
	return nil
}
