// Package server is the demo façade: it serves the frontend assets and
// exposes the demo API surface, forwarding data and prediction calls to the
// remote gateway. Plain request/response plumbing; the session logic lives
// client-side.
package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vonfeng/AgentMove-Public/internal/config"
	"github.com/vonfeng/AgentMove-Public/internal/gateway"
	"github.com/vonfeng/AgentMove-Public/internal/geo"
)

type Server struct {
	gw  gateway.Client
	cfg *config.Config
	log *zap.Logger
}

func NewServer(gw gateway.Client, cfg *config.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{gw: gw, cfg: cfg, log: log}
}

func (s *Server) SetupRouter() *gin.Engine {
	if !s.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	if dir := s.cfg.Server.StaticDir; dir != "" {
		r.Static("/static", dir+"/static")
		r.StaticFile("/", dir+"/index.html")
	}

	r.GET("/api/health", s.Healthz)
	r.GET("/api/models", s.GetModels)
	r.GET("/api/datasets", s.GetDatasets)
	r.GET("/api/trajectories/:city", s.GetTrajectories)
	r.GET("/api/users/:city", s.GetUsers)
	r.GET("/api/users/:city/:userId/trajectories", s.GetUserTrajectories)
	r.GET("/api/trajectory/:city/:userId/:trajId", s.GetTrajectoryDetail)
	r.POST("/api/validate", s.ValidatePoints)
	r.POST("/api/trajectory/custom", s.SaveCustomTrajectory)
	r.POST("/api/predict", s.Predict)
	r.GET("/api/example", s.GetExample)

	return r
}

func (s *Server) Healthz(c *gin.Context) {
	h, err := s.gw.Health(c.Request.Context())
	if err != nil {
		s.log.Warn("upstream health check failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "degraded", "agent_loaded": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": h.Status, "agent_loaded": h.AgentLoaded})
}

func (s *Server) GetModels(c *gin.Context) {
	m, err := s.gw.Models(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"platforms":    m.Platforms,
		"prompt_types": m.PromptTypes,
	})
}

func (s *Server) GetDatasets(c *gin.Context) {
	datasets, err := s.gw.Datasets(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "datasets": datasets})
}

func (s *Server) GetTrajectories(c *gin.Context) {
	city := c.Param("city")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	list, err := s.gw.Trajectories(c.Request.Context(), city, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"city":         city,
		"count":        len(list),
		"trajectories": list,
	})
}

func (s *Server) GetUsers(c *gin.Context) {
	city := c.Param("city")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	users, err := s.gw.Users(c.Request.Context(), city, c.Query("search"), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "city": city, "users": users})
}

func (s *Server) GetUserTrajectories(c *gin.Context) {
	list, err := s.gw.UserTrajectories(c.Request.Context(), c.Param("city"), c.Param("userId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "trajectories": list})
}

func (s *Server) GetTrajectoryDetail(c *gin.Context) {
	detail, err := s.gw.TrajectoryDetail(c.Request.Context(),
		c.Param("city"), c.Param("userId"), c.Param("trajId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "trajectory": detail})
}

type validateRequest struct {
	Points []geo.RawPoint `json:"points"`
}

func (s *Server) ValidatePoints(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request", "message": "Request body must be JSON with a points array"})
		return
	}
	result, err := s.gw.ValidatePoints(c.Request.Context(), req.Points)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (s *Server) SaveCustomTrajectory(c *gin.Context) {
	var traj geo.Trajectory
	if err := c.ShouldBindJSON(&traj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request", "message": "Request body must be a trajectory"})
		return
	}
	saved, err := s.gw.SaveCustom(c.Request.Context(), traj)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "trajectory": saved})
}

func (s *Server) Predict(c *gin.Context) {
	var req gateway.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request", "message": "Request body must be a prediction request"})
		return
	}
	if req.City == "" {
		req.City = s.cfg.Demo.City
	}
	if req.Model == "" {
		req.Model = s.cfg.Demo.Model
	}
	if req.Platform == "" {
		req.Platform = s.cfg.Demo.Platform
	}
	if req.PromptType == "" {
		req.PromptType = s.cfg.Demo.PromptType
	}

	result, err := s.gw.Predict(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "prediction": result})
}

func (s *Server) GetExample(c *gin.Context) {
	example, err := s.gw.Example(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "is_example": true, "prediction": example})
}

// fail translates a gateway error into the failure envelope the frontend
// expects, preserving the upstream status and detail when present.
func (s *Server) fail(c *gin.Context, err error) {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status == 0 || status == http.StatusOK {
			status = http.StatusBadGateway
		}
		body := gin.H{
			"success":    false,
			"error":      apiErr.Err,
			"error_type": apiErr.ErrType,
			"message":    apiErr.Error(),
		}
		if len(apiErr.Details) > 0 {
			body["details"] = apiErr.Details
		}
		c.JSON(status, body)
		return
	}
	s.log.Error("gateway call failed", zap.Error(err))
	c.JSON(http.StatusBadGateway, gin.H{
		"success": false,
		"error":   err.Error(),
		"message": "Prediction service unreachable. Check that the agent is running.",
	})
}
