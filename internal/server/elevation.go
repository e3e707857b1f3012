package server

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Faultbox/geobake/internal/raster"
)

// DefaultMaxPoints is the largest batch accepted by POST /v1/elevation.
const DefaultMaxPoints = 10000

// Sample is one answered elevation query. OK is false when the position lies
// outside the raster or its chunk could not be decoded.
type Sample struct {
	X  float32 `json:"x"`
	Y  float32 `json:"y"`
	Z  float32 `json:"z"`
	OK bool    `json:"ok"`
}

// BatchRequest is the body of POST /v1/elevation.
type BatchRequest struct {
	Points [][2]float32 `json:"points" binding:"required"`
}

// BatchResponse answers a BatchRequest in request order.
type BatchResponse struct {
	Samples []Sample `json:"samples"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// newSampler returns a sampler with a fresh cache, owned by one request.
func (s *Server) newSampler() (*raster.Sampler, error) {
	return raster.NewSampler(s.src, s.cfg.Layout, s.cfg.CacheSize)
}

func (s *Server) lookup(sm *raster.Sampler, x, y float32) Sample {
	out := Sample{X: x, Y: y}
	z, ok := sm.Lookup(x, y)
	// NaN is the raster's no-data value and cannot be encoded as JSON.
	if ok && !math.IsNaN(float64(z)) && !math.IsInf(float64(z), 0) {
		out.Z, out.OK = z, true
	}
	s.metrics.sample(out.OK)
	return out
}

func (s *Server) handleElevation(c *gin.Context) {
	x, errX := parseCoord(c.Query("x"))
	y, errY := parseCoord(c.Query("y"))
	if errX != nil || errY != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "x and y must be finite numbers"})
		return
	}

	sm, err := s.newSampler()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.lookup(sm, x, y))
}

func (s *Server) handleElevationBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request: " + err.Error()})
		return
	}
	if len(req.Points) > s.cfg.MaxPoints {
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse{
			Error: "too many points: " + strconv.Itoa(len(req.Points)) + " > " + strconv.Itoa(s.cfg.MaxPoints),
		})
		return
	}

	sm, err := s.newSampler()
	if err != nil {
		s.fail(c, err)
		return
	}
	resp := BatchResponse{Samples: make([]Sample, len(req.Points))}
	for i, p := range req.Points {
		resp.Samples[i] = s.lookup(sm, p[0], p[1])
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) fail(c *gin.Context, err error) {
	s.log.Error("creating sampler", zap.String("request_id", c.GetString(requestIDKey)), zap.Error(err))
	c.JSON(http.StatusInternalServerError, errorResponse{Error: "elevation source unavailable"})
}

func parseCoord(v string) (float32, error) {
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrRange
	}
	return float32(f), nil
}
