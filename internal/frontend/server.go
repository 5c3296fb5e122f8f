// Package frontend serves the HTTP face of a node: every unmatched path is
// a request for the service named by its first segment, and /v1 exposes
// read-only views of the registry and clock.
package frontend

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dishankoza/svcsync/internal/discovery"
	"github.com/dishankoza/svcsync/internal/dispatch"
	"github.com/dishankoza/svcsync/internal/hlc"
	"github.com/dishankoza/svcsync/internal/registry"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

type Server struct {
	router     *gin.Engine
	dispatcher *dispatch.Dispatcher
	registry   *registry.Reconciler
	clock      *hlc.Clock
	log        *zap.Logger
}

// TouchResponse is the body returned for a dispatched request.
type TouchResponse struct {
	Service string        `json:"service"`
	Version hlc.Timestamp `json:"version"`
	Queued  bool          `json:"queued"`
}

// ClockResponse is the body of GET /v1/clock.
type ClockResponse struct {
	Version hlc.Timestamp `json:"version"`
	Display string        `json:"display"`
}

// New builds the router. gatherer may be nil to leave /metrics out.
func New(d *dispatch.Dispatcher, r *registry.Reconciler, clock *hlc.Clock, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), accessLog(log))

	s := &Server{
		router:     router,
		dispatcher: d,
		registry:   r,
		clock:      clock,
		log:        log,
	}

	router.GET("/healthz", s.health)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	v1 := router.Group("/v1")
	v1.GET("/clock", s.currentClock)
	v1.GET("/services", s.listServices)
	v1.GET("/services/:name", s.getService)
	router.NoRoute(s.touch)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) currentClock(c *gin.Context) {
	ts := s.clock.Current()
	c.JSON(http.StatusOK, ClockResponse{Version: ts, Display: ts.String()})
}

func (s *Server) listServices(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.Snapshot())
}

func (s *Server) getService(c *gin.Context) {
	svc, err := s.registry.Lookup(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

// touch handles /<name>/... for any method.
func (s *Server) touch(c *gin.Context) {
	name := serviceName(c.Request.URL.Path)
	res, err := s.dispatcher.Touch(c.Request.Context(), name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, TouchResponse{
		Service: res.Service.Name,
		Version: res.Service.Version,
		Queued:  res.Queued,
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, dispatch.ErrEmptyName):
		status = http.StatusBadRequest
	case errors.Is(err, discovery.ErrUnknownService):
		status = http.StatusNotFound
	default:
		s.log.Warn("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(RequestIDHeader)),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func serviceName(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return path
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", c.GetString(RequestIDHeader)))
	}
}
