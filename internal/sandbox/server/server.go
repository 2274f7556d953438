// Package server fronts the sandbox API with gin: request ids, logging,
// CORS, latency and failure injection, rate limiting and Basic auth.
package server

import (
	"encoding/base64"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/adobe/aio-lib-state-go/internal/sandbox"
	"github.com/adobe/aio-lib-state-go/internal/stateapi"
)

// Options tunes the behaviour of a Server.
type Options struct {
	Logger *zap.Logger
	// Latency delays every container request.
	Latency time.Duration
	Fail    sandbox.FailConfig
	// RateLimit caps the accepted requests per second; 0 disables limiting.
	RateLimit float64
	Burst     int
	// MaxValueSize defaults to stateapi.MaxValueSize.
	MaxValueSize int
	// APIKeys maps namespaces to their api key. When empty any non-empty
	// key is accepted for any namespace.
	APIKeys map[string]string
	// AllowedOrigins enables CORS for browser clients when non-empty.
	AllowedOrigins []string
}

// Server serves the State HTTP API from a sandbox.Store. The gin mode is
// left to the caller.
type Server struct {
	opts    Options
	logger  *zap.Logger
	limiter *rate.Limiter
	engine  *gin.Engine
}

// New builds the router for store.
func New(store sandbox.Store, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{
		opts:   opts,
		logger: opts.Logger,
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	api := sandbox.NewAPI(store,
		sandbox.WithMaxValueSize(opts.MaxValueSize),
		sandbox.WithLogger(opts.Logger),
	)
	s.engine = s.routes(api)
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes(api http.Handler) *gin.Engine {
	r := gin.New()

	r.Use(s.recovery())
	r.Use(s.requestID())
	r.Use(s.requestLogger())
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(s.cors())
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	containers := r.Group("/" + stateapi.APIVersion + "/containers")
	containers.Use(s.latency(), s.injectFailures(), s.rateLimit(), s.auth())
	containers.Any("/*path", gin.WrapH(api))
	return r
}

func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", zap.Any("error", err))
				abort(c, http.StatusInternalServerError, "internal server error")
			}
		}()
		c.Next()
	}
}

func (s *Server) cors() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:  s.opts.AllowedOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodHead},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{stateapi.HeaderRequestID, stateapi.HeaderKeyExpiresMs},
		MaxAge:        12 * time.Hour,
	})
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(stateapi.HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(stateapi.HeaderRequestID, id)
		c.Set("requestId", id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("requestId", c.GetString("requestId")),
		)
	}
}

func (s *Server) latency() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.Latency <= 0 {
			c.Next()
			return
		}
		timer := time.NewTimer(s.opts.Latency)
		defer timer.Stop()
		select {
		case <-c.Request.Context().Done():
			c.Abort()
			return
		case <-timer.C:
		}
		c.Next()
	}
}

func (s *Server) injectFailures() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.Fail.Rate > 0 && rand.Float64() < s.opts.Fail.Rate {
			status := s.opts.Fail.Code
			if status == 0 {
				status = http.StatusInternalServerError
			}
			abort(c, status, "failure injected")
			return
		}
		c.Next()
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			c.Header("Retry-After", "1")
			abort(c, http.StatusTooManyRequests, "request rate too high")
			return
		}
		c.Next()
	}
}

func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		encoded, ok := strings.CutPrefix(raw, "Basic ")
		if !ok {
			abort(c, http.StatusUnauthorized, "missing basic authorization")
			return
		}
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil || len(decoded) == 0 {
			abort(c, http.StatusUnauthorized, "malformed basic authorization")
			return
		}
		if len(s.opts.APIKeys) > 0 {
			want, known := s.opts.APIKeys[namespace(c.Param("path"))]
			if !known || want != string(decoded) {
				abort(c, http.StatusForbidden, "api key does not grant access to this container")
				return
			}
		}
		c.Next()
	}
}

// namespace returns the first segment of the wildcard container path.
func namespace(path string) string {
	ns, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	return ns
}

func abort(c *gin.Context, status int, message string) {
	sandbox.WriteError(c.Writer, c.Request, status, message)
	c.Abort()
}
