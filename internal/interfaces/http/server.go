// Package http exposes the prediction pipeline over HTTP.
package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/metaborank/metaborank/internal/application/prediction"
	"github.com/metaborank/metaborank/internal/infrastructure/monitoring/logging"
	"github.com/metaborank/metaborank/pkg/errors"
)

// maxBatchSize bounds a single request; larger batches belong in the CLI.
const maxBatchSize = 1000

// Server wires the prediction service into a gin engine.
type Server struct {
	service  *prediction.Service
	log      logging.Logger
	registry *prometheus.Registry
	engine   *gin.Engine
	httpSrv  *http.Server
}

// NewServer builds the HTTP server.  mode is the gin mode; registry backs
// the /metrics endpoint and may be nil to disable it.
func NewServer(addr, mode string, service *prediction.Service, registry *prometheus.Registry, log logging.Logger) *Server {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if mode != "" {
		gin.SetMode(mode)
	}

	s := &Server{
		service:  service,
		log:      log.Named("http"),
		registry: registry,
	}
	s.engine = s.buildEngine()
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Engine returns the underlying gin engine, used by tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", logging.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, errors.CodeInternal, "http server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "http server shutdown failed")
	}
	return nil
}

func (s *Server) buildEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.registry != nil {
		engine.GET("/metrics", gin.WrapH(
			promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}

	v1 := engine.Group("/api/v1")
	v1.POST("/predict", s.handlePredict)
	return engine
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("took", time.Since(start)),
		)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────────────────────────────────────

type predictRequest struct {
	Molecules []moleculeEntry `json:"molecules" binding:"required,dive"`
}

type moleculeEntry struct {
	Name   string `json:"name"`
	SMILES string `json:"smiles" binding:"required"`
}

type predictResponse struct {
	RunID       string                      `json:"run_id"`
	Predictions []prediction.Row            `json:"predictions"`
	Failed      []prediction.FailedMolecule `json:"failed"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handlePredict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Code:    errors.CodeInvalidParam.String(),
			Message: "request body must contain a molecules array with smiles entries",
		})
		return
	}
	if len(req.Molecules) == 0 || len(req.Molecules) > maxBatchSize {
		c.JSON(http.StatusBadRequest, errorResponse{
			Code:    errors.CodeInvalidParam.String(),
			Message: "molecules must contain between 1 and 1000 entries",
		})
		return
	}

	inputs := make([]prediction.MoleculeInput, 0, len(req.Molecules))
	for i, m := range req.Molecules {
		name := m.Name
		if name == "" {
			name = "mol_" + strconv.Itoa(i+1)
		}
		inputs = append(inputs, prediction.MoleculeInput{Name: name, SMILES: m.SMILES})
	}

	result, err := s.service.PredictBatch(c.Request.Context(), inputs)
	if err != nil {
		code := errors.GetCode(err)
		s.log.Error("prediction request failed", logging.Err(err))
		c.JSON(errors.HTTPStatusForCode(code), errorResponse{
			Code:    code.String(),
			Message: "prediction failed",
		})
		return
	}

	resp := predictResponse{
		RunID:       result.RunID,
		Predictions: result.Rows,
		Failed:      result.Failed,
	}
	if resp.Predictions == nil {
		resp.Predictions = []prediction.Row{}
	}
	if resp.Failed == nil {
		resp.Failed = []prediction.FailedMolecule{}
	}
	c.JSON(http.StatusOK, resp)
}
