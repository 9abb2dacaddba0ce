// Package adminapi is a small operator-facing HTTP surface over the
// ledger: health, balance, outcome history and the administrative reset.
package adminapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/betbot/signalbot/internal/ledger"
	"github.com/betbot/signalbot/pkg/logger"
)

type Server struct {
	ledger *ledger.Store
	srv    *http.Server
}

func New(addr string, store *ledger.Store) *Server {
	s := &Server{ledger: store}
	s.srv = &http.Server{Addr: addr, Handler: s.router()}
	return s
}

func (s *Server) router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")
	api.GET("/balance", s.handleBalance)
	api.GET("/outcomes", s.handleOutcomes)
	api.POST("/reset", s.handleReset)
	return r
}

func (s *Server) Start() {
	go func() {
		logger.Infof("[adminapi] listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("[adminapi] serve: %v", err)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleBalance(c *gin.Context) {
	balance, err := s.ledger.Balance(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance.String()})
}

func (s *Server) handleOutcomes(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	recent, err := s.ledger.RecentOutcomes(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcomes": recent})
}

func (s *Server) handleReset(c *gin.Context) {
	if err := s.ledger.ResetAccount(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	balance, err := s.ledger.Balance(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance.String()})
}
