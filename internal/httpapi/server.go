// Package httpapi serves the operational HTTP endpoint: liveness and moderation counters.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/m3rciful/walkbot/core/buildinfo"
	"github.com/m3rciful/walkbot/core/logger"
	"github.com/m3rciful/walkbot/core/telegram/middleware"
	"github.com/m3rciful/walkbot/core/telegram/sender"
	"github.com/m3rciful/walkbot/internal/announcement"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// StatsSource reports announcement counts.
type StatsSource interface {
	Stats(ctx context.Context) (announcement.Stats, error)
}

// SessionCounter reports the number of drafts in progress.
type SessionCounter interface {
	Count(ctx context.Context) (int, error)
}

// TrafficSource reports handled Telegram updates.
type TrafficSource interface {
	Snapshot() middleware.TrafficSnapshot
}

// OutboundSource reports the outbound dispatcher; ok is false before the bot runs.
type OutboundSource interface {
	OutboundStats() (st sender.Stats, ok bool)
}

// Options configures the router and the server. Every source is optional.
type Options struct {
	Listen        string
	Token         string
	Announcements StatsSource
	Sessions      SessionCounter
	Traffic       TrafficSource
	Outbound      OutboundSource
}

type statsResponse struct {
	Announcements announcement.Stats          `json:"announcements"`
	Total         int                         `json:"total"`
	Sessions      int                         `json:"sessions"`
	Traffic       *middleware.TrafficSnapshot `json:"traffic,omitempty"`
	Outbound      *sender.Stats               `json:"outbound,omitempty"`
}

// NewRouter builds the gin engine. /stats requires "Authorization: Bearer <Token>" when Token is set.
func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": buildinfo.Version})
	})

	stats := r.Group("/stats")
	if opts.Token != "" {
		stats.Use(bearer(opts.Token))
	}
	stats.GET("", func(c *gin.Context) {
		ctx := c.Request.Context()
		var resp statsResponse
		if opts.Announcements != nil {
			st, err := opts.Announcements.Stats(ctx)
			if err != nil {
				logger.Error(ctx, logger.CompHTTP, "stats", logger.Err(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "stats unavailable"})
				return
			}
			resp.Announcements = st
			resp.Total = st.Total()
		}
		if opts.Sessions != nil {
			n, err := opts.Sessions.Count(ctx)
			if err != nil {
				logger.Error(ctx, logger.CompHTTP, "stats", logger.Err(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "stats unavailable"})
				return
			}
			resp.Sessions = n
		}
		if opts.Traffic != nil {
			snap := opts.Traffic.Snapshot()
			resp.Traffic = &snap
		}
		if opts.Outbound != nil {
			if st, ok := opts.Outbound.OutboundStats(); ok {
				resp.Outbound = &st
			}
		}
		c.JSON(http.StatusOK, resp)
	})
	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("rid", rid)
		c.Header(RequestIDHeader, rid)
		c.Request = c.Request.WithContext(logger.WithRID(c.Request.Context(), rid))
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.LogEvent(c.Request.Context(), logger.HTTP, slog.LevelDebug, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
		)
	}
}

func bearer(token string) gin.HandlerFunc {
	expected := "Bearer " + token
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

// Server runs the router until its context ends.
type Server struct {
	srv *http.Server
}

// NewServer builds a server on opts.Listen.
func NewServer(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{srv: &http.Server{
		Addr:              opts.Listen,
		Handler:           NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()
	logger.LogEvent(ctx, logger.HTTP, slog.LevelInfo, "listen", slog.String("addr", s.srv.Addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.LogEvent(ctx, logger.HTTP, slog.LevelInfo, "stopped")
	return nil
}
