package health

import (
	"context"
	"net/http"
	hpprof "net/http/pprof"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	logx "evara/pkg/logx"
)

const pprofPrefix = "/debug/pprof"

type status struct {
	Status         string `json:"status"`
	StoreConnected bool   `json:"store_connected"`
	Uptime         string `json:"uptime"`
}

// Routes builds the gin engine.
func (s *Service) Routes() http.Handler {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLog())
	engine.GET("/", s.handleRoot)
	engine.HEAD("/", s.handleRoot)
	engine.GET("/healthz", s.handleHealthz)

	if cfg.Pprof {
		g := engine.Group(pprofPrefix, bearer(cfg.PprofToken))
		g.GET("/", gin.WrapF(hpprof.Index))
		g.GET("/cmdline", gin.WrapF(hpprof.Cmdline))
		g.GET("/profile", gin.WrapF(hpprof.Profile))
		g.GET("/symbol", gin.WrapF(hpprof.Symbol))
		g.POST("/symbol", gin.WrapF(hpprof.Symbol))
		g.GET("/trace", gin.WrapF(hpprof.Trace))
		g.GET("/:profile", func(c *gin.Context) {
			hpprof.Handler(c.Param("profile")).ServeHTTP(c.Writer, c.Request)
		})
	}
	return engine
}

func (s *Service) handleRoot(c *gin.Context) {
	c.String(http.StatusOK, Banner)
}

func (s *Service) handleHealthz(c *gin.Context) {
	ok := false
	if s.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		ok = s.store(ctx)
		cancel()
	}
	c.JSON(http.StatusOK, status{
		Status:         "ok",
		StoreConnected: ok,
		Uptime:         time.Since(s.started).Truncate(time.Second).String(),
	})
}

func (s *Service) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			logx.String("method", c.Request.Method),
			logx.String("path", c.Request.URL.Path),
			logx.Int("status", c.Writer.Status()),
			logx.Duration("took", time.Since(start)),
		)
	}
}

// bearer accepts "Authorization: Bearer <token>" or ?token=<token>. An
// empty token disables the check.
func bearer(token string) gin.HandlerFunc {
	tok := strings.TrimSpace(token)
	return func(c *gin.Context) {
		if tok == "" {
			c.Next()
			return
		}
		if got := c.Query("token"); got != "" && got == tok {
			c.Next()
			return
		}
		const p = "Bearer "
		if ah := c.GetHeader("Authorization"); strings.HasPrefix(ah, p) && strings.TrimSpace(strings.TrimPrefix(ah, p)) == tok {
			c.Next()
			return
		}
		c.Header("WWW-Authenticate", "Bearer")
		c.AbortWithStatus(http.StatusUnauthorized)
	}
}
