package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/powermaps/contact/internal/config"
	"github.com/powermaps/contact/internal/contact"
	"github.com/powermaps/contact/internal/job"
	"github.com/powermaps/contact/middleware"
	"go.uber.org/zap"
)

// Pinger reports whether the database is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handlers struct {
	Contact contact.HandlerInterface
	Jobs    job.JobHandlerInterface
}

const healthTimeout = 2 * time.Second

// NewRouter mounts the public contact endpoint, the health check and,
// when admin credentials are configured, the /admin group.
func NewRouter(cfg *config.Config, h Handlers, db Pinger, log *zap.Logger) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	r.Use(
		middleware.Recovery(log),
		middleware.RequestLogger(log),
		middleware.TimeoutMiddleware(cfg.HTTP.RequestTimeout),
		middleware.ErrorHandler(),
	)

	r.GET("/healthz", Health(db))
	r.POST("/contact", middleware.BodyLimit(cfg.HTTP.MaxBodyBytes), h.Contact.Submit)

	if cfg.Admin.Enabled() {
		admin := r.Group("/admin", middleware.BasicAuth(cfg.Admin.User, cfg.Admin.PasswordHash))
		admin.GET("/submissions", h.Contact.List)
		admin.GET("/submissions/:id", h.Contact.Get)
		admin.GET("/jobs", h.Jobs.List)
		admin.GET("/jobs/:id", h.Jobs.Get)
		admin.POST("/jobs/:id/retry", h.Jobs.Retry)
	} else {
		log.Info("admin routes disabled, ADMIN_USER or ADMIN_PASSWORD_HASH not set")
	}

	return r, nil
}

// Health answers 200 while the database responds to a ping.
func Health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
