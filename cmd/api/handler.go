package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	authUsecase "taskflow-backend/internal/auth/usecase"
	taskDelivery "taskflow-backend/internal/task/delivery"
	taskUsecasePkg "taskflow-backend/internal/task/usecase"
	"taskflow-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 15 * time.Second

type Handler struct {
	authUsecase    authUsecase.AuthUsecase
	config         *config.Config
	taskHandler    *taskDelivery.TaskHandler
	plannerHandler *taskDelivery.PlannerHandler
}

func NewHandler(authUc authUsecase.AuthUsecase, taskUc taskUsecasePkg.TaskUsecase, plannerUc taskUsecasePkg.PlannerUsecase, cfg *config.Config) *Handler {
	// Initialize runtime config for settings API
	InitRuntimeConfig(cfg.PlannerDailyCapacity)

	log.Println("Task and planner handlers initialized")
	return &Handler{
		authUsecase:    authUc,
		config:         cfg,
		taskHandler:    taskDelivery.NewTaskHandler(taskUc),
		plannerHandler: taskDelivery.NewPlannerHandler(plannerUc),
	}
}

// Router builds the gin engine with middleware and routes
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(corsMiddleware(h.config.CORSOrigins))

	SetupRoutes(r, h.authUsecase, h.taskHandler, h.plannerHandler)
	return r
}

// Start serves until ctx is cancelled, then stops accepting requests and
// waits up to shutdownTimeout for the ones in progress.
func (h *Handler) Start(ctx context.Context, addr string) error {
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    addr,
		Handler: h.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// corsMiddleware echoes the request origin when it is allowed. A "*" entry
// allows any origin.
func corsMiddleware(origins string) gin.HandlerFunc {
	allowed := map[string]bool{}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (allowed[origin] || allowed["*"]) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
