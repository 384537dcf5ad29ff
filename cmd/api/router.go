package api

import (
	"net/http"

	"taskflow-backend/internal/auth/delivery"
	authUsecase "taskflow-backend/internal/auth/usecase"
	taskDelivery "taskflow-backend/internal/task/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUsecase authUsecase.AuthUsecase, taskHandler *taskDelivery.TaskHandler, plannerHandler *taskDelivery.PlannerHandler) {
	authHandler := delivery.NewAuthHandler(authUsecase)
	requireAuth := delivery.AuthMiddleware(authUsecase)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
			auth.POST("/logout-all", requireAuth, authHandler.LogoutAll)
			auth.GET("/me", requireAuth, authHandler.Me)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(requireAuth)
		{
			fcm.POST("/register", authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", authHandler.UnregisterFCMToken)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.GetTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/search", taskHandler.SearchTasks)
			tasks.GET("/friction", taskHandler.GetFrictionReport)
			tasks.GET("/estimation-stats", taskHandler.GetEstimationStats)
			tasks.GET("/:id", taskHandler.GetTaskByID)
			tasks.PUT("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.PATCH("/:id/status", taskHandler.UpdateTaskStatus)
			tasks.POST("/:id/time-tracking/reset", taskHandler.ResetTimeTracking)
			tasks.PUT("/:id/time-tracking", taskHandler.SetTrackedMinutes)
			tasks.POST("/:id/subtasks", taskHandler.AddSubtask)
			tasks.PATCH("/:id/subtasks/:subtaskId", taskHandler.SetSubtaskDone)
			tasks.DELETE("/:id/subtasks/:subtaskId", taskHandler.DeleteSubtask)
			tasks.PUT("/:id/reflection", taskHandler.SaveReflection)
			tasks.POST("/:id/follow-up", taskHandler.CreateFollowUp)
		}

		// Planner routes (protected)
		planner := api.Group("/planner")
		planner.Use(requireAuth)
		{
			planner.GET("/week", plannerHandler.GetWeeklyPlan)
			planner.POST("/week/accept", plannerHandler.AcceptWeeklyPlan)
		}

		// Settings routes (protected) - runtime configuration
		settings := api.Group("/settings")
		settings.Use(requireAuth)
		{
			settings.GET("/planner", GetPlannerSettings)
			settings.PUT("/planner", UpdatePlannerSettings)
		}
	}
}
