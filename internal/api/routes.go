package api

import (
	"net/http"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, h *Handlers, maxUploadBytes int64) {
	middleware.SetupValidator()

	api := r.Group("/api")
	{
		api.POST("/auth/login", h.Login)

		// Everything below requires a session
		authed := api.Group("")
		authed.Use(middleware.SessionAuthMiddleware(h.Auth))
		{
			authed.POST("/auth/logout", h.Logout)
			authed.GET("/auth/me", h.Me)

			authed.GET("/clients", h.ListClients)
			authed.POST("/clients/refresh", h.RefreshClients)
			authed.GET("/clients/:id", h.GetClient)
			authed.POST("/clients", middleware.BodyLimit(maxUploadBytes), h.CreateClient)
			authed.GET("/profiles/:cpf", h.GetProfile)

			// Reviewer routes
			admin := authed.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				admin.PUT("/clients/:id", middleware.BodyLimit(maxUploadBytes), h.UpdateClient)
				admin.DELETE("/clients/:id", h.DeleteClient)
				admin.POST("/clients/:id/status", h.ChangeClientStatus)
				admin.GET("/admin/audit", h.ListAudit)
			}
		}
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "formulario-clientes",
			"records": h.Repo.Len(),
		})
	})
}
