// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"errandhub/internal/http/handlers"
	"errandhub/internal/http/middleware"
)

func NewRouter(deps ServerDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	requestHandler := handlers.NewRequestHandler(deps.Requests, deps.Lifecycle, deps.Geocoder)
	providerHandler := handlers.NewProviderHandler(deps.Matching, deps.Lifecycle, deps.Tracker)
	paymentHandler := handlers.NewPaymentHandler(deps.Requests, deps.Payments)
	api.POST("/requests", requestHandler.Create)
	api.GET("/requests/mine", requestHandler.Mine)
	api.GET("/requests/:id", requestHandler.Get)
	api.PATCH("/requests/:id", requestHandler.Update)
	api.DELETE("/requests/:id", requestHandler.Delete)
	api.POST("/requests/:id/cancel", requestHandler.Cancel)
	api.POST("/requests/:id/accept", providerHandler.Accept)
	api.GET("/requests/:id/payment", paymentHandler.Get)
	api.PUT("/requests/:id/payment", paymentHandler.Set)

	api.GET("/provider/requests", providerHandler.Available)
	api.PUT("/provider/location", providerHandler.UpdateLocation)
	api.DELETE("/provider/location", providerHandler.ClearLocation)

	assignmentHandler := handlers.NewAssignmentHandler(deps.Lifecycle, deps.Ratings)
	api.GET("/assignments/:id", assignmentHandler.Get)
	api.PATCH("/assignments/:id/status", assignmentHandler.UpdateStatus)
	api.POST("/assignments/:id/ratings", assignmentHandler.Rate)
	api.GET("/users/:id/ratings", assignmentHandler.UserRatings)

	areaHandler := handlers.NewAreaHandler(deps.Area)
	api.GET("/service-area/check", areaHandler.Check)

	return r
}
