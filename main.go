// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/VA7DBI/animeflickAPI/config"
	_ "github.com/VA7DBI/animeflickAPI/docs"
	"github.com/VA7DBI/animeflickAPI/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

var (
	configFile = flag.String("config", "config.yaml", "Path to configuration file")
)

// @title           AnimeFlick API Gateway
// @version         1.0
// @description     Server-side gateway for the AnimeFlick frontend: anime catalog proxy plus cookie-session favorites, watched episodes and watch progress.
// @host           api.animeflick.example
// @BasePath       /
func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	r := gin.Default()

	// Initialize gateway service with config
	service, err := NewGatewayService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize gateway service: %v", err)
	}
	defer service.Close()

	registerRoutes(r, service, cfg)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	r.Run(addr)
}

func registerRoutes(r *gin.Engine, service *GatewayService, cfg *config.Config) {
	r.Use(middleware.RequestID())

	api := r.Group("/api", middleware.Session())
	{
		api.POST("/auth/signin", service.SigninHandler)
		api.POST("/auth/signup", service.SignupHandler)
		api.POST("/auth/logout", service.LogoutHandler)

		api.GET("/favorite", service.FavoritesHandler)
		api.POST("/favorite", service.AddFavoriteHandler)
		api.POST("/favorite/delete", service.DeleteFavoriteHandler)

		api.GET("/watched", service.WatchedHandler)
		api.POST("/watched", service.AddWatchedHandler)
		api.POST("/watched/delete", service.DeleteWatchedHandler)

		api.GET("/me/progress", service.ProgressHandler)
		api.POST("/me/progress", service.SaveProgressHandler)

		api.GET("/anime/:slug", service.AnimeHandler)
		api.GET("/anime/:slug/episode/:number", service.EpisodeHandler)
		api.GET("/anime-on-air", service.OnAirHandler)
		api.GET("/latest-episodes", service.LatestEpisodesHandler)
		api.GET("/search", service.SearchHandler)
		api.POST("/search/by-filter", service.ByFilterHandler)
		api.GET("/banner", service.BannerHandler)
	}

	// These endpoints remain public
	r.GET("/health", healthCheck)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Add Prometheus metrics endpoint if enabled
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// @Summary     Health check endpoint
// @Description Get API health status
// @Tags        health
// @Produce     json
// @Success     200 {object} HealthResponse
// @Router      /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(200, HealthResponse{Status: "ok"})
}
