package main

import (
	"keyboard-ai-backend/internal/api"
	"keyboard-ai-backend/internal/config"
	"keyboard-ai-backend/internal/database"
	"keyboard-ai-backend/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize logging
	logging.InitLogging()

	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		logging.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	// Set Gin mode
	gin.SetMode(config.AppConfig.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r)

	// Start server
	port := config.AppConfig.Port
	logging.Infof("Starting server on port %s", port)

	if err := r.Run(":" + port); err != nil {
		logging.Fatalf("Failed to start server: %v", err)
	}
}
