package main

import (
	"os"
	"os/signal"
	"syscall"

	"slidecast/internal/config"
	"slidecast/internal/database"
	"slidecast/internal/server"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := "./config.toml"

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	// Create the media directory on first run
	if _, err := os.Stat(cfg.Media.LibraryPath); os.IsNotExist(err) {
		if err := os.MkdirAll(cfg.Media.LibraryPath, 0755); err != nil {
			logger.WithError(err).WithField("library_path", cfg.Media.LibraryPath).Fatal("Could not create media directory")
		}
		logger.WithField("library_path", cfg.Media.LibraryPath).Info("Created media directory")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path, cfg.Media.Container)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer db.Close()

	if err := db.EnsureDefaultSettings(); err != nil {
		logger.WithError(err).Fatal("Error seeding default settings")
	}

	// Create and configure the signage server
	signageServer, err := server.NewSignageServer(cfg, db)
	if err != nil {
		logger.WithError(err).Fatal("Error creating signage server")
	}

	// Register media already present in the library
	if err := signageServer.ScanMediaLibrary(); err != nil {
		logger.WithError(err).Fatal("Error scanning media library")
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		signageServer.Start()
	}()

	// Wait for shutdown signal
	<-c

	logger.Info("Received shutdown signal")
	signageServer.Shutdown()
}
