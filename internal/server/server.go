package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"slidecast/internal/accesspoint"
	"slidecast/internal/auth"
	"slidecast/internal/cache"
	"slidecast/internal/config"
	"slidecast/internal/database"
	"slidecast/internal/feed"
	"slidecast/internal/media"
	"slidecast/internal/tunnel"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// SignageServer represents the main signage management server
type SignageServer struct {
	db            *database.Database
	config        *config.Config
	logger        *logrus.Logger
	watcher       *fsnotify.Watcher
	inspector     *media.Inspector
	thumbs        *media.Thumbnailer
	compiler      *feed.Compiler
	feedCache     *cache.FeedCache
	authService   *auth.Service
	apService     *accesspoint.Service
	tunnelService *tunnel.Service
	httpServer    *http.Server
}

// NewSignageServer creates a new signage server instance
func NewSignageServer(cfg *config.Config, db *database.Database) (*SignageServer, error) {
	logger := logrus.New()
	configureLogger(logger, &cfg.Logging)

	authService, err := auth.NewService(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}

	tunnelSvc, err := tunnel.NewService(&cfg.Tunnel)
	if err != nil {
		log.Printf("Warning: Tunnel service not available: %v", err)
		tunnelSvc = nil
	}

	apSvc := accesspoint.NewService(&cfg.AccessPoint, db)
	if apSvc != nil {
		if err := apSvc.EnsureDefaults(); err != nil {
			logger.WithError(err).Warn("Could not seed access point settings")
		}
	}

	server := &SignageServer{
		db:            db,
		config:        cfg,
		logger:        logger,
		inspector:     media.NewInspector(cfg.Media.FFProbePath),
		thumbs:        media.NewThumbnailer(cfg.Media.ThumbsDir),
		compiler:      feed.NewCompiler(db, db, db, logger),
		feedCache:     cache.NewFeedCache(),
		authService:   authService,
		apService:     apSvc,
		tunnelService: tunnelSvc,
	}

	return server, nil
}

// configureLogger applies the configured level, format and output file.
func configureLogger(logger *logrus.Logger, cfg *config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.WithError(err).Warn("Could not open log file, using stderr")
		} else {
			logger.SetOutput(file)
		}
	}
}

// ScanMediaLibrary walks the media directory and registers files the
// database does not know yet. Runs a small worker pool since video probing
// shells out to ffprobe.
func (ss *SignageServer) ScanMediaLibrary() error {
	ss.logger.WithField("library_path", ss.config.Media.LibraryPath).Info("Scanning media library")

	var wg sync.WaitGroup
	var mediaCount int64
	jobs := make(chan string, 100)

	numWorkers := 4
	for i := 0; i < numWorkers; i++ {
		go func() {
			for path := range jobs {
				exists, err := ss.db.MediaExists(path)
				if err != nil || exists {
					wg.Done()
					continue
				}
				m, err := ss.inspector.InspectFile(path)
				if err != nil {
					ss.logger.WithError(err).WithField("file_path", path).Error("Error inspecting media file")
					wg.Done()
					continue
				}
				if _, err := ss.db.InsertMedia(m); err != nil {
					ss.logger.WithError(err).WithField("file_path", path).Error("Error inserting media into database")
				} else {
					atomic.AddInt64(&mediaCount, 1)
				}
				wg.Done()
			}
		}()
	}

	walkErr := filepath.Walk(ss.config.Media.LibraryPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			// Thumbnails live under the library but are not catalog content
			if path == ss.config.Media.ThumbsDir {
				return filepath.SkipDir
			}
			return nil
		}
		if media.IsMediaFile(path) {
			wg.Add(1)
			jobs <- path
		}
		return nil
	})

	close(jobs)
	wg.Wait()

	ss.logger.WithField("count", mediaCount).Info("Media library scan complete")
	return walkErr
}

// Start starts the signage server and blocks until the listener fails.
func (ss *SignageServer) Start() {
	if ss.config.Media.WatchForChanges {
		if err := ss.startFileWatcher(); err != nil {
			ss.logger.WithError(err).Warn("Could not start file watcher")
		} else {
			defer ss.stopFileWatcher()
		}
	}

	mux := ss.setupRoutes()
	handler := ss.panicRecoveryMiddleware(
		ss.requestLoggingMiddleware(
			ss.corsMiddleware(
				ss.authMiddleware(mux))))

	localAddress := fmt.Sprintf("http://%s", ss.config.GetAddress())

	ss.logger.WithFields(logrus.Fields{
		"address":       localAddress,
		"media_library": ss.config.Media.LibraryPath,
		"auth_enabled":  ss.authService.IsEnabled(),
	}).Info("Slidecast server starting")

	if ss.tunnelService != nil {
		ctx := context.Background()
		if err := ss.tunnelService.StartTunnel(ctx, localAddress); err != nil {
			ss.logger.WithError(err).Warn("Could not start remote access tunnel")
		} else {
			defer ss.tunnelService.Stop()
		}
	}

	ss.httpServer = &http.Server{
		Addr:        ss.config.GetAddress(),
		Handler:     handler,
		ReadTimeout: time.Duration(ss.config.Server.ReadTimeout) * time.Second,
	}

	if err := ss.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Server failed to start:", err)
	}
}

func (ss *SignageServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", ss.handleHome)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(ss.config.Server.StaticDir))))
	mux.HandleFunc("/health", ss.handleHealthCheck)

	// Player-facing feed
	mux.HandleFunc("/api/feed", ss.handleGetFeed)
	mux.HandleFunc("/api/playlist/active", ss.handleGetActivePlaylist)

	// Active playlist mutations
	mux.HandleFunc("/api/playlist/sort", ss.handleSortPlaylist)
	mux.HandleFunc("/api/playlist/remove", ss.handleRemoveItem)
	mux.HandleFunc("/api/playlist/set_duration", ss.handleSetItemDuration)

	// Playlist management
	mux.HandleFunc("/api/playlists", ss.handlePlaylists)
	mux.HandleFunc("/api/playlists/", ss.handlePlaylistSubroutes)

	// Media catalog
	mux.HandleFunc("/api/media", ss.handleGetMedia)
	mux.HandleFunc("/api/media/upload", ss.handleUploadMedia)
	mux.HandleFunc("/api/media/", ss.handleMediaSubroutes)
	mux.HandleFunc("/media/raw/", ss.handleRawMedia)
	mux.HandleFunc("/media/thumb/", ss.handleMediaThumb)

	// Containers
	mux.HandleFunc("/api/folders", ss.handleFolders)

	// Tags
	mux.HandleFunc("/api/tags", ss.handleListTags)

	// Settings
	mux.HandleFunc("/api/settings", ss.handleSettings)

	// Auth
	mux.HandleFunc("/login", ss.handleLogin)
	mux.HandleFunc("/api/auth/login", ss.handleAuthLogin)
	mux.HandleFunc("/api/auth/logout", ss.handleAuthLogout)
	mux.HandleFunc("/api/auth/password", ss.handleChangePassword)
	mux.HandleFunc("/api/auth/users", ss.handleUsers)
	mux.HandleFunc("/api/auth/users/", ss.handleDeleteUser)

	// System
	mux.HandleFunc("/api/system/info", ss.handleSystemInfo)
	mux.HandleFunc("/api/config", ss.handleGetConfig)

	// Network / access point
	mux.HandleFunc("/api/network/ap", ss.handleAccessPoint)
	mux.HandleFunc("/api/network/ap/apply", ss.handleAccessPointApply)

	return mux
}

// Shutdown gracefully shuts down the signage server
func (ss *SignageServer) Shutdown() {
	ss.logger.Info("Shutting down signage server...")

	ss.stopFileWatcher()

	if ss.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := ss.httpServer.Shutdown(ctx); err != nil {
			ss.logger.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	if ss.tunnelService != nil {
		ss.tunnelService.Stop()
	}

	ss.logger.Info("Signage server shutdown complete")
}
