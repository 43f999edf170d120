package server

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"slidecast/internal/media"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// startFileWatcher initializes fsnotify watcher for recursive media dir monitoring.
func (ss *SignageServer) startFileWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	ss.watcher = watcher

	// Start monitoring in a goroutine
	go ss.watchFiles()

	err = ss.addDirectoryToWatcher(ss.config.Media.LibraryPath)
	if err != nil {
		return err
	}

	ss.logger.WithField("library_path", ss.config.Media.LibraryPath).Info("File watcher started")
	return nil
}

// addDirectoryToWatcher recursively walks and adds subdirectories to watcher.
func (ss *SignageServer) addDirectoryToWatcher(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path == ss.config.Media.ThumbsDir {
				return filepath.SkipDir
			}
			return ss.watcher.Add(path)
		}
		return nil
	})
}

// watchFiles selects on watcher channels and dispatches events.
func (ss *SignageServer) watchFiles() {
	defer ss.watcher.Close()

	for {
		select {
		case event, ok := <-ss.watcher.Events:
			if !ok {
				return
			}
			ss.handleFileEvent(event)

		case err, ok := <-ss.watcher.Errors:
			if !ok {
				return
			}
			ss.logger.WithError(err).Error("File watcher error")
		}
	}
}

// handleFileEvent applies filtering & delegates creation/removal actions.
func (ss *SignageServer) handleFileEvent(event fsnotify.Event) {
	// Ignore temporary files and hidden files
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	isMediaFile := media.IsMediaFile(event.Name)

	switch {
	case event.Has(fsnotify.Create) && isMediaFile:
		// Dispatch new file processing asynchronously
		go func(name string) {
			time.Sleep(500 * time.Millisecond) // Ensure file is fully written
			ss.handleNewFile(name)
		}(event.Name)

	case event.Has(fsnotify.Remove) && isMediaFile:
		// Dispatch removal processing asynchronously
		go ss.handleRemovedFile(event.Name)

	case event.Has(fsnotify.Create):
		// Check if it's a new directory
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if event.Name == ss.config.Media.ThumbsDir {
				return
			}
			ss.watcher.Add(event.Name)
			ss.logger.WithField("directory", event.Name).Info("Watching new directory")
		}
	}
}

// handleNewFile inspects & registers a media file dropped into the library.
func (ss *SignageServer) handleNewFile(filePath string) {
	ss.logger.WithField("file_path", filePath).Info("New media file detected")

	exists, err := ss.db.MediaExists(filePath)
	if err != nil {
		ss.logger.WithError(err).WithField("file_path", filePath).Error("Error checking if media exists")
		return
	}
	if exists {
		ss.logger.WithField("file_path", filePath).Debug("Media already exists in database")
		return
	}

	// Large files may still be copying; wait until the size settles
	for media.IsStale(filePath, time.Second) {
		time.Sleep(time.Second)
	}

	m, err := ss.inspector.InspectFile(filePath)
	if err != nil {
		ss.logger.WithError(err).WithField("file_path", filePath).Error("Error inspecting media file")
		return
	}

	id, err := ss.db.InsertMedia(m)
	if err != nil {
		ss.logger.WithError(err).Error("Error inserting new media into database")
		return
	}

	ss.logger.WithFields(logrus.Fields{
		"filename": m.Filename,
		"mime":     m.Mime,
		"id":       id,
	}).Info("Added new media")
}

// handleRemovedFile removes catalog rows referencing deleted media files.
func (ss *SignageServer) handleRemovedFile(filePath string) {
	ss.logger.WithField("file_path", filePath).Info("Media file removed")

	err := ss.db.RemoveMediaByPath(filePath)
	if err != nil {
		ss.logger.WithError(err).WithField("file_path", filePath).Error("Error removing media from database")
		return
	}

	ss.feedCache.Invalidate()
	ss.logger.WithField("file_path", filePath).Info("Removed media from database")
}

// stopFileWatcher closes the watcher (idempotent).
func (ss *SignageServer) stopFileWatcher() {
	if ss.watcher != nil {
		ss.watcher.Close()
	}
}
