package media

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"slidecast/pkg/models"

	"github.com/sirupsen/logrus"
)

// Inspector examines uploaded files: MIME detection, image dimensions and
// video durations (via ffprobe when available).
type Inspector struct {
	ffprobePath string
	logger      *logrus.Logger
}

// NewInspector creates a new media inspector. ffprobePath may be empty to
// disable video duration probing.
func NewInspector(ffprobePath string) *Inspector {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Inspector{
		ffprobePath: ffprobePath,
		logger:      logger,
	}
}

// InspectFile builds a catalog record for a file on disk. Dimensions and
// duration are best-effort; failures leave the fields at zero.
func (i *Inspector) InspectFile(filePath string) (models.Media, error) {
	if _, err := os.Stat(filePath); err != nil {
		i.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Error("Failed to stat media file")
		return models.Media{}, err
	}

	mimeType := DetectMime(filePath)
	m := models.Media{
		Filename: filepath.Base(filePath),
		Path:     filePath,
		Mime:     mimeType,
	}

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		width, height, err := imageDimensions(filePath)
		if err != nil {
			i.logger.WithFields(logrus.Fields{
				"filePath": filePath,
				"error":    err.Error(),
			}).Warn("Failed to read image dimensions")
		} else {
			m.Width = width
			m.Height = height
		}

	case strings.HasPrefix(mimeType, "video/"):
		duration, err := i.probeVideoDuration(filePath)
		if err != nil {
			i.logger.WithFields(logrus.Fields{
				"filePath": filePath,
				"error":    err.Error(),
			}).Warn("Failed to probe video duration, setting to 0")
		} else {
			m.DurationS = duration
		}
	}

	return m, nil
}

// probeVideoDuration shells out to ffprobe and parses the container duration
// in whole seconds.
func (i *Inspector) probeVideoDuration(filePath string) (int, error) {
	if i.ffprobePath == "" {
		return 0, fmt.Errorf("ffprobe disabled")
	}
	if _, err := exec.LookPath(i.ffprobePath); err != nil {
		return 0, fmt.Errorf("ffprobe not found: %w", err)
	}

	cmd := exec.Command(i.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		filePath)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable ffprobe output: %w", err)
	}

	return int(seconds + 0.5), nil
}

// imageDimensions decodes only the image header.
func imageDimensions(filePath string) (int, int, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// DetectMime maps a filename to a MIME type via its extension.
func DetectMime(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	if t := mime.TypeByExtension(ext); t != "" {
		// mime.TypeByExtension may append charset parameters
		if idx := strings.Index(t, ";"); idx > 0 {
			t = t[:idx]
		}
		return t
	}

	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "application/octet-stream"
	}
}

// IsMediaFile checks whether a file classifies as a playable image or video.
func IsMediaFile(filePath string) bool {
	mimeType := DetectMime(filePath)
	return strings.HasPrefix(mimeType, "image/") || strings.HasPrefix(mimeType, "video/")
}

// IsStale reports whether a file is still being written, judged by a recent
// modification time. Used by the watcher before registering new files.
func IsStale(filePath string, within time.Duration) bool {
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < within
}
