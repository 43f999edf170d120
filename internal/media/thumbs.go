package media

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"slidecast/pkg/models"

	"github.com/sirupsen/logrus"
)

const thumbMaxEdge = 320

// Thumbnailer produces small JPEG previews for catalog media. Images are
// downscaled in-process; video frames are grabbed with ffmpeg when it is
// installed.
type Thumbnailer struct {
	thumbsDir string
	logger    *logrus.Logger
}

// NewThumbnailer creates a thumbnailer writing into thumbsDir.
func NewThumbnailer(thumbsDir string) *Thumbnailer {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Thumbnailer{
		thumbsDir: thumbsDir,
		logger:    logger,
	}
}

// Ensure returns the path of the thumbnail for the given media, generating
// it when missing. Generation failures return an error; callers typically
// fall back to serving the raw media.
func (t *Thumbnailer) Ensure(m *models.Media) (string, error) {
	if err := os.MkdirAll(t.thumbsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create thumbs directory: %w", err)
	}

	thumbPath := filepath.Join(t.thumbsDir, fmt.Sprintf("%d.jpg", m.ID))
	if _, err := os.Stat(thumbPath); err == nil {
		return thumbPath, nil
	}

	switch {
	case strings.HasPrefix(m.Mime, "image/"):
		if err := t.imageThumbnail(m.Path, thumbPath); err != nil {
			return "", err
		}
	case strings.HasPrefix(m.Mime, "video/"):
		if err := t.videoThumbnail(m.Path, thumbPath); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("no thumbnail strategy for mime %s", m.Mime)
	}

	t.logger.WithFields(logrus.Fields{
		"media_id": m.ID,
		"thumb":    thumbPath,
	}).Debug("Generated thumbnail")

	return thumbPath, nil
}

// Remove deletes a media item's cached thumbnail if one exists.
func (t *Thumbnailer) Remove(mediaID int) {
	thumbPath := filepath.Join(t.thumbsDir, fmt.Sprintf("%d.jpg", mediaID))
	if err := os.Remove(thumbPath); err != nil && !os.IsNotExist(err) {
		t.logger.WithError(err).WithField("thumb", thumbPath).Warn("Could not remove thumbnail")
	}
}

// imageThumbnail decodes, downscales and re-encodes an image as JPEG.
func (t *Thumbnailer) imageThumbnail(srcPath, destPath string) error {
	file, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	src, _, err := image.Decode(file)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := scaleDown(src, thumbMaxEdge)

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: 80}); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return nil
}

// videoThumbnail grabs a single frame one second in using ffmpeg.
func (t *Thumbnailer) videoThumbnail(srcPath, destPath string) error {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}

	cmd := exec.Command(ffmpeg,
		"-v", "error",
		"-ss", "1",
		"-i", srcPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:-1", thumbMaxEdge),
		"-y", destPath)

	if output, err := cmd.CombinedOutput(); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("ffmpeg frame grab failed: %w (%s)", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// scaleDown performs nearest-neighbor downscaling so the longest edge is at
// most maxEdge. Images already small enough are returned unchanged.
func scaleDown(src image.Image, maxEdge int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxEdge && h <= maxEdge {
		return src
	}

	scale := float64(maxEdge) / float64(w)
	if h > w {
		scale = float64(maxEdge) / float64(h)
	}
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < dh; y++ {
		sy := bounds.Min.Y + y*h/dh
		for x := 0; x < dw; x++ {
			sx := bounds.Min.X + x*w/dw
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}
