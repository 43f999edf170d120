package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SanitizeFilename reduces an uploaded filename to a safe base name,
// stripping any path components to prevent traversal.
func SanitizeFilename(filename string) string {
	safe := filepath.Base(filepath.ToSlash(filename))
	safe = strings.ReplaceAll(safe, "..", "")
	if safe == "" || safe == "." || safe == "/" {
		safe = "upload" + filepath.Ext(filename)
	}
	return safe
}

// SecureUniquePath returns a sanitized filename and a destination path under
// dir that is guaranteed not to collide with an existing file. Collisions
// get a short uuid suffix instead of a counter so concurrent uploads of the
// same name cannot race to the same path.
func SecureUniquePath(dir, filename string) (string, string) {
	safe := SanitizeFilename(filename)
	destPath := filepath.Join(dir, safe)

	if _, err := os.Stat(destPath); os.IsNotExist(err) {
		return safe, destPath
	}

	ext := filepath.Ext(safe)
	name := strings.TrimSuffix(safe, ext)
	unique := fmt.Sprintf("%s_%s%s", name, uuid.New().String()[:8], ext)
	return unique, filepath.Join(dir, unique)
}
