package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewMediaID allocates a collision-resistant identifier used as the storage
// directory name and the eventual job name. It never derives from the
// client-supplied filename.
func NewMediaID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// GetNameFromFilename strips the extension: "abc123.mp4" -> "abc123".
func GetNameFromFilename(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx <= 0 {
		return filename
	}
	return filename[:idx]
}

// GetExtension returns the extension without the dot, or "" when there is none.
func GetExtension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return filename[idx+1:]
}
