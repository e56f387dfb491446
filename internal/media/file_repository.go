package media

import "github.com/pkg/errors"

// ErrPathEscape is returned when a requested name would resolve outside its
// storage root.
var ErrPathEscape = errors.New("path escapes storage root")

// FileRepository owns the on-disk storage areas: temp scratch space for
// incoming uploads and the public image/video trees the static handlers serve
// from. All path lookups refuse components that would escape their root.
type FileRepository interface {
	InitDirs() error
	// ImagePath resolves a stored image by filename under the public image dir.
	ImagePath(name string) (string, error)
	// VideoPath resolves a stored video by filename under the public video dir.
	VideoPath(name string) (string, error)
	// HLSPath resolves a manifest or segment under a job's output directory.
	HLSPath(id string, elem ...string) (string, error)
	// HLSOutputDir returns the directory the encoder writes a job's output to.
	HLSOutputDir(name string) string
	// SaveImageAsJPEG re-encodes src to canonical JPEG under the public image
	// dir and returns the stored filename.
	SaveImageAsJPEG(src, name string) (string, error)
	// MoveToVideoStore renames a temp video into the public video dir and
	// returns the stored filename.
	MoveToVideoStore(tempPath string) (string, error)
	Remove(path string) error
}
