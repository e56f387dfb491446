package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/clipstream/media-server/internal/config"
	"github.com/clipstream/media-server/internal/media"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

type fileRepo struct {
	cfg *config.Config
}

func NewFileRepo(cfg *config.Config) media.FileRepository {
	return &fileRepo{
		cfg: cfg,
	}
}

func (f *fileRepo) InitDirs() error {
	dirs := []string{
		f.cfg.Media.ImageTempDir,
		f.cfg.Media.VideoTempDir,
		f.cfg.Media.ImageDir,
		f.cfg.Media.VideoDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "fileRepo.InitDirs.MkdirAll %s", dir)
		}
	}
	return nil
}

// safeJoin joins elem under root and rejects any result outside root.
func safeJoin(root string, elem ...string) (string, error) {
	joined := filepath.Join(append([]string{root}, elem...)...)
	cleanRoot := filepath.Clean(root)
	if joined != cleanRoot && !strings.HasPrefix(joined, cleanRoot+string(filepath.Separator)) {
		return "", media.ErrPathEscape
	}
	return joined, nil
}

func (f *fileRepo) ImagePath(name string) (string, error) {
	return safeJoin(f.cfg.Media.ImageDir, name)
}

func (f *fileRepo) VideoPath(name string) (string, error) {
	return safeJoin(f.cfg.Media.VideoDir, name)
}

func (f *fileRepo) HLSPath(id string, elem ...string) (string, error) {
	root, err := safeJoin(f.cfg.Media.VideoDir, id)
	if err != nil {
		return "", err
	}
	return safeJoin(root, elem...)
}

func (f *fileRepo) HLSOutputDir(name string) string {
	return filepath.Join(f.cfg.Media.VideoDir, name)
}

func (f *fileRepo) SaveImageAsJPEG(src, name string) (string, error) {
	img, err := imaging.Open(src)
	if err != nil {
		return "", errors.Wrap(err, "fileRepo.SaveImageAsJPEG.Open")
	}
	storedName := fmt.Sprintf("%s.jpg", name)
	dst, err := f.ImagePath(storedName)
	if err != nil {
		return "", err
	}
	if err = imaging.Save(img, dst, imaging.JPEGQuality(f.cfg.Media.JPEGQuality)); err != nil {
		return "", errors.Wrap(err, "fileRepo.SaveImageAsJPEG.Save")
	}
	if err = os.Remove(src); err != nil {
		return "", errors.Wrap(err, "fileRepo.SaveImageAsJPEG.Remove")
	}
	return storedName, nil
}

func (f *fileRepo) MoveToVideoStore(tempPath string) (string, error) {
	storedName := filepath.Base(tempPath)
	dst, err := f.VideoPath(storedName)
	if err != nil {
		return "", err
	}
	if err = os.Rename(tempPath, dst); err != nil {
		return "", errors.Wrap(err, "fileRepo.MoveToVideoStore.Rename")
	}
	return storedName, nil
}

func (f *fileRepo) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return errors.Wrap(err, "fileRepo.Remove")
	}
	return nil
}
