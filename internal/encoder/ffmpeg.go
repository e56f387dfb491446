package encoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/clipstream/media-server/internal/config"
	"github.com/clipstream/media-server/pkg/logger"
	"github.com/pkg/errors"
)

const defaultSegmentSeconds = 6

type rendition struct {
	width        int
	height       int
	videoBitrate string
	audioBitrate string
	bandwidth    int
}

// Bitrate ladder, smallest first so every source gets at least one rendition.
var ladder = []rendition{
	{width: 640, height: 360, videoBitrate: "800k", audioBitrate: "96k", bandwidth: 900000},
	{width: 1280, height: 720, videoBitrate: "2800k", audioBitrate: "128k", bandwidth: 3000000},
	{width: 1920, height: 1080, videoBitrate: "5000k", audioBitrate: "192k", bandwidth: 5300000},
}

type ffmpegEncoder struct {
	cfg    *config.Config
	logger logger.Logger
}

func NewFFmpegEncoder(cfg *config.Config, logger logger.Logger) HLSEncoder {
	return &ffmpegEncoder{
		cfg:    cfg,
		logger: logger,
	}
}

func (e *ffmpegEncoder) ffmpegBin() string {
	if e.cfg.Encoder.FFmpegBin != "" {
		return e.cfg.Encoder.FFmpegBin
	}
	return "ffmpeg"
}

func (e *ffmpegEncoder) ffprobeBin() string {
	if e.cfg.Encoder.FFprobeBin != "" {
		return e.cfg.Encoder.FFprobeBin
	}
	return "ffprobe"
}

func (e *ffmpegEncoder) segmentSeconds() int {
	if e.cfg.Encoder.SegmentSeconds > 0 {
		return e.cfg.Encoder.SegmentSeconds
	}
	return defaultSegmentSeconds
}

func (e *ffmpegEncoder) EncodeHLS(ctx context.Context, sourcePath, outputDir string) error {
	height, err := e.probeHeight(ctx, sourcePath)
	if err != nil {
		return err
	}

	renditions := pickRenditions(height)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return errors.Wrap(err, "ffmpegEncoder.EncodeHLS.MkdirAll")
	}

	for idx, r := range renditions {
		if err := e.encodeRendition(ctx, sourcePath, outputDir, idx, r); err != nil {
			return err
		}
	}

	return e.writeMasterPlaylist(outputDir, renditions)
}

func (e *ffmpegEncoder) probeHeight(ctx context.Context, sourcePath string) (int, error) {
	cmd := exec.CommandContext(ctx, e.ffprobeBin(),
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=height",
		"-of", "csv=p=0",
		sourcePath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, errors.Wrap(err, "ffmpegEncoder.probeHeight")
	}
	height, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, errors.Wrapf(err, "ffmpegEncoder.probeHeight parse %q", out)
	}
	return height, nil
}

func pickRenditions(sourceHeight int) []rendition {
	var picked []rendition
	for _, r := range ladder {
		if r.height <= sourceHeight {
			picked = append(picked, r)
		}
	}
	if len(picked) == 0 {
		picked = ladder[:1]
	}
	return picked
}

func (e *ffmpegEncoder) encodeRendition(ctx context.Context, sourcePath, outputDir string, idx int, r rendition) error {
	renditionDir := filepath.Join(outputDir, fmt.Sprintf("v%d", idx))
	if err := os.MkdirAll(renditionDir, 0o755); err != nil {
		return errors.Wrap(err, "ffmpegEncoder.encodeRendition.MkdirAll")
	}

	cmd := exec.CommandContext(ctx, e.ffmpegBin(),
		"-i", sourcePath,
		"-vf", fmt.Sprintf("scale=-2:%d", r.height),
		"-c:v", "libx264",
		"-b:v", r.videoBitrate,
		"-preset", "veryfast",
		"-c:a", "aac",
		"-b:a", r.audioBitrate,
		"-hls_time", strconv.Itoa(e.segmentSeconds()),
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(renditionDir, "segment_%03d.ts"),
		"-y", filepath.Join(renditionDir, "prog_index.m3u8"),
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "ffmpegEncoder.encodeRendition v%d: %s", idx, tail(stderr.String()))
	}
	return nil
}

func (e *ffmpegEncoder) writeMasterPlaylist(outputDir string, renditions []rendition) error {
	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n")
	for idx, r := range renditions {
		b.WriteString(fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d\n", r.bandwidth, r.width, r.height))
		b.WriteString(fmt.Sprintf("v%d/prog_index.m3u8\n", idx))
	}
	if err := os.WriteFile(filepath.Join(outputDir, "master.m3u8"), []byte(b.String()), 0o644); err != nil {
		return errors.Wrap(err, "ffmpegEncoder.writeMasterPlaylist")
	}
	return nil
}

func tail(s string) string {
	const max = 512
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
