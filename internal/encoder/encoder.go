package encoder

import "context"

// HLSEncoder is the boundary to the external transcoder. Given a source file
// it materializes a directory holding master.m3u8 plus per-rendition segment
// subdirectories, or fails. Callers treat it as a black box.
type HLSEncoder interface {
	EncodeHLS(ctx context.Context, sourcePath, outputDir string) error
}
