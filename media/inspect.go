package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Inspector checks a media file and describes any problems it finds.
// An empty diagnostic means the file looks fine.
type Inspector interface {
	Inspect(ctx context.Context, path string) (string, error)
}

// FFmpegInspector inspects media files with the ffprobe binary.
type FFmpegInspector struct {
	Path string
}

// NewFFmpegInspector returns an inspector running the ffprobe binary at path.
func NewFFmpegInspector(path string) *FFmpegInspector {
	return &FFmpegInspector{Path: path}
}

// Inspect runs ffprobe with errors-only logging; whatever it prints to stderr
// is the diagnostic.
func (f *FFmpegInspector) Inspect(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, f.Path,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	diagnostic := strings.TrimSpace(stderr.String())

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if diagnostic == "" {
			diagnostic = fmt.Sprintf("ffprobe exited with code %d", exitErr.ExitCode())
		}
		return diagnostic, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to run ffprobe: %w", err)
	}
	return diagnostic, nil
}
