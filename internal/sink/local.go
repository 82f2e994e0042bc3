package sink

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

// LocalSink writes serialized reports to the filesystem. A ".gz" path
// suffix enables gzip compression, which matters once raw samples are kept
// in the report.
type LocalSink struct {
	logger zerolog.Logger
}

func NewLocalSink(logger zerolog.Logger) *LocalSink {
	return &LocalSink{logger: logger.With().Str("component", "local-sink").Logger()}
}

func (s *LocalSink) Write(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	if strings.HasSuffix(path, ".gz") {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("failed to compress report: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to finish compressed report: %w", err)
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	} else {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	s.logger.Info().Str("path", path).Int("bytes", len(data)).Msg("Report written")
	return nil
}

// Read loads a previously written report, transparently decompressing
// ".gz" files.
func (s *LocalSink) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return data, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open compressed report: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress report: %w", err)
	}
	return out, nil
}
