package poi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/wegman-software/poimatch-go/internal/logger"
)

const maxLineSize = 4 * 1024 * 1024

// ReadJSONLines decodes one record per line. Blank lines are ignored;
// undecodable lines are logged with their line number and skipped.
func ReadJSONLines(ctx context.Context, r io.Reader) ([]Record, int, error) {
	log := logger.Get()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var records []Record
	skipped := 0
	line := 0
	for scanner.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return records, skipped, err
			}
		}

		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			log.Error("Skipping undecodable record", zap.Int("line", line), zap.Error(err))
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, skipped, fmt.Errorf("failed to read records: %w", err)
	}
	return records, skipped, nil
}

// ReadFile opens path ("-" for stdin) and decodes it with ReadJSONLines
func ReadFile(ctx context.Context, path string) ([]Record, int, error) {
	if path == "-" {
		return ReadJSONLines(ctx, os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open record file: %w", err)
	}
	defer f.Close()

	records, skipped, err := ReadJSONLines(ctx, f)
	if err != nil {
		return records, skipped, fmt.Errorf("%s: %w", path, err)
	}
	logger.Get().Info("Records loaded",
		zap.String("file", path),
		zap.Int("records", len(records)),
		zap.Int("skipped", skipped),
	)
	return records, skipped, nil
}
