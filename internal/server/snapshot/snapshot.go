// Package snapshot stores generated record batches as zstd-compressed
// newline-delimited JSON, so a seeding run can be replayed later.
package snapshot

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/fastsearch/internal/filex"
	"github.com/dmitrijs2005/fastsearch/internal/server/models"
	"github.com/klauspost/compress/zstd"
)

// Writer appends records to a snapshot stream. It is not safe for
// concurrent use.
type Writer struct {
	closer io.Closer
	enc    *zstd.Encoder
	json   *json.Encoder
	count  int
}

// NewWriter compresses records into w.
func NewWriter(w io.Writer) (*Writer, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return &Writer{enc: enc, json: json.NewEncoder(enc)}, nil
}

// Create truncates or creates the file at path, along with its directory,
// and returns a Writer on it.
func Create(path string) (*Writer, error) {
	if _, err := filex.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	w, err := NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

func (w *Writer) Write(records []models.User) error {
	for i := range records {
		if err := w.json.Encode(&records[i]); err != nil {
			return fmt.Errorf("snapshot: write record %s: %w", records[i].ID, err)
		}
		w.count++
	}
	return nil
}

// Count is the number of records written so far.
func (w *Writer) Count() int {
	return w.count
}

// Close flushes the compressed stream and closes the underlying file, if any.
func (w *Writer) Close() error {
	err := w.enc.Close()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Replay decodes the snapshot in r and calls fn with batches of at most
// batchSize records. It stops at the first error returned by fn.
func Replay(ctx context.Context, r io.Reader, batchSize int, fn func(context.Context, []models.User) error) (int, error) {
	if batchSize < 1 {
		batchSize = 1
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("snapshot: %w", err)
	}
	defer dec.Close()

	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	total := 0
	batch := make([]models.User, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := fn(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = make([]models.User, 0, batchSize)
		return nil
	}

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return total, err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var u models.User
		if err := json.Unmarshal(scanner.Bytes(), &u); err != nil {
			return total, fmt.Errorf("snapshot: line %d: %w", line, err)
		}
		batch = append(batch, u)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return total, fmt.Errorf("snapshot: %w", err)
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// ReplayFile is Replay over the file at path.
func ReplayFile(ctx context.Context, path string, batchSize int, fn func(context.Context, []models.User) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("snapshot: %w", err)
	}
	defer f.Close()
	return Replay(ctx, f, batchSize, fn)
}
