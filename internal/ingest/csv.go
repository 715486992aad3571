// Package ingest reads input files into batches for the pipeline.
package ingest

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/JonMunkholm/featureprep/internal/core"
)

var (
	ErrEmptyFile    = errors.New("empty file")
	ErrFileTooLarge = errors.New("file too large")
	ErrInvalidCSV   = errors.New("invalid csv")
)

var (
	intPattern   = regexp.MustCompile(`^-?(0|[1-9]\d*)$`)
	floatPattern = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?([eE][+-]?\d+)?$`)
)

// Options controls how an input is read.
type Options struct {
	// MaxFileSize rejects larger inputs. Zero disables the limit.
	MaxFileSize int64

	// InferTypes turns integer and decimal cells into int64 and float64.
	// Other cells stay strings; blank cells are always null.
	InferTypes bool
}

// DefaultOptions returns a 100MB limit with type inference on.
func DefaultOptions() Options {
	return Options{MaxFileSize: 100 << 20, InferTypes: true}
}

// Input is one parsed CSV file.
type Input struct {
	Batch    core.Batch
	Hash     string // SHA-256 of the raw bytes
	Size     int64
	Replaced int // Invalid UTF-8 bytes replaced with '?'
}

// ReadFile opens and parses the CSV file at path.
func ReadFile(path string, opts Options) (*Input, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, path, info.Size(), opts.MaxFileSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	return Read(f, opts)
}

// FileHash returns the SHA-256 of the file at path without parsing it.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash input: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Read parses CSV from r. The first non-empty row is the header. Rows
// shorter than the header are padded with nulls; longer rows are an error.
// A header with no data rows yields an empty batch.
func Read(r io.Reader, opts Options) (*Input, error) {
	counter := &limitCounter{r: r, limit: opts.MaxFileSize}
	h := sha256.New()
	sanitizer := newUTF8Sanitizer(newBOMSkipper(io.TeeReader(counter, h)))

	cr := csv.NewReader(sanitizer)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var header []string
	var records []core.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, ErrFileTooLarge) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		if isEmptyRow(row) {
			continue
		}

		if header == nil {
			header, err = parseHeader(row)
			if err != nil {
				return nil, err
			}
			continue
		}

		if len(row) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", ErrInvalidCSV, line, len(row), len(header))
		}
		rec := make(core.Record, len(header))
		for i, name := range header {
			if i < len(row) {
				rec[name] = cellValue(row[i], opts.InferTypes)
			} else {
				rec[name] = nil
			}
		}
		records = append(records, rec)
	}

	if header == nil {
		return nil, ErrEmptyFile
	}

	return &Input{
		Batch:    core.Batch{Columns: header, Records: records},
		Hash:     hex.EncodeToString(h.Sum(nil)),
		Size:     counter.n,
		Replaced: sanitizer.Replaced(),
	}, nil
}

func parseHeader(row []string) ([]string, error) {
	header := make([]string, len(row))
	seen := make(map[string]int, len(row))
	for i, cell := range row {
		name := core.CleanCell(cell)
		if name == "" {
			return nil, fmt.Errorf("%w: empty column name at position %d", ErrInvalidCSV, i+1)
		}
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: duplicate column %q at positions %d and %d", ErrInvalidCSV, name, prev+1, i+1)
		}
		seen[name] = i
		header[i] = name
	}
	return header, nil
}

// cellValue trims a cell and optionally infers its scalar type.
func cellValue(cell string, infer bool) any {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	if !infer {
		return s
	}
	if intPattern.MatchString(s) {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		return s
	}
	if floatPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// limitCounter counts bytes read and fails once limit is exceeded.
type limitCounter struct {
	r     io.Reader
	limit int64
	n     int64
}

func (c *limitCounter) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.limit > 0 && c.n > c.limit {
		return n, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, c.limit)
	}
	return n, err
}
