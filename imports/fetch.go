package imports

import (
	"context"
	"fmt"
	"io"
	"os"
)

// DefaultMaxDocumentBytes bounds a single fetched document.
const DefaultMaxDocumentBytes = 256 << 20

// Payload is a retrieved document.
type Payload struct {
	Content []byte
	// ContentType is the response media type for remote documents.
	ContentType string
	// Location is where the content actually came from after redirects.
	Location string
}

// Fetcher retrieves one canonical target.
type Fetcher interface {
	Fetch(ctx context.Context, target string) (*Payload, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, target string) (*Payload, error)

// Fetch calls f(ctx, target).
func (f FetcherFunc) Fetch(ctx context.Context, target string) (*Payload, error) { return f(ctx, target) }

// FileFetcher reads local documents.
type FileFetcher struct {
	// MaxBytes bounds a document (0 = DefaultMaxDocumentBytes).
	MaxBytes int64
}

// Fetch reads the file at target.
func (f FileFetcher) Fetch(ctx context.Context, target string) (*Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(target)
	if err != nil {
		return nil, &FetchError{Target: target, Err: err}
	}
	defer file.Close()

	content, err := readBounded(file, f.MaxBytes)
	if err != nil {
		return nil, &FetchError{Target: target, Err: err}
	}
	return &Payload{Content: content, Location: target}, nil
}

func readBounded(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxDocumentBytes
	}
	content, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > limit {
		return nil, fmt.Errorf("document larger than %d bytes", limit)
	}
	return content, nil
}
