// Package loader reads schema documents from disk, an fs.FS or HTTP.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/goliatone/go-formbind/pkg/schema"
)

var (
	errNoSource    = errors.New("loader: source is nil")
	errHTTPOff     = errors.New("loader: http sources are disabled")
	errNoFS        = errors.New("loader: no fs.FS configured")
	errNoLocation  = errors.New("loader: source location is empty")
	errUnsupported = errors.New("loader: unsupported source kind")
)

// Loader implements schema.Loader.
type Loader struct {
	fs      fs.FS
	client  *http.Client
	timeout time.Duration
}

var _ schema.Loader = (*Loader)(nil)

// New builds a Loader from resolved options.
func New(options schema.LoaderOptions) *Loader {
	var client *http.Client
	switch {
	case options.HTTPClient != nil:
		clone := *options.HTTPClient
		if options.RequestTimeout > 0 && clone.Timeout == 0 {
			clone.Timeout = options.RequestTimeout
		}
		client = &clone
	case options.AllowHTTPFallback:
		client = &http.Client{Timeout: options.RequestTimeout}
	}
	return &Loader{fs: options.FileSystem, client: client, timeout: options.RequestTimeout}
}

// Load reads src and wraps the payload in a Document.
func (l *Loader) Load(ctx context.Context, src schema.Source) (schema.Document, error) {
	if src == nil {
		return schema.Document{}, errNoSource
	}
	if src.Location() == "" {
		return schema.Document{}, errNoLocation
	}
	if err := ctx.Err(); err != nil {
		return schema.Document{}, err
	}

	var (
		data []byte
		err  error
	)
	switch src.Kind() {
	case schema.SourceKindFile:
		data, err = readFile(src.Location())
	case schema.SourceKindFS:
		if l.fs == nil {
			return schema.Document{}, errNoFS
		}
		data, err = fs.ReadFile(l.fs, src.Location())
	case schema.SourceKindURL:
		if l.client == nil {
			return schema.Document{}, errHTTPOff
		}
		data, err = l.fetch(ctx, src.Location())
	default:
		err = errUnsupported
	}
	if err != nil {
		return schema.Document{}, fmt.Errorf("loader: %s: %w", src.Location(), err)
	}
	return schema.NewDocument(src, data)
}

func readFile(path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("unexpected status " + resp.Status)
	}
	return io.ReadAll(resp.Body)
}
