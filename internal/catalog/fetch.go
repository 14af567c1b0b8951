package catalog

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/hitqr/internal/shared"
)

// DefaultPrefix is the file name prefix shared by every deck catalog.
const DefaultPrefix = "hitster"

// Fetcher retrieves the raw CSV for a deck.
type Fetcher interface {
	Fetch(ctx context.Context, deckID string) (io.ReadCloser, error)
}

// FileName returns the catalog file name for a deck.
func FileName(prefix, deckID string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "-" + deckID + ".csv"
}

// HTTPFetcher downloads deck catalogs from a static asset root.
type HTTPFetcher struct {
	BaseURL string
	Prefix  string
	Client  *http.Client
}

// NewHTTPFetcher creates an [HTTPFetcher] rooted at baseURL.
func NewHTTPFetcher(baseURL, prefix string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Prefix:  prefix,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch GETs <base>/<prefix>-<deck>.csv. Transport failures and non-2xx responses wrap [shared.ErrCatalogFetch].
func (f *HTTPFetcher) Fetch(ctx context.Context, deckID string) (io.ReadCloser, error) {
	endpoint := f.BaseURL + "/" + url.PathEscape(FileName(f.Prefix, deckID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCatalogFetch, err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCatalogFetch, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: no catalog found under %s (status %d)", shared.ErrCatalogFetch, endpoint, resp.StatusCode)
	}

	return resp.Body, nil
}

// DirFetcher reads deck catalogs from a file system, usually [os.DirFS] over the configured deck directory.
type DirFetcher struct {
	FS     fs.FS
	Prefix string
}

// NewDirFetcher creates a [DirFetcher] over fsys.
func NewDirFetcher(fsys fs.FS, prefix string) *DirFetcher {
	return &DirFetcher{FS: fsys, Prefix: prefix}
}

func (f *DirFetcher) Fetch(_ context.Context, deckID string) (io.ReadCloser, error) {
	name := FileName(f.Prefix, deckID)
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w: invalid deck id %q", shared.ErrCatalogFetch, deckID)
	}

	file, err := f.FS.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCatalogFetch, err)
	}
	return file, nil
}
