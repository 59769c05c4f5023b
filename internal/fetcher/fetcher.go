package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher opens an input location for reading.
type Fetcher interface {
	// Open returns a reader over the location's bytes. Callers must close it.
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// Router dispatches a location to a fetcher by URL scheme. Locations with no
// scheme, or with file://, are read from the local filesystem.
type Router struct {
	HTTP Fetcher
	FTP  Fetcher
}

// NewRouter creates a Router with default HTTP and FTP fetchers.
func NewRouter(httpOpts HTTPOptions, ftpOpts FTPOptions) *Router {
	return &Router{
		HTTP: NewHTTPFetcher(httpOpts),
		FTP:  NewFTPFetcher(ftpOpts),
	}
}

// Open implements Fetcher.
func (r *Router) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	switch scheme(location) {
	case "http", "https":
		if r.HTTP == nil {
			return nil, eris.Errorf("fetch: no http fetcher for %s", location)
		}
		return r.HTTP.Open(ctx, location)
	case "ftp":
		if r.FTP == nil {
			return nil, eris.Errorf("fetch: no ftp fetcher for %s", location)
		}
		return r.FTP.Open(ctx, location)
	case "file":
		u, err := url.Parse(location)
		if err != nil {
			return nil, eris.Wrap(err, "fetch: parse file url")
		}
		return openFile(u.Path)
	case "":
		return openFile(location)
	default:
		return nil, eris.Errorf("fetch: unsupported scheme in %q", location)
	}
}

func openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: open %s", path)
	}
	return f, nil
}

// scheme returns the lower-cased URL scheme, or "" for plain paths
// (including Windows drive letters such as C:\data.csv).
func scheme(location string) string {
	i := strings.Index(location, "://")
	if i <= 1 {
		return ""
	}
	return strings.ToLower(location[:i])
}
