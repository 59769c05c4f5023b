package ingest

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retention-cli/internal/fetcher"
	"github.com/sells-group/retention-cli/internal/frame"
)

// ReadOptions controls how an upload is parsed.
type ReadOptions struct {
	Charset string // CSV only; "" detects
	Sheet   string // XLSX only; "" is the first sheet
}

// ReadUpload opens location through f and parses it as XLSX when the path
// ends in .xlsx and as CSV otherwise.
func ReadUpload(ctx context.Context, f fetcher.Fetcher, location string, opts ReadOptions) (*frame.Frame, error) {
	rc, err := f.Open(ctx, location)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", location)
	}
	defer rc.Close() //nolint:errcheck

	fr, err := ParseUpload(ctx, rc, UploadFormat(location), opts)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: parse %s", location)
	}
	zap.L().Info("ingest: upload read",
		zap.String("location", location),
		zap.Int("rows", fr.Len()),
		zap.Int("columns", len(fr.Columns)),
	)
	return fr, nil
}

// Upload formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// UploadFormat infers the format from a location or file name.
func UploadFormat(location string) string {
	p := location
	if u, err := url.Parse(location); err == nil && u.Scheme != "" {
		p = u.Path
	}
	if strings.EqualFold(path.Ext(p), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

// ParseUpload parses r in the given format into a frame.
func ParseUpload(ctx context.Context, r io.Reader, format string, opts ReadOptions) (*frame.Frame, error) {
	switch format {
	case FormatXLSX:
		rows, err := fetcher.ReadXLSXFrom(r, fetcher.XLSXOptions{SheetName: opts.Sheet})
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return frame.Empty(), nil
		}
		return frame.New(rows[0], rows[1:]), nil
	case FormatCSV, "":
		header, rows, err := fetcher.ReadCSV(ctx, r, fetcher.CSVOptions{
			Charset:    opts.Charset,
			LazyQuotes: true,
			TrimSpace:  true,
		})
		if err != nil {
			return nil, err
		}
		return frame.New(header, rows), nil
	default:
		return nil, eris.Errorf("ingest: unknown format %q", format)
	}
}
