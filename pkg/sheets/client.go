// Package sheets reads worksheet values from the Google Sheets API.
package sheets

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Client fetches worksheet values.
type Client interface {
	// Values returns every row of the named worksheet as display strings.
	Values(ctx context.Context, spreadsheetID, worksheet string) ([][]string, error)
}

// Option configures the client.
type Option func(*settings)

type settings struct {
	clientOpts []option.ClientOption
	limiter    *rate.Limiter
}

// WithCredentialsFile authenticates with a service-account key file.
func WithCredentialsFile(path string) Option {
	return func(s *settings) {
		s.clientOpts = append(s.clientOpts, option.WithCredentialsFile(path))
	}
}

// WithCredentialsJSON authenticates with an inline service-account key.
func WithCredentialsJSON(data []byte) Option {
	return func(s *settings) {
		s.clientOpts = append(s.clientOpts, option.WithCredentialsJSON(data))
	}
}

// WithEndpoint overrides the API endpoint and disables authentication.
// Used against local fakes.
func WithEndpoint(url string, hc *http.Client) Option {
	return func(s *settings) {
		s.clientOpts = append(s.clientOpts,
			option.WithEndpoint(url),
			option.WithHTTPClient(hc),
			option.WithoutAuthentication(),
		)
	}
}

// WithRateLimit caps API calls per second. Sheets allows 60 reads per
// minute per user by default.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *settings) {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

type apiClient struct {
	svc     *gsheets.Service
	limiter *rate.Limiter
}

// NewClient creates a Google Sheets values client.
func NewClient(ctx context.Context, opts ...Option) (Client, error) {
	s := &settings{limiter: rate.NewLimiter(1, 5)}
	for _, o := range opts {
		o(s)
	}
	clientOpts := append([]option.ClientOption{
		option.WithScopes(gsheets.SpreadsheetsReadonlyScope),
	}, s.clientOpts...)

	svc, err := gsheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create service")
	}
	return &apiClient{svc: svc, limiter: s.limiter}, nil
}

// A1Range quotes a worksheet title for use as an A1 range covering the
// whole sheet.
func A1Range(worksheet string) string {
	return "'" + strings.ReplaceAll(worksheet, "'", "''") + "'"
}

func (c *apiClient) Values(ctx context.Context, spreadsheetID, worksheet string) ([][]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "sheets: rate limiter wait")
	}

	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, A1Range(worksheet)).
		ValueRenderOption("FORMATTED_VALUE").
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, eris.Wrapf(err, "sheets: get values %q", worksheet)
	}

	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		out[i] = cells
	}
	return out, nil
}
