package ingest

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retention-cli/internal/cache"
	"github.com/sells-group/retention-cli/internal/frame"
	"github.com/sells-group/retention-cli/internal/resilience"
	"github.com/sells-group/retention-cli/pkg/sheets"
)

// SheetLoader fetches worksheets by name through an injected cache.
type SheetLoader struct {
	client        sheets.Client
	cache         cache.Cache
	spreadsheetID string
	timeout       time.Duration
	breaker       *resilience.Breaker
}

// NewSheetLoader creates a SheetLoader. A nil cache disables caching.
func NewSheetLoader(client sheets.Client, c cache.Cache, spreadsheetID string, timeout time.Duration) *SheetLoader {
	if c == nil {
		c = cache.Nop{}
	}
	return &SheetLoader{
		client:        client,
		cache:         c,
		spreadsheetID: spreadsheetID,
		timeout:       timeout,
	}
}

// UseBreaker guards upstream fetches with b. While b is open, loads that
// miss the cache yield empty frames without calling the API.
func (l *SheetLoader) UseBreaker(b *resilience.Breaker) *SheetLoader {
	l.breaker = b
	return l
}

// Load returns the worksheet as a repaired frame. Any fetch failure is
// logged and yields an empty frame; callers treat empty as no data.
func (l *SheetLoader) Load(ctx context.Context, worksheet string) *frame.Frame {
	log := zap.L().With(zap.String("worksheet", worksheet))
	key := l.key(worksheet)

	values, hit, err := l.cache.Get(ctx, key)
	if err != nil {
		log.Warn("ingest: sheet cache read failed", zap.Error(err))
	}
	if hit {
		log.Debug("ingest: sheet cache hit")
		return SheetFrame(values)
	}

	values, err = l.fetch(ctx, worksheet)
	if err != nil {
		log.Error("ingest: sheet load failed", zap.Error(err))
		return frame.Empty()
	}

	if err := l.cache.Set(ctx, key, values); err != nil {
		log.Warn("ingest: sheet cache write failed", zap.Error(err))
	}

	f := SheetFrame(values)
	log.Info("ingest: sheet loaded", zap.Int("rows", f.Len()), zap.Int("columns", len(f.Columns)))
	return f
}

// Invalidate drops the cached copy of worksheet.
func (l *SheetLoader) Invalidate(ctx context.Context, worksheet string) error {
	if err := l.cache.Delete(ctx, l.key(worksheet)); err != nil {
		return eris.Wrapf(err, "ingest: invalidate %s", worksheet)
	}
	return nil
}

func (l *SheetLoader) fetch(ctx context.Context, worksheet string) ([][]string, error) {
	if l.client == nil {
		return nil, eris.New("ingest: no sheets client configured")
	}
	if l.breaker != nil {
		if err := l.breaker.Allow(); err != nil {
			return nil, err
		}
	}
	values, err := l.values(ctx, worksheet)
	if l.breaker != nil {
		l.breaker.Record(err)
	}
	return values, err
}

func (l *SheetLoader) values(ctx context.Context, worksheet string) ([][]string, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return l.client.Values(ctx, l.spreadsheetID, worksheet)
}

func (l *SheetLoader) key(worksheet string) string {
	return l.spreadsheetID + "/" + worksheet
}
