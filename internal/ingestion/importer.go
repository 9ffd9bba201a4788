package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"cta-backtester/internal/domain"
	"cta-backtester/internal/observability"
	"cta-backtester/internal/storage"
)

// ErrInvalidOrdering is returned when a file holds two records with the
// same timestamp.
var ErrInvalidOrdering = errors.New("invalid ordering: duplicate timestamp")

// ErrNoStore is returned when importing a kind without a configured store.
var ErrNoStore = errors.New("no store configured")

// ImporterOptions configures an Importer.
type ImporterOptions struct {
	BarStore  storage.BarStore
	TickStore storage.TickStore
	// BatchSize is the number of records per InsertBulk call.
	BatchSize int
	// Location interprets timestamps without a zone. Defaults to UTC.
	Location *time.Location
	Logger   logrus.FieldLogger
	Metrics  *observability.Metrics
}

// Importer loads CSV history into the bar and tick stores.
type Importer struct {
	bars      storage.BarStore
	ticks     storage.TickStore
	batchSize int
	loc       *time.Location
	log       logrus.FieldLogger
	metrics   *observability.Metrics
}

// NewImporter creates an importer.
func NewImporter(opts ImporterOptions) *Importer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5000
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Importer{
		bars:      opts.BarStore,
		ticks:     opts.TickStore,
		batchSize: opts.BatchSize,
		loc:       opts.Location,
		log:       opts.Logger,
		metrics:   opts.Metrics,
	}
}

// ImportFile imports path as bars or ticks depending on mode.
func (im *Importer) ImportFile(ctx context.Context, path string, mode domain.Mode, symbol string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	n, err := im.Import(ctx, f, mode, symbol)
	if err != nil {
		return n, fmt.Errorf("import %s: %w", path, err)
	}
	return n, nil
}

// Import reads r as bars or ticks depending on mode.
func (im *Importer) Import(ctx context.Context, r io.Reader, mode domain.Mode, symbol string) (int, error) {
	if mode == domain.ModeTick {
		return im.ImportTicks(ctx, r, symbol)
	}
	return im.ImportBars(ctx, r, symbol)
}

// ImportBars parses, orders and stores bars. Returns the number stored.
func (im *Importer) ImportBars(ctx context.Context, r io.Reader, symbol string) (int, error) {
	if im.bars == nil {
		return 0, fmt.Errorf("bars: %w", ErrNoStore)
	}
	bars, err := ReadBars(r, symbol, im.loc)
	if err != nil {
		return 0, err
	}
	SortBars(bars)
	if err := ValidateBarOrdering(bars); err != nil {
		return 0, err
	}

	stored := 0
	for start := 0; start < len(bars); start += im.batchSize {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		end := min(start+im.batchSize, len(bars))
		if err := im.bars.InsertBulk(ctx, bars[start:end]); err != nil {
			return stored, fmt.Errorf("insert bars [%d:%d]: %w", start, end, err)
		}
		stored += end - start
	}

	im.record("bar", stored)
	if stored > 0 {
		im.log.WithFields(logrus.Fields{
			"kind":  "bar",
			"count": stored,
			"first": bars[0].EndTime,
			"last":  bars[len(bars)-1].EndTime,
		}).Info("history imported")
	}
	return stored, nil
}

// ImportTicks parses, orders and stores ticks. Returns the number stored.
func (im *Importer) ImportTicks(ctx context.Context, r io.Reader, symbol string) (int, error) {
	if im.ticks == nil {
		return 0, fmt.Errorf("ticks: %w", ErrNoStore)
	}
	ticks, err := ReadTicks(r, symbol, im.loc)
	if err != nil {
		return 0, err
	}
	SortTicks(ticks)
	if err := ValidateTickOrdering(ticks); err != nil {
		return 0, err
	}

	stored := 0
	for start := 0; start < len(ticks); start += im.batchSize {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		end := min(start+im.batchSize, len(ticks))
		if err := im.ticks.InsertBulk(ctx, ticks[start:end]); err != nil {
			return stored, fmt.Errorf("insert ticks [%d:%d]: %w", start, end, err)
		}
		stored += end - start
	}

	im.record("tick", stored)
	if stored > 0 {
		im.log.WithFields(logrus.Fields{
			"kind":  "tick",
			"count": stored,
			"first": ticks[0].Datetime,
			"last":  ticks[len(ticks)-1].Datetime,
		}).Info("history imported")
	}
	return stored, nil
}

func (im *Importer) record(kind string, n int) {
	if im.metrics != nil {
		im.metrics.RecordImported(kind, n)
		return
	}
	observability.RecordImported(kind, n)
}

// SortBars orders bars by symbol then end time.
func SortBars(bars []*domain.Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		if bars[i].Symbol != bars[j].Symbol {
			return bars[i].Symbol < bars[j].Symbol
		}
		return bars[i].EndTime.Before(bars[j].EndTime)
	})
}

// SortTicks orders ticks by symbol then time.
func SortTicks(ticks []*domain.Tick) {
	sort.SliceStable(ticks, func(i, j int) bool {
		if ticks[i].Symbol != ticks[j].Symbol {
			return ticks[i].Symbol < ticks[j].Symbol
		}
		return ticks[i].Datetime.Before(ticks[j].Datetime)
	})
}

// ValidateBarOrdering checks sorted bars for duplicate (symbol, end_time).
func ValidateBarOrdering(bars []*domain.Bar) error {
	for i := 1; i < len(bars); i++ {
		prev, cur := bars[i-1], bars[i]
		if prev.Symbol == cur.Symbol && prev.EndTime.Equal(cur.EndTime) {
			return fmt.Errorf("%w: %s at %s", ErrInvalidOrdering, cur.Symbol, cur.EndTime.Format(time.RFC3339))
		}
	}
	return nil
}

// ValidateTickOrdering checks sorted ticks for duplicate (symbol, datetime).
func ValidateTickOrdering(ticks []*domain.Tick) error {
	for i := 1; i < len(ticks); i++ {
		prev, cur := ticks[i-1], ticks[i]
		if prev.Symbol == cur.Symbol && prev.Datetime.Equal(cur.Datetime) {
			return fmt.Errorf("%w: %s at %s", ErrInvalidOrdering, cur.Symbol, cur.Datetime.Format(time.RFC3339Nano))
		}
	}
	return nil
}
