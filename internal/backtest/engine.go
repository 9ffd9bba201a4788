package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"cta-backtester/internal/daily"
	"cta-backtester/internal/domain"
	"cta-backtester/internal/matching"
	"cta-backtester/internal/metrics"
	"cta-backtester/internal/observability"
	"cta-backtester/internal/replay"
	"cta-backtester/internal/strategy"
)

// ErrNilDataset is returned when Run is called without data.
var ErrNilDataset = errors.New("dataset is nil")

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithSink forwards order, trade and run events to sink.
func WithSink(sink EventSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithRunID tags logs and events with id.
func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// Engine drives one strategy through a replayed dataset. It owns the
// order book, the daily buckets and the strategy binding for the run.
// Implements replay.Engine, strategy.Engine and matching.Listener.
//
// An Engine is not safe for concurrent use; run one Engine per goroutine.
type Engine struct {
	settings Settings
	strategy strategy.Strategy

	book       *matching.OrderBook
	aggregator *daily.Aggregator

	log     logrus.FieldLogger
	metrics *observability.Metrics
	sink    EventSink
	runID   string

	runLog       logrus.FieldLogger
	fatal        error
	warmupPoints int
	points       int
	last         domain.MarketPoint
}

// NewEngine creates an engine for strat. Settings are validated by Run.
func NewEngine(settings Settings, strat strategy.Strategy, opts ...Option) *Engine {
	e := &Engine{
		settings:   settings,
		strategy:   strat,
		aggregator: daily.NewAggregator(),
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.book = matching.NewOrderBook(settings.PriceTick, e)
	e.runLog = e.log
	return e
}

// Configure replaces the settings for subsequent runs.
func (e *Engine) Configure(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	e.settings = settings
	e.book.SetPriceTick(settings.PriceTick)
	return nil
}

// Settings returns the current settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Reset clears the order book, counters, ledgers and daily buckets.
func (e *Engine) Reset() {
	e.book.Reset()
	e.book.SetPriceTick(e.settings.PriceTick)
	e.aggregator.Reset()
	e.fatal = nil
	e.warmupPoints = 0
	e.points = 0
	e.last = nil
	e.runLog = e.log
}

// Run replays ds: warm-up points reach the strategy with trading disabled,
// then active points are matched and delivered in order. The engine is
// reset at the start of every run.
func (e *Engine) Run(ctx context.Context, ds *replay.Dataset) (res *Result, err error) {
	if ds == nil {
		return nil, ErrNilDataset
	}
	if err := e.settings.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	e.metrics.RunStarted()
	defer func() {
		status := domain.RunStatusCompleted
		if err != nil {
			status = domain.RunStatusFailed
		}
		e.metrics.RunFinished(string(status), time.Since(started))
		e.publishFinished(status, err, res)
	}()

	e.Reset()
	strategy.Bind(e.strategy, e, e.settings.Symbol)
	e.runLog = e.log.WithFields(logrus.Fields{
		"run_id":   e.runID,
		"strategy": e.strategy.ID(),
		"symbol":   e.settings.Symbol,
		"mode":     e.settings.Mode,
	})
	e.runLog.WithFields(logrus.Fields{
		"start":     e.settings.StartDate.Format(time.DateOnly),
		"init_days": e.settings.InitDays,
	}).Info("backtest started")

	e.strategy.OnInit()
	strategy.SetInited(e.strategy, true)

	if _, err := replay.Play(ctx, ds.Warmup, replay.EngineFunc(e.onWarmupPoint)); err != nil {
		return nil, fmt.Errorf("warm-up replay: %w", err)
	}
	e.runLog.WithField("points", e.warmupPoints).Debug("warm-up delivered")

	strategy.SetTrading(e.strategy, true)
	e.strategy.OnStart()
	if e.fatal != nil {
		return nil, e.fatal
	}

	if _, err := replay.Play(ctx, ds.Active, e); err != nil {
		strategy.SetTrading(e.strategy, false)
		return nil, fmt.Errorf("replay: %w", err)
	}

	strategy.SetTrading(e.strategy, false)
	e.strategy.OnStop()

	res, err = e.assemble()
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"points": res.Points,
		"trades": len(res.Trades),
	}
	if res.Summary != nil {
		fields["net_pnl"] = res.Summary.Capital.String()
		fields["max_drawdown"] = res.Summary.MaxDrawdown.String()
	}
	e.runLog.WithFields(fields).Info("backtest finished")
	return res, nil
}

// OnPoint processes one active point: limit and stop matching against the
// previous state first, then strategy delivery, then the day's close.
// Implements replay.Engine.
func (e *Engine) OnPoint(_ context.Context, p domain.MarketPoint) error {
	if err := e.book.Cross(p); err != nil {
		return err
	}
	e.deliver(p)
	e.aggregator.UpdateClose(p.Day(), p.Price())
	e.points++
	e.last = p
	e.metrics.RecordPoint(string(e.settings.Mode), false)
	return e.fatal
}

func (e *Engine) onWarmupPoint(_ context.Context, p domain.MarketPoint) error {
	e.book.SetPoint(p)
	e.deliver(p)
	e.warmupPoints++
	e.metrics.RecordPoint(string(e.settings.Mode), true)
	return e.fatal
}

func (e *Engine) deliver(p domain.MarketPoint) {
	switch v := p.(type) {
	case *domain.Bar:
		e.strategy.OnBar(v)
	case *domain.Tick:
		e.strategy.OnTick(v)
	}
}

// fail records the first invariant violation; the replay stops after the
// current point.
func (e *Engine) fail(err error) {
	if e.fatal == nil {
		e.fatal = err
		e.runLog.WithError(err).Error("run aborted")
	}
}

func (e *Engine) assemble() (*Result, error) {
	res := &Result{
		RunID:        e.runID,
		Settings:     e.settings,
		StrategyName: e.strategy.Name(),
		StrategyID:   e.strategy.ID(),
		WarmupPoints: e.warmupPoints,
		Points:       e.points,
		Orders:       e.book.Orders(),
		StopOrders:   e.book.StopOrders(),
		Trades:       e.book.Trades(),
		EndPrice:     decimal.Zero,
	}
	if e.last != nil {
		res.EndPrice = e.last.Price()
		res.EndTime = e.last.Time()
	}

	summary, err := metrics.Calculate(res.Trades, res.EndPrice, res.EndTime, e.settings.resultCosts())
	switch {
	case errors.Is(err, metrics.ErrNoTrades):
		e.runLog.Info("no closed trades; result is empty")
	case err != nil:
		return nil, fmt.Errorf("calculate results: %w", err)
	default:
		res.Summary = summary
	}

	days, err := e.aggregator.Calculate(res.Trades, e.settings.dailyCosts())
	if err != nil {
		return nil, fmt.Errorf("calculate daily results: %w", err)
	}
	if len(days) == 0 {
		e.runLog.Info("no active points; daily results are empty")
		return res, nil
	}
	res.Daily = days

	stats, err := daily.Statistics(days, e.settings.Capital)
	if err != nil {
		return nil, fmt.Errorf("daily statistics: %w", err)
	}
	res.DailyStats = stats
	return res, nil
}

// SendOrder submits a limit order. Implements strategy.Engine.
func (e *Engine) SendOrder(orderType domain.OrderType, price, volume decimal.Decimal) string {
	return e.send(orderType, price, volume, false)
}

// SendStopOrder submits a stop order. Implements strategy.Engine.
func (e *Engine) SendStopOrder(orderType domain.OrderType, price, volume decimal.Decimal) string {
	return e.send(orderType, price, volume, true)
}

func (e *Engine) send(orderType domain.OrderType, price, volume decimal.Decimal, stop bool) string {
	dir, offset, err := orderType.Resolve()
	if err != nil {
		e.fail(fmt.Errorf("send order %s: %w", orderType, err))
		return ""
	}

	kind := "limit"
	var id string
	if stop {
		kind = "stop"
		id, err = e.book.SubmitStopOrder(e.settings.Symbol, dir, offset, price, volume)
	} else {
		id, err = e.book.SubmitLimitOrder(e.settings.Symbol, dir, offset, price, volume)
	}

	switch {
	case errors.Is(err, matching.ErrInvalidVolume), errors.Is(err, matching.ErrInvalidPrice):
		e.runLog.WithFields(logrus.Fields{
			"type":   orderType.String(),
			"kind":   kind,
			"price":  price.String(),
			"volume": volume.String(),
		}).WithError(err).Warn("order ignored")
		return ""
	case err != nil:
		e.fail(fmt.Errorf("submit %s order: %w", kind, err))
		return ""
	}

	e.metrics.RecordOrderSubmitted(kind)
	return id
}

// CancelOrder cancels a working limit order. Implements strategy.Engine.
func (e *Engine) CancelOrder(orderID string) {
	if e.book.CancelLimitOrder(orderID) {
		e.metrics.RecordOrderCancelled("limit")
	}
}

// CancelStopOrder cancels a waiting stop order. Implements strategy.Engine.
func (e *Engine) CancelStopOrder(stopOrderID string) {
	if e.book.CancelStopOrder(stopOrderID) {
		e.metrics.RecordOrderCancelled("stop")
	}
}

// CancelAll cancels every working order.
func (e *Engine) CancelAll() {
	e.book.CancelAll()
}

// OnOrder implements matching.Listener.
func (e *Engine) OnOrder(order *domain.LimitOrder) {
	e.strategy.OnOrder(order)
	e.publish(Event{Kind: EventOrder, Order: order})
}

// OnStopOrder implements matching.Listener.
func (e *Engine) OnStopOrder(stop *domain.StopOrder) {
	e.strategy.OnStopOrder(stop)
	e.publish(Event{Kind: EventStopOrder, StopOrder: stop})
}

// OnTrade implements matching.Listener.
func (e *Engine) OnTrade(trade *domain.Trade) {
	e.metrics.RecordFill(string(trade.Direction))
	e.runLog.WithFields(logrus.Fields{
		"trade_id":  trade.TradeID,
		"order_id":  trade.OrderID,
		"direction": trade.Direction,
		"offset":    trade.Offset,
		"price":     trade.Price.String(),
		"volume":    trade.Volume.String(),
	}).Debug("fill")
	e.strategy.OnTrade(trade)
	e.publish(Event{Kind: EventTrade, Trade: trade})
}

// OnPosition implements matching.Listener.
func (e *Engine) OnPosition(delta decimal.Decimal) {
	strategy.AdjustPos(e.strategy, delta)
}

// Pos returns the strategy's net position.
func (e *Engine) Pos() decimal.Decimal {
	return strategy.PosOf(e.strategy)
}

// Book exposes the order book for inspection.
func (e *Engine) Book() *matching.OrderBook {
	return e.book
}

func (e *Engine) publish(ev Event) {
	if e.sink == nil {
		return
	}
	ev.RunID = e.runID
	if p := e.book.Point(); p != nil {
		ev.Time = p.Time()
	}
	e.sink.Publish(ev)
}

func (e *Engine) publishFinished(status domain.RunStatus, err error, res *Result) {
	f := &FinishedEvent{Status: status, Points: e.points, NetPnl: decimal.Zero}
	if err != nil {
		f.Error = err.Error()
	}
	if res != nil {
		f.TradeCount = len(res.Trades)
		if res.Summary != nil {
			f.NetPnl = res.Summary.Capital
		}
	}
	e.publish(Event{Kind: EventFinished, Finished: f})
}

var (
	_ replay.Engine     = (*Engine)(nil)
	_ strategy.Engine   = (*Engine)(nil)
	_ matching.Listener = (*Engine)(nil)
)
