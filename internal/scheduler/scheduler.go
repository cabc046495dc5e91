package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"cryptopulse/internal/calculator"
	"cryptopulse/internal/chart"
	"cryptopulse/internal/config"
	"cryptopulse/internal/model"
	"cryptopulse/internal/notifier"
)

const (
	// minSleep keeps a cycle that overruns past the next hour boundary from
	// waking again almost immediately.
	minSleep = 60 * time.Second

	// instrumentTimeout bounds one instrument's full pipeline so a slow
	// provider chain cannot eat into the rest of the cycle.
	instrumentTimeout = 60 * time.Second
)

// MarketData supplies spot prices, order book snapshots and hourly history.
type MarketData interface {
	Price(ctx context.Context, inst model.Instrument) model.OptFloat
	OrderBook(ctx context.Context, inst model.Instrument) model.OrderBook
	History(ctx context.Context, inst model.Instrument, days int) []model.PricePoint
}

// NewsFeed supplies recent headlines for an instrument symbol.
type NewsFeed interface {
	Headlines(ctx context.Context, symbol string, limit int) []model.NewsItem
}

// Messenger delivers rendered reports to the destination chat.
type Messenger interface {
	Send(ctx context.Context, text string) error
	SendPhoto(ctx context.Context, caption string, photo []byte) error
}

// Clock abstracts wall time so the loop can be driven by a fake in tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Window is the daily delivery window, inclusive at both bounds. Bounds are
// compared at second precision: with an end of 21:30, the instant 21:30:00
// is inside and 21:30:01 is already outside.
type Window struct {
	StartHour int
	EndHour   int
	EndMinute int
	Loc       *time.Location
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	h, m, sec := t.In(w.Loc).Clock()
	secs := h*3600 + m*60 + sec
	return secs >= w.StartHour*3600 && secs <= w.EndHour*3600+w.EndMinute*60
}

// Scheduler drives the hourly analysis cycle over all tracked instruments.
type Scheduler struct {
	Market    MarketData
	Feed      NewsFeed
	Messenger Messenger
	Clock     Clock

	instruments []model.Instrument
	window      Window
	schedule    cron.Schedule
	loc         *time.Location
	historyDays int
	newsLimit   int
}

// New builds a Scheduler from validated configuration.
func New(cfg *config.Config, market MarketData, feed NewsFeed, messenger Messenger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Schedule.Timezone, err)
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cfg.Schedule.TickCron)
	if err != nil {
		return nil, fmt.Errorf("parse tick schedule %q: %w", cfg.Schedule.TickCron, err)
	}
	return &Scheduler{
		Market:      market,
		Feed:        feed,
		Messenger:   messenger,
		Clock:       systemClock{},
		instruments: cfg.InstrumentList(),
		window: Window{
			StartHour: cfg.Schedule.WindowStartHour,
			EndHour:   cfg.Schedule.WindowEndHour,
			EndMinute: cfg.Schedule.WindowEndMinute,
			Loc:       loc,
		},
		schedule:    schedule,
		loc:         loc,
		historyDays: cfg.Market.HistoryDays,
		newsLimit:   cfg.News.MaxItems,
	}, nil
}

// Run executes the analysis loop until ctx is cancelled. The startup
// announcement is attempted once; a delivery failure there is logged and the
// loop proceeds regardless.
func (s *Scheduler) Run(ctx context.Context) {
	windowDesc := fmt.Sprintf("%02d:00-%02d:%02d %s",
		s.window.StartHour, s.window.EndHour, s.window.EndMinute, s.loc)
	if err := s.Messenger.Send(ctx, notifier.FormatStartup(s.instruments, windowDesc)); err != nil {
		log.Printf("[WARN] startup announcement failed: %v", err)
	}
	log.Printf("[INFO] scheduler running: %d instruments, window %s", len(s.instruments), windowDesc)

	for {
		now := s.Clock.Now().In(s.loc)
		if s.window.Contains(now) {
			s.runCycle(ctx)
		} else {
			log.Printf("[INFO] %s is outside the delivery window, skipping cycle", now.Format("15:04:05"))
		}

		// Re-sample after the cycle so a slow pass shifts the wake-up
		// instead of shrinking the sleep.
		d := s.sleepFor(s.Clock.Now())
		log.Printf("[INFO] next cycle in %s", d.Round(time.Second))
		select {
		case <-ctx.Done():
			log.Println("[INFO] scheduler stopped")
			return
		case <-s.Clock.After(d):
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	started := s.Clock.Now()
	log.Printf("[INFO] analysis cycle started for %d instruments", len(s.instruments))
	for _, inst := range s.instruments {
		s.analyzeInstrument(ctx, inst)
	}
	log.Printf("[INFO] analysis cycle finished in %s", s.Clock.Now().Sub(started).Round(time.Millisecond))
}

// analyzeInstrument runs the pipeline for one instrument. A panic here is
// contained so the remaining instruments still get their reports, and the
// whole pipeline shares one deadline.
func (s *Scheduler) analyzeInstrument(ctx context.Context, inst model.Instrument) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] analysis for %s panicked: %v", inst.ID, r)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, instrumentTimeout)
	defer cancel()

	report := s.buildReport(ctx, inst)

	if err := s.Messenger.Send(ctx, notifier.FormatReport(report)); err != nil {
		log.Printf("[ERROR] deliver report for %s: %v", inst.ID, err)
		return
	}
	if len(report.Chart) == 0 {
		if err := s.Messenger.Send(ctx, fmt.Sprintf("⚠️ No chart available for %s this hour.", inst.Symbol)); err != nil {
			log.Printf("[ERROR] deliver chart notice for %s: %v", inst.ID, err)
		}
		return
	}
	if err := s.Messenger.SendPhoto(ctx, s.chartTitle(inst), report.Chart); err != nil {
		log.Printf("[ERROR] deliver chart for %s: %v", inst.ID, err)
	}
}

// buildReport gathers market data, indicators, chart and news for one
// instrument. Every field degrades to absent instead of failing the report.
func (s *Scheduler) buildReport(ctx context.Context, inst model.Instrument) *model.Report {
	r := &model.Report{Instrument: inst, GeneratedAt: s.Clock.Now().In(s.loc)}

	r.Price = s.Market.Price(ctx, inst)
	r.Book = s.Market.OrderBook(ctx, inst)

	series := s.Market.History(ctx, inst, s.historyDays)
	smaSeries := calculator.SMASeries(series, calculator.DefaultSMAWindow)
	rsiSeries := calculator.RSISeries(series, calculator.DefaultRSIWindow)
	if n := len(series); n > 0 {
		r.SMA = smaSeries[n-1]
		r.RSI = rsiSeries[n-1]
	}
	r.BuyLevel, r.SellLevel = calculator.Levels(series)
	r.Trend = calculator.ClassifyTrend(r.Price, r.SMA)
	r.RSIState = calculator.ClassifyRSI(r.RSI)

	r.Chart = chart.Render(series, smaSeries, rsiSeries, s.chartTitle(inst))
	r.News = s.Feed.Headlines(ctx, inst.Symbol, s.newsLimit)
	return r
}

func (s *Scheduler) chartTitle(inst model.Instrument) string {
	return fmt.Sprintf("%s / USD - last %dh", inst.Symbol, s.historyDays*24)
}

// sleepFor computes the pause until the next tick, floored at minSleep.
func (s *Scheduler) sleepFor(now time.Time) time.Duration {
	next := s.schedule.Next(now.In(s.loc))
	if d := next.Sub(now); d > minSleep {
		return d
	}
	return minSleep
}
