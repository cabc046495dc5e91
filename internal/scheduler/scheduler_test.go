package scheduler

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"cryptopulse/internal/config"
	"cryptopulse/internal/model"
	"cryptopulse/internal/notifier"
)

type fakeMarket struct {
	price   float64
	book    model.OrderBook
	history []model.PricePoint
	panicOn string
	calls   int
}

func (m *fakeMarket) Price(ctx context.Context, inst model.Instrument) model.OptFloat {
	m.calls++
	if inst.ID == m.panicOn {
		panic("decode blew up")
	}
	return model.Opt(m.price)
}

func (m *fakeMarket) OrderBook(ctx context.Context, inst model.Instrument) model.OrderBook {
	m.calls++
	return m.book
}

func (m *fakeMarket) History(ctx context.Context, inst model.Instrument, days int) []model.PricePoint {
	m.calls++
	return m.history
}

type fakeFeed struct{ items []model.NewsItem }

func (f *fakeFeed) Headlines(ctx context.Context, symbol string, limit int) []model.NewsItem {
	return f.items
}

type fakeMessenger struct {
	texts      []string
	photos     []string
	sent       int
	failFirst  bool
	failAlways bool
}

func (m *fakeMessenger) Send(ctx context.Context, text string) error {
	m.sent++
	if m.failAlways || (m.failFirst && m.sent == 1) {
		return errors.New("telegram unreachable")
	}
	m.texts = append(m.texts, text)
	return nil
}

func (m *fakeMessenger) SendPhoto(ctx context.Context, caption string, photo []byte) error {
	m.photos = append(m.photos, caption)
	return nil
}

// fakeClock reports a fixed now and hands Run a sleep channel that never
// fires, so tests cancel the loop once it reaches its first sleep.
type fakeClock struct {
	now       time.Time
	afterTick chan time.Time
	requested chan time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	select {
	case c.requested <- d:
	default:
	}
	return c.afterTick
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, afterTick: make(chan time.Time), requested: make(chan time.Duration, 1)}
}

func inst(id, sym string) config.InstrumentConfig {
	return config.InstrumentConfig{ID: id, Symbol: sym, BookSymbol: sym, HistoryID: id}
}

func testConfig(instruments ...config.InstrumentConfig) *config.Config {
	cfg := &config.Config{}
	cfg.Schedule.TickCron = "5 0 * * * *"
	cfg.Schedule.Timezone = "UTC"
	cfg.Schedule.WindowStartHour = 6
	cfg.Schedule.WindowEndHour = 21
	cfg.Schedule.WindowEndMinute = 30
	cfg.Market.HistoryDays = 3
	cfg.News.MaxItems = 3
	cfg.Instruments = instruments
	return cfg
}

func newTestScheduler(t *testing.T, cfg *config.Config, market MarketData, feed NewsFeed, messenger Messenger, clk Clock) *Scheduler {
	t.Helper()
	s, err := New(cfg, market, feed, messenger)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	s.Clock = clk
	return s
}

func risingHistory(n int) []model.PricePoint {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.PricePoint, n)
	for i := range out {
		out[i] = model.PricePoint{Time: base.Add(time.Duration(i) * time.Hour), Price: 64000 + float64(i)*100}
	}
	return out
}

// runUntilFirstSleep starts the loop, waits for it to request its first
// sleep, then cancels and waits for it to exit.
func runUntilFirstSleep(t *testing.T, s *Scheduler, clk *fakeClock) time.Duration {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	var requested time.Duration
	select {
	case requested = <-clk.requested:
	case <-time.After(5 * time.Second):
		t.Fatal("Run never reached its sleep")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	return requested
}

func TestWindowContains(t *testing.T) {
	loc := time.FixedZone("America/Bogota", -5*3600)
	w := Window{StartHour: 6, EndHour: 21, EndMinute: 30, Loc: loc}

	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"just before open", time.Date(2025, 6, 2, 5, 59, 59, 0, loc), false},
		{"opening second", time.Date(2025, 6, 2, 6, 0, 0, 0, loc), true},
		{"midday", time.Date(2025, 6, 2, 13, 15, 0, 0, loc), true},
		{"closing second", time.Date(2025, 6, 2, 21, 30, 0, 0, loc), true},
		{"one second past close", time.Date(2025, 6, 2, 21, 30, 1, 0, loc), false},
		{"late in closing minute", time.Date(2025, 6, 2, 21, 30, 59, 0, loc), false},
		{"next minute", time.Date(2025, 6, 2, 21, 31, 0, 0, loc), false},
		{"converted from UTC", time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC), true}, // 13:00 local
	}
	for _, tc := range cases {
		if got := w.Contains(tc.t); got != tc.want {
			t.Errorf("%s: Contains(%s) = %v, want %v", tc.name, tc.t, got, tc.want)
		}
	}
}

func TestSleepFor(t *testing.T) {
	s := newTestScheduler(t, testConfig(inst("bitcoin", "BTC")), &fakeMarket{}, &fakeFeed{}, &fakeMessenger{}, newFakeClock(time.Time{}))

	cases := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"mid hour", time.Date(2025, 6, 2, 14, 23, 10, 0, time.UTC), 36*time.Minute + 55*time.Second},
		{"boundary close by clamps to floor", time.Date(2025, 6, 2, 14, 59, 30, 0, time.UTC), minSleep},
		{"just before the tick clamps to floor", time.Date(2025, 6, 2, 14, 0, 3, 0, time.UTC), minSleep},
		{"exactly on the tick waits a full hour", time.Date(2025, 6, 2, 14, 0, 5, 0, time.UTC), time.Hour},
	}
	for _, tc := range cases {
		if got := s.sleepFor(tc.now); got != tc.want {
			t.Errorf("%s: sleepFor(%s) = %s, want %s", tc.name, tc.now, got, tc.want)
		}
	}
}

func TestBuildReportWithShortHistory(t *testing.T) {
	market := &fakeMarket{
		price:   65000.12,
		book:    model.OrderBook{BidPrice: 65000, BidQty: 1.2, AskPrice: 65001, AskQty: 0.8, Valid: true},
		history: risingHistory(10),
	}
	clk := newFakeClock(time.Date(2025, 6, 2, 10, 0, 6, 0, time.UTC))
	s := newTestScheduler(t, testConfig(inst("bitcoin", "BTC")), market, &fakeFeed{}, &fakeMessenger{}, clk)

	r := s.buildReport(context.Background(), model.Instrument{ID: "bitcoin", Symbol: "BTC", BookSymbol: "BTC", HistoryID: "bitcoin"})

	if !r.Price.Valid || r.Price.Value != 65000.12 {
		t.Errorf("Price = %+v, want valid 65000.12", r.Price)
	}
	if !r.Book.Valid {
		t.Error("Book must be valid when the provider returned a snapshot")
	}
	if r.SMA.Valid {
		t.Errorf("SMA = %+v, must stay absent with only 10 points", r.SMA)
	}
	if r.RSI.Valid {
		t.Errorf("RSI = %+v, must stay absent with only 10 points", r.RSI)
	}
	if r.Trend != model.TrendUnknown {
		t.Errorf("Trend = %q, want %q while SMA is absent", r.Trend, model.TrendUnknown)
	}
	if r.RSIState != model.RSIUnknown {
		t.Errorf("RSIState = %q, want %q while RSI is absent", r.RSIState, model.RSIUnknown)
	}
	if !r.BuyLevel.Valid || !r.SellLevel.Valid {
		t.Fatalf("levels = %+v/%+v, want both valid", r.BuyLevel, r.SellLevel)
	}
	if got, want := r.BuyLevel.Value, 65280.00; math.Abs(got-want) > 1e-9 {
		t.Errorf("BuyLevel = %v, want %v", got, want)
	}
	if got, want := r.SellLevel.Value, 63602.00; math.Abs(got-want) > 1e-9 {
		t.Errorf("SellLevel = %v, want %v", got, want)
	}
	if !bytes.HasPrefix(r.Chart, []byte("\x89PNG")) {
		t.Error("Chart must be a rendered PNG when history has enough points")
	}

	msg := notifier.FormatReport(r)
	wants := []string{
		"💵 Price: $65,000.12",
		"📒 Bid: $65,000.00 (qty 1.2) | Ask: $65,001.00 (qty 0.8)",
		"SMA20: N/A",
		"RSI14: N/A",
		"🎯 Buy zone: $65,280.00 | Sell zone: $63,602.00",
		notifier.NoNewsMessage,
	}
	for _, w := range wants {
		if !strings.Contains(msg, w) {
			t.Errorf("formatted report missing %q\nfull message:\n%s", w, msg)
		}
	}
}

func TestRunDeliversReportsInWindow(t *testing.T) {
	market := &fakeMarket{
		price:   65000.12,
		book:    model.OrderBook{BidPrice: 65000, BidQty: 1.2, AskPrice: 65001, AskQty: 0.8, Valid: true},
		history: risingHistory(10),
	}
	messenger := &fakeMessenger{}
	clk := newFakeClock(time.Date(2025, 6, 2, 10, 0, 6, 0, time.UTC))
	s := newTestScheduler(t, testConfig(inst("bitcoin", "BTC"), inst("ethereum", "ETH")), market, &fakeFeed{}, messenger, clk)

	requested := runUntilFirstSleep(t, s, clk)

	if requested < minSleep {
		t.Errorf("requested sleep %s is below the floor", requested)
	}
	if len(messenger.texts) != 3 {
		t.Fatalf("got %d messages, want startup plus two reports", len(messenger.texts))
	}
	if !strings.Contains(messenger.texts[0], "CryptoPulse started") {
		t.Errorf("first message is not the startup announcement:\n%s", messenger.texts[0])
	}
	if !strings.Contains(messenger.texts[1], "BTC Hourly Report") {
		t.Errorf("second message is not the BTC report:\n%s", messenger.texts[1])
	}
	if !strings.Contains(messenger.texts[2], "ETH Hourly Report") {
		t.Errorf("third message is not the ETH report:\n%s", messenger.texts[2])
	}
	if len(messenger.photos) != 2 {
		t.Fatalf("got %d chart uploads, want one per instrument", len(messenger.photos))
	}
	if messenger.photos[0] != "BTC / USD - last 72h" {
		t.Errorf("chart caption = %q", messenger.photos[0])
	}
}

func TestRunSkipsCycleOutsideWindow(t *testing.T) {
	market := &fakeMarket{history: risingHistory(10)}
	messenger := &fakeMessenger{}
	clk := newFakeClock(time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC))
	s := newTestScheduler(t, testConfig(inst("bitcoin", "BTC")), market, &fakeFeed{}, messenger, clk)

	runUntilFirstSleep(t, s, clk)

	if len(messenger.texts) != 1 {
		t.Fatalf("got %d messages outside the window, want only the startup announcement", len(messenger.texts))
	}
	if market.calls != 0 {
		t.Errorf("market was called %d times outside the window, want 0", market.calls)
	}
}

func TestRunIsolatesInstrumentPanic(t *testing.T) {
	market := &fakeMarket{
		price:   65000.12,
		history: risingHistory(10),
		panicOn: "ethereum",
	}
	messenger := &fakeMessenger{}
	clk := newFakeClock(time.Date(2025, 6, 2, 10, 0, 6, 0, time.UTC))
	s := newTestScheduler(t, testConfig(inst("bitcoin", "BTC"), inst("ethereum", "ETH"), inst("ripple", "XRP")), market, &fakeFeed{}, messenger, clk)

	runUntilFirstSleep(t, s, clk)

	if len(messenger.texts) != 3 {
		t.Fatalf("got %d messages, want startup plus reports for the two surviving instruments", len(messenger.texts))
	}
	if !strings.Contains(messenger.texts[1], "BTC Hourly Report") {
		t.Errorf("missing BTC report before the panicking instrument:\n%s", messenger.texts[1])
	}
	if !strings.Contains(messenger.texts[2], "XRP Hourly Report") {
		t.Errorf("missing XRP report after the panicking instrument:\n%s", messenger.texts[2])
	}
	for _, text := range messenger.texts {
		if strings.Contains(text, "ETH Hourly Report") {
			t.Error("the panicking instrument must not produce a report")
		}
	}
}

func TestRunSendsNoticeWhenChartUnavailable(t *testing.T) {
	market := &fakeMarket{price: 65000.12} // no history, so no chart
	messenger := &fakeMessenger{}
	clk := newFakeClock(time.Date(2025, 6, 2, 10, 0, 6, 0, time.UTC))
	s := newTestScheduler(t, testConfig(inst("bitcoin", "BTC")), market, &fakeFeed{}, messenger, clk)

	runUntilFirstSleep(t, s, clk)

	if len(messenger.photos) != 0 {
		t.Fatalf("got %d chart uploads without history, want 0", len(messenger.photos))
	}
	if len(messenger.texts) != 3 {
		t.Fatalf("got %d messages, want startup, report and chart notice", len(messenger.texts))
	}
	if !strings.Contains(messenger.texts[2], "No chart available for BTC") {
		t.Errorf("third message is not the chart notice:\n%s", messenger.texts[2])
	}
}

func TestRunSkipsPhotoWhenReportDeliveryFails(t *testing.T) {
	market := &fakeMarket{price: 65000.12, history: risingHistory(10)}
	messenger := &fakeMessenger{failAlways: true}
	clk := newFakeClock(time.Date(2025, 6, 2, 10, 0, 6, 0, time.UTC))
	s := newTestScheduler(t, testConfig(inst("bitcoin", "BTC")), market, &fakeFeed{}, messenger, clk)

	runUntilFirstSleep(t, s, clk)

	if len(messenger.photos) != 0 {
		t.Errorf("got %d chart uploads after a failed report send, want 0", len(messenger.photos))
	}
}

func TestRunSwallowsStartupFailure(t *testing.T) {
	market := &fakeMarket{price: 65000.12, history: risingHistory(10)}
	messenger := &fakeMessenger{failFirst: true}
	clk := newFakeClock(time.Date(2025, 6, 2, 10, 0, 6, 0, time.UTC))
	s := newTestScheduler(t, testConfig(inst("bitcoin", "BTC")), market, &fakeFeed{}, messenger, clk)

	runUntilFirstSleep(t, s, clk)

	if len(messenger.texts) != 1 {
		t.Fatalf("got %d messages, want the report alone after the failed announcement", len(messenger.texts))
	}
	if !strings.Contains(messenger.texts[0], "BTC Hourly Report") {
		t.Errorf("loop did not continue past the failed announcement:\n%s", messenger.texts[0])
	}
}
