package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/dustin/go-humanize"

	"cryptopulse/internal/model"
)

// NoNewsMessage is the placeholder used when no provider returned headlines.
const NoNewsMessage = "No relevant news available."

const absentValue = "N/A"

// FormatReport renders an hourly analysis report as a Telegram HTML message.
// Absent metrics show as N/A; the order book and trade zone lines are omitted
// entirely when their data is missing.
func FormatReport(r *model.Report) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>%s Hourly Report</b> | %s\n\n",
		r.Instrument.Symbol, r.GeneratedAt.Format("2006-01-02 15:04 MST")))

	if r.Price.Valid {
		b.WriteString(fmt.Sprintf("💵 Price: %s\n", money(r.Price.Value)))
	} else {
		b.WriteString(fmt.Sprintf("💵 Price: %s\n", absentValue))
	}

	if r.Book.Valid {
		b.WriteString(fmt.Sprintf("📒 Bid: %s (qty %s) | Ask: %s (qty %s)\n",
			money(r.Book.BidPrice), humanize.Commaf(r.Book.BidQty),
			money(r.Book.AskPrice), humanize.Commaf(r.Book.AskQty)))
	}

	if r.SMA.Valid {
		b.WriteString(fmt.Sprintf("📐 SMA20: %s | Trend: %s\n", money(r.SMA.Value), trendBadge(r.Trend)))
	} else {
		b.WriteString(fmt.Sprintf("📐 SMA20: %s | Trend: %s\n", absentValue, trendBadge(r.Trend)))
	}

	if r.RSI.Valid {
		b.WriteString(fmt.Sprintf("💪 RSI14: %.2f (%s)\n", r.RSI.Value, r.RSIState))
	} else {
		b.WriteString(fmt.Sprintf("💪 RSI14: %s\n", absentValue))
	}

	if r.BuyLevel.Valid && r.SellLevel.Valid {
		b.WriteString(fmt.Sprintf("🎯 Buy zone: %s | Sell zone: %s\n",
			money(r.BuyLevel.Value), money(r.SellLevel.Value)))
	}

	b.WriteString("\n📰 <b>News</b>\n")
	if len(r.News) == 0 {
		b.WriteString(NoNewsMessage + "\n")
	} else {
		for _, it := range r.News {
			if it.URL != "" {
				b.WriteString(fmt.Sprintf("• <a href=\"%s\">%s</a> (%s)\n",
					html.EscapeString(it.URL), html.EscapeString(it.Title), html.EscapeString(it.Source)))
			} else {
				b.WriteString(fmt.Sprintf("• %s (%s)\n",
					html.EscapeString(it.Title), html.EscapeString(it.Source)))
			}
		}
	}

	b.WriteString("\n⚠️ <i>Not financial advice.</i>")
	return b.String()
}

// FormatStartup renders the one-time announcement sent when the service
// boots. window describes the daily delivery window with its timezone.
func FormatStartup(instruments []model.Instrument, window string) string {
	syms := make([]string, len(instruments))
	for i, inst := range instruments {
		syms[i] = inst.Symbol
	}
	var b strings.Builder
	b.WriteString("🚀 <b>CryptoPulse started</b>\n")
	b.WriteString(fmt.Sprintf("Watching: %s\n", strings.Join(syms, ", ")))
	b.WriteString(fmt.Sprintf("Hourly reports %s.", window))
	return b.String()
}

// money formats a dollar amount with thousands separators and cents.
func money(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func trendBadge(t model.Trend) string {
	switch t {
	case model.TrendBullish:
		return "📈 " + string(t)
	case model.TrendBearish:
		return "📉 " + string(t)
	case model.TrendNeutral:
		return "➖ " + string(t)
	default:
		return absentValue
	}
}
