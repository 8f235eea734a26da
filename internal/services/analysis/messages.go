package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/krxdigest/internal/models"
)

// NoNewsLine is rendered for an outperformer without headlines.
const NoNewsLine = "- 뉴스 없음"

// digestSeparator closes every per-equity block of the news digest.
var digestSeparator = strings.Repeat("─", 30)

// Labels name the benchmark in user-facing text.
type Labels struct {
	Name  string // Short label, e.g. "KOSPI"
	Title string // Headline name, e.g. "코스피 지수"
}

// FormatPercent renders a return with two decimals, e.g. 0.01234 -> "1.23%".
func FormatPercent(r float64) string {
	return fmt.Sprintf("%.2f%%", r*100)
}

// FormatSummary renders the benchmark direction message.
func FormatSummary(eval *models.Evaluation, labels Labels) string {
	date := eval.TargetDate.Format(models.DateLayout)
	if eval.Direction == models.DirectionUp {
		return fmt.Sprintf("📈 *`%s` %s 상승!*\n> 🔴 *%s 수익률:* `%s`\n",
			date, labels.Title, labels.Name, FormatPercent(eval.BenchmarkReturn))
	}
	return fmt.Sprintf("📉 *`%s` %s 하락!*\n> 🔵 *%s 수익률:* `%s`\n",
		date, labels.Title, labels.Name, FormatPercent(eval.BenchmarkReturn))
}

// FormatNoData renders the single notice sent when the target date has no data.
func FormatNoData(target time.Time) string {
	return fmt.Sprintf("📉 `%s` 데이터 없음", target.Format(models.DateLayout))
}

// FormatNewsDigest renders the per-outperformer headline digest. The digest is
// split into messages of at most limit bytes without breaking an equity block.
// A block that cannot fit alongside the header keeps only the headlines that do;
// limit <= 0 means one message with every headline.
func FormatNewsDigest(target time.Time, perEquity int, news []models.EquityNews, limit int) []string {
	header := fmt.Sprintf("🗞️ *%s 상승 종목별 뉴스 요약 (최대 %d건씩)*\n\n", target.Format(models.DateLayout), perEquity)

	budget := 0
	if limit > 0 {
		budget = max(limit-len(header), 1)
	}

	var messages []string
	var b strings.Builder
	b.WriteString(header)
	blocks := 0

	for _, n := range news {
		block := formatNewsBlock(n, budget)
		if limit > 0 && blocks > 0 && b.Len()+len(block) > limit {
			messages = append(messages, b.String())
			b.Reset()
		}
		b.WriteString(block)
		blocks++
	}
	return append(messages, b.String())
}

// formatNewsBlock renders one equity's headlines, stopping before the block
// would exceed budget bytes. budget <= 0 keeps every headline.
func formatNewsBlock(n models.EquityNews, budget int) string {
	tail := "\n" + digestSeparator + "\n\n"

	var b strings.Builder
	fmt.Fprintf(&b, "*🔹🔹🔹🔹 %s (%s)🔹🔹🔹🔹*\n", n.Equity.Name, n.Equity.Symbol)
	if len(n.Items) == 0 {
		b.WriteString(NoNewsLine + "\n")
	}
	for _, item := range n.Items {
		line := fmt.Sprintf("- %s\n  %s\n", item.Headline, item.Link)
		if budget > 0 && b.Len()+len(line)+len(tail) > budget {
			break
		}
		b.WriteString(line)
	}
	b.WriteString(tail)
	return b.String()
}

// FormatCover renders the markdown for the first page of the chart document.
func FormatCover(eval *models.Evaluation, labels Labels) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s Report\n\n", eval.TargetDate.Format(models.DateLayout), labels.Name)

	direction := "down"
	if eval.Direction == models.DirectionUp {
		direction = "up"
	}
	fmt.Fprintf(&b, "**%s** closed %s at **%s** on the day.\n\n", labels.Name, direction, FormatPercent(eval.BenchmarkReturn))
	fmt.Fprintf(&b, "%d of the market-cap leaders rose. Charts compare each against %s, both rebased to 1.0 at the start of the window.\n\n",
		len(eval.Outperformers), labels.Name)

	b.WriteString("| # | Name | Symbol | Return |\n")
	b.WriteString("|---|------|--------|--------|\n")
	for i, o := range eval.Outperformers {
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i+1, escapeCell(o.Name), o.Symbol, FormatPercent(o.Return))
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
