// Package report renders analysis results as Markdown and HTML.
package report

import (
	"bytes"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joelkehle/housing-analyst/internal/analysis"
)

const Disclaimer = "This is an automated assessment of listing data, not financial or legal advice. " +
	"Monthly costs are estimates based on standard financing assumptions."

var printer = message.NewPrinter(language.English)

// Markdown renders any of the four analysis results. generated is printed in
// the report header.
func Markdown(result any, generated time.Time) (string, error) {
	var b strings.Builder
	switch r := result.(type) {
	case *analysis.SummaryResult:
		writeHeader(&b, "Market Summary", generated, r.Meta)
		writeSummary(&b, r)
	case *analysis.RecommendResult:
		writeHeader(&b, "Recommendations", generated, r.Meta)
		writeRecommendations(&b, r)
	case *analysis.CompareResult:
		writeHeader(&b, "Property Comparison", generated, r.Meta)
		writeComparison(&b, r)
	case *analysis.MarketResult:
		writeHeader(&b, "Market Analysis", generated, r.Meta)
		writeMarket(&b, r)
	default:
		return "", fmt.Errorf("report: unsupported result type %T", result)
	}
	return b.String(), nil
}

// HTML converts Markdown output into a standalone page.
func HTML(markdown, title string) (string, error) {
	var content bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(title) + "</title>" +
		"<style>body{font-family:system-ui,sans-serif;max-width:960px;margin:2rem auto;padding:0 1rem;color:#1f2937}" +
		"table{border-collapse:collapse}td,th{border:1px solid #d1d5db;padding:.3rem .6rem}" +
		"blockquote{border-left:4px solid #f59e0b;margin:0;padding:.2rem 1rem;background:#fffbeb}</style>" +
		"</head><body>" + content.String() + "</body></html>", nil
}

func writeHeader(b *strings.Builder, title string, generated time.Time, m analysis.Meta) {
	fmt.Fprintf(b, "# %s\n\n", title)
	fmt.Fprintf(b, "- Generated: %s\n", generated.UTC().Format(time.RFC3339))
	fmt.Fprintf(b, "- Confidence: `%s`\n", m.Confidence)
	if m.FromCache {
		fmt.Fprintf(b, "- Served from cache\n")
	}
	fmt.Fprintf(b, "\n%s\n\n", Disclaimer)
	if m.Error != "" {
		fmt.Fprintf(b, "> DEGRADED: the model was unavailable (%s). Figures below were computed directly from listing data.\n\n", sanitize(m.Error))
	}
}

func writeSummary(b *strings.Builder, r *analysis.SummaryResult) {
	fmt.Fprintf(b, "## Summary\n\n%s\n\n", sanitize(r.Summary))
	writeList(b, "Key Insights", r.KeyInsights)

	br := r.BuyerRecommendations
	if br.FirstTimeBuyer != "" || br.Family != "" || br.Investor != "" {
		fmt.Fprintf(b, "## Buyer Recommendations\n\n")
		writeOptional(b, "First-time buyer", br.FirstTimeBuyer)
		writeOptional(b, "Family", br.Family)
		writeOptional(b, "Investor", br.Investor)
		b.WriteString("\n")
	}

	s := r.Statistics
	fmt.Fprintf(b, "## Statistics (%d properties)\n\n", r.PropertiesAnalyzed)
	fmt.Fprintf(b, "| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(b, "| Average price | %s |\n", money(s.AvgPrice))
	fmt.Fprintf(b, "| Median price | %s |\n", money(s.MedianPrice))
	fmt.Fprintf(b, "| Price range | %s - %s |\n", money(s.MinPrice), money(s.MaxPrice))
	fmt.Fprintf(b, "| Average monthly cost | %s |\n", money(s.AvgMonthlyCost))
	fmt.Fprintf(b, "| Average price/sqft | %s |\n", printer.Sprintf("$%.2f", s.AvgPricePerSqft))
	fmt.Fprintf(b, "| Most common city | %s |\n\n", orDash(s.MostCommonCity))
}

func writeRecommendations(b *strings.Builder, r *analysis.RecommendResult) {
	fmt.Fprintf(b, "%s\n\n", sanitize(r.Message))
	for i, rec := range r.Recommendations {
		fmt.Fprintf(b, "## %d. %s, %s\n\n", i+1, sanitize(rec.Address), orDash(rec.City))
		fmt.Fprintf(b, "- Price: %s\n", money(rec.Price))
		fmt.Fprintf(b, "- Match score: %.1f/100\n\n", rec.MatchScore)
		if rec.MatchExplanation != "" {
			fmt.Fprintf(b, "%s\n\n", sanitize(rec.MatchExplanation))
		}
		writeList(b, "Pros", rec.Pros)
		writeList(b, "Cons", rec.Cons)
	}
}

func writeComparison(b *strings.Builder, r *analysis.CompareResult) {
	fmt.Fprintf(b, "## Summary\n\n%s\n\n", sanitize(r.Summary))

	fmt.Fprintf(b, "## Properties\n\n")
	fmt.Fprintf(b, "| Letter | Address | City | Price | Monthly | Sqft | $/sqft |\n")
	fmt.Fprintf(b, "|--------|---------|------|-------|---------|------|--------|\n")
	for _, p := range r.Properties {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			p.PropertyLetter, sanitizeCell(p.Address), sanitizeCell(orDash(p.City)), money(p.Price),
			optMoney(p.MonthlyCost), optInt(p.Sqft), optDecimal(p.PricePerSqft))
	}
	b.WriteString("\n")

	if len(r.Winners) > 0 {
		fmt.Fprintf(b, "## Winners\n\n")
		fmt.Fprintf(b, "| Category | Property | Reason |\n|----------|----------|--------|\n")
		categories := make([]string, 0, len(r.Winners))
		for c := range r.Winners {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			w := r.Winners[c]
			fmt.Fprintf(b, "| %s | %s | %s |\n", titleCase(c), w.PropertyLetter, sanitizeCell(w.Reason))
		}
		b.WriteString("\n")
	}
	if o := r.OverallRecommendation; o != nil {
		fmt.Fprintf(b, "## Overall Recommendation\n\nProperty **%s**: %s\n\n", o.PropertyLetter, sanitize(o.Reason))
	}
}

func writeMarket(b *strings.Builder, r *analysis.MarketResult) {
	fmt.Fprintf(b, "- Market temperature: **%s**\n\n", strings.ToUpper(r.MarketTemperature))
	fmt.Fprintf(b, "## Analysis\n\n%s\n\n", sanitize(r.Analysis))
	writeList(b, "Trends", r.Trends)
	if r.BuyerOpportunities != "" || r.SellerConsiderations != "" || r.PriceOutlook != "" {
		fmt.Fprintf(b, "## Outlook\n\n")
		writeOptional(b, "Buyers", r.BuyerOpportunities)
		writeOptional(b, "Sellers", r.SellerConsiderations)
		writeOptional(b, "Prices", r.PriceOutlook)
		b.WriteString("\n")
	}

	d := r.DOMDistribution
	fmt.Fprintf(b, "## Days on Market (%d listings)\n\n", d.TotalAnalyzed)
	fmt.Fprintf(b, "| Bucket | Listings |\n|--------|----------|\n")
	fmt.Fprintf(b, "| Fast (14 days or less) | %d |\n", d.FastMoving)
	fmt.Fprintf(b, "| Moderate (15-45 days) | %d |\n", d.Moderate)
	fmt.Fprintf(b, "| Slow (over 45 days) | %d |\n\n", d.SlowMoving)

	if len(r.Statistics.CityDistribution) > 0 {
		fmt.Fprintf(b, "## Listings by City\n\n| City | Listings |\n|------|----------|\n")
		cities := make([]string, 0, len(r.Statistics.CityDistribution))
		for c := range r.Statistics.CityDistribution {
			cities = append(cities, c)
		}
		sort.Strings(cities)
		for _, c := range cities {
			fmt.Fprintf(b, "| %s | %d |\n", sanitizeCell(c), r.Statistics.CityDistribution[c])
		}
		b.WriteString("\n")
	}
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", heading)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", sanitize(it))
	}
	b.WriteString("\n")
}

func writeOptional(b *strings.Builder, label, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	fmt.Fprintf(b, "- **%s**: %s\n", label, sanitize(text))
}

func money(v float64) string { return printer.Sprintf("$%.0f", v) }

func optMoney(v *float64) string {
	if v == nil || *v <= 0 {
		return "—"
	}
	return money(*v)
}

func optDecimal(v *float64) string {
	if v == nil || *v <= 0 {
		return "—"
	}
	return printer.Sprintf("$%.2f", *v)
}

func optInt(v *int) string {
	if v == nil || *v <= 0 {
		return "—"
	}
	return printer.Sprintf("%d", *v)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

func titleCase(category string) string {
	words := strings.Fields(strings.ReplaceAll(category, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

func sanitizeCell(s string) string {
	return strings.ReplaceAll(sanitize(s), "|", "\\|")
}
