package analysis

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joelkehle/housing-analyst/internal/listing"
	"github.com/joelkehle/housing-analyst/internal/scoring"
)

const (
	maxPromptProperties = 50
	defaultRegionName   = "Salt Lake Valley"
)

var printer = message.NewPrinter(language.English)

func money(v float64) string { return printer.Sprintf("$%.0f", v) }

func optMoney(v *float64) string {
	if v == nil || *v <= 0 {
		return "N/A"
	}
	return money(*v)
}

func optDecimal(v *float64, format string) string {
	if v == nil || *v <= 0 {
		return "N/A"
	}
	return printer.Sprintf(format, *v)
}

func optInt(v *int) string {
	if v == nil || *v <= 0 {
		return "N/A"
	}
	return printer.Sprintf("%d", *v)
}

// optCount keeps zero: a listing can be on the market for 0 days.
func optCount(v *int) string {
	if v == nil {
		return "N/A"
	}
	return printer.Sprintf("%d", *v)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func writeProperty(b *strings.Builder, heading string, p listing.Property) {
	hoa := 0.0
	if p.HOAFee != nil {
		hoa = *p.HOAFee
	}
	printer.Fprintf(b, "%s:\n", heading)
	printer.Fprintf(b, "  Address: %s, %s\n", p.Address, orNA(p.City))
	printer.Fprintf(b, "  Price: %s\n", money(p.Price))
	printer.Fprintf(b, "  Beds/Baths: %s bed, %s bath\n", optInt(p.Beds), optDecimal(p.Baths, "%.1f"))
	printer.Fprintf(b, "  Size: %s sqft\n", optInt(p.Sqft))
	printer.Fprintf(b, "  Monthly Cost: %s\n", optMoney(p.TotalMonthlyCost))
	printer.Fprintf(b, "  Price/sqft: %s\n", optDecimal(p.PricePerSqft, "$%.2f"))
	printer.Fprintf(b, "  HOA: %s/mo\n", money(hoa))
	printer.Fprintf(b, "  Days on Market: %s\n", optCount(p.DaysOnMarket))
	printer.Fprintf(b, "  Property Type: %s\n", orNA(p.PropertyType))
}

func capProperties(props []listing.Property) []listing.Property {
	if len(props) > maxPromptProperties {
		return props[:maxPromptProperties]
	}
	return props
}

func summaryPrompt(props []listing.Property, stats Statistics) string {
	var b strings.Builder
	printer.Fprintf(&b, "Analyze these %d listings from the %s and write a market summary for home buyers.\n\n", len(props), defaultRegionName)
	b.WriteString("LISTINGS:\n")
	for i, p := range capProperties(props) {
		writeProperty(&b, fmt.Sprintf("Property %d", i+1), p)
		b.WriteString("\n")
	}
	b.WriteString("STATISTICS:\n")
	printer.Fprintf(&b, "- Average Price: %s\n", money(stats.AvgPrice))
	printer.Fprintf(&b, "- Median Price: %s\n", money(stats.MedianPrice))
	printer.Fprintf(&b, "- Price Range: %s - %s\n", money(stats.MinPrice), money(stats.MaxPrice))
	printer.Fprintf(&b, "- Average Monthly Cost: %s\n", money(stats.AvgMonthlyCost))
	printer.Fprintf(&b, "- Average Price/sqft: $%.2f\n", stats.AvgPricePerSqft)
	printer.Fprintf(&b, "- Most Common City: %s\n\n", orNA(stats.MostCommonCity))
	b.WriteString(`Respond with a JSON object of this shape:
{
  "summary": "two or three sentences on the overall picture",
  "key_insights": ["three to five specific observations about value, pricing or notable listings"],
  "buyer_recommendations": {
    "first_time_buyer": "...",
    "family": "...",
    "investor": "..."
  }
}
Reference the actual numbers above.`)
	return b.String()
}

func describePriorities(w *scoring.Weights) string {
	if w == nil {
		return "balanced"
	}
	return printer.Sprintf("monthly cost %.0f, location %.0f, value %.0f, space %.0f", w.MonthlyCost, w.Location, w.Value, w.Space)
}

func recommendPrompt(c Criteria, top []scoring.Scored, poolSize int) string {
	lifestyle := orDefault(c.Lifestyle, "buyer")
	budget := "not specified"
	if c.BudgetMax > 0 {
		budget = money(c.BudgetMax) + " max"
	}
	beds, baths := "any", "any"
	if c.BedsMin > 0 {
		beds = printer.Sprintf("%d+", c.BedsMin)
	}
	if c.BathsMin > 0 {
		baths = printer.Sprintf("%.1f+", c.BathsMin)
	}

	var b strings.Builder
	printer.Fprintf(&b, "A %s is shopping for a home with these criteria:\n", lifestyle)
	printer.Fprintf(&b, "- Budget: %s\n- Bedrooms: %s\n- Bathrooms: %s\n", budget, beds, baths)
	printer.Fprintf(&b, "- City Preference: %s\n- Priorities: %s\n\n", orDefault(c.CityPreference, "any"), describePriorities(c.Priorities))
	printer.Fprintf(&b, "%d listings were scored against these criteria. The best matches are:\n\n", poolSize)
	for i, s := range top {
		if i == maxPromptProperties {
			break
		}
		writeProperty(&b, printer.Sprintf("Property %d (Match Score: %.1f/100)", i+1, s.TotalScore), s.Property)
		b.WriteString("\n")
	}
	b.WriteString(`For each property, explain in two or three sentences why it fits this buyer, list its main advantages and its honest drawbacks.
Respond with a JSON object of this shape, where property_number is the number shown above:
{
  "recommendations": [
    {"property_number": 1, "match_explanation": "...", "pros": ["..."], "cons": ["..."]}
  ]
}`)
	return b.String()
}

func comparePrompt(props []listing.Property, aspects []string) string {
	focus := "all key factors"
	if len(aspects) > 0 {
		focus = strings.Join(aspects, ", ")
	}
	var b strings.Builder
	printer.Fprintf(&b, "Compare these %d properties objectively, focusing on %s.\n\n", len(props), focus)
	for i, p := range props {
		writeProperty(&b, fmt.Sprintf("Property %s (ID: %d)", letter(i), p.ID), p)
		printer.Fprintf(&b, "  Property Tax: %s/year\n", optMoney(p.PropertyTax))
		printer.Fprintf(&b, "  Year Built: %s\n", optYear(p.YearBuilt))
		printer.Fprintf(&b, "  Seller Score: %s/100\n\n", optDecimal(p.SellerScore, "%.0f"))
	}
	b.WriteString(`Name a winner for each category by its letter and explain why, then give an overall recommendation.
Respond with a JSON object of this shape:
{
  "summary": "two or three sentences comparing the properties",
  "winners": {
    "monthly_budget": {"property_letter": "A", "reason": "..."},
    "space_value": {"property_letter": "B", "reason": "..."},
    "investment": {"property_letter": "A", "reason": "..."},
    "location": {"property_letter": "C", "reason": "..."}
  },
  "overall_recommendation": {"property_letter": "A", "reason": "..."}
}
Use the actual numbers from the data.`)
	return b.String()
}

func marketPrompt(req MarketRequest, stats MarketStatistics, dom DOMDistribution) string {
	region := defaultRegionName
	if req.Region != "" {
		region = req.Region
	}
	var b strings.Builder
	printer.Fprintf(&b, "Analyze the current real estate market for %s over the last %s", region, req.TimePeriod)
	if req.Focus != "" {
		printer.Fprintf(&b, ", with special focus on %s", req.Focus)
	}
	b.WriteString(".\n\n")
	printer.Fprintf(&b, "Market Overview (%d properties):\n", stats.TotalProperties)
	printer.Fprintf(&b, "- Price Range: %s - %s\n", money(stats.MinPrice), money(stats.MaxPrice))
	printer.Fprintf(&b, "- Average Price: %s\n- Median Price: %s\n", money(stats.AvgPrice), money(stats.MedianPrice))
	printer.Fprintf(&b, "- Avg Monthly Cost: %s\n- Avg Price/sqft: $%.2f\n\n", money(stats.AvgMonthlyCost), stats.AvgPricePerSqft)
	b.WriteString("Market Activity:\n")
	printer.Fprintf(&b, "- Avg Days on Market: %.0f days\n- Median Days on Market: %.0f days\n", stats.AvgDaysOnMarket, stats.MedianDaysOnMarket)
	printer.Fprintf(&b, "- Fast-moving (14 days or less): %d properties (%.1f%%)\n", dom.FastMoving, dom.FastMovingPct)
	printer.Fprintf(&b, "- Moderate (15-45 days): %d properties\n- Slow-moving (over 45 days): %d properties\n", dom.Moderate, dom.SlowMoving)
	printer.Fprintf(&b, "- Market Temperature: %s\n\n", strings.ToUpper(dom.MarketTemperature))
	b.WriteString("Regional Distribution:\n")
	for _, c := range sortedCities(stats.CityDistribution) {
		printer.Fprintf(&b, "- %s: %d properties\n", c, stats.CityDistribution[c])
	}
	b.WriteString(`
Respond with a JSON object of this shape:
{
  "analysis": "two or three sentences on the current state of the market",
  "trends": ["three to five important patterns"],
  "buyer_opportunities": "which buyers benefit most right now",
  "seller_considerations": "what sellers should know",
  "price_outlook": "short-term price expectations"
}`)
	return b.String()
}

// sortedCities orders cities by count descending, then by name.
func sortedCities(dist map[string]int) []string {
	out := make([]string, 0, len(dist))
	for c := range dist {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if dist[out[i]] != dist[out[j]] {
			return dist[out[i]] > dist[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func optYear(v *int) string {
	if v == nil || *v <= 0 {
		return "N/A"
	}
	return strconv.Itoa(*v)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
