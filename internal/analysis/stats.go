package analysis

import (
	"sort"

	"github.com/joelkehle/housing-analyst/internal/listing"
)

const (
	fastDOMMax     = 14
	moderateDOMMax = 45

	TemperatureHot     = "hot"
	TemperatureWarm    = "warm"
	TemperatureCool    = "cool"
	TemperatureCold    = "cold"
	TemperatureUnknown = "unknown"
)

type series []float64

func (s series) mean() float64 {
	if len(s) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}

// median is the upper middle element, sorted[n/2].
func (s series) median() float64 {
	if len(s) == 0 {
		return 0
	}
	sorted := append(series(nil), s...)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

func (s series) min() float64 {
	if len(s) == 0 {
		return 0
	}
	m := s[0]
	for _, v := range s[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func (s series) max() float64 {
	if len(s) == 0 {
		return 0
	}
	m := s[0]
	for _, v := range s[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

type columns struct {
	prices, monthly, ppsf, dom series
}

func collect(props []listing.Property) columns {
	var c columns
	for _, p := range props {
		if p.Price > 0 {
			c.prices = append(c.prices, p.Price)
		}
		if p.TotalMonthlyCost != nil && *p.TotalMonthlyCost > 0 {
			c.monthly = append(c.monthly, *p.TotalMonthlyCost)
		}
		if p.PricePerSqft != nil && *p.PricePerSqft > 0 {
			c.ppsf = append(c.ppsf, *p.PricePerSqft)
		}
		if p.DaysOnMarket != nil {
			c.dom = append(c.dom, float64(*p.DaysOnMarket))
		}
	}
	return c
}

func computeStatistics(props []listing.Property) Statistics {
	c := collect(props)
	counts := map[string]int{}
	cities := []string{}
	for _, p := range props {
		if p.City == "" {
			continue
		}
		if counts[p.City] == 0 {
			cities = append(cities, p.City)
		}
		counts[p.City]++
	}
	// ties go to the city seen first in the pool
	mostCommon, best := "", 0
	for _, city := range cities {
		if counts[city] > best {
			mostCommon, best = city, counts[city]
		}
	}
	return Statistics{
		Count:           len(props),
		AvgPrice:        c.prices.mean(),
		MedianPrice:     c.prices.median(),
		MinPrice:        c.prices.min(),
		MaxPrice:        c.prices.max(),
		AvgMonthlyCost:  c.monthly.mean(),
		AvgPricePerSqft: c.ppsf.mean(),
		MostCommonCity:  mostCommon,
		Cities:          cities,
	}
}

func computeMarketStatistics(props []listing.Property) MarketStatistics {
	c := collect(props)
	dist := map[string]int{}
	for _, p := range props {
		city := p.City
		if city == "" {
			city = "Unknown"
		}
		dist[city]++
	}
	return MarketStatistics{
		TotalProperties:    len(props),
		AvgPrice:           c.prices.mean(),
		MedianPrice:        c.prices.median(),
		MinPrice:           c.prices.min(),
		MaxPrice:           c.prices.max(),
		AvgMonthlyCost:     c.monthly.mean(),
		AvgPricePerSqft:    c.ppsf.mean(),
		AvgDaysOnMarket:    c.dom.mean(),
		MedianDaysOnMarket: c.dom.median(),
		CityDistribution:   dist,
	}
}

func computeDOMDistribution(props []listing.Property) DOMDistribution {
	dom := collect(props).dom
	if len(dom) == 0 {
		return DOMDistribution{MarketTemperature: TemperatureUnknown}
	}
	d := DOMDistribution{AvgDOM: dom.mean(), TotalAnalyzed: len(dom)}
	for _, v := range dom {
		switch {
		case v <= fastDOMMax:
			d.FastMoving++
		case v <= moderateDOMMax:
			d.Moderate++
		default:
			d.SlowMoving++
		}
	}
	d.FastMovingPct = float64(d.FastMoving) / float64(len(dom)) * 100
	d.MarketTemperature = temperature(d.FastMovingPct)
	return d
}

// temperature classifies a market by the share of listings that sold fast.
func temperature(fastPct float64) string {
	switch {
	case fastPct > 60:
		return TemperatureHot
	case fastPct > 40:
		return TemperatureWarm
	case fastPct > 20:
		return TemperatureCool
	default:
		return TemperatureCold
	}
}
