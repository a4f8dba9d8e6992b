// Package mortgage estimates the monthly cost of owning a listing.
package mortgage

import (
	"math"

	"github.com/joelkehle/housing-analyst/internal/listing"
)

const (
	DefaultDownPaymentPercent = 20.0
	DefaultAnnualRatePercent  = 7.0
	DefaultLoanTermYears      = 30
	DefaultTaxRate            = 0.0056
)

// Assumptions are the financing terms applied to every listing. Zero fields
// take the package defaults.
type Assumptions struct {
	DownPaymentPercent float64 `mapstructure:"down_payment_percent"`
	AnnualRatePercent  float64 `mapstructure:"annual_rate_percent"`
	LoanTermYears      int     `mapstructure:"loan_term_years"`
	TaxRate            float64 `mapstructure:"tax_rate"`
}

func (a Assumptions) withDefaults() Assumptions {
	if a.DownPaymentPercent <= 0 {
		a.DownPaymentPercent = DefaultDownPaymentPercent
	}
	if a.AnnualRatePercent <= 0 {
		a.AnnualRatePercent = DefaultAnnualRatePercent
	}
	if a.LoanTermYears <= 0 {
		a.LoanTermYears = DefaultLoanTermYears
	}
	if a.TaxRate <= 0 {
		a.TaxRate = DefaultTaxRate
	}
	return a
}

type Breakdown struct {
	Mortgage  float64 `json:"monthly_mortgage"`
	Taxes     float64 `json:"monthly_taxes"`
	Insurance float64 `json:"monthly_insurance"`
	HOA       float64 `json:"monthly_hoa"`
	Total     float64 `json:"total_monthly_cost"`
}

// MonthlyPayment is the standard amortised principal and interest payment.
func MonthlyPayment(price, downPaymentPercent, annualRatePercent float64, termYears int) float64 {
	loan := price - price*downPaymentPercent/100
	n := float64(termYears * 12)
	r := annualRatePercent / 100 / 12
	if r == 0 {
		return round2(loan / n)
	}
	growth := math.Pow(1+r, n)
	return round2(loan * r * growth / (growth - 1))
}

func MonthlyTax(price, taxRate float64) float64 {
	return round2(price * taxRate / 12)
}

// MonthlyInsurance uses a three-tier annual premium estimate.
func MonthlyInsurance(price float64) float64 {
	annual := 1800.0
	switch {
	case price < 300000:
		annual = 800
	case price < 500000:
		annual = 1200
	}
	return round2(annual / 12)
}

func Calculate(price, hoa float64, a Assumptions) Breakdown {
	a = a.withDefaults()
	b := Breakdown{
		Mortgage:  MonthlyPayment(price, a.DownPaymentPercent, a.AnnualRatePercent, a.LoanTermYears),
		Taxes:     MonthlyTax(price, a.TaxRate),
		Insurance: MonthlyInsurance(price),
		HOA:       round2(hoa),
	}
	b.Total = round2(b.Mortgage + b.Taxes + b.Insurance + b.HOA)
	return b
}

// SellerScore decays with days on market (100 at day zero, ~37 at 90 days)
// and is discounted for price drops, never below half.
func SellerScore(daysOnMarket int, priceChangePercent float64) float64 {
	dom := 100.0
	if daysOnMarket > 0 {
		dom = 100 * math.Exp(-float64(daysOnMarket)/90)
	}
	factor := 1.0
	if priceChangePercent < 0 {
		factor = math.Max(0.5, 1+priceChangePercent/100)
	}
	return round2(dom * factor)
}

// Fill computes the cost fields a listing is missing. Fields already present
// are left untouched.
func Fill(p *listing.Property, a Assumptions) {
	if p.Price <= 0 {
		return
	}
	a = a.withDefaults()
	if p.TaxRate != nil && *p.TaxRate > 0 {
		a.TaxRate = *p.TaxRate
	}
	hoa := 0.0
	if p.HOAFee != nil {
		hoa = *p.HOAFee
	}
	b := Calculate(p.Price, hoa, a)
	if p.MonthlyMortgage == nil {
		p.MonthlyMortgage = listing.Float(b.Mortgage)
	}
	if p.MonthlyTaxes == nil {
		p.MonthlyTaxes = listing.Float(b.Taxes)
	}
	if p.MonthlyInsurance == nil {
		p.MonthlyInsurance = listing.Float(b.Insurance)
	}
	if p.MonthlyHOA == nil {
		p.MonthlyHOA = listing.Float(b.HOA)
	}
	if p.TotalMonthlyCost == nil {
		p.TotalMonthlyCost = listing.Float(round2(*p.MonthlyMortgage + *p.MonthlyTaxes + *p.MonthlyInsurance + *p.MonthlyHOA))
	}
	if p.PricePerSqft == nil && p.Sqft != nil && *p.Sqft > 0 {
		p.PricePerSqft = listing.Float(round2(p.Price / float64(*p.Sqft)))
	}
	if p.SellerScore == nil && p.DaysOnMarket != nil {
		p.SellerScore = listing.Float(SellerScore(*p.DaysOnMarket, 0))
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
