package listing

// Property is a single for-sale listing. Optional numeric fields are nil when
// the source did not provide them.
type Property struct {
	ID               int64    `db:"id" json:"id"`
	Address          string   `db:"address" json:"address"`
	City             string   `db:"city" json:"city,omitempty"`
	State            string   `db:"state" json:"state,omitempty"`
	ZipCode          string   `db:"zip_code" json:"zip_code,omitempty"`
	Price            float64  `db:"price" json:"price"`
	Beds             *int     `db:"beds" json:"beds,omitempty"`
	Baths            *float64 `db:"baths" json:"baths,omitempty"`
	Sqft             *int     `db:"sqft" json:"sqft,omitempty"`
	PricePerSqft     *float64 `db:"price_per_sqft" json:"price_per_sqft,omitempty"`
	PropertyType     string   `db:"property_type" json:"property_type,omitempty"`
	YearBuilt        *int     `db:"year_built" json:"year_built,omitempty"`
	HOAFee           *float64 `db:"hoa_fee" json:"hoa_fee,omitempty"`
	PropertyTax      *float64 `db:"property_tax" json:"property_tax,omitempty"`
	TaxRate          *float64 `db:"tax_rate" json:"tax_rate,omitempty"`
	MonthlyMortgage  *float64 `db:"monthly_mortgage" json:"monthly_mortgage,omitempty"`
	MonthlyTaxes     *float64 `db:"monthly_taxes" json:"monthly_taxes,omitempty"`
	MonthlyInsurance *float64 `db:"monthly_insurance" json:"monthly_insurance,omitempty"`
	MonthlyHOA       *float64 `db:"monthly_hoa" json:"monthly_hoa,omitempty"`
	TotalMonthlyCost *float64 `db:"total_monthly_cost" json:"total_monthly_cost,omitempty"`
	DaysOnMarket     *int     `db:"days_on_market" json:"days_on_market,omitempty"`
	SellerScore      *float64 `db:"seller_score" json:"seller_score,omitempty"`
	ListingURL       string   `db:"listing_url" json:"listing_url,omitempty"`
	ListingStatus    string   `db:"listing_status" json:"listing_status,omitempty"`
}

// Filters narrows a candidate fetch. Zero values mean "no constraint".
type Filters struct {
	PriceMin     float64 `json:"price_min,omitempty"`
	PriceMax     float64 `json:"price_max,omitempty"`
	BedsMin      int     `json:"beds,omitempty"`
	BathsMin     float64 `json:"baths,omitempty"`
	CityContains string  `json:"city,omitempty"`
}

func Float(v float64) *float64 { return &v }
func Int(v int) *int { return &v }
