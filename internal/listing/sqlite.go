package listing

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the listing store backed by a single SQLite file.
type SQLiteStore struct {
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS properties (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	address            TEXT NOT NULL,
	city               TEXT NOT NULL DEFAULT '',
	state              TEXT NOT NULL DEFAULT 'UT',
	zip_code           TEXT NOT NULL DEFAULT '',
	price              REAL NOT NULL,
	beds               INTEGER,
	baths              REAL,
	sqft               INTEGER,
	price_per_sqft     REAL,
	property_type      TEXT NOT NULL DEFAULT '',
	year_built         INTEGER,
	hoa_fee            REAL,
	property_tax       REAL,
	tax_rate           REAL,
	monthly_mortgage   REAL,
	monthly_taxes      REAL,
	monthly_insurance  REAL,
	monthly_hoa        REAL,
	total_monthly_cost REAL,
	days_on_market     INTEGER,
	seller_score       REAL,
	listing_url        TEXT NOT NULL DEFAULT '',
	listing_status     TEXT NOT NULL DEFAULT 'Active'
);

CREATE INDEX IF NOT EXISTS idx_properties_city ON properties(city);
CREATE INDEX IF NOT EXISTS idx_properties_price ON properties(price);
CREATE INDEX IF NOT EXISTS idx_properties_monthly ON properties(total_monthly_cost);
`

const propertyColumns = `id, address, city, state, zip_code, price, beds, baths, sqft, price_per_sqft,
	property_type, year_built, hoa_fee, property_tax, tax_rate, monthly_mortgage, monthly_taxes,
	monthly_insurance, monthly_hoa, total_monthly_cost, days_on_market, seller_score, listing_url, listing_status`

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Insert stores p and returns its new id. p.ID is ignored.
func (s *SQLiteStore) Insert(ctx context.Context, p Property) (int64, error) {
	if strings.TrimSpace(p.Address) == "" {
		return 0, fmt.Errorf("address is required")
	}
	if p.Price <= 0 {
		return 0, fmt.Errorf("price must be positive")
	}
	if p.State == "" {
		p.State = "UT"
	}
	if p.ListingStatus == "" {
		p.ListingStatus = "Active"
	}
	res, err := s.db.NamedExecContext(ctx, `INSERT INTO properties (
		address, city, state, zip_code, price, beds, baths, sqft, price_per_sqft, property_type,
		year_built, hoa_fee, property_tax, tax_rate, monthly_mortgage, monthly_taxes,
		monthly_insurance, monthly_hoa, total_monthly_cost, days_on_market, seller_score,
		listing_url, listing_status
	) VALUES (
		:address, :city, :state, :zip_code, :price, :beds, :baths, :sqft, :price_per_sqft, :property_type,
		:year_built, :hoa_fee, :property_tax, :tax_rate, :monthly_mortgage, :monthly_taxes,
		:monthly_insurance, :monthly_hoa, :total_monthly_cost, :days_on_market, :seller_score,
		:listing_url, :listing_status
	)`, p)
	if err != nil {
		return 0, fmt.Errorf("insert property: %w", err)
	}
	return res.LastInsertId()
}

// FetchCandidates returns up to limit listings matching f, cheapest total
// monthly cost first. Listings without a monthly cost sort last.
func (s *SQLiteStore) FetchCandidates(ctx context.Context, f Filters, limit int) ([]Property, error) {
	var (
		where []string
		args  []any
	)
	if f.PriceMin > 0 {
		where = append(where, "price >= ?")
		args = append(args, f.PriceMin)
	}
	if f.PriceMax > 0 {
		where = append(where, "price <= ?")
		args = append(args, f.PriceMax)
	}
	if f.BedsMin > 0 {
		where = append(where, "beds >= ?")
		args = append(args, f.BedsMin)
	}
	if f.BathsMin > 0 {
		where = append(where, "baths >= ?")
		args = append(args, f.BathsMin)
	}
	if city := strings.TrimSpace(f.CityContains); city != "" {
		where = append(where, "city LIKE ?")
		args = append(args, "%"+city+"%")
	}

	q := "SELECT " + propertyColumns + " FROM properties"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY total_monthly_cost IS NULL, total_monthly_cost ASC, id ASC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	out := []Property{}
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	return out, nil
}

// FetchByIDs returns the listings whose id is in ids, in no particular order.
// Unknown ids are silently absent from the result.
func (s *SQLiteStore) FetchByIDs(ctx context.Context, ids []int64) ([]Property, error) {
	if len(ids) == 0 {
		return []Property{}, nil
	}
	q, args, err := sqlx.In("SELECT "+propertyColumns+" FROM properties WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("build id query: %w", err)
	}
	out := []Property{}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("fetch by ids: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM properties"); err != nil {
		return 0, err
	}
	return n, nil
}
