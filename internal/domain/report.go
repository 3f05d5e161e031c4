package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusNew       int64 = 1
	StatusConfirmed int64 = 2
	StatusCancelled int64 = 3
	StatusCompleted int64 = 4
)

type Period struct {
	From time.Time `json:"start_date"`
	To   time.Time `json:"end_date"`
}

// NewPeriod validates an inclusive day range.
func NewPeriod(from, to time.Time) (Period, error) {
	from, to = Day(from), Day(to)
	if to.Before(from) {
		return Period{}, InvalidInputError{Field: "end_date", Reason: "must not precede start_date"}
	}
	return Period{From: from, To: to}, nil
}

type DishSales struct {
	DishID          int64   `json:"dish_id"`
	DishName        string  `json:"dish_name"`
	QuantitySold    int64   `json:"quantity_sold"`
	TotalRevenue    Money   `json:"total_revenue"`
	RevenueSharePct float64 `json:"revenue_share"`
}

type SalesReport struct {
	Period             Period      `json:"period"`
	TotalPeriodRevenue Money       `json:"total_period_revenue"`
	PerDish            []DishSales `json:"report"`
}

type StatusShare struct {
	StatusID   int64   `json:"status_id"`
	StatusName string  `json:"status_name"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type BookingReport struct {
	Period             Period           `json:"period"`
	TotalBookings      int64            `json:"total_bookings"`
	StatusDistribution []StatusShare    `json:"status_distribution"`
	BookingsByDay      map[string]int64 `json:"bookings_by_day"`
}

type PopularDish struct {
	DishID       int64  `json:"dish_id"`
	DishName     string `json:"dish_name"`
	CategoryID   int64  `json:"category_id"`
	CategoryName string `json:"category_name"`
	TotalSold    int64  `json:"total_sold"`
	TotalRevenue Money  `json:"total_revenue"`
}

type DishCount struct {
	DishName string `json:"dish_name"`
	Quantity int64  `json:"quantity"`
}

type DailySummary struct {
	Date              string      `json:"date"`
	OrdersTotal       int64       `json:"orders_total"`
	Revenue           Money       `json:"revenue"`
	AvgOrderValue     Money       `json:"average_order_value"`
	BookingsTotal     int64       `json:"bookings_total"`
	BookingsConfirmed int64       `json:"bookings_confirmed"`
	BookingsNew       int64       `json:"bookings_new"`
	TopDishesToday    []DishCount `json:"popular_dishes_today"`
}

// Percent returns part/whole*100 rounded to two places, or 0 for an empty whole.
func Percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	f, _ := part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return f
}

// ApplyRevenueShares fills RevenueSharePct for every row against total.
func ApplyRevenueShares(rows []DishSales, total decimal.Decimal) {
	for i := range rows {
		rows[i].RevenueSharePct = Percent(rows[i].TotalRevenue.Decimal, total)
	}
}

// Average divides a sum by a count, 0 when the count is 0.
func Average(sum decimal.Decimal, n int64) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(n)).Round(2)
}

// Distribute turns per-status counts into shares of total.
func Distribute(counts []StatusShare) (int64, []StatusShare) {
	var total int64
	for _, c := range counts {
		total += c.Count
	}

	out := make([]StatusShare, 0, len(counts))
	for _, c := range counts {
		c.Percentage = Percent(decimal.NewFromInt(c.Count), decimal.NewFromInt(total))
		out = append(out, c)
	}

	return total, out
}
