package models

type DashboardData struct {
	Rows            int            `json:"rows"`
	TotalSales      float64        `json:"total_sales"`
	TotalQuantity   float64        `json:"total_quantity"`
	KPIs            []KPI          `json:"kpis"`
	MonthlySales    []MonthlyItem  `json:"monthly_sales"`
	TopByQuantity   []TopItem      `json:"top_products_by_quantity"`
	TopBySales      []TopItem      `json:"top_products_by_sales"`
	PaymentMethods  []PaymentShare `json:"payment_methods"`
	CityRatings     []CityRating   `json:"city_ratings"`
	RatingRange     [2]float64     `json:"rating_range"`
	Insights        []Insight      `json:"insights"`
	MissingConcepts []string       `json:"missing_concepts"`
}

type KPI struct {
	Key         string  `json:"key"`
	Label       string  `json:"label"`
	Value       float64 `json:"value"`
	Display     string  `json:"display"`
	Placeholder bool    `json:"placeholder,omitempty"`
}

type MonthlyItem struct {
	Month string  `json:"month"`
	Sales float64 `json:"sales"`
}

type TopItem struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type PaymentShare struct {
	Method string `json:"method"`
	Count  int    `json:"count"`
}

type CityRating struct {
	City    string  `json:"city"`
	Rating  float64 `json:"rating"`
	Samples int     `json:"samples"`
}

type Insight struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// DatasetInfo describes a cached upload and the filters it offers.
type DatasetInfo struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Format           string              `json:"format"`
	Rows             int                 `json:"rows"`
	Columns          []string            `json:"columns"`
	Profiles         []ColumnProfile     `json:"profiles"`
	Roles            map[string][]string `json:"roles"`
	Filters          FilterOptions       `json:"filters"`
	DefaultSelection Selection           `json:"default_selection"`
}

type ColumnProfile struct {
	Name           string   `json:"name"`
	Kind           string   `json:"kind"`
	DistinctValues []string `json:"distinct_values,omitempty"`
}

type FilterOptions struct {
	Categorical []CategoricalOption `json:"categorical"`
	Date        *DateOption         `json:"date,omitempty"`
}

type CategoricalOption struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

type DateOption struct {
	Column string `json:"column"`
	Min    string `json:"min"`
	Max    string `json:"max"`
}

// Selection is the request body for dashboard, rows and export calls.
// Dates are YYYY-MM-DD.
type Selection struct {
	Categorical map[string][]string `json:"categorical,omitempty"`
	DateRange   *DateRange          `json:"date_range,omitempty"`
}

type DateRange struct {
	Column string `json:"column,omitempty"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

type RowsPage struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Total   int        `json:"total"`
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
}
