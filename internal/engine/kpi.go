package engine

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"salesdash/internal/models"
)

// Placeholder KPIs. They are fixed figures with no formula behind them yet
// and are flagged as placeholders in the payload.
const (
	SalesAfterTaxPlaceholder   = "$307,587"
	RevenueRealizedPlaceholder = "6.97%"
)

// Static business insights shown under the charts. Like the placeholder
// KPIs they are not derived from the data.
var StaticInsights = []models.Insight{
	{Level: "info", Text: "Top Category: Electronics leads with 25% growth"},
	{Level: "success", Text: "Seasonal Trend: Holiday season boosts sales"},
	{Level: "warning", Text: "Note: Cash payments declining"},
}

// RatingAxis is the fixed y-range of the rating-by-city chart.
var RatingAxis = [2]float64{0, 5}

func buildKPIs(totalSales, totalQty float64) []models.KPI {
	p := message.NewPrinter(language.English)
	return []models.KPI{
		{Key: "total_sales", Label: "Total Sales", Value: totalSales, Display: p.Sprintf("$%.2f", totalSales)},
		{Key: "products_sold", Label: "Products Sold", Value: totalQty, Display: p.Sprintf("%.0f", totalQty)},
		{Key: "sales_after_tax", Label: "Sales After Tax", Display: SalesAfterTaxPlaceholder, Placeholder: true},
		{Key: "revenue_realized", Label: "Revenue Realized", Display: RevenueRealizedPlaceholder, Placeholder: true},
	}
}
