package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/models"
)

var salesColumns = []string{"Date", "Product line", "Quantity", "Total", "Payment", "City", "Rating"}

func salesDataset() *Dataset {
	return datasetOf(salesColumns,
		[]string{"2024-01-03", "Food", "2", "10", "Cash", "Yangon", "4"},
		[]string{"2024-01-15", "Sports", "1", "20", "Cash", "Mandalay", "3"},
		[]string{"2024-01-28", "Food", "3", "30", "Ewallet", "Yangon", "5"},
		[]string{"2024-02-02", "Health", "4", "5", "Credit card", "Naypyitaw", ""},
		[]string{"2024-02-20", "Sports", "1", "15", "", "Mandalay", "2"},
	)
}

func TestAggregateMonthlyTrend(t *testing.T) {
	ds := salesDataset()
	data := Aggregate(ds, ResolveRoles(ds.Columns), DefaultTopN)

	assert.Equal(t, 5, data.Rows)
	assert.Equal(t, []models.MonthlyItem{
		{Month: "2024-01", Sales: 60},
		{Month: "2024-02", Sales: 20},
	}, data.MonthlySales)
	assert.Equal(t, 80.0, data.TotalSales)
	assert.Equal(t, 11.0, data.TotalQuantity)
	assert.Empty(t, data.MissingConcepts)
}

func TestAggregateKPIs(t *testing.T) {
	ds := salesDataset()
	data := Aggregate(ds, ResolveRoles(ds.Columns), DefaultTopN)

	require.Len(t, data.KPIs, 4)
	assert.Equal(t, "total_sales", data.KPIs[0].Key)
	assert.Equal(t, "$80.00", data.KPIs[0].Display)
	assert.Equal(t, "11", data.KPIs[1].Display)
	assert.False(t, data.KPIs[1].Placeholder)

	assert.Equal(t, SalesAfterTaxPlaceholder, data.KPIs[2].Display)
	assert.True(t, data.KPIs[2].Placeholder)
	assert.Equal(t, RevenueRealizedPlaceholder, data.KPIs[3].Display)
	assert.True(t, data.KPIs[3].Placeholder)

	assert.Equal(t, RatingAxis, data.RatingRange)
	assert.Len(t, data.Insights, 3)
}

func TestAggregateWithoutSalesColumn(t *testing.T) {
	ds := datasetOf([]string{"Date", "Product line", "Quantity"},
		[]string{"2024-01-03", "Food", "2"},
		[]string{"2024-02-03", "Food", "3"},
	)
	data := Aggregate(ds, ResolveRoles(ds.Columns), DefaultTopN)

	assert.Equal(t, 0.0, data.TotalSales)
	assert.Equal(t, "$0.00", data.KPIs[0].Display)
	assert.NotNil(t, data.MonthlySales)
	assert.Empty(t, data.MonthlySales)
	assert.Empty(t, data.TopBySales)
	assert.Contains(t, data.MissingConcepts, string(ConceptSales))

	// quantity still computes on its own
	assert.Equal(t, 5.0, data.TotalQuantity)
	assert.Equal(t, []models.TopItem{{Name: "Food", Value: 5}}, data.TopByQuantity)
}

func TestAggregatePaymentDistribution(t *testing.T) {
	ds := datasetOf([]string{"Payment"},
		[]string{"Cash"}, []string{"Cash"}, []string{"Ewallet"}, []string{"Credit card"},
	)
	data := Aggregate(ds, ResolveRoles(ds.Columns), DefaultTopN)

	assert.Equal(t, []models.PaymentShare{
		{Method: "Cash", Count: 2},
		{Method: "Ewallet", Count: 1},
		{Method: "Credit card", Count: 1},
	}, data.PaymentMethods)
}

func TestAggregateTopProducts(t *testing.T) {
	raw := make([][]string, 0, 12)
	for i := 1; i <= 12; i++ {
		raw = append(raw, []string{fmt.Sprintf("product-%02d", i), fmt.Sprint(i)})
	}
	ds := datasetOf([]string{"Product line", "Quantity"}, raw...)
	data := Aggregate(ds, ResolveRoles(ds.Columns), DefaultTopN)

	require.Len(t, data.TopByQuantity, 10)
	assert.Equal(t, "product-12", data.TopByQuantity[0].Name)
	assert.Equal(t, 12.0, data.TopByQuantity[0].Value)
	assert.Equal(t, "product-03", data.TopByQuantity[9].Name)
	for i := 1; i < len(data.TopByQuantity); i++ {
		assert.GreaterOrEqual(t, data.TopByQuantity[i-1].Value, data.TopByQuantity[i].Value)
	}
}

func TestAggregateTopGroupsTieKeepsFirstSeen(t *testing.T) {
	ds := salesDataset()
	data := Aggregate(ds, ResolveRoles(ds.Columns), 2)

	// Food 5, Health 4, Sports 2
	assert.Equal(t, []models.TopItem{{Name: "Food", Value: 5}, {Name: "Health", Value: 4}}, data.TopByQuantity)
	// Food 40, Sports 35, Health 5
	assert.Equal(t, []models.TopItem{{Name: "Food", Value: 40}, {Name: "Sports", Value: 35}}, data.TopBySales)
}

func TestAggregateTopGroupsEqualSums(t *testing.T) {
	columns := []string{"Product line", "Quantity", "Total"}
	tests := []struct {
		name string
		rows [][]string
		want []string
	}{
		{
			name: "earlier group kept",
			rows: [][]string{{"Food", "5", "50"}, {"Sports", "3", "30"}, {"Health", "3", "30"}},
			want: []string{"Food", "Sports"},
		},
		{
			name: "encounter order decides",
			rows: [][]string{{"Food", "5", "50"}, {"Health", "3", "30"}, {"Sports", "3", "30"}},
			want: []string{"Food", "Health"},
		},
		{
			name: "tie split across rows",
			rows: [][]string{{"Health", "1", "10"}, {"Sports", "3", "30"}, {"Food", "5", "50"}, {"Health", "2", "20"}},
			want: []string{"Food", "Health"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := datasetOf(columns, tt.rows...)
			data := Aggregate(ds, ResolveRoles(ds.Columns), 2)

			for _, top := range [][]models.TopItem{data.TopByQuantity, data.TopBySales} {
				require.Len(t, top, 2)
				assert.Equal(t, tt.want, []string{top[0].Name, top[1].Name})
			}
			assert.Equal(t, 3.0, data.TopByQuantity[1].Value)
			assert.Equal(t, 30.0, data.TopBySales[1].Value)
		})
	}
}

func TestAggregateCityRatings(t *testing.T) {
	ds := salesDataset()
	data := Aggregate(ds, ResolveRoles(ds.Columns), DefaultTopN)

	assert.Equal(t, []models.CityRating{
		{City: "Yangon", Rating: 4.5, Samples: 2},
		{City: "Mandalay", Rating: 2.5, Samples: 2},
		{City: "Naypyitaw", Rating: 0, Samples: 0},
	}, data.CityRatings)
}

func TestAggregateEmptyView(t *testing.T) {
	ds := NewDataset(salesColumns, nil)
	data := Aggregate(ds, ResolveRoles(ds.Columns), DefaultTopN)

	assert.Equal(t, 0, data.Rows)
	assert.Equal(t, 0.0, data.TotalSales)
	assert.Empty(t, data.MonthlySales)
	assert.Empty(t, data.TopByQuantity)
	assert.Empty(t, data.PaymentMethods)
	assert.Empty(t, data.CityRatings)
}

func TestAggregateSkipsNonNumericMeasures(t *testing.T) {
	ds := datasetOf([]string{"Date", "Total"},
		[]string{"2024-03-01", "12.5"},
		[]string{"2024-03-02", "n/a"},
		[]string{"not a date", "100"},
	)
	data := Aggregate(ds, ResolveRoles(ds.Columns), DefaultTopN)

	assert.Equal(t, 112.5, data.TotalSales)
	assert.Equal(t, []models.MonthlyItem{{Month: "2024-03", Sales: 12.5}}, data.MonthlySales)
}
