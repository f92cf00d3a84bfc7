package engine

import (
	"sort"

	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"salesdash/internal/models"
)

const DefaultTopN = 10

// Aggregate computes every KPI and chart table from a filtered view. Each
// output depends only on its own concepts: a concept without a column
// degrades that output to zero or empty and leaves the others intact.
// Everything is recomputed from scratch on each call.
func Aggregate(view *Dataset, roles RoleMap, topN int) *models.DashboardData {
	if topN <= 0 {
		topN = DefaultTopN
	}
	mem := memory.NewGoAllocator()

	col := func(c Concept) int {
		name, ok := roles.Primary(c)
		if !ok {
			return -1
		}
		i, ok := view.ColumnIndex(name)
		if !ok {
			return -1
		}
		return i
	}
	salesCol := col(ConceptSales)
	qtyCol := col(ConceptQuantity)
	dateCol := col(ConceptDate)
	categoryCol := col(ConceptCategory)
	paymentCol := col(ConceptPayment)
	cityCol := col(ConceptCity)
	ratingCol := col(ConceptRating)

	data := &models.DashboardData{
		Rows:            view.Len(),
		MonthlySales:    make([]models.MonthlyItem, 0),
		TopByQuantity:   make([]models.TopItem, 0),
		TopBySales:      make([]models.TopItem, 0),
		PaymentMethods:  make([]models.PaymentShare, 0),
		CityRatings:     make([]models.CityRating, 0),
		RatingRange:     RatingAxis,
		Insights:        append([]models.Insight(nil), StaticInsights...),
		MissingConcepts: make([]string, 0),
	}
	for _, c := range roles.Missing() {
		data.MissingConcepts = append(data.MissingConcepts, string(c))
	}

	var sales, qty *array.Float64
	if salesCol >= 0 {
		sales = measureVector(mem, view, salesCol)
		defer sales.Release()
		data.TotalSales = sumVector(sales)
	}
	if qtyCol >= 0 {
		qty = measureVector(mem, view, qtyCol)
		defer qty.Release()
		data.TotalQuantity = sumVector(qty)
	}
	data.KPIs = buildKPIs(data.TotalSales, data.TotalQuantity)

	if sales != nil && dateCol >= 0 {
		data.MonthlySales = monthlySales(view, dateCol, sales)
	}
	if categoryCol >= 0 && qty != nil {
		data.TopByQuantity = topGroups(view, categoryCol, qty, topN)
	}
	if categoryCol >= 0 && sales != nil {
		data.TopBySales = topGroups(view, categoryCol, sales, topN)
	}
	if paymentCol >= 0 {
		data.PaymentMethods = valueCounts(view, paymentCol)
	}
	if cityCol >= 0 && ratingCol >= 0 {
		rating := measureVector(mem, view, ratingCol)
		defer rating.Release()
		data.CityRatings = meanByGroup(view, cityCol, rating)
	}
	return data
}

// monthlySales sums the measure per calendar month, ordered chronologically.
// Rows whose date cell is not a date are left out.
func monthlySales(view *Dataset, dateCol int, measure *array.Float64) []models.MonthlyItem {
	sums := make(map[string]float64)
	for i, row := range view.Rows {
		t, ok := row[dateCol].Date()
		if !ok {
			continue
		}
		var v float64
		if measure.IsValid(i) {
			v = measure.Value(i)
		}
		sums[t.Format("2006-01")] += v
	}

	out := make([]models.MonthlyItem, 0, len(sums))
	for m, v := range sums {
		out = append(out, models.MonthlyItem{Month: m, Sales: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// groupSums sums the measure per key in order of first encounter. Rows
// with a null key are dropped.
func groupSums(view *Dataset, keyCol int, measure *array.Float64) []models.TopItem {
	pos := make(map[string]int)
	var out []models.TopItem
	for i, row := range view.Rows {
		k := row[keyCol]
		if k.IsNull() {
			continue
		}
		key := k.Key()
		p, ok := pos[key]
		if !ok {
			p = len(out)
			pos[key] = p
			out = append(out, models.TopItem{Name: key})
		}
		if measure.IsValid(i) {
			out[p].Value += measure.Value(i)
		}
	}
	return out
}

// topGroups keeps the n largest group sums, descending. Ties keep the
// group met first.
func topGroups(view *Dataset, keyCol int, measure *array.Float64, n int) []models.TopItem {
	groups := groupSums(view, keyCol, measure)
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value > groups[j].Value })
	if len(groups) > n {
		groups = groups[:n]
	}
	if groups == nil {
		groups = make([]models.TopItem, 0)
	}
	return groups
}

// valueCounts counts rows per distinct non-null value, most frequent
// first, ties in order of first occurrence.
func valueCounts(view *Dataset, col int) []models.PaymentShare {
	pos := make(map[string]int)
	out := make([]models.PaymentShare, 0)
	for _, row := range view.Rows {
		v := row[col]
		if v.IsNull() {
			continue
		}
		key := v.Key()
		p, ok := pos[key]
		if !ok {
			p = len(out)
			pos[key] = p
			out = append(out, models.PaymentShare{Method: key})
		}
		out[p].Count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// meanByGroup averages the measure per key, one row per key in order of
// first occurrence. A key with no numeric measure has Samples 0 and
// Rating 0.
func meanByGroup(view *Dataset, keyCol int, measure *array.Float64) []models.CityRating {
	pos := make(map[string]int)
	out := make([]models.CityRating, 0)
	for i, row := range view.Rows {
		k := row[keyCol]
		if k.IsNull() {
			continue
		}
		key := k.Key()
		p, ok := pos[key]
		if !ok {
			p = len(out)
			pos[key] = p
			out = append(out, models.CityRating{City: key})
		}
		if measure.IsValid(i) {
			out[p].Rating += measure.Value(i)
			out[p].Samples++
		}
	}
	for i := range out {
		if out[i].Samples > 0 {
			out[i].Rating /= float64(out[i].Samples)
		}
	}
	return out
}
