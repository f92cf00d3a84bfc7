package dashboard

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"salesdash/internal/engine"
	"salesdash/internal/metrics"
	"salesdash/internal/models"
)

const salesCSV = `Date,Product line,Quantity,Total,Payment,City,Rating
2024-01-03,Food,2,10,Cash,Yangon,4
2024-01-15,Sports,1,20,Cash,Mandalay,3
2024-01-28,Food,3,30,Ewallet,Yangon,5
2024-02-02,Health,4,5,Credit card,Naypyitaw,4
2024-02-20,Sports,1,15,Ewallet,Mandalay,2
`

type recordingBackend struct {
	mu       sync.Mutex
	counters map[string]float64
	observed map[string]int
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{counters: map[string]float64{}, observed: map[string]int{}}
}

func (r *recordingBackend) IncCounter(name string, delta float64, labels metrics.Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name+"/"+labels["status"]] += delta
}

func (r *recordingBackend) ObserveHistogram(name string, _ float64, _ metrics.Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observed[name]++
}

func (r *recordingBackend) Flush() error { return nil }
func (r *recordingBackend) Close() error { return nil }

func newTestService(t *testing.T, maxEntries int) (*Service, *recordingBackend) {
	t.Helper()
	m := newRecordingBackend()
	opt := DefaultOptions()
	opt.MaxEntries = maxEntries
	return New(zaptest.NewLogger(t), m, opt), m
}

func TestUploadCachesByContent(t *testing.T) {
	svc, m := newTestService(t, 1)

	first, err := svc.Upload("sales.csv", []byte(salesCSV))
	require.NoError(t, err)
	assert.Equal(t, DatasetID([]byte(salesCSV)), first.ID)
	assert.Equal(t, engine.FormatCSV, first.Format)
	assert.Equal(t, 5, first.Dataset.Len())

	again, err := svc.Upload("renamed.csv", []byte(salesCSV))
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1.0, m.counters[metrics.UploadsTotal+"/ok"])
}

func TestUploadEvictsOldest(t *testing.T) {
	svc, _ := newTestService(t, 1)

	a, err := svc.Upload("a.csv", []byte(salesCSV))
	require.NoError(t, err)
	b, err := svc.Upload("b.csv", []byte(strings.Replace(salesCSV, "Yangon", "Bago", 1)))
	require.NoError(t, err)

	_, err = svc.Get(a.ID)
	assert.True(t, errors.Is(err, ErrDatasetNotFound))
	got, err := svc.Get(b.ID)
	require.NoError(t, err)
	assert.Same(t, b, got)
}

func TestUploadCacheHitRefreshesOrder(t *testing.T) {
	svc, _ := newTestService(t, 2)
	csvA := []byte(salesCSV)
	csvB := []byte(strings.Replace(salesCSV, "Yangon", "Bago", 1))
	csvC := []byte(strings.Replace(salesCSV, "Yangon", "Pyay", 1))

	a, err := svc.Upload("a.csv", csvA)
	require.NoError(t, err)
	b, err := svc.Upload("b.csv", csvB)
	require.NoError(t, err)
	_, err = svc.Upload("a.csv", csvA)
	require.NoError(t, err)
	_, err = svc.Upload("c.csv", csvC)
	require.NoError(t, err)

	_, err = svc.Get(a.ID)
	assert.NoError(t, err)
	_, err = svc.Get(b.ID)
	assert.Error(t, err)
}

func TestUploadConcurrentSameContent(t *testing.T) {
	svc, _ := newTestService(t, 1)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := svc.Upload("sales.csv", []byte(salesCSV))
			if err == nil {
				ids[i] = e.ID
			}
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, DatasetID([]byte(salesCSV)), id)
	}
}

func TestUploadUnreadable(t *testing.T) {
	svc, m := newTestService(t, 1)

	e, err := svc.Upload("photo.png", []byte("\x89PNG\r\n\x1a\n"))
	assert.Nil(t, e)
	assert.True(t, errors.Is(err, engine.ErrUnreadableFile))
	assert.Equal(t, 1.0, m.counters[metrics.UploadsTotal+"/error"])

	_, err = svc.Get(DatasetID([]byte("\x89PNG\r\n\x1a\n")))
	assert.True(t, errors.Is(err, ErrDatasetNotFound))
}

func TestInvalidate(t *testing.T) {
	svc, _ := newTestService(t, 1)
	e, err := svc.Upload("sales.csv", []byte(salesCSV))
	require.NoError(t, err)

	assert.True(t, svc.Invalidate(e.ID))
	assert.False(t, svc.Invalidate(e.ID))
	_, err = svc.Dashboard(e.ID, engine.Selection{})
	assert.True(t, errors.Is(err, ErrDatasetNotFound))

	reloaded, err := svc.Upload("sales.csv", []byte(salesCSV))
	require.NoError(t, err)
	assert.NotSame(t, e, reloaded)
}

func TestDashboardDefaultSelection(t *testing.T) {
	svc, m := newTestService(t, 1)
	e, err := svc.Upload("sales.csv", []byte(salesCSV))
	require.NoError(t, err)

	data, err := svc.Dashboard(e.ID, engine.Selection{})
	require.NoError(t, err)
	assert.Equal(t, 5, data.Rows)
	assert.Equal(t, 80.0, data.TotalSales)
	assert.Equal(t, []models.MonthlyItem{{Month: "2024-01", Sales: 60}, {Month: "2024-02", Sales: 20}}, data.MonthlySales)

	assert.Equal(t, 1.0, m.counters[metrics.RecomputeTotal+"/ok"])
	assert.Equal(t, 1, m.observed[metrics.RecomputeSeconds])
}

func TestDashboardFiltered(t *testing.T) {
	svc, _ := newTestService(t, 1)
	e, err := svc.Upload("sales.csv", []byte(salesCSV))
	require.NoError(t, err)

	data, err := svc.Dashboard(e.ID, engine.Selection{Categorical: map[string][]string{"Payment": {"Cash"}}})
	require.NoError(t, err)
	assert.Equal(t, 2, data.Rows)
	assert.Equal(t, 30.0, data.TotalSales)
	assert.Equal(t, []models.PaymentShare{{Method: "Cash", Count: 2}}, data.PaymentMethods)
}

func TestDashboardConfigMismatch(t *testing.T) {
	svc, m := newTestService(t, 1)
	e, err := svc.Upload("sales.csv", []byte(salesCSV))
	require.NoError(t, err)

	_, err = svc.Dashboard(e.ID, engine.Selection{Categorical: map[string][]string{"Region": {"North"}}})
	assert.True(t, errors.Is(err, engine.ErrConfigMismatch))
	assert.Equal(t, 1.0, m.counters[metrics.RecomputeTotal+"/error"])
}

func TestExport(t *testing.T) {
	svc, _ := newTestService(t, 1)
	e, err := svc.Upload("sales.csv", []byte(salesCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	err = svc.Export(&buf, e.ID, engine.Selection{Categorical: map[string][]string{"City": {"Naypyitaw"}}})
	require.NoError(t, err)
	assert.Equal(t,
		"Date,Product line,Quantity,Total,Payment,City,Rating\n2024-02-02,Health,4,5,Credit card,Naypyitaw,4\n",
		buf.String())
}

func TestEntryInfo(t *testing.T) {
	svc, _ := newTestService(t, 1)
	e, err := svc.Upload("sales.csv", []byte(salesCSV))
	require.NoError(t, err)

	info := e.Info()
	assert.Equal(t, "csv", info.Format)
	assert.Equal(t, 5, info.Rows)
	assert.Equal(t, []string{"Total"}, info.Roles["sales"])
	require.NotNil(t, info.Filters.Date)
	assert.Equal(t, "2024-01-03", info.Filters.Date.Min)
	assert.Equal(t, "2024-02-20", info.Filters.Date.Max)
	assert.Equal(t, []string{"Food", "Sports", "Health"}, info.DefaultSelection.Categorical["Product line"])
}

func TestSelectionFromModel(t *testing.T) {
	sel, err := SelectionFromModel(models.Selection{
		Categorical: map[string][]string{"City": nil},
		DateRange:   &models.DateRange{Column: "Date", Start: "2024-01-01", End: "2024-01-31"},
	})
	require.NoError(t, err)
	assert.NotNil(t, sel.Categorical["City"])
	assert.Empty(t, sel.Categorical["City"])
	assert.Equal(t, "2024-01-31", sel.DateRange.End.Format("2006-01-02"))

	_, err = SelectionFromModel(models.Selection{DateRange: &models.DateRange{Start: "yesterday", End: "2024-01-31"}})
	assert.Error(t, err)
}
