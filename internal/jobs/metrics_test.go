package jobs

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	metric, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}
	var m dto.Metric
	if err := metric.(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetCounter().GetValue()
}

func histogramSample(t *testing.T, vec *prometheus.HistogramVec, jobType string) (count uint64, sum float64) {
	t.Helper()
	metric, err := vec.GetMetricWithLabelValues(jobType)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%q): %v", jobType, err)
	}
	var m dto.Metric
	if err := metric.(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
}

func TestMetrics_Register(t *testing.T) {
	t.Run("all collectors gatherable", func(t *testing.T) {
		m := NewMetrics()
		reg := prometheus.NewRegistry()
		if err := m.Register(reg); err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		m.IncJobsTotal(JobTypeRequestWatch, StatusSuccess)
		m.ObserveJobDuration(JobTypeRequestWatch, 1.0)
		m.IncJobErrors(JobTypeRequestWatch, "list_error")

		families, err := reg.Gather()
		if err != nil {
			t.Fatalf("Gather() error = %v", err)
		}

		want := map[string]bool{
			MetricBackgroundJobsTotal:      false,
			MetricBackgroundJobsDuration:   false,
			MetricBackgroundJobErrorsTotal: false,
		}
		for _, family := range families {
			if _, ok := want[family.GetName()]; ok {
				want[family.GetName()] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("metric %s not gathered", name)
			}
		}
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		if err := NewMetrics().Register(reg); err != nil {
			t.Fatalf("first Register() error = %v", err)
		}
		if err := NewMetrics().Register(reg); err == nil {
			t.Error("second Register() should fail")
		}
	})
}

func TestMetrics_IncJobsTotal(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 10; i++ {
		m.IncJobsTotal(JobTypeRequestWatch, StatusSuccess)
	}
	for i := 0; i < 2; i++ {
		m.IncJobsTotal(JobTypeRequestWatch, StatusFailure)
	}

	if got := counterValue(t, m.jobsTotal, JobTypeRequestWatch, StatusSuccess); got != 10 {
		t.Errorf("success count = %v, want 10", got)
	}
	if got := counterValue(t, m.jobsTotal, JobTypeRequestWatch, StatusFailure); got != 2 {
		t.Errorf("failure count = %v, want 2", got)
	}
}

func TestMetrics_ObserveJobDuration(t *testing.T) {
	m := NewMetrics()

	durations := []float64{0.5, 1.2, 0.8, 2.5, 1.0}
	var wantSum float64
	for _, d := range durations {
		m.ObserveJobDuration(JobTypeRequestWatch, d)
		wantSum += d
	}

	count, sum := histogramSample(t, m.jobsDuration, JobTypeRequestWatch)
	if count != uint64(len(durations)) {
		t.Errorf("sample count = %d, want %d", count, len(durations))
	}
	if sum < wantSum*0.99 || sum > wantSum*1.01 {
		t.Errorf("sample sum = %v, want ~%v", sum, wantSum)
	}
}

func TestMetrics_IncJobErrors(t *testing.T) {
	m := NewMetrics()

	cases := []struct {
		errorType string
		count     int
	}{
		{"list_error", 5},
		{"dispatch_error", 3},
	}

	for _, tc := range cases {
		for i := 0; i < tc.count; i++ {
			m.IncJobErrors(JobTypeRequestWatch, tc.errorType)
		}
	}
	for _, tc := range cases {
		if got := counterValue(t, m.jobErrors, JobTypeRequestWatch, tc.errorType); got != float64(tc.count) {
			t.Errorf("errors[%s] = %v, want %d", tc.errorType, got, tc.count)
		}
	}
}

func TestMetrics_Concurrency(t *testing.T) {
	m := NewMetrics()
	const goroutines, iterations = 10, 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				m.IncJobsTotal(JobTypeRequestWatch, StatusSuccess)
				m.ObserveJobDuration(JobTypeRequestWatch, 1.5)
				m.IncJobErrors(JobTypeRequestWatch, "list_error")
			}
		}()
	}
	wg.Wait()

	want := float64(goroutines * iterations)
	if got := counterValue(t, m.jobsTotal, JobTypeRequestWatch, StatusSuccess); got != want {
		t.Errorf("jobsTotal = %v, want %v", got, want)
	}
	if got := counterValue(t, m.jobErrors, JobTypeRequestWatch, "list_error"); got != want {
		t.Errorf("jobErrors = %v, want %v", got, want)
	}
	count, _ := histogramSample(t, m.jobsDuration, JobTypeRequestWatch)
	if count != uint64(goroutines*iterations) {
		t.Errorf("duration samples = %d, want %d", count, goroutines*iterations)
	}
}

func TestMetrics_DurationBuckets(t *testing.T) {
	m := NewMetrics()

	// Poll cycles range from sub-second to timeout-bound.
	durations := []float64{0.05, 0.5, 5.0, 30.0, 120.0}
	var wantSum float64
	for _, d := range durations {
		m.ObserveJobDuration(JobTypeRequestWatch, d)
		wantSum += d
	}

	count, sum := histogramSample(t, m.jobsDuration, JobTypeRequestWatch)
	if count != uint64(len(durations)) {
		t.Errorf("sample count = %d, want %d", count, len(durations))
	}
	if sum < wantSum*0.99 || sum > wantSum*1.01 {
		t.Errorf("sample sum = %v, want ~%v", sum, wantSum)
	}
}
