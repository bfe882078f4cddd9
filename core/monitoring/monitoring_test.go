package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordMonitor struct {
	NopMonitor
	errs   []error
	tags   map[string]string
	panics []any
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = tags
}

func (r *recordMonitor) ReportPanic(v any) { r.panics = append(r.panics, v) }

func TestCaptureRoutesToCurrentMonitor(t *testing.T) {
	rec := &recordMonitor{}
	prev := Init(rec)
	defer Init(prev)

	CaptureException(nil, nil)
	CaptureException(errors.New("boom"), map[string]string{"component": "travel"})
	Flush(time.Millisecond)

	if len(rec.errs) != 1 {
		t.Fatalf("expected 1 captured error, got %d", len(rec.errs))
	}
	assert.Equal(t, "travel", rec.tags["component"])
}

func TestInitIgnoresNil(t *testing.T) {
	rec := &recordMonitor{}
	prev := Init(rec)
	defer Init(prev)

	assert.Same(t, rec, Init(nil))
	assert.Same(t, rec, get())
}

func TestRecoverReportsAndRepanics(t *testing.T) {
	rec := &recordMonitor{}
	prev := Init(rec)
	defer Init(prev)

	assert.PanicsWithValue(t, "bad", func() {
		defer Recover()
		panic("bad")
	})
	assert.Equal(t, []any{"bad"}, rec.panics)
}
