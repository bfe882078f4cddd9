package e2e

import (
	"context"
	"encoding/xml"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/kilianp07/blockplan/app"
	"github.com/kilianp07/blockplan/config"
	"github.com/kilianp07/blockplan/core/factory"
	"github.com/kilianp07/blockplan/test/util"
)

const (
	influxOrg    = "e2e_org"
	influxBucket = "e2e_bucket"
	influxToken  = "e2e-token"
)

// junitReport is a minimal JUnit XML report so CI can display the results.
type junitReport struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string  `xml:"name,attr"`
	Failure *string `xml:"failure,omitempty"`
	Time    float64 `xml:"time,attr"`
}

func writeJUnit(path string, rep junitReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	return enc.Encode(rep)
}

const pool = `
mode: driving
date: 2024-03-05
base: {kind: address, address: Home}
pool:
  - {title: School, days: "mon,tue,wed,thu,fri", start: "09:00", end: "15:00", location: {kind: address, address: School}}
  - {title: Piano, days: "tue,thu", start: "16:00", end: "17:00", location: {kind: address, address: Music}}
  - {title: Swimming, days: tue, start: "16:30", end: "17:30"}
`

// Test_E2E_PlannerMetrics runs a search, an optimization and a day
// recalculation through the service and checks the Influx sink recorded them.
func Test_E2E_PlannerMetrics(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	start := time.Now()

	url, cleanup, err := util.StartInflux(ctx, util.InfluxSetup{Org: influxOrg, Bucket: influxBucket, Token: influxToken})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	defer cleanup()
	t.Logf("InfluxDB started at %s", url)

	cfg := config.Default()
	cfg.Store = factory.ModuleConfig{Type: "memory"}
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "influx", Conf: map[string]any{
		"url": url, "token": influxToken, "org": influxOrg, "bucket": influxBucket,
	}}}
	svc, err := app.New(cfg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	defer svc.Close() //nolint:errcheck

	in, err := app.DecodeInput([]byte(pool), "yaml")
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	if _, err := svc.Search(ctx, in); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, err := svc.Optimize(ctx, in); err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if _, err := svc.Recalculate(ctx, in); err != nil {
		t.Fatalf("recalculate: %v", err)
	}

	cli := NewInfluxClient(url, influxOrg, influxBucket, influxToken)
	defer cli.Close()
	for _, m := range []string{"combination_search", "optimization_run", "day_recalculation"} {
		n, err := cli.CountPoints(ctx, m, "1h")
		if err != nil {
			t.Fatalf("count %s: %v", m, err)
		}
		if n == 0 {
			t.Fatalf("no %s points in Influx", m)
		}
		t.Logf("%s: %d points", m, n)
	}

	dir := t.TempDir()
	rep := junitReport{Name: "e2e", Tests: 1, Cases: []junitTestCase{{
		Name: "Test_E2E_PlannerMetrics", Time: time.Since(start).Seconds(),
	}}}
	if err := writeJUnit(filepath.Join(dir, "e2e.xml"), rep); err != nil {
		t.Logf("write junit: %v", err)
	}
}
