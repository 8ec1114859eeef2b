package metrics

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordBuild(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.TokenConsidered()
	m.TokenConsidered()
	m.TokenSkipped("zero_balance")
	m.TokenIncluded()
	m.ObserveSwap(big.NewInt(1_960_000), big.NewInt(2_000_000))
	m.ObserveBridge(big.NewInt(1_960_500))

	if got := testutil.ToFloat64(m.tokensConsidered); got != 2 {
		t.Fatalf("expected 2 considered tokens, got %v", got)
	}
	if got := testutil.ToFloat64(m.tokensSkipped.WithLabelValues("zero_balance")); got != 1 {
		t.Fatalf("expected 1 skipped token, got %v", got)
	}
	if got := testutil.ToFloat64(m.bridgeAmount); got != 1_960_500 {
		t.Fatalf("unexpected bridge amount gauge: %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.TokenConsidered()
	m.TokenSkipped("quote_failed")
	m.Warning("target_mismatch")
	m.ObserveBridge(big.NewInt(1))
	m.BuildTimer().ObserveDuration()
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.RunFinished("planned")

	path := filepath.Join(t.TempDir(), "relayer.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(buf), `relayer_runs_total{outcome="planned"} 1`) {
		t.Fatalf("unexpected textfile contents:\n%s", buf)
	}
	if err := WriteTextfile("", reg); err != nil {
		t.Fatalf("expected empty path to be a no-op: %v", err)
	}
}
