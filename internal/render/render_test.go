package render

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func writeTemplates(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write templates: %v", err)
	}
	return path
}

func TestLoadTemplatesAndRender(t *testing.T) {
	store, err := LoadTemplates(writeTemplates(t, `
node_registered:
  title: "New Node"
  description: "Node {{.node}} joined at {{.time}}."
`))
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}

	got, err := store.Render("node_registered.description", map[string]string{
		"node": "0xabc",
		"time": "42",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Node 0xabc joined at 42." {
		t.Fatalf("rendered %q", got)
	}

	if len(store.Keys()) != 2 {
		t.Fatalf("keys = %v, want title and description", store.Keys())
	}
}

func TestRenderUnknownKey(t *testing.T) {
	store, err := LoadTemplates(writeTemplates(t, `
node_registered:
  title: "New Node"
`))
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}

	_, err = store.Render("node_exited.title", nil)
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("err = %v, want ErrUnknownTemplate", err)
	}
}

func TestRenderMissingArgIsZero(t *testing.T) {
	store, err := LoadTemplates(writeTemplates(t, `
node_registered:
  title: "Node {{.node}}"
`))
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}

	got, err := store.Render("node_registered.title", map[string]string{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Node " {
		t.Fatalf("rendered %q, want empty substitution", got)
	}
}

func TestLoadTemplatesRejectsBadSyntax(t *testing.T) {
	_, err := LoadTemplates(writeTemplates(t, `
node_registered:
  title: "Node {{.node"
`))
	if err == nil {
		t.Fatalf("expected malformed template to fail the load")
	}
}

func TestBarChartScalesToLargestValue(t *testing.T) {
	chart := BarChart{}.RenderBarChart([]float64{40, 20}, []string{"For", "Against"})

	lines := strings.Split(strings.TrimRight(chart, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "For") || !strings.HasPrefix(lines[1], "Against") {
		t.Fatalf("labels missing:\n%s", chart)
	}
	forBars := strings.Count(lines[0], "█")
	againstBars := strings.Count(lines[1], "█")
	if forBars != 20 || againstBars != 10 {
		t.Fatalf("bars = %d/%d, want 20/10", forBars, againstBars)
	}
	if !strings.Contains(lines[0], "40.00") || !strings.Contains(lines[1], "20.00") {
		t.Fatalf("values missing:\n%s", chart)
	}
}

func TestBarChartSmallValueStillVisible(t *testing.T) {
	chart := BarChart{}.RenderBarChart([]float64{1000, 1}, []string{"For", "Against"})
	lines := strings.Split(strings.TrimRight(chart, "\n"), "\n")
	if strings.Count(lines[1], "█") != 1 {
		t.Fatalf("nonzero tally should draw at least one bar:\n%s", chart)
	}
}

func TestBarChartEmptyAndMismatched(t *testing.T) {
	if got := (BarChart{}).RenderBarChart(nil, nil); got != "" {
		t.Fatalf("empty chart = %q", got)
	}
	if got := (BarChart{}).RenderBarChart([]float64{1}, []string{"a", "b"}); got != "" {
		t.Fatalf("mismatched chart = %q", got)
	}
}

func TestStaticLabels(t *testing.T) {
	labels := NewStaticLabels(map[string]string{
		"0x5000000000000000000000000000000000000005": "Deposit Pool",
	})

	known := common.HexToAddress("0x5000000000000000000000000000000000000005")
	if got := labels.ResolveDisplayName(known); got != "Deposit Pool" {
		t.Fatalf("label = %q", got)
	}
	if got := labels.ResolveDisplayName(common.HexToAddress("0x01")); got != "" {
		t.Fatalf("unknown address resolved to %q", got)
	}
}
