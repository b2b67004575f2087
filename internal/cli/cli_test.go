package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/matzehuels/linlog/pkg/cache"
	"github.com/matzehuels/linlog/pkg/errors"
	graphio "github.com/matzehuels/linlog/pkg/io"
	"github.com/matzehuels/linlog/pkg/pipeline"
)

const twoPairs = `{"edges": [
	{"from": "a", "to": "b"},
	{"from": "c", "to": "d"}
]}`

// testEnv isolates config and cache directories and writes the input graph.
type testEnv struct {
	dir      string
	cacheDir string
	graph    string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))

	graph := filepath.Join(dir, "graph.json")
	if err := os.WriteFile(graph, []byte(twoPairs), 0o644); err != nil {
		t.Fatal(err)
	}
	return testEnv{dir: dir, cacheDir: filepath.Join(dir, "cache", "linlog"), graph: graph}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func readLayout(t *testing.T, path string) graphio.Layout {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	l, err := graphio.ReadLayout(f)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestLayoutCommand(t *testing.T) {
	env := newTestEnv(t)
	if _, err := execute(t, "layout", env.graph); err != nil {
		t.Fatalf("layout: %v", err)
	}

	l := readLayout(t, filepath.Join(env.dir, "graph.layout.json"))
	if len(l.Nodes) != 4 || l.Clusters != 2 || l.Dimensions != 2 {
		t.Errorf("layout = %d nodes, %d clusters, %d dimensions", len(l.Nodes), l.Clusters, l.Dimensions)
	}
	if l.Iterations != pipeline.DefaultIterations {
		t.Errorf("Iterations = %d, want %d", l.Iterations, pipeline.DefaultIterations)
	}

	fc, err := cache.NewFileCache(env.cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := fc.Clear(context.Background()); n != 1 {
		t.Errorf("cache entries = %d, want 1", n)
	}
}

func TestLayoutCommandDOT(t *testing.T) {
	env := newTestEnv(t)
	out := filepath.Join(env.dir, "out.dot")
	if _, err := execute(t, "layout", env.graph, "--format", "dot", "-o", out, "--no-cache"); err != nil {
		t.Fatalf("layout: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "graph linlog {") {
		t.Errorf("unexpected DOT output:\n%s", data)
	}
	if _, err := os.Stat(env.cacheDir); err == nil {
		entries, _ := os.ReadDir(env.cacheDir)
		if len(entries) != 0 {
			t.Error("--no-cache should not write cache entries")
		}
	}
}

func TestLayoutFlagsOverrideConfig(t *testing.T) {
	env := newTestEnv(t)
	cfg := filepath.Join(env.dir, "linlog.toml")
	if err := os.WriteFile(cfg, []byte("[layout]\ndimensions = 3\niterations = 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(env.dir, "a.json")
	if _, err := execute(t, "--config", cfg, "layout", env.graph, "-o", out); err != nil {
		t.Fatalf("layout: %v", err)
	}
	if l := readLayout(t, out); l.Dimensions != 3 || l.Iterations != 4 {
		t.Errorf("config not applied: %d dimensions, %d iterations", l.Dimensions, l.Iterations)
	}

	if _, err := execute(t, "--config", cfg, "layout", env.graph, "-o", out, "-d", "2"); err != nil {
		t.Fatalf("layout: %v", err)
	}
	if l := readLayout(t, out); l.Dimensions != 2 || l.Iterations != 4 {
		t.Errorf("flag not applied: %d dimensions, %d iterations", l.Dimensions, l.Iterations)
	}
}

func TestLayoutCommandErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
		code errors.Code
		want string
	}{
		{"missing file", []string{"layout", filepath.Join(env.dir, "nope.json")}, errors.ErrCodeFileNotFound, ""},
		{"bad theta", []string{"layout", env.graph, "--theta", "5"}, errors.ErrCodeInvalidOptions, "theta"},
		{"bad format", []string{"layout", env.graph, "--format", "svg"}, "", "unknown format"},
		{"missing config", []string{"--config", filepath.Join(env.dir, "none.toml"), "layout", env.graph}, errors.ErrCodeFileNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.code != "" && !errors.Is(err, tt.code) {
				t.Errorf("error %v does not carry %s", err, tt.code)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestClusterCommand(t *testing.T) {
	env := newTestEnv(t)
	out := filepath.Join(env.dir, "clusters.json")
	if _, err := execute(t, "cluster", env.graph, "-o", out, "--multi-level"); err != nil {
		t.Fatalf("cluster: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var res clusterResult
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatal(err)
	}
	if res.Clusters != 2 || len(res.Assignment) != 4 {
		t.Errorf("result = %+v", res)
	}
	if res.Assignment["a"] != res.Assignment["b"] || res.Assignment["a"] == res.Assignment["c"] {
		t.Errorf("assignment = %v", res.Assignment)
	}
	if res.Modularity < 0.499 || res.Modularity > 0.501 {
		t.Errorf("modularity = %v, want 0.5", res.Modularity)
	}
}

func TestClusterCommandCSV(t *testing.T) {
	env := newTestEnv(t)
	csv := filepath.Join(env.dir, "edges.csv")
	if err := os.WriteFile(csv, []byte("source,target,weight\na,b,2\nb,c,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "cluster", csv); err != nil {
		t.Fatalf("cluster: %v", err)
	}
}

func TestCacheCommands(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if strings.TrimSpace(out) != env.cacheDir {
		t.Errorf("cache path = %q, want %q", out, env.cacheDir)
	}

	if _, err := execute(t, "layout", env.graph); err != nil {
		t.Fatalf("layout: %v", err)
	}
	if _, err := execute(t, "cache", "prune"); err != nil {
		t.Fatalf("cache prune: %v", err)
	}
	fc, err := cache.NewFileCache(env.cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if n, _ := fc.Clear(context.Background()); n != 0 {
		t.Errorf("%d entries left after clear", n)
	}
}

func TestCompletionCommand(t *testing.T) {
	newTestEnv(t)
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		out, err := execute(t, "completion", shell)
		if err != nil {
			t.Fatalf("completion %s: %v", shell, err)
		}
		if !strings.Contains(out, "linlog") {
			t.Errorf("completion %s does not mention linlog", shell)
		}
	}
	if _, err := execute(t, "completion", "tcsh"); err == nil {
		t.Error("unsupported shell should fail")
	}
}

func TestOptionFlagsResolve(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f := newOptionFlags(fs)
	if err := fs.Parse([]string{"--theta", "0.5", "--multi-level", "-w", "-1"}); err != nil {
		t.Fatal(err)
	}

	base := pipeline.DefaultOptions()
	base.Iterations = 99
	got := f.resolve(base)

	if got.Iterations != 99 {
		t.Errorf("Iterations = %d, unset flags must keep the base value", got.Iterations)
	}
	if got.Theta != 0.5 || !got.MultiLevel || got.Workers != -1 {
		t.Errorf("resolved = %+v", got)
	}
}

func TestClusterTable(t *testing.T) {
	out := clusterTable(map[int][]string{
		0: {"a"},
		1: {"b", "c", "d", "e", "f", "g", "h", "i"},
	})
	for _, want := range []string{"Cluster", "Members", "b, c", "+2"} {
		if !strings.Contains(out, want) {
			t.Errorf("table does not contain %q:\n%s", want, out)
		}
	}
	lineOf := func(s string) int {
		for i, line := range strings.Split(out, "\n") {
			if strings.Contains(line, s) {
				return i
			}
		}
		return -1
	}
	if lineOf("b, c") > lineOf("a") {
		t.Error("larger clusters should be listed first")
	}
}

func TestLayoutStats(t *testing.T) {
	s := layoutStats{nodes: 4, edges: 2, clusters: 2, modularity: 0.5, cached: true}.String()
	for _, want := range []string{"4 nodes", "2 edges", "2 clusters", "Q=0.500", "cached"} {
		if !strings.Contains(s, want) {
			t.Errorf("stats %q does not contain %q", s, want)
		}
	}
}
