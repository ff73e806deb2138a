package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const caveStory = `## 1 {#p1}

You wake in a cave. [Go left](#p2) or [go right](#p3).

## 2 {#p2}

A long tunnel.

## 3 {#p3}

![bats](bats.png)

## 4 {#p4}

**THE END**

## G1 {#g1}

Sub-book start. [Begin](#p2)
`

type harness struct {
	t   *testing.T
	db  string
	dir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, k := range []string{"STORE_BACKEND", "SQLITE_PATH", "SUBBOOK_PREFIX", "MAX_PATH_DEPTH", "MAX_PATHS", "LOG_LEVEL", "LOG_FORMAT"} {
		os.Unsetenv(k)
	}
	dir := t.TempDir()
	return &harness{t: t, db: filepath.Join(dir, "graphs.db"), dir: dir}
}

func (h *harness) file(name, content string) string {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		h.t.Fatal(err)
	}
	return path
}

// run executes one command and returns its stdout.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	cli := CLI{Globals: Globals{out: &out, errOut: &errOut}}
	parser, err := newParser(&cli)
	if err != nil {
		h.t.Fatalf("new parser: %v", err)
	}
	ctx, err := parser.Parse(append([]string{"--sqlite-path", h.db}, args...))
	if err != nil {
		return "", err
	}
	err = ctx.Run(&cli.Globals)
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("%v: %v", args, err)
	}
	return out
}

func TestCLI_BuildQueryDelete(t *testing.T) {
	h := newHarness(t)
	cave := h.file("cave.md", caveStory)

	out := h.mustRun("build", cave, "--graph-id", "cave", "--title", "The Cave")
	if !strings.HasPrefix(out, "graph cave: 5 pages, 5 edges, 0 warnings") {
		t.Errorf("unexpected build output %q", out)
	}

	out = h.mustRun("build", cave)
	if !strings.Contains(out, "already stored as cave") {
		t.Errorf("expected duplicate notice, got %q", out)
	}

	out = h.mustRun("list")
	if !strings.Contains(out, "cave") || !strings.Contains(out, "The Cave") {
		t.Errorf("unexpected list output %q", out)
	}

	out = h.mustRun("paths", "cave", "--to", "EndPage")
	if out != "5 -> 2 -> 3 -> 4\n1 paths\n" {
		t.Errorf("unexpected paths output %q", out)
	}

	out = h.mustRun("report", "cave")
	if !strings.HasPrefix(out, "# The Cave\n") {
		t.Errorf("unexpected report %q", out)
	}
	out = h.mustRun("report", "cave", "--html")
	if !strings.Contains(out, "<h1>The Cave</h1>") {
		t.Errorf("unexpected html report %q", out)
	}

	if out = h.mustRun("delete", "cave"); out != "deleted cave\n" {
		t.Errorf("unexpected delete output %q", out)
	}
	if _, err := h.run("delete", "cave"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestCLI_LabelsAndInspect(t *testing.T) {
	h := newHarness(t)
	cave := h.file("cave.md", caveStory)

	out := h.mustRun("labels", cave)
	if out != "1\t1\n2\t2\n3\t3\n4\t4\n5\tG1\n" {
		t.Errorf("unexpected labels %q", out)
	}

	out = h.mustRun("inspect", cave, "--page", "5")
	for _, want := range []string{`"label": "G1"`, `"SubBook"`, `"destination": "p2"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected inspect output to contain %s\n%s", want, out)
		}
	}

	if _, err := h.run("inspect", cave, "--page", "9"); err == nil {
		t.Error("expected out of range error")
	}
}

func TestCLI_BadInput(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		args []string
	}{
		{"unknown tag", []string{"paths", "cave", "--from", "Dragon"}},
		{"missing graph", []string{"report", "nope"}},
		{"bad backend", []string{"--backend", "neo4j", "list"}},
		{"missing file", []string{"build", filepath.Join(h.dir, "missing.md")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.run(tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
