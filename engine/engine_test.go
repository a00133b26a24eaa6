package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/wispweb/wisp/hostfunc"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, "/var/www/html", "/admin"); err == nil {
		t.Error("expected error for nil runtime")
	}
	if _, err := New(NewFakeRuntime(), "", "/admin"); err == nil {
		t.Error("expected error for empty web root")
	}
}

func TestIncludePathsComputedOnce(t *testing.T) {
	eng, err := New(NewFakeRuntime(), "/var/www/html", "/admin")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	paths := eng.IncludePaths()
	if len(paths) != 2 {
		t.Fatalf("expected 2 include paths, got %d", len(paths))
	}
	if paths[0] != "/var/www/html/admin" {
		t.Errorf("app root: expected /var/www/html/admin, got %s", paths[0])
	}
	if paths[1] != "/var/www/html/admin/scripts/lib" {
		t.Errorf("script lib: expected /var/www/html/admin/scripts/lib, got %s", paths[1])
	}
}

func TestScriptLibOverride(t *testing.T) {
	eng, err := New(NewFakeRuntime(), "/srv/www", "", WithScriptLib("vendor/php"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	paths := eng.IncludePaths()
	if paths[0] != "/srv/www" {
		t.Errorf("expected /srv/www, got %s", paths[0])
	}
	if paths[1] != "/srv/www/vendor/php" {
		t.Errorf("expected /srv/www/vendor/php, got %s", paths[1])
	}
}

func TestDiagnosticSinkStripsOneTrailingNewline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing newline", "parse error\n", "parse error"},
		{"no newline", "parse error", "parse error"},
		{"two newlines strips one", "parse error\n\n", "parse error\\n"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			rt := NewFakeRuntime()
			_, err := New(rt, "/www", "", WithLogger(testLogger(&buf)))
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			rt.sink([]byte(tt.in))

			line := buf.String()
			if !strings.Contains(line, "interpreter error") {
				t.Fatalf("expected interpreter error tag, got %q", line)
			}
			if !strings.Contains(line, "detail="+quoteIfNeeded(tt.want)) {
				t.Errorf("expected detail %q in %q", tt.want, line)
			}
		})
	}
}

// quoteIfNeeded mirrors slog's TextHandler quoting of values with spaces.
func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \\") {
		return `"` + s + `"`
	}
	return s
}

func TestCompileReleasesPartialProgram(t *testing.T) {
	rt := NewFakeRuntime()
	rt.AddScript("/www/bad.php", FakeScript{
		CompileErr: &CompileError{Code: 7},
		CompileLog: "syntax error on line 3",
	})

	eng, err := New(rt, "/www", "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	prog, err := eng.Compile(context.Background(), "/www/bad.php")
	if prog != nil {
		t.Error("expected nil program on compile error")
	}
	var ce *CompileError
	if !errors.As(err, &ce) || ce.Code != 7 {
		t.Fatalf("expected CompileError code 7, got %v", err)
	}

	if rt.Created() != 1 || rt.Released() != 1 {
		t.Errorf("partial program not released: created=%d released=%d", rt.Created(), rt.Released())
	}
	if eng.ErrorLog() != "syntax error on line 3" {
		t.Errorf("unexpected error log %q", eng.ErrorLog())
	}
}

func TestCompileMissingScriptAllocatesNothing(t *testing.T) {
	rt := NewFakeRuntime()
	eng, _ := New(rt, "/www", "")

	_, err := eng.Compile(context.Background(), "/www/missing.php")
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if rt.Created() != 0 {
		t.Errorf("expected no program allocated, got %d", rt.Created())
	}
}

func TestPrepareOrderAndContent(t *testing.T) {
	rt := NewFakeRuntime()
	rt.AddScript("/www/index.php", FakeScript{Output: "OK"})

	table := hostfunc.NewTable()
	table.Register("first", func(ctx context.Context, args map[string]any) (any, error) { return nil, nil })
	table.Register("second", func(ctx context.Context, args map[string]any) (any, error) { return nil, nil })

	eng, err := New(rt, "/www", "/admin", WithTable(table))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	prog, err := eng.Compile(context.Background(), "/www/index.php")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	defer prog.Release()

	head := []byte("GET /index.php HTTP/1.1\r\n\r\n")
	eng.Prepare(prog, head)

	fp := rt.LastProgram()
	if !bytes.Equal(fp.Head, head) {
		t.Errorf("request head not injected verbatim")
	}
	if !fp.ErrReporting {
		t.Error("error reporting not enabled")
	}
	if len(fp.Includes) != 2 || fp.Includes[0] != "/www/admin" || fp.Includes[1] != "/www/admin/scripts/lib" {
		t.Errorf("include paths wrong or out of order: %v", fp.Includes)
	}
	if len(fp.Bound) != 2 || fp.Bound[0] != "first" || fp.Bound[1] != "second" {
		t.Errorf("host functions wrong or out of order: %v", fp.Bound)
	}
}

func TestPrepareBindFailureNonFatal(t *testing.T) {
	rt := NewFakeRuntime()
	rt.AddScript("/www/index.php", FakeScript{
		Output:   "OK",
		BindErrs: map[string]error{"broken": errors.New("no slot")},
	})

	table := hostfunc.NewTable()
	nop := func(ctx context.Context, args map[string]any) (any, error) { return nil, nil }
	table.Register("good", nop)
	table.Register("broken", nop)
	table.Register("after", nop)

	var buf bytes.Buffer
	eng, _ := New(rt, "/www", "", WithTable(table), WithLogger(testLogger(&buf)))

	prog, err := eng.Compile(context.Background(), "/www/index.php")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	defer prog.Release()
	eng.Prepare(prog, nil)

	fp := rt.LastProgram()
	if len(fp.Bound) != 2 || fp.Bound[0] != "good" || fp.Bound[1] != "after" {
		t.Errorf("registration should continue past failures, bound: %v", fp.Bound)
	}
	if !strings.Contains(buf.String(), "broken") {
		t.Error("bind failure should be logged by function name")
	}
}

func TestCloseClosesRuntime(t *testing.T) {
	rt := NewFakeRuntime()
	eng, _ := New(rt, "/www", "")

	if err := eng.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !rt.Closed() {
		t.Error("runtime not closed")
	}
}
