package interp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wispweb/wisp/hostfunc"
)

func nop(ctx context.Context, args map[string]any) (any, error) {
	return nil, nil
}

func TestProgramBindDuplicate(t *testing.T) {
	p := &program{path: "/www/index.php"}

	if err := p.Bind("fn", nop); err != nil {
		t.Fatalf("first Bind failed: %v", err)
	}
	if err := p.Bind("fn", nop); err == nil {
		t.Error("expected error for duplicate bind")
	}
	if err := p.Bind("other", nop); err != nil {
		t.Errorf("bind after duplicate should still work: %v", err)
	}
}

func TestProgramRejectsEmptyIncludePath(t *testing.T) {
	p := &program{path: "/www/index.php"}
	if err := p.AddIncludePath(""); err == nil {
		t.Error("expected error for empty include path")
	}
}

func TestProgramReleasedIsDead(t *testing.T) {
	p := &program{path: "/www/index.php"}
	p.output.WriteString("stale")
	p.Release()

	if err := p.SetRequestHead([]byte("GET / HTTP/1.1\r\n\r\n")); err == nil {
		t.Error("SetRequestHead on released program should fail")
	}
	if err := p.EnableErrorReporting(); err == nil {
		t.Error("EnableErrorReporting on released program should fail")
	}
	if err := p.AddIncludePath("/www"); err == nil {
		t.Error("AddIncludePath on released program should fail")
	}
	if err := p.Bind("fn", nop); err == nil {
		t.Error("Bind on released program should fail")
	}
	if err := p.Execute(context.Background()); err == nil {
		t.Error("Execute on released program should fail")
	}
	if len(p.Output()) != 0 {
		t.Error("Release must reset the output buffer")
	}

	// Double release is a no-op.
	p.Release()
}

func TestProgramLookupFollowsBindOrder(t *testing.T) {
	p := &program{path: "/www/index.php"}

	var called string
	mk := func(name string) hostfunc.Func {
		return func(ctx context.Context, args map[string]any) (any, error) {
			called = name
			return nil, nil
		}
	}
	p.Bind("a", mk("a"))
	p.Bind("b", mk("b"))

	fn, ok := p.lookup("b")
	if !ok {
		t.Fatal("lookup failed")
	}
	fn(context.Background(), nil)
	if called != "b" {
		t.Errorf("wrong function dispatched: %s", called)
	}

	if _, ok := p.lookup("missing"); ok {
		t.Error("lookup of unbound name should fail")
	}
}

func TestRuntimeRequiresInterpreter(t *testing.T) {
	if _, err := New(context.Background(), nil); err == nil {
		t.Error("expected error for empty interpreter binary")
	}
}

func TestFailedRunStderrReachesSink(t *testing.T) {
	var got []string
	rt := &Runtime{}
	rt.SetDiagnosticSink(func(msg []byte) { got = append(got, string(msg)) })
	p := rt.newProgram("/www/index.php")

	router, _, cleanup := newTestRouter(t, p.lookup)
	defer cleanup()
	router.Write([]byte("PHP Warning: division by zero in index.php on line 3\n"))

	p.reportStderr(router, errors.New("script exited with status 255"))

	if len(got) != 1 || !strings.Contains(got[0], "division by zero") {
		t.Fatalf("expected stderr forwarded to sink, got %v", got)
	}
}

func TestCleanRunStderrSuppressedByDefault(t *testing.T) {
	var got []string
	rt := &Runtime{}
	rt.SetDiagnosticSink(func(msg []byte) { got = append(got, string(msg)) })
	p := rt.newProgram("/www/index.php")

	router, _, cleanup := newTestRouter(t, p.lookup)
	defer cleanup()
	router.Write([]byte("PHP Notice: deprecated call\n"))

	p.reportStderr(router, nil)

	if len(got) != 0 {
		t.Fatalf("clean run should not forward stderr, got %v", got)
	}
}

func TestStderrLoggingForwardsCleanRuns(t *testing.T) {
	var got []string
	rt := &Runtime{cfg: config{logStderr: true}}
	rt.SetDiagnosticSink(func(msg []byte) { got = append(got, string(msg)) })
	p := rt.newProgram("/www/index.php")

	router, _, cleanup := newTestRouter(t, p.lookup)
	defer cleanup()
	router.Write([]byte("PHP Notice: deprecated call\n"))

	p.reportStderr(router, nil)

	if len(got) != 1 {
		t.Fatalf("stderr logging should forward clean-run stderr, got %v", got)
	}
}
