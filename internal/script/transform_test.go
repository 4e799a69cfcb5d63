package script

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return prog
}

func TestTransform_NoInputIsNoOp(t *testing.T) {
	src := `fun square(n)
    return n * n
end
print(square(6))
`
	prog := mustParse(t, src)
	async := Transform(prog)

	if len(async) != 0 {
		t.Errorf("marked %v async, want none", async)
	}
	if got := Print(prog); got != src {
		t.Errorf("transform changed an input-free program:\n%s", got)
	}
}

func TestTransform_DirectInputCall(t *testing.T) {
	prog := mustParse(t, "name = input(\"Your name: \")\nprint(name)\n")
	Transform(prog)

	out := Print(prog)
	if !strings.Contains(out, `await read_line("Your name: ")`) {
		t.Errorf("input call not rewritten:\n%s", out)
	}
	if strings.Contains(out, "input(") {
		t.Errorf("original input call survived:\n%s", out)
	}
}

func TestTransform_TransitiveHelpers(t *testing.T) {
	src := `
fun ask()
    return input("? ")
end
fun greet()
    name = ask()
    print("Hi " + name)
end
greet()
`
	prog := mustParse(t, src)
	async := Transform(prog)

	if !async["ask"] || !async["greet"] {
		t.Fatalf("async set = %v, want ask and greet", async)
	}

	out := Print(prog)
	for _, want := range []string{
		"async fun ask()",
		"async fun greet()",
		"await read_line(",
		"name = await ask()",
		"await greet()",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// Forward references require the fixed-point pass: caller is defined before
// the helper that actually reads input.
func TestTransform_ForwardReference(t *testing.T) {
	src := `
fun outer()
    inner()
end
fun inner()
    input()
end
outer()
`
	prog := mustParse(t, src)
	async := Transform(prog)

	if !async["outer"] || !async["inner"] {
		t.Errorf("async set = %v, want outer and inner", async)
	}
	if !strings.Contains(Print(prog), "await outer()") {
		t.Errorf("top-level bare call not awaited:\n%s", Print(prog))
	}
}

func TestTransform_MutualRecursion(t *testing.T) {
	src := `
fun ping(n)
    if n > 0 then
        pong(n - 1)
    end
end
fun pong(n)
    input()
    ping(n)
end
ping(3)
`
	prog := mustParse(t, src)
	async := Transform(prog)

	if !async["ping"] || !async["pong"] {
		t.Errorf("async set = %v, want ping and pong", async)
	}
}

// A bare expression-statement call discards its result but must still be
// awaited to preserve the suspension point.
func TestTransform_BareCallStatementAwaited(t *testing.T) {
	src := `
fun pause()
    input("press enter")
end
pause()
`
	prog := mustParse(t, src)
	Transform(prog)

	stmt := prog.Stmts[1].(*ExprStmt)
	call := stmt.X.(*CallExpr)
	if !call.Await {
		t.Error("bare pause() statement not awaited")
	}
}

func TestTransform_InputNestedInArguments(t *testing.T) {
	prog := mustParse(t, "print(\"Hello \" + input())\n")
	Transform(prog)

	out := Print(prog)
	if !strings.Contains(out, "await read_line()") {
		t.Errorf("nested input call not rewritten:\n%s", out)
	}
}

func TestRewrite_FallsBackSignalledByError(t *testing.T) {
	if _, err := Rewrite("fun broken(\n"); err == nil {
		t.Error("Rewrite of unparseable source should return an error")
	}

	out, err := Rewrite("print(1)\n")
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if out != "print(1)\n" {
		t.Errorf("Rewrite changed an input-free program: %q", out)
	}
}
