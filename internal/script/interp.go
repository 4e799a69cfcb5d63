package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultMaxSteps bounds runaway scripts. Lesson programs are tiny; the
// limit exists so an accidental `while true` cannot wedge a run that has no
// suspension point to cancel at.
const DefaultMaxSteps = 2_000_000

// ErrStopped is returned by Run when the execution context is cancelled or
// the input bridge reports a stop.
var ErrStopped = errors.New("script: run stopped")

// InputFunc supplies a line of input to a suspended script. Implementations
// block the interpreter goroutine (not the host) until a value is available.
// Returning an error aborts the run.
type InputFunc func(prompt string) (string, error)

// RuntimeError is a script runtime failure. The message always carries the
// source line in "line N:" form so hosts can extract it for highlighting.
type RuntimeError struct {
	Line int
	Msg  string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func errAt(line int, format string, args ...any) *RuntimeError {
	return &RuntimeError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// Control-flow signals travel as errors through the evaluator.
type returnSignal struct{ value any }
type breakSignal struct{}
type continueSignal struct{}

func (returnSignal) Error() string   { return "return outside function" }
func (breakSignal) Error() string    { return "break outside loop" }
func (continueSignal) Error() string { return "continue outside loop" }

// rangeValue is the iterable produced by range(a, b).
type rangeValue struct{ start, stop int64 }

// Interp executes a Step program tree. A zero-value Interp is not usable;
// construct with NewInterp.
type Interp struct {
	stdout   io.Writer
	stderr   io.Writer
	input    InputFunc
	maxSteps int

	ctx     context.Context
	steps   int
	globals map[string]any
	funcs   map[string]*FuncDecl
}

// NewInterp creates an interpreter writing program output to stdout and
// error text to stderr. input may be nil, in which case any reached
// read_line call fails the run.
func NewInterp(stdout, stderr io.Writer, input InputFunc) *Interp {
	return &Interp{
		stdout:   stdout,
		stderr:   stderr,
		input:    input,
		maxSteps: DefaultMaxSteps,
	}
}

// SetMaxSteps overrides the execution step budget.
func (in *Interp) SetMaxSteps(n int) { in.maxSteps = n }

// Run executes prog to completion. It returns ErrStopped on cancellation, a
// *RuntimeError on script failure, and nil on normal completion.
func (in *Interp) Run(ctx context.Context, prog *Program) error {
	in.ctx = ctx
	in.steps = 0
	in.globals = make(map[string]any)
	in.funcs = make(map[string]*FuncDecl)

	err := in.execBlock(prog.Stmts, in.globals)
	switch err.(type) {
	case returnSignal, breakSignal, continueSignal:
		return errAt(0, "%s", err.Error())
	}
	return err
}

func (in *Interp) tick(line int) error {
	in.steps++
	if in.steps > in.maxSteps {
		return errAt(line, "execution step limit exceeded")
	}
	if in.steps%1024 == 0 && in.ctx.Err() != nil {
		return ErrStopped
	}
	return nil
}

func (in *Interp) execBlock(body []Stmt, env map[string]any) error {
	for _, stmt := range body {
		if err := in.execStmt(stmt, env); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interp) execStmt(stmt Stmt, env map[string]any) error {
	if err := in.tick(stmt.StartLine()); err != nil {
		return err
	}
	switch s := stmt.(type) {
	case *AssignStmt:
		val, err := in.eval(s.Value, env)
		if err != nil {
			return err
		}
		env[s.Name] = val
		return nil
	case *ExprStmt:
		_, err := in.eval(s.X, env)
		return err
	case *FuncDecl:
		in.funcs[s.Name] = s
		return nil
	case *IfStmt:
		return in.execIf(s, env)
	case *WhileStmt:
		return in.execWhile(s, env)
	case *ForStmt:
		return in.execFor(s, env)
	case *ReturnStmt:
		var val any
		if s.Value != nil {
			v, err := in.eval(s.Value, env)
			if err != nil {
				return err
			}
			val = v
		}
		return returnSignal{value: val}
	case *BreakStmt:
		return breakSignal{}
	case *ContinueStmt:
		return continueSignal{}
	}
	return errAt(stmt.StartLine(), "unsupported statement")
}

func (in *Interp) execIf(s *IfStmt, env map[string]any) error {
	take, err := in.evalCond(s.Cond, env)
	if err != nil {
		return err
	}
	if take {
		return in.execBlock(s.Then, env)
	}
	for _, elif := range s.Elifs {
		take, err := in.evalCond(elif.Cond, env)
		if err != nil {
			return err
		}
		if take {
			return in.execBlock(elif.Body, env)
		}
	}
	return in.execBlock(s.Else, env)
}

func (in *Interp) execWhile(s *WhileStmt, env map[string]any) error {
	for {
		take, err := in.evalCond(s.Cond, env)
		if err != nil {
			return err
		}
		if !take {
			return nil
		}
		if err := in.runLoopBody(s.Body, env); err != nil {
			if _, isBreak := err.(breakSignal); isBreak {
				return nil
			}
			return err
		}
	}
}

func (in *Interp) execFor(s *ForStmt, env map[string]any) error {
	iter, err := in.eval(s.Iter, env)
	if err != nil {
		return err
	}
	step := func(val any) error {
		env[s.Var] = val
		return in.runLoopBody(s.Body, env)
	}
	switch it := iter.(type) {
	case rangeValue:
		for i := it.start; i < it.stop; i++ {
			if err := step(i); err != nil {
				if _, isBreak := err.(breakSignal); isBreak {
					return nil
				}
				return err
			}
		}
		return nil
	case string:
		for _, r := range it {
			if err := step(string(r)); err != nil {
				if _, isBreak := err.(breakSignal); isBreak {
					return nil
				}
				return err
			}
		}
		return nil
	}
	return errAt(s.StartLine(), "cannot iterate over %s", typeName(iter))
}

// runLoopBody executes one loop iteration, absorbing continue.
func (in *Interp) runLoopBody(body []Stmt, env map[string]any) error {
	err := in.execBlock(body, env)
	if _, isContinue := err.(continueSignal); isContinue {
		return nil
	}
	return err
}

func (in *Interp) evalCond(expr Expr, env map[string]any) (bool, error) {
	val, err := in.eval(expr, env)
	if err != nil {
		return false, err
	}
	b, ok := val.(bool)
	if !ok {
		return false, errAt(expr.StartLine(), "condition must be a boolean, got %s", typeName(val))
	}
	return b, nil
}

func (in *Interp) eval(expr Expr, env map[string]any) (any, error) {
	if err := in.tick(expr.StartLine()); err != nil {
		return nil, err
	}
	switch e := expr.(type) {
	case *IntLit:
		return e.Value, nil
	case *FloatLit:
		return e.Value, nil
	case *StringLit:
		return e.Value, nil
	case *BoolLit:
		return e.Value, nil
	case *NilLit:
		return nil, nil
	case *Ident:
		if val, ok := env[e.Name]; ok {
			return val, nil
		}
		if val, ok := in.globals[e.Name]; ok {
			return val, nil
		}
		return nil, errAt(e.Line, "name %q is not defined", e.Name)
	case *UnaryExpr:
		return in.evalUnary(e, env)
	case *BinaryExpr:
		return in.evalBinary(e, env)
	case *CallExpr:
		return in.evalCall(e, env)
	}
	return nil, errAt(expr.StartLine(), "unsupported expression")
}

func (in *Interp) evalUnary(e *UnaryExpr, env map[string]any) (any, error) {
	val, err := in.eval(e.X, env)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "-":
		switch v := val.(type) {
		case int64:
			return -v, nil
		case float64:
			return -v, nil
		}
		return nil, errAt(e.Line, "cannot negate %s", typeName(val))
	case "not":
		b, ok := val.(bool)
		if !ok {
			return nil, errAt(e.Line, "not requires a boolean, got %s", typeName(val))
		}
		return !b, nil
	}
	return nil, errAt(e.Line, "unknown operator %q", e.Op)
}

func (in *Interp) evalBinary(e *BinaryExpr, env map[string]any) (any, error) {
	// and/or short-circuit.
	if e.Op == "and" || e.Op == "or" {
		lhs, err := in.evalCond(e.LHS, env)
		if err != nil {
			return nil, err
		}
		if (e.Op == "and" && !lhs) || (e.Op == "or" && lhs) {
			return lhs, nil
		}
		return in.evalCond(e.RHS, env)
	}

	lhs, err := in.eval(e.LHS, env)
	if err != nil {
		return nil, err
	}
	rhs, err := in.eval(e.RHS, env)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case "==":
		return valuesEqual(lhs, rhs), nil
	case "!=":
		return !valuesEqual(lhs, rhs), nil
	}

	// String concatenation: either operand a string makes + concatenate.
	if e.Op == "+" {
		if _, ok := lhs.(string); ok {
			return lhs.(string) + FormatValue(rhs), nil
		}
		if _, ok := rhs.(string); ok {
			return FormatValue(lhs) + rhs.(string), nil
		}
	}

	// String ordering.
	ls, lok := lhs.(string)
	rs, rok := rhs.(string)
	if lok && rok {
		switch e.Op {
		case "<":
			return ls < rs, nil
		case "<=":
			return ls <= rs, nil
		case ">":
			return ls > rs, nil
		case ">=":
			return ls >= rs, nil
		}
		return nil, errAt(e.Line, "operator %q not defined for strings", e.Op)
	}

	return in.evalNumericOp(e, lhs, rhs)
}

func (in *Interp) evalNumericOp(e *BinaryExpr, lhs, rhs any) (any, error) {
	li, lInt := lhs.(int64)
	ri, rInt := rhs.(int64)

	// Pure integer arithmetic stays integral, except division.
	if lInt && rInt && e.Op != "/" {
		switch e.Op {
		case "+":
			return li + ri, nil
		case "-":
			return li - ri, nil
		case "*":
			return li * ri, nil
		case "%":
			if ri == 0 {
				return nil, errAt(e.Line, "modulo by zero")
			}
			return li % ri, nil
		case "<":
			return li < ri, nil
		case "<=":
			return li <= ri, nil
		case ">":
			return li > ri, nil
		case ">=":
			return li >= ri, nil
		}
	}

	lf, lok := toFloat(lhs)
	rf, rok := toFloat(rhs)
	if !lok || !rok {
		return nil, errAt(e.Line, "operator %q not defined for %s and %s", e.Op, typeName(lhs), typeName(rhs))
	}
	switch e.Op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, errAt(e.Line, "division by zero")
		}
		return lf / rf, nil
	case "%":
		return nil, errAt(e.Line, "modulo requires integers")
	case "<":
		return lf < rf, nil
	case "<=":
		return lf <= rf, nil
	case ">":
		return lf > rf, nil
	case ">=":
		return lf >= rf, nil
	}
	return nil, errAt(e.Line, "unknown operator %q", e.Op)
}

func (in *Interp) evalCall(e *CallExpr, env map[string]any) (any, error) {
	args := make([]any, len(e.Args))
	for i, argExpr := range e.Args {
		val, err := in.eval(argExpr, env)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}

	switch e.Func {
	case "print":
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = FormatValue(a)
		}
		fmt.Fprintln(in.stdout, strings.Join(parts, " "))
		return nil, nil
	case InputBuiltin:
		// Reached only when the suspension transform did not run; there is
		// no way to block for input here.
		return nil, errAt(e.Line, "input is not available outside an interactive run")
	case BridgeBuiltin:
		return in.callBridge(e, args)
	case "len":
		if len(args) != 1 {
			return nil, errAt(e.Line, "len takes exactly one argument")
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, errAt(e.Line, "len requires a string, got %s", typeName(args[0]))
		}
		return int64(len([]rune(s))), nil
	case "str":
		if len(args) != 1 {
			return nil, errAt(e.Line, "str takes exactly one argument")
		}
		return FormatValue(args[0]), nil
	case "int":
		return in.callInt(e, args)
	case "range":
		return in.callRange(e, args)
	}

	fn, ok := in.funcs[e.Func]
	if !ok {
		return nil, errAt(e.Line, "function %q is not defined", e.Func)
	}
	if len(args) != len(fn.Params) {
		return nil, errAt(e.Line, "%s expects %d argument(s), got %d", fn.Name, len(fn.Params), len(args))
	}
	local := make(map[string]any, len(fn.Params))
	for i, param := range fn.Params {
		local[param] = args[i]
	}
	err := in.execBlock(fn.Body, local)
	switch err.(type) {
	case returnSignal:
		return err.(returnSignal).value, nil
	case breakSignal, continueSignal:
		// Loop signals never cross a call boundary.
		return nil, errAt(e.Line, "%s", err.Error())
	}
	if err != nil {
		return nil, err
	}
	return nil, nil
}

func (in *Interp) callBridge(e *CallExpr, args []any) (any, error) {
	if in.input == nil {
		return nil, errAt(e.Line, "no input source attached to this run")
	}
	prompt := ""
	if len(args) > 0 {
		prompt = FormatValue(args[0])
	}
	line, err := in.input(prompt)
	if err != nil {
		return nil, ErrStopped
	}
	return line, nil
}

func (in *Interp) callInt(e *CallExpr, args []any) (any, error) {
	if len(args) != 1 {
		return nil, errAt(e.Line, "int takes exactly one argument")
	}
	switch v := args[0].(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, errAt(e.Line, "cannot convert %q to an integer", v)
		}
		return n, nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return nil, errAt(e.Line, "cannot convert %s to an integer", typeName(args[0]))
}

func (in *Interp) callRange(e *CallExpr, args []any) (any, error) {
	toInt := func(v any) (int64, bool) {
		n, ok := v.(int64)
		return n, ok
	}
	switch len(args) {
	case 1:
		stop, ok := toInt(args[0])
		if !ok {
			return nil, errAt(e.Line, "range requires integer bounds")
		}
		return rangeValue{start: 0, stop: stop}, nil
	case 2:
		start, ok1 := toInt(args[0])
		stop, ok2 := toInt(args[1])
		if !ok1 || !ok2 {
			return nil, errAt(e.Line, "range requires integer bounds")
		}
		return rangeValue{start: start, stop: stop}, nil
	}
	return nil, errAt(e.Line, "range takes one or two arguments")
}

// FormatValue renders a Step value the way print displays it.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return val
	}
	return fmt.Sprintf("%v", v)
}

func valuesEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case bool:
		return "a boolean"
	case int64:
		return "an integer"
	case float64:
		return "a number"
	case string:
		return "a string"
	case rangeValue:
		return "a range"
	}
	return "an unknown value"
}
