package script

// The suspension transform rewrites a program so calls that would block for
// terminal input suspend the interpreter task instead. `input(...)` becomes
// `await read_line(...)`, any function that transitively reaches an input
// call becomes `async fun`, and every call site of such a function is
// wrapped in `await` — including bare expression statements, whose discarded
// result would otherwise skip the suspension point.

// InputBuiltin is the blocking-style input primitive learners write.
const InputBuiltin = "input"

// BridgeBuiltin is the asynchronous substitute the transform rewrites
// input calls into.
const BridgeBuiltin = "read_line"

// Rewrite parses src, applies the suspension transform and regenerates
// source text. It is the transform's source-to-source form for hosts that
// exchange plain text; in-process hosts transform the parsed tree instead
// so node positions keep referring to the original layout.
func Rewrite(src string) (string, error) {
	prog, err := Parse(src)
	if err != nil {
		return "", err
	}
	Transform(prog)
	return Print(prog), nil
}

// Transform applies the suspension transform in place and reports the set
// of function names that were marked async.
func Transform(prog *Program) map[string]bool {
	// Phase 1: rewrite input() into await read_line().
	walkCalls(prog.Stmts, func(call *CallExpr) {
		if call.Func == InputBuiltin {
			call.Func = BridgeBuiltin
			call.Await = true
		}
	})

	// Phase 2: fixed-point closure over suspending function names. A single
	// top-down pass would miss forward references and mutual recursion, so
	// repeat until no new function is marked.
	suspending := map[string]bool{BridgeBuiltin: true}
	for {
		added := false
		for _, stmt := range prog.Stmts {
			fn, ok := stmt.(*FuncDecl)
			if !ok || suspending[fn.Name] {
				continue
			}
			if callsAny(fn.Body, suspending) {
				suspending[fn.Name] = true
				fn.Async = true
				added = true
			}
		}
		if !added {
			break
		}
	}

	// Phase 3: await every call of a suspending function, wherever it
	// appears.
	walkCalls(prog.Stmts, func(call *CallExpr) {
		if suspending[call.Func] {
			call.Await = true
		}
	})

	delete(suspending, BridgeBuiltin)
	return suspending
}

// callsAny reports whether any call expression under body references a name
// in the set.
func callsAny(body []Stmt, names map[string]bool) bool {
	found := false
	walkCalls(body, func(call *CallExpr) {
		if names[call.Func] {
			found = true
		}
	})
	return found
}

// walkCalls visits every CallExpr in the statement tree, including calls
// nested in arguments.
func walkCalls(body []Stmt, visit func(*CallExpr)) {
	for _, stmt := range body {
		walkCallsStmt(stmt, visit)
	}
}

func walkCallsStmt(stmt Stmt, visit func(*CallExpr)) {
	switch s := stmt.(type) {
	case *AssignStmt:
		walkCallsExpr(s.Value, visit)
	case *ExprStmt:
		walkCallsExpr(s.X, visit)
	case *IfStmt:
		walkCallsExpr(s.Cond, visit)
		walkCalls(s.Then, visit)
		for _, elif := range s.Elifs {
			walkCallsExpr(elif.Cond, visit)
			walkCalls(elif.Body, visit)
		}
		walkCalls(s.Else, visit)
	case *WhileStmt:
		walkCallsExpr(s.Cond, visit)
		walkCalls(s.Body, visit)
	case *ForStmt:
		walkCallsExpr(s.Iter, visit)
		walkCalls(s.Body, visit)
	case *FuncDecl:
		walkCalls(s.Body, visit)
	case *ReturnStmt:
		if s.Value != nil {
			walkCallsExpr(s.Value, visit)
		}
	}
}

func walkCallsExpr(expr Expr, visit func(*CallExpr)) {
	switch e := expr.(type) {
	case *BinaryExpr:
		walkCallsExpr(e.LHS, visit)
		walkCallsExpr(e.RHS, visit)
	case *UnaryExpr:
		walkCallsExpr(e.X, visit)
	case *CallExpr:
		for _, arg := range e.Args {
			walkCallsExpr(arg, visit)
		}
		visit(e)
	}
}
