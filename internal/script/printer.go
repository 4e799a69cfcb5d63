package script

import (
	"fmt"
	"strconv"
	"strings"
)

// Print regenerates canonical Step source from a program tree. The output
// re-parses to an identical tree, which the transform relies on: its result
// is handed back to the interpreter as plain source text.
func Print(prog *Program) string {
	var b strings.Builder
	for _, stmt := range prog.Stmts {
		printStmt(&b, stmt, 0)
	}
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	for range depth {
		b.WriteString("    ")
	}
}

func printStmt(b *strings.Builder, stmt Stmt, depth int) {
	indent(b, depth)
	switch s := stmt.(type) {
	case *AssignStmt:
		b.WriteString(s.Name)
		b.WriteString(" = ")
		printExpr(b, s.Value)
	case *ExprStmt:
		printExpr(b, s.X)
	case *IfStmt:
		b.WriteString("if ")
		printExpr(b, s.Cond)
		b.WriteString(" then\n")
		printBody(b, s.Then, depth+1)
		for _, elif := range s.Elifs {
			indent(b, depth)
			b.WriteString("elif ")
			printExpr(b, elif.Cond)
			b.WriteString(" then\n")
			printBody(b, elif.Body, depth+1)
		}
		if s.Else != nil {
			indent(b, depth)
			b.WriteString("else\n")
			printBody(b, s.Else, depth+1)
		}
		indent(b, depth)
		b.WriteString("end")
	case *WhileStmt:
		b.WriteString("while ")
		printExpr(b, s.Cond)
		b.WriteString(" do\n")
		printBody(b, s.Body, depth+1)
		indent(b, depth)
		b.WriteString("end")
	case *ForStmt:
		b.WriteString("for ")
		b.WriteString(s.Var)
		b.WriteString(" in ")
		printExpr(b, s.Iter)
		b.WriteString(" do\n")
		printBody(b, s.Body, depth+1)
		indent(b, depth)
		b.WriteString("end")
	case *FuncDecl:
		if s.Async {
			b.WriteString("async ")
		}
		b.WriteString("fun ")
		b.WriteString(s.Name)
		b.WriteString("(")
		b.WriteString(strings.Join(s.Params, ", "))
		b.WriteString(")\n")
		printBody(b, s.Body, depth+1)
		indent(b, depth)
		b.WriteString("end")
	case *ReturnStmt:
		b.WriteString("return")
		if s.Value != nil {
			b.WriteString(" ")
			printExpr(b, s.Value)
		}
	case *BreakStmt:
		b.WriteString("break")
	case *ContinueStmt:
		b.WriteString("continue")
	}
	b.WriteString("\n")
}

func printBody(b *strings.Builder, body []Stmt, depth int) {
	for _, stmt := range body {
		printStmt(b, stmt, depth)
	}
}

func printExpr(b *strings.Builder, expr Expr) {
	switch e := expr.(type) {
	case *Ident:
		b.WriteString(e.Name)
	case *IntLit:
		b.WriteString(strconv.FormatInt(e.Value, 10))
	case *FloatLit:
		b.WriteString(strconv.FormatFloat(e.Value, 'g', -1, 64))
	case *StringLit:
		b.WriteString(quoteString(e.Value))
	case *BoolLit:
		b.WriteString(strconv.FormatBool(e.Value))
	case *NilLit:
		b.WriteString("nil")
	case *BinaryExpr:
		printOperand(b, e.LHS)
		fmt.Fprintf(b, " %s ", e.Op)
		printOperand(b, e.RHS)
	case *UnaryExpr:
		b.WriteString(e.Op)
		if e.Op == "not" {
			b.WriteString(" ")
		}
		printOperand(b, e.X)
	case *CallExpr:
		if e.Await {
			b.WriteString("await ")
		}
		b.WriteString(e.Func)
		b.WriteString("(")
		for i, arg := range e.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			printExpr(b, arg)
		}
		b.WriteString(")")
	}
}

// printOperand parenthesizes nested non-primary expressions so operator
// precedence survives the round trip.
func printOperand(b *strings.Builder, expr Expr) {
	switch expr.(type) {
	case *BinaryExpr, *UnaryExpr:
		b.WriteString("(")
		printExpr(b, expr)
		b.WriteString(")")
	default:
		printExpr(b, expr)
	}
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteByte(s[i])
		}
	}
	b.WriteByte('"')
	return b.String()
}
