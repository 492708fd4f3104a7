// Package assembler renders the structured query vocabulary (table,
// columns, values, where, group, order, limit) into a backend-specific
// parameterized SQL statement. It performs no I/O: Assemble is a pure
// function of its arguments and the supplied Dialect.
package assembler

import (
	"fmt"
	"strconv"
	"strings"
)

// PlaceholderStyle selects how positional parameters are rendered.
type PlaceholderStyle int

const (
	// Question renders placeholders as a bare '?' in textual order.
	Question PlaceholderStyle = iota
	// Dollar renders placeholders as '$1', '$2', ... in append order.
	Dollar
)

// Dialect describes the SQL surface of one engine.
type Dialect struct {
	Name string

	Placeholder PlaceholderStyle

	// QuoteLeft/QuoteRight bound a quoted identifier, e.g. '"'/'"' or '`'/'`'.
	QuoteLeft, QuoteRight byte

	// NeedsQuoting reports whether a plain identifier requires quoting
	// (contains non-alphanumeric characters, or is a reserved word).
	NeedsQuoting func(name string) bool

	// SupportsReturning indicates INSERT ... RETURNING <pk> is available.
	SupportsReturning bool

	// SupportsBareOffset indicates "OFFSET m" is legal without a LIMIT
	// clause. When false, the assembler emits "LIMIT -1 OFFSET m" instead.
	SupportsBareOffset bool
}

// Quote returns name quoted per the dialect, idempotently: an
// already-quoted name is returned unchanged.
func Quote(d Dialect, name string) string {
	if name == "" {
		return name
	}
	if len(name) >= 2 && name[0] == d.QuoteLeft && name[len(name)-1] == d.QuoteRight {
		return name
	}
	var b strings.Builder
	b.WriteByte(d.QuoteLeft)
	b.WriteString(name)
	b.WriteByte(d.QuoteRight)
	return b.String()
}

// Op is the kind of statement to assemble.
type Op int

const (
	OpSelect Op = iota
	OpInsert
	OpUpdate
	OpDelete
)

// Pair is an ordered column/value entry, used both for Values (INSERT/
// UPDATE) and equality clauses normalized from caller kwargs.
type Pair struct {
	Column string
	Value  any
}

// Values is an ordered sequence of column/value pairs.
type Values []Pair

// OrderTerm is one ORDER BY element.
type OrderTerm struct {
	Name string
	Desc bool
}

// LimitArgs carries the LIMIT/OFFSET pair. A field with Has* false means
// "unbounded / omit this clause", per spec: negative or absent.
type LimitArgs struct {
	HasCount bool
	Count    int
	HasOffset bool
	Offset   int
}

// Clause is one WHERE predicate. Concrete clauses are EqClause, OpClause,
// InClause, RawClause and ExprClause; any other implementation is
// rejected by Assemble with a BadArgument-shaped error.
type Clause interface{ isClause() }

// EqClause renders "col = ?", or "col IS NULL" when Value is nil.
type EqClause struct {
	Column string
	Value  any
}

func (EqClause) isClause() {}

// OpClause renders "col <op> ?" for a comparison operator, or
// "col IS [NOT] NULL" when Operator is IS/IS NOT and Operand is nil.
type OpClause struct {
	Column   string
	Operator string
	Operand  any
}

func (OpClause) isClause() {}

// InClause renders "col IN (?, ?, ...)" or "col NOT IN (...)". An empty
// Values slice renders the documented tautology form: "col IN (NULL)" /
// "col NOT IN (NULL)" rather than an empty parameter list.
type InClause struct {
	Column string
	Values []any
	Not    bool
}

func (InClause) isClause() {}

// RawClause splices raw SQL containing the dialect's own '?' markers
// verbatim, unwrapped, with its parameters appended in order. Used for
// caller-supplied "(raw_sql, params)" clauses.
type RawClause struct {
	SQL    string
	Params []any
}

func (RawClause) isClause() {}

// ExprClause is like RawClause but wrapped in parentheses, corresponding
// to the ("EXPR", (raw_sql, params)) clause form.
type ExprClause struct {
	SQL    string
	Params []any
}

func (ExprClause) isClause() {}

// Args bundles the structured vocabulary for one statement. Fields are
// pre-normalized and pre-quoted by the caller (Queryable boundary and
// object binder): the assembler never decides whether an identifier
// needs quoting, it only renders what it is given.
type Args struct {
	Table   string
	Columns []string // SELECT projection, or INSERT column list
	Values  Values   // INSERT values, or UPDATE SET assignments
	Where   []Clause
	Group   []string
	Order   []OrderTerm
	Limit   *LimitArgs

	// PrimaryKey, when non-empty and the dialect supports RETURNING, is
	// appended as "RETURNING <pk>" on INSERT.
	PrimaryKey string

	// Casts maps a column name to its declared SQL type; when the
	// dialect uses Dollar placeholders and a column in Values or a
	// simple equality/comparison WHERE clause has an entry here, its
	// placeholder is rendered "$N::<type>" so the server coerces the
	// adapted value.
	Casts map[string]string
}

// Error is returned for structural violations caught before any I/O:
// empty VALUES for INSERT/UPDATE, an unknown WHERE operator, an ORDER BY
// term with an empty name, an unsupported Clause implementation, an
// unknown Op.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return "assembler: " + e.Msg }

func badArg(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

type builder struct {
	d      Dialect
	out    strings.Builder
	params []any
}

func (b *builder) placeholder(column string, casts map[string]string) string {
	switch b.d.Placeholder {
	case Dollar:
		n := len(b.params) + 1
		if t, ok := casts[column]; ok && t != "" {
			return "$" + strconv.Itoa(n) + "::" + t
		}
		return "$" + strconv.Itoa(n)
	default:
		return "?"
	}
}

func (b *builder) bind(column string, value any, casts map[string]string) {
	ph := b.placeholder(column, casts)
	b.params = append(b.params, value)
	b.out.WriteString(ph)
}

// Assemble renders op against args for dialect d. schemaPrefix, when
// non-empty, is prepended to an unqualified Args.Table as "<prefix>.".
func Assemble(op Op, d Dialect, schemaPrefix string, args Args) (string, []any, error) {
	b := &builder{d: d}

	table := args.Table
	if schemaPrefix != "" && !strings.Contains(table, ".") {
		table = schemaPrefix + "." + table
	}

	switch op {
	case OpSelect:
		return assembleSelect(b, table, args)
	case OpInsert:
		return assembleInsert(b, table, args)
	case OpUpdate:
		return assembleUpdate(b, table, args)
	case OpDelete:
		return assembleDelete(b, table, args)
	default:
		return "", nil, badArg("unknown op %d", op)
	}
}

func assembleSelect(b *builder, table string, args Args) (string, []any, error) {
	cols := "*"
	if len(args.Columns) > 0 {
		cols = strings.Join(args.Columns, ", ")
	}
	b.out.WriteString("SELECT ")
	b.out.WriteString(cols)
	b.out.WriteString(" FROM ")
	b.out.WriteString(table)

	where, err := renderWhere(b, args.Where, args.Casts)
	if err != nil {
		return "", nil, err
	}
	b.out.WriteString(where)

	if len(args.Group) > 0 {
		b.out.WriteString(" GROUP BY ")
		b.out.WriteString(strings.Join(args.Group, ", "))
	}

	orderSQL, err := renderOrder(args.Order)
	if err != nil {
		return "", nil, err
	}
	b.out.WriteString(orderSQL)

	limitSQL, err := renderLimit(b.d, args.Limit)
	if err != nil {
		return "", nil, err
	}
	b.out.WriteString(limitSQL)

	return b.out.String(), b.params, nil
}

func assembleInsert(b *builder, table string, args Args) (string, []any, error) {
	if len(args.Values) == 0 {
		return "", nil, badArg("INSERT requires a non-empty VALUES")
	}

	cols := make([]string, len(args.Values))
	placeholders := make([]string, len(args.Values))
	for i, p := range args.Values {
		cols[i] = p.Column
	}
	b.out.WriteString("INSERT INTO ")
	b.out.WriteString(table)
	b.out.WriteString(" (")
	b.out.WriteString(strings.Join(cols, ", "))
	b.out.WriteString(") VALUES (")
	for i, p := range args.Values {
		ph := b.placeholder(p.Column, args.Casts)
		placeholders[i] = ph
		b.params = append(b.params, p.Value)
	}
	b.out.WriteString(strings.Join(placeholders, ", "))
	b.out.WriteString(")")

	if args.PrimaryKey != "" && b.d.SupportsReturning {
		b.out.WriteString(" RETURNING ")
		b.out.WriteString(args.PrimaryKey)
	}

	return b.out.String(), b.params, nil
}

func assembleUpdate(b *builder, table string, args Args) (string, []any, error) {
	if len(args.Values) == 0 {
		return "", nil, badArg("UPDATE requires a non-empty VALUES")
	}

	b.out.WriteString("UPDATE ")
	b.out.WriteString(table)
	b.out.WriteString(" SET ")
	for i, p := range args.Values {
		if i > 0 {
			b.out.WriteString(", ")
		}
		b.out.WriteString(p.Column)
		b.out.WriteString(" = ")
		b.bind(p.Column, p.Value, args.Casts)
	}

	where, err := renderWhere(b, args.Where, args.Casts)
	if err != nil {
		return "", nil, err
	}
	b.out.WriteString(where)

	return b.out.String(), b.params, nil
}

func assembleDelete(b *builder, table string, args Args) (string, []any, error) {
	b.out.WriteString("DELETE FROM ")
	b.out.WriteString(table)

	where, err := renderWhere(b, args.Where, args.Casts)
	if err != nil {
		return "", nil, err
	}
	b.out.WriteString(where)

	return b.out.String(), b.params, nil
}

func renderWhere(b *builder, clauses []Clause, casts map[string]string) (string, error) {
	if len(clauses) == 0 {
		return "", nil
	}
	var parts []string
	for _, c := range clauses {
		part, err := renderClause(b, c, casts)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

func renderClause(b *builder, c Clause, casts map[string]string) (string, error) {
	switch v := c.(type) {
	case EqClause:
		if v.Value == nil {
			return v.Column + " IS NULL", nil
		}
		start := len(b.params)
		ph := b.placeholder(v.Column, casts)
		b.params = append(b.params, v.Value)
		_ = start
		return v.Column + " = " + ph, nil

	case OpClause:
		op := strings.ToUpper(strings.TrimSpace(v.Operator))
		switch op {
		case "<", "<=", ">", ">=", "=", "!=", "<>", "LIKE", "ILIKE":
			ph := b.placeholder(v.Column, casts)
			b.params = append(b.params, v.Operand)
			return v.Column + " " + v.Operator + " " + ph, nil
		case "IS":
			if v.Operand == nil {
				return v.Column + " IS NULL", nil
			}
			ph := b.placeholder(v.Column, casts)
			b.params = append(b.params, v.Operand)
			return v.Column + " IS " + ph, nil
		case "IS NOT":
			if v.Operand == nil {
				return v.Column + " IS NOT NULL", nil
			}
			ph := b.placeholder(v.Column, casts)
			b.params = append(b.params, v.Operand)
			return v.Column + " IS NOT " + ph, nil
		default:
			return "", badArg("unknown WHERE operator %q", v.Operator)
		}

	case InClause:
		kw := "IN"
		if v.Not {
			kw = "NOT IN"
		}
		if len(v.Values) == 0 {
			return v.Column + " " + kw + " (NULL)", nil
		}
		placeholders := make([]string, len(v.Values))
		for i, val := range v.Values {
			placeholders[i] = b.placeholder(v.Column, casts)
			b.params = append(b.params, val)
		}
		return v.Column + " " + kw + " (" + strings.Join(placeholders, ", ") + ")", nil

	case RawClause:
		b.params = append(b.params, v.Params...)
		return v.SQL, nil

	case ExprClause:
		b.params = append(b.params, v.Params...)
		return "(" + v.SQL + ")", nil

	default:
		return "", badArg("unsupported WHERE clause type %T", c)
	}
}

func renderOrder(order []OrderTerm) (string, error) {
	if len(order) == 0 {
		return "", nil
	}
	parts := make([]string, len(order))
	for i, t := range order {
		if t.Name == "" {
			return "", badArg("ORDER BY term %d has an empty column name", i)
		}
		dir := "ASC"
		if t.Desc {
			dir = "DESC"
		}
		parts[i] = t.Name + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func renderLimit(d Dialect, l *LimitArgs) (string, error) {
	if l == nil {
		return "", nil
	}
	switch {
	case l.HasCount && l.HasOffset:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", l.Count, l.Offset), nil
	case l.HasCount:
		return fmt.Sprintf(" LIMIT %d", l.Count), nil
	case l.HasOffset:
		if d.SupportsBareOffset {
			return fmt.Sprintf(" OFFSET %d", l.Offset), nil
		}
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", l.Offset), nil
	default:
		return "", nil
	}
}

// CountPlaceholders returns the number of positional placeholders that
// would appear in sql, counting both '?' and '$N' forms. Exposed for the
// "placeholder count matches parameter count" testable property.
func CountPlaceholders(sql string) int {
	n := 0
	inQuote := byte(0)
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if inQuote != 0 {
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			inQuote = c
		case '?':
			n++
		case '$':
			j := i + 1
			for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
				j++
			}
			if j > i+1 {
				n++
				i = j - 1
			}
		}
	}
	return n
}
