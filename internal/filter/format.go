package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jeandet/tscat/internal/value"
)

// Format renders p in the text syntax accepted by Parse. A nil predicate
// renders as the empty string; an empty And renders as "true" and an empty
// Or as "false".
func Format(p Predicate) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	writePredicate(&b, p)
	return b.String()
}

func writePredicate(b *strings.Builder, p Predicate) {
	switch pred := p.(type) {
	case Compare:
		writeCompare(b, pred)
	case *Compare:
		writeCompare(b, *pred)
	case Member:
		writeMember(b, pred)
	case *Member:
		writeMember(b, *pred)
	case InSet:
		writeInSet(b, pred)
	case *InSet:
		writeInSet(b, *pred)
	case Has:
		fmt.Fprintf(b, "has(%s)", formatField(pred.Field))
	case *Has:
		fmt.Fprintf(b, "has(%s)", formatField(pred.Field))
	case Match:
		fmt.Fprintf(b, "%s ~ %s", formatField(pred.Field), quote(pred.Pattern))
	case *Match:
		fmt.Fprintf(b, "%s ~ %s", formatField(pred.Field), quote(pred.Pattern))
	case And:
		writeJunction(b, pred.Predicates, "and", "true")
	case *And:
		writeJunction(b, pred.Predicates, "and", "true")
	case Or:
		writeJunction(b, pred.Predicates, "or", "false")
	case *Or:
		writeJunction(b, pred.Predicates, "or", "false")
	case Negation:
		writeNegation(b, pred.Predicate)
	case *Negation:
		writeNegation(b, pred.Predicate)
	case nil:
		b.WriteString("true")
	default:
		fmt.Fprintf(b, "<%T>", p)
	}
}

func writeCompare(b *strings.Builder, c Compare) {
	fmt.Fprintf(b, "%s %s %s", formatField(c.Field), c.Op, formatLiteral(c.Value))
}

func writeMember(b *strings.Builder, m Member) {
	fmt.Fprintf(b, "%s in %s", formatLiteral(m.Value), formatField(m.Field))
}

func writeInSet(b *strings.Builder, in InSet) {
	lits := make([]string, len(in.Values))
	for i, v := range in.Values {
		lits[i] = formatLiteral(v)
	}
	fmt.Fprintf(b, "%s in [%s]", formatField(in.Field), strings.Join(lits, ", "))
}

func writeJunction(b *strings.Builder, ps []Predicate, kw, empty string) {
	if len(ps) == 0 {
		b.WriteString(empty)
		return
	}
	if len(ps) == 1 {
		writePredicate(b, ps[0])
		return
	}
	b.WriteByte('(')
	for i, p := range ps {
		if i > 0 {
			b.WriteString(" " + kw + " ")
		}
		writePredicate(b, p)
	}
	b.WriteByte(')')
}

func writeNegation(b *strings.Builder, p Predicate) {
	b.WriteString("not (")
	writePredicate(b, p)
	b.WriteByte(')')
}

var keywords = map[string]bool{"and": true, "or": true, "not": true, "in": true, "has": true, "true": true, "false": true}

func formatField(f Field) string {
	name := string(f)
	if name == "" || keywords[strings.ToLower(name)] {
		return "`" + name + "`"
	}
	for i, r := range name {
		if (i == 0 && !isIdentStart(r)) || !isIdentPart(r) {
			return "`" + name + "`"
		}
	}
	return name
}

func formatLiteral(v value.Value) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case value.String:
		return quote(string(val))
	case value.Int:
		return strconv.FormatInt(int64(val), 10)
	case value.Float:
		s := strconv.FormatFloat(float64(val), 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case value.Bool:
		return strconv.FormatBool(bool(val))
	case value.Time:
		return "@" + value.FormatTime(val.Time())
	case value.Set:
		items := val.Sorted()
		for i, item := range items {
			items[i] = quote(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// quote renders s as a single-quoted literal, escaping quotes and backslashes.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}
