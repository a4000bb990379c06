package expr

import (
	"sort"
	"strings"

	"github.com/e9kdbg/e9kdbg/internal/dwarfinfo"
)

// NameSource enumerates the identifier namespaces an expression's leading
// word can complete against, mirroring the evaluator's resolution order
// (global -> symbol -> register; locals are deliberately excluded since
// they depend on a live PC the completer doesn't have).
type NameSource interface {
	GlobalNames() []string
	SymbolNames() []string
	RegisterNames() []string
}

// Complete returns every name across src's namespaces that has prefix as a
// prefix, deduplicated and sorted, for the command engine's tab-completion
// hook.
func Complete(prefix string, src NameSource) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(names []string) {
		for _, n := range names {
			if !strings.HasPrefix(n, prefix) || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	add(src.GlobalNames())
	add(src.SymbolNames())
	add(src.RegisterNames())
	sort.Strings(out)
	return out
}

// CompleteEval completes an expression prefix. When the prefix's last
// operator is '.' or '->' the base expression is evaluated against env and
// the completions are the matching member names of its struct type
// (case-sensitive); otherwise the prefix completes as a plain identifier
// across src's namespaces.
func CompleteEval(prefix string, env Env, src NameSource) []string {
	base, op, partial, ok := splitMemberPrefix(prefix)
	if !ok {
		return Complete(prefix, src)
	}

	v, err := func() (Value, error) {
		n, err := Parse(base)
		if err != nil {
			return Value{}, err
		}
		return Eval(n, env)
	}()
	if err != nil {
		return nil
	}

	structTi := v.TypeRef
	haveTi := v.HasType
	if op == "->" {
		_, elemTi, hasElem, err := targetOf(v, env)
		if err != nil {
			return nil
		}
		structTi, haveTi = elemTi, hasElem
	}
	if !haveTi {
		return nil
	}
	_, t, ok2 := env.Deref(structTi)
	if !ok2 || t == nil || t.Kind != dwarfinfo.TypeStruct {
		return nil
	}

	var out []string
	for _, m := range t.Members {
		if strings.HasPrefix(m.Name, partial) {
			out = append(out, m.Name)
		}
	}
	sort.Strings(out)
	return out
}

// splitMemberPrefix finds the rightmost top-level '.' or '->' in prefix,
// returning the base expression before it, the operator, and the partial
// member name after it.
func splitMemberPrefix(prefix string) (base, op, partial string, ok bool) {
	depth := 0
	for i := len(prefix) - 1; i >= 0; i-- {
		switch prefix[i] {
		case ']', ')':
			depth++
		case '[', '(':
			depth--
		case '.':
			if depth == 0 {
				return prefix[:i], ".", prefix[i+1:], true
			}
		case '>':
			if depth == 0 && i > 0 && prefix[i-1] == '-' {
				return prefix[:i-1], "->", prefix[i+1:], true
			}
		}
	}
	return "", "", "", false
}
