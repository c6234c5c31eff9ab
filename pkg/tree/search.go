package tree

import (
	"fmt"
	"regexp"
)

// SearchKeys walks in depth-first and returns the subtree of rows whose
// key mentions one of ports, per spec.md's Key Searcher: a row key belongs
// to a port if it matches, for that port, one of three anchored forms —
// "<port>|..." (prefix), "...|<port>" (suffix), or "<port>" (exact). A
// matching row is copied verbatim with no further descent (the whole row
// belongs to that port). A non-matching map key is recursed into, kept
// only if the recursion found something. List elements equal to a port
// name are copied into the output list. found reports whether anything at
// all was copied anywhere in the tree.
func SearchKeys(in Node, ports []string) (out Node, found bool) {
	matchers := compilePortPatterns(ports)
	return searchNode(in, matchers)
}

type portPattern struct {
	port string
	re   *regexp.Regexp
}

// compilePortPatterns precompiles one regexp per port (not per key, per
// spec.md's design note) covering all three anchored forms in a single
// alternation.
func compilePortPatterns(ports []string) []portPattern {
	out := make([]portPattern, 0, len(ports))
	for _, p := range ports {
		q := regexp.QuoteMeta(p)
		pattern := fmt.Sprintf(`^%s\|.*$|^.*\|%s$|^%s$`, q, q, q)
		out = append(out, portPattern{port: p, re: regexp.MustCompile(pattern)})
	}
	return out
}

func keyMatchesAnyPort(key string, matchers []portPattern) bool {
	for _, m := range matchers {
		if m.re.MatchString(key) {
			return true
		}
	}
	return false
}

func searchNode(in Node, matchers []portPattern) (Node, bool) {
	switch v := in.(type) {
	case map[string]Node:
		out := NewMap()
		any := false
		for k, val := range v {
			if keyMatchesAnyPort(k, matchers) {
				out[k] = DeepCopy(val)
				any = true
				continue
			}
			sub, subFound := searchNode(val, matchers)
			if subFound {
				out[k] = sub
				any = true
			}
		}
		return out, any
	case []Node:
		out := NewList()
		any := false
		for _, val := range v {
			if str, ok := val.(string); ok && portNameMatches(str, matchers) {
				out = append(out, val)
				any = true
				continue
			}
			sub, subFound := searchNode(val, matchers)
			if subFound {
				out = append(out, sub)
				any = true
			}
		}
		return out, any
	default:
		return nil, false
	}
}

// portNameMatches reports whether a list-member scalar is exactly one of
// the searched-for port names.
func portNameMatches(s string, matchers []portPattern) bool {
	for _, m := range matchers {
		if s == m.port {
			return true
		}
	}
	return false
}
