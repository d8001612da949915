package engine

import "strings"

// MatchTopic reports whether a topic binding pattern matches a routing key.
//
// Both strings are dot-separated token sequences:
//   - "*" matches exactly one token
//   - "#" matches zero or more whole tokens
//   - any other token matches itself literally
//
// Both sequences must be fully consumed. An interior "#" tries every split
// point of the remaining key, so "a.#.z" matches "a.z", "a.b.z" and
// "a.b.c.z". Runs of consecutive "#" tokens behave as a single "#".
func MatchTopic(pattern, routingKey string) bool {
	return matchTokens(collapseHashes(strings.Split(pattern, ".")), strings.Split(routingKey, "."))
}

func matchTokens(pattern, key []string) bool {
	for len(pattern) > 0 {
		head := pattern[0]
		if head == "#" {
			rest := pattern[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(key); i++ {
				if matchTokens(rest, key[i:]) {
					return true
				}
			}
			return false
		}
		if len(key) == 0 {
			return false
		}
		if head != "*" && head != key[0] {
			return false
		}
		pattern, key = pattern[1:], key[1:]
	}
	return len(key) == 0
}

// collapseHashes removes adjacent duplicate "#" tokens. Without it, a
// pattern like "#.#.#.x" backtracks exponentially on long keys.
func collapseHashes(tokens []string) []string {
	out := tokens[:0:0]
	for _, tok := range tokens {
		if tok == "#" && len(out) > 0 && out[len(out)-1] == "#" {
			continue
		}
		out = append(out, tok)
	}
	return out
}
