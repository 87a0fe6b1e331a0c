package hull

import "strings"

// mirrorRune maps each turn symbol to its mirror image: yaw turns swap
// sign, pitch turns swap sign. Everything else is self-mirroring.
func mirrorRune(r rune) rune {
	switch r {
	case '+':
		return '-'
	case '-':
		return '+'
	case '^':
		return '&'
	case '&':
		return '^'
	default:
		return r
	}
}

// EnforceSymmetry appends a mirrored copy after every top-level bracketed
// branch that starts with a turn symbol and does not already have its
// mirror twin in the string. The result grows the same shape on both
// sides of the spine, which raises the symmetry descriptor without
// touching the trunk.
func EnforceSymmetry(s string) string {
	type group struct {
		start, end int // indices of '[' and ']'
	}
	var groups []group
	depth := 0
	open := -1
	for i, r := range s {
		switch r {
		case '[':
			if depth == 0 {
				open = i
			}
			depth++
		case ']':
			depth--
			if depth == 0 && open >= 0 {
				groups = append(groups, group{start: open, end: i})
				open = -1
			}
		}
	}
	if len(groups) == 0 {
		return s
	}

	bodies := make(map[string]bool, len(groups))
	for _, g := range groups {
		bodies[s[g.start+1:g.end]] = true
	}

	var sb strings.Builder
	prev := 0
	for _, g := range groups {
		sb.WriteString(s[prev : g.end+1])
		prev = g.end + 1
		body := s[g.start+1 : g.end]
		if body == "" || !isTurn(rune(body[0])) {
			continue
		}
		mirrored := strings.Map(mirrorRune, body)
		if mirrored == body || bodies[mirrored] {
			continue
		}
		sb.WriteByte('[')
		sb.WriteString(mirrored)
		sb.WriteByte(']')
		bodies[mirrored] = true
	}
	sb.WriteString(s[prev:])
	return sb.String()
}

func isTurn(r rune) bool {
	return r == '+' || r == '-' || r == '^' || r == '&'
}
