package parser

import (
	"math/rand/v2"
	"strconv"
	"strings"
)

type ifFrame struct {
	matched bool // a branch of this block has been taken
	taking  bool // the current branch is taken
}

// splitDirective returns the upper cased keyword of a directive line and the
// rest of it.
func splitDirective(line string) (string, string) {
	line = strings.TrimPrefix(line, "#")
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return strings.ToUpper(line), ""
	}
	return strings.ToUpper(line[:i]), strings.TrimSpace(line[i+1:])
}

// resolveControlFlow evaluates #RANDOM/#IF blocks and returns the lines of
// the taken branches.
func resolveControlFlow(lines []string, rnd *rand.Rand) []string {
	out := make([]string, 0, len(lines))
	randoms := []int{}
	ifs := []ifFrame{}

	activeUpTo := func(n int) bool {
		for _, f := range ifs[:n] {
			if !f.taking {
				return false
			}
		}
		return true
	}
	current := func() int {
		if len(randoms) == 0 {
			return 0
		}
		return randoms[len(randoms)-1]
	}

	for _, line := range lines {
		cmd, arg := splitDirective(line)
		n, _ := strconv.Atoi(arg)
		switch cmd {
		case "RANDOM", "SETRANDOM":
			v := 0
			if activeUpTo(len(ifs)) && n > 0 {
				v = n
				if cmd == "RANDOM" {
					v = rnd.IntN(n) + 1
				}
			}
			randoms = append(randoms, v)
		case "ENDRANDOM":
			if len(randoms) > 0 {
				randoms = randoms[:len(randoms)-1]
			}
		case "IF":
			t := activeUpTo(len(ifs)) && n == current()
			ifs = append(ifs, ifFrame{matched: t, taking: t})
		case "ELSEIF":
			if len(ifs) == 0 {
				continue
			}
			f := &ifs[len(ifs)-1]
			t := !f.matched && activeUpTo(len(ifs)-1) && n == current()
			f.taking = t
			f.matched = f.matched || t
		case "ELSE":
			if len(ifs) == 0 {
				continue
			}
			f := &ifs[len(ifs)-1]
			f.taking = !f.matched && activeUpTo(len(ifs)-1)
			f.matched = true
		case "ENDIF", "END":
			if cmd == "END" && strings.ToUpper(arg) != "IF" {
				if activeUpTo(len(ifs)) {
					out = append(out, line)
				}
				continue
			}
			if len(ifs) > 0 {
				ifs = ifs[:len(ifs)-1]
			}
		default:
			if activeUpTo(len(ifs)) {
				out = append(out, line)
			}
		}
	}
	return out
}
