package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// CompareVersions orders two Homebrew-style version strings. Versions are
// split into alternating numeric and alphabetic segments; numeric segments
// compare numerically, everything else lexically. This handles versions like
// "1.0.2u", "9e" and "3.12.0_1" that are not semver.
func CompareVersions(a, b string) int {
	as := splitVersion(a)
	bs := splitVersion(b)

	for i := 0; i < len(as) || i < len(bs); i++ {
		var sa, sb string
		if i < len(as) {
			sa = as[i]
		}
		if i < len(bs) {
			sb = bs[i]
		}
		if sa == sb {
			continue
		}

		na, aNum := parseNumeric(sa)
		nb, bNum := parseNumeric(sb)

		switch {
		case aNum && bNum:
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		case aNum != bNum:
			// A numeric segment outranks an alphabetic one at the same
			// position ("1.0.1" > "1.0.beta").
			if aNum {
				return 1
			}
			return -1
		default:
			return strings.Compare(sa, sb)
		}
	}
	return 0
}

// splitVersion breaks a version string into segments at separators and at
// digit/letter boundaries: "1.0.2u" -> ["1", "0", "2", "u"].
func splitVersion(v string) []string {
	var segs []string
	var cur strings.Builder
	var curDigit bool

	flush := func() {
		if cur.Len() > 0 {
			segs = append(segs, cur.String())
			cur.Reset()
		}
	}

	for _, r := range v {
		switch {
		case r == '.' || r == '-' || r == '_' || r == '+':
			flush()
		case r >= '0' && r <= '9':
			if cur.Len() > 0 && !curDigit {
				flush()
			}
			curDigit = true
			cur.WriteRune(r)
		default:
			if cur.Len() > 0 && curDigit {
				flush()
			}
			curDigit = false
			cur.WriteRune(r)
		}
	}
	flush()
	return segs
}

func parseNumeric(s string) (int64, bool) {
	if s == "" {
		return 0, true // missing trailing segment compares as zero
	}
	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int64(r-'0')
	}
	return n, true
}

// Constraint restricts the acceptable versions of a dependency. The zero
// value accepts any version.
type Constraint struct {
	Op      string // one of ">=", "<=", ">", "<", "=", "!=", or "" for any
	Version string
}

// Any reports whether the constraint accepts every version.
func (c Constraint) Any() bool {
	return c.Op == ""
}

// Satisfies reports whether the given version is acceptable.
func (c Constraint) Satisfies(version string) bool {
	if c.Any() {
		return true
	}
	cmp := CompareVersions(version, c.Version)
	switch c.Op {
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	case "=", "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	}
	return false
}

func (c Constraint) String() string {
	if c.Any() {
		return "*"
	}
	return c.Op + c.Version
}

var constraintOps = []string{">=", "<=", "==", "!=", ">", "<", "="}

// ParseDependency splits a dependency expression such as "openssl>=3.0" into
// its formula name and constraint. A bare name carries no constraint.
func ParseDependency(expr string) (Dependency, error) {
	expr = strings.TrimSpace(expr)
	for _, op := range constraintOps {
		idx := strings.Index(expr, op)
		if idx <= 0 {
			continue
		}
		name := strings.TrimSpace(expr[:idx])
		version := strings.TrimSpace(expr[idx+len(op):])
		if name == "" || version == "" {
			return Dependency{}, zerr.With(ErrInvalidFormula, "dependency", expr)
		}
		return Dependency{Name: name, Constraint: Constraint{Op: op, Version: version}}, nil
	}
	if expr == "" {
		return Dependency{}, zerr.With(ErrInvalidFormula, "dependency", expr)
	}
	return Dependency{Name: expr}, nil
}
