// Package chem wraps the external chemistry toolkit (Open Babel) behind
// narrow interfaces and provides the molecule cost model used by the load
// balancer.
package chem

import (
	"fmt"
	"strings"
)

// Molecule is one work item of a screening run. Identity is the SMILES
// string; Cost is the atom count used as a docking-cost proxy, populated
// lazily by the estimator.
type Molecule struct {
	SMILES string
	Cost   int
}

// ParseError reports a malformed SMILES line. Per-molecule: the caller
// skips and logs, it never aborts a run.
type ParseError struct {
	SMILES string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.SMILES, e.Reason)
}

// ConversionError reports a failed SMILES-to-3D conversion. The molecule is
// counted as missing and picked up by a later round.
type ConversionError struct {
	SMILES string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %q: %v", e.SMILES, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// HeavyAtomCount counts the non-hydrogen atoms encoded in a SMILES string.
// It tracks the toolkit's atom count for well-formed input without paying
// for a 3D build: bracket atoms count once, two-letter organic-subset
// elements (Cl, Br) are recognized, aromatic lowercase atoms count, and
// bond/ring/branch punctuation is skipped.
func HeavyAtomCount(smiles string) (int, error) {
	s := strings.TrimSpace(smiles)
	if s == "" {
		return 0, &ParseError{SMILES: smiles, Reason: "empty line"}
	}
	count := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return 0, &ParseError{SMILES: smiles, Reason: "unterminated bracket atom"}
			}
			if !bracketIsHydrogen(s[i+1 : i+end]) {
				count++
			}
			i += end
		case c == 'C' && i+1 < len(s) && s[i+1] == 'l':
			count++
			i++
		case c == 'B' && i+1 < len(s) && s[i+1] == 'r':
			count++
			i++
		case strings.IndexByte("BCNOPSFI", c) >= 0:
			count++
		case strings.IndexByte("bcnops", c) >= 0:
			count++
		case c >= '0' && c <= '9':
			// ring closure
		case c == '%':
			// two-digit ring closure, digits consumed above
		case strings.IndexByte("-=#$:/\\().+@", c) >= 0:
			// bonds, branches, chirality, charge
		case c == '*':
			count++
		default:
			return 0, &ParseError{SMILES: smiles, Reason: fmt.Sprintf("unexpected character %q at %d", c, i)}
		}
	}
	if count == 0 {
		return 0, &ParseError{SMILES: smiles, Reason: "no atoms"}
	}
	return count, nil
}

// bracketIsHydrogen reports whether a bracket atom body like "H", "2H" or
// "H+" denotes an explicit hydrogen, which does not count as a heavy atom.
func bracketIsHydrogen(body string) bool {
	body = strings.TrimLeft(body, "0123456789") // isotope prefix
	return len(body) > 0 && body[0] == 'H'
}
