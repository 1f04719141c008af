package chem

import (
	"github.com/molgraph/molgraph/molgraph-golib/errors"
)

// ParseSMILES reads a SMILES string into a heavy-atom molecule graph.
// The reader covers the parts of the language that occur in screening
// datasets: the organic subset, bracket atoms with charges and explicit
// hydrogen counts, branches, ring closures (including %nn), aromatic
// lowercase atoms, and dot-separated fragments. Stereo markers and atom
// maps are accepted and ignored.
func ParseSMILES(s string) (*Molecule, error) {
	if s == "" {
		return nil, errors.New("empty SMILES string")
	}

	p := &smilesParser{
		src:   s,
		mol:   &Molecule{},
		prev:  -1,
		rings: make(map[int]ringRef),
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	p.mol.finalize()
	return p.mol, nil
}

type ringRef struct {
	atom  int
	order BondOrder
}

type smilesParser struct {
	src string
	pos int

	mol     *Molecule
	prev    int       // previous atom index, -1 at a fragment start
	pending BondOrder // explicitly written bond order, 0 if none
	stack   []int     // branch stack of previous-atom indices
	rings   map[int]ringRef
}

func (p *smilesParser) run() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.errf("branch start with no preceding atom")
			}
			p.stack = append(p.stack, p.prev)
			p.pos++
		case c == ')':
			if len(p.stack) == 0 {
				return p.errf("unmatched ')'")
			}
			p.prev = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			p.pos++
		case c == '-' || c == '=' || c == '#' || c == ':' || c == '/' || c == '\\':
			if p.pending != 0 {
				return p.errf("two bond symbols in a row")
			}
			p.pending = bondOrderFor(c)
			p.pos++
		case c == '.':
			if p.pending != 0 {
				return p.errf("bond symbol before '.'")
			}
			p.prev = -1
			p.pos++
		case c >= '0' && c <= '9':
			if err := p.ringClosure(int(c - '0')); err != nil {
				return err
			}
			p.pos++
		case c == '%':
			if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
				return p.errf("'%%' must be followed by two digits")
			}
			n := int(p.src[p.pos+1]-'0')*10 + int(p.src[p.pos+2]-'0')
			if err := p.ringClosure(n); err != nil {
				return err
			}
			p.pos += 3
		case c == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}

	if p.pending != 0 {
		return p.errf("dangling bond symbol")
	}
	if len(p.stack) > 0 {
		return p.errf("unclosed branch")
	}
	if len(p.rings) > 0 {
		return p.errf("unclosed ring bond")
	}
	if len(p.mol.Atoms) == 0 {
		return p.errf("no atoms")
	}
	return nil
}

// organicAtom reads a bare (unbracketed) atom from the organic subset,
// including the two-letter halogens and aromatic lowercase spellings.
func (p *smilesParser) organicAtom() error {
	c := p.src[p.pos]

	if sym, ok := aromaticSymbols[string(c)]; ok && c >= 'a' && c <= 'z' {
		p.pos++
		return p.addAtom(Atom{Symbol: sym, AromaticA: true, ExplicitH: -1})
	}

	if c < 'A' || c > 'Z' {
		return p.errf("unexpected character %q", c)
	}

	sym := string(c)
	if p.pos+1 < len(p.src) {
		two := p.src[p.pos : p.pos+2]
		if two == "Cl" || two == "Br" {
			sym = two
		}
	}
	if !organicSubset[sym] {
		return p.errf("element %s requires brackets", sym)
	}
	p.pos += len(sym)
	return p.addAtom(Atom{Symbol: sym, ExplicitH: -1})
}

// bracketAtom reads an atom of the form [isotope symbol chirality Hcount charge map].
func (p *smilesParser) bracketAtom() error {
	p.pos++ // consume '['

	// isotope (ignored)
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}

	if p.pos >= len(p.src) {
		return p.errf("unterminated bracket atom")
	}

	var atom Atom
	c := p.src[p.pos]
	switch {
	case c >= 'a' && c <= 'z':
		// aromatic spelling, possibly two letters (se, as)
		spelling := string(c)
		if p.pos+1 < len(p.src) {
			if sym, ok := aromaticSymbols[p.src[p.pos:p.pos+2]]; ok {
				atom.Symbol = sym
				p.pos += 2
			}
		}
		if atom.Symbol == "" {
			sym, ok := aromaticSymbols[spelling]
			if !ok {
				return p.errf("unknown aromatic atom %q", spelling)
			}
			atom.Symbol = sym
			p.pos++
		}
		atom.AromaticA = true
	case c >= 'A' && c <= 'Z':
		sym := string(c)
		p.pos++
		if p.pos < len(p.src) && p.src[p.pos] >= 'a' && p.src[p.pos] <= 'z' {
			if knownElements[sym+string(p.src[p.pos])] {
				sym += string(p.src[p.pos])
				p.pos++
			}
		}
		if !knownElements[sym] {
			return p.errf("unknown element %s", sym)
		}
		atom.Symbol = sym
	case c == '*':
		return p.errf("wildcard atoms are not supported")
	default:
		return p.errf("expected element symbol in brackets, found %q", c)
	}

	// chirality (ignored)
	for p.pos < len(p.src) && p.src[p.pos] == '@' {
		p.pos++
	}

	// explicit hydrogen count, default 0 for bracket atoms
	if p.pos < len(p.src) && p.src[p.pos] == 'H' {
		p.pos++
		atom.ExplicitH = 1
		if n, ok := p.readDigits(); ok {
			atom.ExplicitH = n
		}
	}

	// charge: +, -, ++, --, +2, -2, ...
	if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
		sign := 1
		if p.src[p.pos] == '-' {
			sign = -1
		}
		mark := p.src[p.pos]
		charge := 1
		p.pos++
		if n, ok := p.readDigits(); ok {
			charge = n
		} else {
			for p.pos < len(p.src) && p.src[p.pos] == mark {
				charge++
				p.pos++
			}
		}
		atom.Charge = sign * charge
	}

	// atom map (ignored)
	if p.pos < len(p.src) && p.src[p.pos] == ':' {
		p.pos++
		if _, ok := p.readDigits(); !ok {
			return p.errf("expected atom map number after ':'")
		}
	}

	if p.pos >= len(p.src) || p.src[p.pos] != ']' {
		return p.errf("unterminated bracket atom")
	}
	p.pos++

	if atom.ExplicitH < 0 {
		atom.ExplicitH = 0
	}
	return p.addAtom(atom)
}

func (p *smilesParser) addAtom(a Atom) error {
	if p.prev < 0 && p.pending != 0 {
		return p.errf("bond symbol with no preceding atom")
	}

	idx := len(p.mol.Atoms)
	p.mol.Atoms = append(p.mol.Atoms, a)

	if p.prev >= 0 {
		order := p.pending
		if order == 0 {
			order = Single
			if a.AromaticA && p.mol.Atoms[p.prev].AromaticA {
				order = Aromatic
			}
		}
		p.mol.Bonds = append(p.mol.Bonds, Bond{From: p.prev, To: idx, Order: order})
	}
	p.prev = idx
	p.pending = 0
	return nil
}

func (p *smilesParser) ringClosure(n int) error {
	if p.prev < 0 {
		return p.errf("ring closure with no preceding atom")
	}

	ref, open := p.rings[n]
	if !open {
		p.rings[n] = ringRef{atom: p.prev, order: p.pending}
		p.pending = 0
		return nil
	}
	delete(p.rings, n)

	if ref.atom == p.prev {
		return p.errf("ring bond %d closes on its own atom", n)
	}

	order := ref.order
	switch {
	case order == 0:
		order = p.pending
	case p.pending != 0 && p.pending != order:
		return p.errf("conflicting orders for ring bond %d", n)
	}
	if order == 0 {
		order = Single
		if p.mol.Atoms[ref.atom].AromaticA && p.mol.Atoms[p.prev].AromaticA {
			order = Aromatic
		}
	}

	p.mol.Bonds = append(p.mol.Bonds, Bond{From: ref.atom, To: p.prev, Order: order})
	p.pending = 0
	return nil
}

func (p *smilesParser) readDigits() (int, bool) {
	start := p.pos
	var n int
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		n = n*10 + int(p.src[p.pos]-'0')
		p.pos++
	}
	return n, p.pos > start
}

func (p *smilesParser) errf(format string, args ...interface{}) error {
	args = append(args, p.pos, p.src)
	return errors.Errorf(format+" at position %d in %q", args...)
}

func bondOrderFor(c byte) BondOrder {
	switch c {
	case '=':
		return Double
	case '#':
		return Triple
	case ':':
		return Aromatic
	}
	// '/', '\' carry stereo information we do not keep
	return Single
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
