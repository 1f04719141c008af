package chem

// BondOrder describes the order of a bond between two atoms.
type BondOrder int

// Bond orders understood by the reader; Aromatic marks bonds in delocalized rings.
const (
	Single BondOrder = iota + 1
	Double
	Triple
	Aromatic
)

// Atom is a single heavy atom in a molecule. Hydrogens are implicit unless
// an explicit count was given in the source (bracket atoms).
type Atom struct {
	Symbol    string
	AromaticA bool
	Charge    int
	// ExplicitH is the hydrogen count given in the source, or -1 when
	// hydrogens should be inferred from standard valences.
	ExplicitH int
}

// Bond connects the atoms at indices From and To.
type Bond struct {
	From, To int
	Order    BondOrder
}

// Molecule is a heavy-atom graph.
type Molecule struct {
	Atoms []Atom
	Bonds []Bond

	adj [][]int // neighbor atom indices, built by finalize
}

// NumAtoms returns the number of heavy atoms.
func (m *Molecule) NumAtoms() int {
	return len(m.Atoms)
}

// Neighbors returns the indices of atoms bonded to atom i.
func (m *Molecule) Neighbors(i int) []int {
	return m.adj[i]
}

// Degree returns the heavy-atom degree of atom i.
func (m *Molecule) Degree(i int) int {
	return len(m.adj[i])
}

// MaxDegree returns the largest heavy-atom degree in the molecule, 0 for an empty molecule.
func (m *Molecule) MaxDegree() int {
	var max int
	for i := range m.Atoms {
		if d := m.Degree(i); d > max {
			max = d
		}
	}
	return max
}

// bondOrderSum returns the integer bond order sum for atom i, counting aromatic
// bonds as single bonds plus one shared double bond for the delocalized system.
func (m *Molecule) bondOrderSum(i int) int {
	var sum int
	for _, b := range m.Bonds {
		if b.From != i && b.To != i {
			continue
		}
		switch b.Order {
		case Double:
			sum += 2
		case Triple:
			sum += 3
		default:
			sum++
		}
	}
	if m.Atoms[i].AromaticA {
		sum++
	}
	return sum
}

// ImplicitHCount returns the number of implicit hydrogens on atom i: the
// explicit count when one was given, otherwise the smallest standard valence
// of the element that covers the atom's bond order sum.
func (m *Molecule) ImplicitHCount(i int) int {
	a := m.Atoms[i]
	if a.ExplicitH >= 0 {
		return a.ExplicitH
	}

	// charged atoms can only be written in brackets, where the hydrogen
	// count is explicit, so charge plays no role here
	valences := standardValences(a.Symbol)
	if len(valences) == 0 {
		return 0
	}

	sum := m.bondOrderSum(i)
	for _, v := range valences {
		if sum <= v {
			return v - sum
		}
	}
	return 0
}

// TotalHCount is ImplicitHCount; the graph carries no explicit hydrogen atoms.
func (m *Molecule) TotalHCount(i int) int {
	return m.ImplicitHCount(i)
}

// NumDoubleBonds returns the number of double bonds at atom i.
func (m *Molecule) NumDoubleBonds(i int) int {
	var n int
	for _, b := range m.Bonds {
		if (b.From == i || b.To == i) && b.Order == Double {
			n++
		}
	}
	return n
}

// NumTripleBonds returns the number of triple bonds at atom i.
func (m *Molecule) NumTripleBonds(i int) int {
	var n int
	for _, b := range m.Bonds {
		if (b.From == i || b.To == i) && b.Order == Triple {
			n++
		}
	}
	return n
}

// Fragments labels each atom with a connected-component id and returns the labels
// along with the number of components.
func (m *Molecule) Fragments() ([]int, int) {
	labels := make([]int, len(m.Atoms))
	for i := range labels {
		labels[i] = -1
	}

	var count int
	for i := range m.Atoms {
		if labels[i] >= 0 {
			continue
		}
		stack := []int{i}
		labels[i] = count
		for len(stack) > 0 {
			at := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, nb := range m.adj[at] {
				if labels[nb] < 0 {
					labels[nb] = count
					stack = append(stack, nb)
				}
			}
		}
		count++
	}
	return labels, count
}

// LargestFragment returns the connected component with the most atoms as a new
// molecule, with atom indices remapped. A connected molecule is returned unchanged.
func (m *Molecule) LargestFragment() *Molecule {
	labels, count := m.Fragments()
	if count <= 1 {
		return m
	}

	sizes := make([]int, count)
	for _, l := range labels {
		sizes[l]++
	}
	best := 0
	for l, size := range sizes {
		if size > sizes[best] {
			best = l
		}
	}

	remap := make(map[int]int)
	frag := &Molecule{}
	for i, a := range m.Atoms {
		if labels[i] == best {
			remap[i] = len(frag.Atoms)
			frag.Atoms = append(frag.Atoms, a)
		}
	}
	for _, b := range m.Bonds {
		if labels[b.From] == best {
			frag.Bonds = append(frag.Bonds, Bond{
				From:  remap[b.From],
				To:    remap[b.To],
				Order: b.Order,
			})
		}
	}
	frag.finalize()
	return frag
}

// finalize builds the adjacency index; it must be called after atoms/bonds change.
func (m *Molecule) finalize() {
	m.adj = make([][]int, len(m.Atoms))
	for _, b := range m.Bonds {
		m.adj[b.From] = append(m.adj[b.From], b.To)
		m.adj[b.To] = append(m.adj[b.To], b.From)
	}
}
