package featurize

import (
	"sort"

	"github.com/molgraph/molgraph/molgraph-go/chem"
	"github.com/molgraph/molgraph/molgraph-golib/errors"
)

// ConvMol is a single molecule prepared for graph convolutions: atom feature
// rows sorted by heavy-atom degree, plus per-degree adjacency lists over the
// sorted index space. The ordering is canonical for a given molecule, so
// featurizing the same structure twice yields identical output.
type ConvMol struct {
	// AtomFeatures has one NumAtomFeatures-length row per atom, rows grouped
	// by ascending atom degree.
	AtomFeatures [][]float32
	// DegSlice holds a (start, size) pair into AtomFeatures for every degree
	// in [0, MaxDegree].
	DegSlice [][2]int32
	// DegAdjLists[d] holds one row per atom of degree d, each row listing the
	// d neighbor indices of that atom in the sorted index space.
	DegAdjLists [][][]int32
}

// NumAtoms returns the number of heavy atoms.
func (c *ConvMol) NumAtoms() int {
	return len(c.AtomFeatures)
}

// NewConvMol featurizes a parsed molecule. Molecules with an atom of degree
// greater than MaxDegree are rejected.
func NewConvMol(mol *chem.Molecule) (*ConvMol, error) {
	n := mol.NumAtoms()
	if n == 0 {
		return nil, errors.New("cannot featurize an empty molecule")
	}
	if d := mol.MaxDegree(); d > MaxDegree {
		return nil, errors.Errorf("atom degree %d exceeds the supported maximum %d", d, MaxDegree)
	}

	// canonical order: ascending degree, original index as tie-break
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return mol.Degree(order[i]) < mol.Degree(order[j])
	})

	// sortedIdx maps original atom index to its position in the sorted space
	sortedIdx := make([]int32, n)
	for pos, orig := range order {
		sortedIdx[orig] = int32(pos)
	}

	cm := &ConvMol{
		AtomFeatures: make([][]float32, 0, n),
		DegSlice:     make([][2]int32, MaxDegree+1),
		DegAdjLists:  make([][][]int32, MaxDegree+1),
	}

	for d := 0; d <= MaxDegree; d++ {
		cm.DegSlice[d][0] = int32(len(cm.AtomFeatures))
		for _, orig := range order {
			if mol.Degree(orig) != d {
				continue
			}
			cm.AtomFeatures = append(cm.AtomFeatures, AtomFeatureVector(mol, orig))

			if d > 0 {
				row := make([]int32, 0, d)
				for _, nb := range mol.Neighbors(orig) {
					row = append(row, sortedIdx[nb])
				}
				sort.Slice(row, func(i, j int) bool { return row[i] < row[j] })
				cm.DegAdjLists[d] = append(cm.DegAdjLists[d], row)
			}
		}
		cm.DegSlice[d][1] = int32(len(cm.AtomFeatures)) - cm.DegSlice[d][0]
	}

	return cm, nil
}

// MultiConvMol is a minibatch of molecules merged into one graph: the atoms of
// all molecules are re-grouped by degree, features and adjacency rows are
// stacked, and a membership vector maps every atom back to its molecule.
type MultiConvMol struct {
	AtomFeatures [][]float32
	DegSlice     [][2]int32
	// Membership[i] is the index within the batch of the molecule that atom i
	// belongs to.
	Membership  []int32
	DegAdjLists [][][]int32

	numMolecules int
}

// NumAtoms returns the total atom count across the batch.
func (m *MultiConvMol) NumAtoms() int {
	return len(m.AtomFeatures)
}

// NumMolecules returns the number of molecules merged into the batch.
func (m *MultiConvMol) NumMolecules() int {
	return m.numMolecules
}

// Agglomerate merges the molecules of a minibatch into a single degree-grouped
// graph. Atom indices are relabeled into a shared space ordered by (degree,
// molecule, atom), and every adjacency row is rewritten accordingly.
func Agglomerate(mols []*ConvMol) (*MultiConvMol, error) {
	if len(mols) == 0 {
		return nil, errors.New("cannot agglomerate an empty batch")
	}

	// assign each (molecule, sorted atom) pair its index in the merged space
	offsets := make([][]int32, len(mols))
	var total int32
	merged := &MultiConvMol{
		DegSlice:     make([][2]int32, MaxDegree+1),
		DegAdjLists:  make([][][]int32, MaxDegree+1),
		numMolecules: len(mols),
	}

	for i, mol := range mols {
		offsets[i] = make([]int32, mol.NumAtoms())
	}
	for d := 0; d <= MaxDegree; d++ {
		merged.DegSlice[d][0] = total
		for i, mol := range mols {
			start, size := mol.DegSlice[d][0], mol.DegSlice[d][1]
			for a := start; a < start+size; a++ {
				offsets[i][a] = total
				total++
				merged.AtomFeatures = append(merged.AtomFeatures, mol.AtomFeatures[a])
				merged.Membership = append(merged.Membership, int32(i))
			}
		}
		merged.DegSlice[d][1] = total - merged.DegSlice[d][0]
	}

	// rewrite adjacency rows into the merged index space, in the same
	// (degree, molecule, atom) order used above
	for d := 1; d <= MaxDegree; d++ {
		for i, mol := range mols {
			for _, row := range mol.DegAdjLists[d] {
				mergedRow := make([]int32, len(row))
				for j, nb := range row {
					mergedRow[j] = offsets[i][nb]
				}
				merged.DegAdjLists[d] = append(merged.DegAdjLists[d], mergedRow)
			}
		}
	}

	return merged, nil
}
