package featurize

import (
	"github.com/molgraph/molgraph/molgraph-go/chem"
)

const (
	// NumAtomFeatures is the length of the per-atom feature vector.
	NumAtomFeatures = 75
	// MaxDegree is the largest heavy-atom degree the featurizer supports.
	MaxDegree = 10
	// maxImplicitValence caps the implicit-valence one-hot block.
	maxImplicitValence = 6
	// maxTotalH caps the hydrogen-count one-hot block.
	maxTotalH = 4
)

// featureElements is the fixed element vocabulary for the symbol one-hot block;
// any element not listed falls into a trailing "other" bucket.
var featureElements = []string{
	"C", "N", "O", "S", "F", "Si", "P", "Cl", "Br", "Mg", "Na", "Ca",
	"Fe", "As", "Al", "I", "B", "V", "K", "Tl", "Yb", "Sb", "Sn", "Ag",
	"Pd", "Co", "Se", "Ti", "Zn", "H", "Li", "Ge", "Cu", "Au", "Ni",
	"Cd", "In", "Mn", "Zr", "Cr", "Pt", "Hg", "Pb",
}

var featureElementIndex = func() map[string]int {
	idx := make(map[string]int, len(featureElements))
	for i, s := range featureElements {
		idx[s] = i
	}
	return idx
}()

type hybridization int

const (
	sp hybridization = iota
	sp2
	sp3
	sp3d
	sp3d2
	numHybridizations
)

// hybridizationOf infers a hybridization from the atom's bonds: triple bonds or
// stacked double bonds give SP, aromatic systems and lone double bonds give SP2,
// everything else is treated as SP3.
func hybridizationOf(mol *chem.Molecule, i int) hybridization {
	switch {
	case mol.NumTripleBonds(i) > 0 || mol.NumDoubleBonds(i) >= 2:
		return sp
	case mol.Atoms[i].AromaticA || mol.NumDoubleBonds(i) == 1:
		return sp2
	default:
		return sp3
	}
}

// AtomFeatureVector computes the 75-length feature vector for atom i:
// element one-hot (including an "other" bucket), degree one-hot, implicit
// valence one-hot, formal charge, radical electrons, hybridization one-hot,
// aromaticity flag, and total hydrogen count one-hot.
func AtomFeatureVector(mol *chem.Molecule, i int) []float32 {
	v := make([]float32, 0, NumAtomFeatures)
	a := mol.Atoms[i]

	// element, with the trailing bucket for anything off-vocabulary
	elem := make([]float32, len(featureElements)+1)
	if j, ok := featureElementIndex[a.Symbol]; ok {
		elem[j] = 1
	} else {
		elem[len(elem)-1] = 1
	}
	v = append(v, elem...)

	v = append(v, oneHot(mol.Degree(i), MaxDegree)...)
	v = append(v, oneHot(mol.ImplicitHCount(i), maxImplicitValence)...)

	v = append(v, float32(a.Charge))
	v = append(v, 0) // radical electrons are not represented in the source encoding

	hyb := make([]float32, numHybridizations)
	hyb[hybridizationOf(mol, i)] = 1
	v = append(v, hyb...)

	if a.AromaticA {
		v = append(v, 1)
	} else {
		v = append(v, 0)
	}

	v = append(v, oneHot(mol.TotalHCount(i), maxTotalH)...)

	return v
}

// oneHot encodes n as a one-hot vector over [0, max], clamping out-of-range values to max.
func oneHot(n, max int) []float32 {
	v := make([]float32, max+1)
	if n < 0 {
		n = 0
	}
	if n > max {
		n = max
	}
	v[n] = 1
	return v
}
