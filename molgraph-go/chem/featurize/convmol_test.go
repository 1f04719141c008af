package featurize

import (
	"testing"

	"github.com/molgraph/molgraph/molgraph-go/chem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustConvMol(t *testing.T, smiles string) *ConvMol {
	mol, err := chem.ParseSMILES(smiles)
	require.NoError(t, err)
	cm, err := NewConvMol(mol)
	require.NoError(t, err)
	return cm
}

func TestAtomFeatureVectorLength(t *testing.T) {
	mol, err := chem.ParseSMILES("CC(=O)Oc1ccccc1C(=O)O")
	require.NoError(t, err)

	for i := range mol.Atoms {
		v := AtomFeatureVector(mol, i)
		require.Len(t, v, NumAtomFeatures)
	}
}

func TestAtomFeatureVectorEthanolCarbon(t *testing.T) {
	mol, err := chem.ParseSMILES("CCO")
	require.NoError(t, err)

	v := AtomFeatureVector(mol, 0)
	require.Len(t, v, NumAtomFeatures)

	// element block: carbon is index 0 of the vocabulary
	assert.EqualValues(t, 1, v[0])
	for i := 1; i < 44; i++ {
		assert.EqualValues(t, 0, v[i], "element block index %d", i)
	}

	// degree block starts at 44; the terminal carbon has degree 1
	assert.EqualValues(t, 1, v[44+1])

	// implicit valence block starts at 55; CH3 has three implicit hydrogens
	assert.EqualValues(t, 1, v[55+3])

	// hydrogen count block is the trailing 5 entries
	assert.EqualValues(t, 1, v[70+3])
}

func TestAtomFeatureVectorAromatic(t *testing.T) {
	mol, err := chem.ParseSMILES("c1ccccc1")
	require.NoError(t, err)

	v := AtomFeatureVector(mol, 0)
	// aromatic flag sits between the hybridization and hydrogen blocks
	assert.EqualValues(t, 1, v[69])
	// SP2 hybridization
	assert.EqualValues(t, 1, v[64+1])
}

func TestNewConvMolDegreeGrouping(t *testing.T) {
	// neopentane: four degree-1 carbons around one degree-4 carbon
	cm := mustConvMol(t, "CC(C)(C)C")

	require.Equal(t, 5, cm.NumAtoms())
	assert.Equal(t, [2]int32{0, 0}, cm.DegSlice[0])
	assert.Equal(t, [2]int32{0, 4}, cm.DegSlice[1])
	assert.Equal(t, [2]int32{4, 0}, cm.DegSlice[2])
	assert.Equal(t, [2]int32{4, 1}, cm.DegSlice[4])

	// the degree-4 atom is last in the sorted space; its row lists the four leaves
	require.Len(t, cm.DegAdjLists[4], 1)
	assert.Equal(t, []int32{0, 1, 2, 3}, cm.DegAdjLists[4][0])

	// each leaf points at the central atom
	require.Len(t, cm.DegAdjLists[1], 4)
	for _, row := range cm.DegAdjLists[1] {
		assert.Equal(t, []int32{4}, row)
	}
}

func TestNewConvMolDeterminism(t *testing.T) {
	a := mustConvMol(t, "c1ccc2ccccc2c1")
	b := mustConvMol(t, "c1ccc2ccccc2c1")

	require.Equal(t, a.AtomFeatures, b.AtomFeatures)
	require.Equal(t, a.DegSlice, b.DegSlice)
	require.Equal(t, a.DegAdjLists, b.DegAdjLists)
}

func TestAgglomerate(t *testing.T) {
	ethanol := mustConvMol(t, "CCO") // 3 atoms: two degree-1, one degree-2
	benzene := mustConvMol(t, "c1ccccc1")

	multi, err := Agglomerate([]*ConvMol{ethanol, benzene})
	require.NoError(t, err)

	require.Equal(t, 9, multi.NumAtoms())
	require.Equal(t, 2, multi.NumMolecules())
	require.Len(t, multi.Membership, 9)

	// degree 1: ethanol's two terminal atoms; degree 2: one from ethanol, six from benzene
	assert.Equal(t, [2]int32{0, 2}, multi.DegSlice[1])
	assert.Equal(t, [2]int32{2, 7}, multi.DegSlice[2])

	// membership follows the (degree, molecule, atom) ordering
	assert.Equal(t, []int32{0, 0, 0, 1, 1, 1, 1, 1, 1}, multi.Membership)

	// every adjacency entry points at an atom of the right molecule
	for d := 1; d <= MaxDegree; d++ {
		for _, row := range multi.DegAdjLists[d] {
			require.Len(t, row, d)
			for _, nb := range row {
				require.GreaterOrEqual(t, int(nb), 0)
				require.Less(t, int(nb), multi.NumAtoms())
			}
		}
	}

	// ethanol's central atom sits at merged index 2 and connects to atoms 0 and 1
	require.Len(t, multi.DegAdjLists[2], 7)
	assert.Equal(t, []int32{0, 1}, multi.DegAdjLists[2][0])
}

func TestAgglomerateSingleIsStable(t *testing.T) {
	cm := mustConvMol(t, "CCO")

	multi, err := Agglomerate([]*ConvMol{cm})
	require.NoError(t, err)

	require.Equal(t, cm.NumAtoms(), multi.NumAtoms())
	assert.Equal(t, cm.DegSlice, multi.DegSlice)
	assert.Equal(t, cm.AtomFeatures, multi.AtomFeatures)
	assert.Equal(t, cm.DegAdjLists[1], multi.DegAdjLists[1])
	assert.Equal(t, cm.DegAdjLists[2], multi.DegAdjLists[2])
}

func TestFeaturizerCache(t *testing.T) {
	f := NewFeaturizer()

	a, err := f.Featurize("CCO")
	require.NoError(t, err)
	b, err := f.Featurize("CCO")
	require.NoError(t, err)
	assert.Same(t, a, b, "repeated SMILES should hit the cache")

	_, err = f.Featurize("not smiles")
	assert.Error(t, err)
}

func TestFeaturizerLargestFragment(t *testing.T) {
	f := NewFeaturizer()

	cm, err := f.Featurize("CC(=O)[O-].[Na+]")
	require.NoError(t, err)
	assert.Equal(t, 4, cm.NumAtoms(), "counterion should be dropped")
}
