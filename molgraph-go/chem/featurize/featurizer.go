package featurize

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/molgraph/molgraph/molgraph-go/chem"
	"github.com/molgraph/molgraph/molgraph-golib/errors"
)

const defaultCacheSize = 16384

// Featurizer turns SMILES strings into ConvMols, memoizing results by source
// string; screening datasets repeat structures across splits and assays.
// ConvMols are immutable once built, so the cached values are shared.
type Featurizer struct {
	cache *lru.Cache
}

// NewFeaturizer creates a Featurizer with the default cache size.
func NewFeaturizer() *Featurizer {
	cache, err := lru.New(defaultCacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size
		panic(err)
	}
	return &Featurizer{cache: cache}
}

// Featurize parses the SMILES string and featurizes its largest fragment;
// salts and counterions in multi-fragment entries are dropped.
func (f *Featurizer) Featurize(smiles string) (*ConvMol, error) {
	if v, ok := f.cache.Get(smiles); ok {
		return v.(*ConvMol), nil
	}

	mol, err := chem.ParseSMILES(smiles)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing %q", smiles)
	}

	cm, err := NewConvMol(mol.LargestFragment())
	if err != nil {
		return nil, errors.Wrapf(err, "error featurizing %q", smiles)
	}

	f.cache.Add(smiles, cm)
	return cm, nil
}
