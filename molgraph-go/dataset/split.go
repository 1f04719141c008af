package dataset

import (
	"math/rand"

	"github.com/molgraph/molgraph/molgraph-golib/errors"
)

// Splitter partitions a dataset into train, validation and test subsets.
type Splitter interface {
	Split(d *Dataset, fracTrain, fracValid float64) (train, valid, test *Dataset, err error)
}

func splitFractions(n int, fracTrain, fracValid float64) (int, int, error) {
	if fracTrain < 0 || fracValid < 0 || fracTrain+fracValid > 1 {
		return 0, 0, errors.Errorf("invalid split fractions train=%f valid=%f", fracTrain, fracValid)
	}
	trainEnd := int(fracTrain * float64(n))
	validEnd := trainEnd + int(fracValid*float64(n))
	return trainEnd, validEnd, nil
}

// IndexSplitter splits samples in dataset order.
type IndexSplitter struct{}

// Split implements Splitter.
func (IndexSplitter) Split(d *Dataset, fracTrain, fracValid float64) (*Dataset, *Dataset, *Dataset, error) {
	trainEnd, validEnd, err := splitFractions(d.Len(), fracTrain, fracValid)
	if err != nil {
		return nil, nil, nil, err
	}
	order := make([]int, d.Len())
	for i := range order {
		order[i] = i
	}
	return d.Select(order[:trainEnd]), d.Select(order[trainEnd:validEnd]), d.Select(order[validEnd:]), nil
}

// RandomSplitter splits samples in an order shuffled from Seed, so the same
// seed always produces the same partition.
type RandomSplitter struct {
	Seed int64
}

// Split implements Splitter.
func (s RandomSplitter) Split(d *Dataset, fracTrain, fracValid float64) (*Dataset, *Dataset, *Dataset, error) {
	trainEnd, validEnd, err := splitFractions(d.Len(), fracTrain, fracValid)
	if err != nil {
		return nil, nil, nil, err
	}
	order := make([]int, d.Len())
	for i := range order {
		order[i] = i
	}
	rnd := rand.New(rand.NewSource(s.Seed))
	rnd.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return d.Select(order[:trainEnd]), d.Select(order[trainEnd:validEnd]), d.Select(order[validEnd:]), nil
}
