package graphconv

import (
	"context"

	"github.com/molgraph/molgraph/molgraph-go/chem/featurize"
	"github.com/molgraph/molgraph/molgraph-go/dataset"
	"github.com/molgraph/molgraph/molgraph-golib/errors"
)

// Feed holds one minibatch in the tensor layout the frozen graph expects.
// All molecules of the batch are agglomerated into a single disjoint graph;
// Membership maps each atom back to its molecule's position in the batch.
type Feed struct {
	AtomFeatures [][]float32
	DegSlice     [][2]int32
	Membership   []int32
	// DegAdjs[d-1] is the adjacency table for atoms of degree d, one row of
	// d neighbor indices per atom.
	DegAdjs [][][]int32

	// Labels[t] is the one hot label matrix for task t, one row per batch
	// slot. Weights is indexed [slot][task].
	Labels  [][][]float32
	Weights [][]float32

	batchSize int
}

// NewFeed adapts a dataset batch into model inputs. The batch must be padded
// to a fixed size upstream; the graph's placeholders are sized for it.
func NewFeed(b dataset.Batch, numTasks int) (*Feed, error) {
	multi, err := featurize.Agglomerate(b.X)
	if err != nil {
		return nil, errors.Wrapf(err, "error agglomerating batch")
	}

	f := &Feed{
		AtomFeatures: multi.AtomFeatures,
		DegSlice:     multi.DegSlice,
		Membership:   multi.Membership,
		DegAdjs:      multi.DegAdjLists[1:],
		batchSize:    len(b.X),
	}

	f.Labels = make([][][]float32, numTasks)
	for t := 0; t < numTasks; t++ {
		f.Labels[t] = make([][]float32, len(b.Y))
	}
	f.Weights = make([][]float32, len(b.W))
	for i := range b.Y {
		if len(b.Y[i]) != numTasks || len(b.W[i]) != numTasks {
			return nil, errors.Errorf("sample %d: expected %d tasks, got %d labels and %d weights",
				i, numTasks, len(b.Y[i]), len(b.W[i]))
		}
		f.Weights[i] = make([]float32, numTasks)
		for t := 0; t < numTasks; t++ {
			f.Labels[t][i] = oneHotLabel(b.Y[i][t])
			f.Weights[i][t] = float32(b.W[i][t])
		}
	}

	return f, nil
}

// oneHotLabel puts the negative class in column 0 and the positive in column
// 1. Missing labels arrive with weight zero and default to the negative row.
func oneHotLabel(y float64) []float32 {
	if y > 0 {
		return []float32{0, 1}
	}
	return []float32{1, 0}
}

// FeedResult pairs a batch with its adapted feed. Err is set when adaptation
// or validation failed, in which case the generator stops.
type FeedResult struct {
	Feed  *Feed
	Batch dataset.Batch
	Err   error
}

// Generator adapts every batch of d into a checked Feed, one per batch per
// epoch. Deterministic batch iteration gives a deterministic feed sequence.
// Consumers that stop before draining the channel must cancel opts.Ctx.
func Generator(d *dataset.Dataset, numTasks int, opts dataset.BatchOptions) <-chan FeedResult {
	ctx := opts.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	// the derived context stops the batch producer when the generator exits
	// early on a bad feed
	ctx, cancel := context.WithCancel(ctx)
	opts.Ctx = ctx

	out := make(chan FeedResult)
	go func() {
		defer close(out)
		defer cancel()
		for b := range d.IterBatches(opts) {
			f, err := NewFeed(b, numTasks)
			if err == nil {
				err = f.Valid()
			}
			select {
			case out <- FeedResult{Feed: f, Batch: b, Err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}

// FeedDict renders the feed as op name to tensor value, with op names scoped
// under prefix.
func (f *Feed) FeedDict(prefix string) map[string]interface{} {
	fd := map[string]interface{}{
		scoped(prefix, atomFeaturesOp): f.AtomFeatures,
		scoped(prefix, degSliceOp):     f.DegSlice,
		scoped(prefix, membershipOp):   f.Membership,
		scoped(prefix, weightsOp):      f.Weights,
	}
	for i, adj := range f.DegAdjs {
		fd[scoped(prefix, degAdjOp(i+1))] = adj
	}
	for t, labels := range f.Labels {
		fd[scoped(prefix, labelOp(t))] = labels
	}
	return fd
}

// NumAtoms returns the number of atoms across the whole batch.
func (f *Feed) NumAtoms() int {
	return len(f.AtomFeatures)
}

// Valid returns nil if the feed is internally consistent.
func (f *Feed) Valid() error {
	numAtoms := f.NumAtoms()
	for i, row := range f.AtomFeatures {
		if len(row) != featurize.NumAtomFeatures {
			return errors.Errorf("atom %d: feature vector has length %d, expected %d",
				i, len(row), featurize.NumAtomFeatures)
		}
	}

	if len(f.Membership) != numAtoms {
		return errors.Errorf("membership has %d entries for %d atoms", len(f.Membership), numAtoms)
	}
	for i, m := range f.Membership {
		if m < 0 || int(m) >= f.batchSize {
			return errors.Errorf("atom %d: membership %d outside batch of %d", i, m, f.batchSize)
		}
	}

	var sliced int32
	for degree, ds := range f.DegSlice {
		if ds[1] < 0 {
			return errors.Errorf("degree %d: negative slice size %d", degree, ds[1])
		}
		if ds[0] != sliced {
			return errors.Errorf("degree %d: slice starts at %d, expected %d", degree, ds[0], sliced)
		}
		sliced += ds[1]
	}
	if int(sliced) != numAtoms {
		return errors.Errorf("degree slices cover %d of %d atoms", sliced, numAtoms)
	}

	for d, adj := range f.DegAdjs {
		degree := d + 1
		if len(adj) != int(f.DegSlice[degree][1]) {
			return errors.Errorf("degree %d: %d adjacency rows for %d atoms", degree, len(adj), f.DegSlice[degree][1])
		}
		for i, row := range adj {
			if len(row) != degree {
				return errors.Errorf("degree %d row %d: %d neighbors", degree, i, len(row))
			}
			for _, n := range row {
				if n < 0 || int(n) >= numAtoms {
					return errors.Errorf("degree %d row %d: neighbor %d out of range", degree, i, n)
				}
			}
		}
	}

	for t, labels := range f.Labels {
		if len(labels) != f.batchSize {
			return errors.Errorf("task %d: %d label rows for batch of %d", t, len(labels), f.batchSize)
		}
		for i, row := range labels {
			var sum float32
			for _, v := range row {
				sum += v
			}
			if len(row) != 2 || sum != 1 {
				return errors.Errorf("task %d sample %d: label row is not one hot", t, i)
			}
		}
	}

	if len(f.Weights) != f.batchSize {
		return errors.Errorf("weights have %d rows for batch of %d", len(f.Weights), f.batchSize)
	}
	for i, row := range f.Weights {
		if len(row) != len(f.Labels) {
			return errors.Errorf("sample %d: %d weights for %d tasks", i, len(row), len(f.Labels))
		}
	}

	return nil
}
