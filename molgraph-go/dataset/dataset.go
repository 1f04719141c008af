package dataset

import (
	"context"
	"math/rand"

	"github.com/molgraph/molgraph/molgraph-go/chem/featurize"
	"github.com/molgraph/molgraph/molgraph-golib/errors"
)

// Dataset is an in-memory multitask dataset: one featurized molecule per
// sample, with a label and a weight per (sample, task) pair. A weight of zero
// marks a missing label.
type Dataset struct {
	tasks []string

	X   []*featurize.ConvMol
	Y   [][]float64
	W   [][]float64
	IDs []string
}

// New builds a Dataset after checking that all per-sample slices agree in
// length and that every label/weight row covers every task.
func New(tasks []string, X []*featurize.ConvMol, Y, W [][]float64, ids []string) (*Dataset, error) {
	n := len(X)
	if len(Y) != n || len(W) != n || len(ids) != n {
		return nil, errors.Errorf("inconsistent dataset lengths: X=%d Y=%d W=%d ids=%d",
			len(X), len(Y), len(W), len(ids))
	}
	for i := range Y {
		if len(Y[i]) != len(tasks) || len(W[i]) != len(tasks) {
			return nil, errors.Errorf("sample %d: labels/weights must cover all %d tasks", i, len(tasks))
		}
	}
	return &Dataset{tasks: tasks, X: X, Y: Y, W: W, IDs: ids}, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.X)
}

// Tasks returns the task names.
func (d *Dataset) Tasks() []string {
	return d.tasks
}

// Select returns a new Dataset containing the samples at the given indices,
// in the given order. The underlying per-sample values are shared.
func (d *Dataset) Select(indices []int) *Dataset {
	out := &Dataset{
		tasks: d.tasks,
		X:     make([]*featurize.ConvMol, 0, len(indices)),
		Y:     make([][]float64, 0, len(indices)),
		W:     make([][]float64, 0, len(indices)),
		IDs:   make([]string, 0, len(indices)),
	}
	for _, i := range indices {
		out.X = append(out.X, d.X[i])
		out.Y = append(out.Y, d.Y[i])
		out.W = append(out.W, d.W[i])
		out.IDs = append(out.IDs, d.IDs[i])
	}
	return out
}

// Batch is one minibatch of samples. When the batch was padded to a fixed
// size, Size is the number of real samples and the padding rows carry zero
// weights.
type Batch struct {
	X   []*featurize.ConvMol
	Y   [][]float64
	W   [][]float64
	IDs []string

	Epoch int
	Size  int
}

// BatchOptions controls batch iteration.
type BatchOptions struct {
	BatchSize int
	// Epochs <= 0 is treated as 1.
	Epochs int
	// Deterministic iterates samples in dataset order; otherwise each epoch
	// is reshuffled from Seed.
	Deterministic bool
	// Pad cycles samples into the final short batch, with zeroed weights, so
	// every batch has exactly BatchSize samples.
	Pad  bool
	Seed int64

	// Ctx stops the producer when cancelled. Consumers that may abandon the
	// channel before it is drained must cancel it, or the producer goroutine
	// stays blocked on its send.
	Ctx context.Context
}

// IterBatches returns a channel yielding one Batch per minibatch per epoch.
// With Deterministic set, re-running over the same dataset yields identical
// batches in identical order.
func (d *Dataset) IterBatches(opts BatchOptions) <-chan Batch {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	epochs := opts.Epochs
	if epochs <= 0 {
		epochs = 1
	}
	ctx := opts.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	out := make(chan Batch)
	go func() {
		defer close(out)
		rnd := rand.New(rand.NewSource(opts.Seed))
		for epoch := 0; epoch < epochs; epoch++ {
			order := make([]int, d.Len())
			for i := range order {
				order[i] = i
			}
			if !opts.Deterministic {
				rnd.Shuffle(len(order), func(i, j int) {
					order[i], order[j] = order[j], order[i]
				})
			}

			for start := 0; start < len(order); start += opts.BatchSize {
				end := start + opts.BatchSize
				if end > len(order) {
					end = len(order)
				}
				b := d.batchFor(order[start:end], epoch)
				if opts.Pad {
					b = padBatch(b, opts.BatchSize)
				}
				select {
				case out <- b:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (d *Dataset) batchFor(indices []int, epoch int) Batch {
	b := Batch{Epoch: epoch, Size: len(indices)}
	for _, i := range indices {
		b.X = append(b.X, d.X[i])
		b.Y = append(b.Y, d.Y[i])
		b.W = append(b.W, d.W[i])
		b.IDs = append(b.IDs, d.IDs[i])
	}
	return b
}

// padBatch cycles samples from the front of the batch until it reaches size,
// zeroing the pad rows' weights so they contribute nothing downstream.
func padBatch(b Batch, size int) Batch {
	for i := 0; len(b.X) < size; i = (i + 1) % b.Size {
		b.X = append(b.X, b.X[i])
		b.Y = append(b.Y, b.Y[i])
		b.W = append(b.W, make([]float64, len(b.W[i])))
		b.IDs = append(b.IDs, b.IDs[i])
	}
	return b
}
