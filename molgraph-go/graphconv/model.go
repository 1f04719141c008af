package graphconv

import (
	"context"
	"log"

	"github.com/molgraph/molgraph/molgraph-go/dataset"
	"github.com/molgraph/molgraph/molgraph-go/metrics"
	"github.com/molgraph/molgraph/molgraph-golib/errors"
	"github.com/molgraph/molgraph/molgraph-golib/tensorflow"
)

// Config describes a frozen graph convolution model.
type Config struct {
	// GraphPath points at the frozen GraphDef, local or remote.
	GraphPath string
	// Scope is the name scope the graph's ops live under, may be empty.
	Scope string

	NumTasks  int
	BatchSize int

	// Seed fixes the batch shuffling order during training.
	Seed int64
}

// Model drives a frozen multitask graph convolution network: minibatches are
// adapted into feeds, and the graph's own training op updates its variables.
type Model struct {
	config Config
	model  *tensorflow.Model
}

// NewModel loads the frozen graph at config.GraphPath.
func NewModel(config Config) (*Model, error) {
	if config.NumTasks <= 0 || config.BatchSize <= 0 {
		return nil, errors.Errorf("invalid model config: NumTasks=%d BatchSize=%d",
			config.NumTasks, config.BatchSize)
	}

	model, err := tensorflow.NewModel(config.GraphPath)
	if err != nil {
		return nil, errors.Wrapf(err, "error loading graph from %s", config.GraphPath)
	}
	return &Model{config: config, model: model}, nil
}

// Unload releases the underlying session; a later call reloads it.
func (m *Model) Unload() {
	m.model.Unload()
}

// Init runs the graph's variable initializer when one is present. Graphs
// exported with their variables frozen in have no init op, so a missing op is
// not an error.
func (m *Model) Init() error {
	name := scoped(m.config.Scope, initOp)
	exists, err := m.model.OpExists(name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return m.model.RunTargets([]string{name})
}

// FitEpoch runs one shuffled training pass over d and returns the mean batch
// loss. The shuffle order is derived from the config seed and the epoch
// number, so restarted runs revisit the same orders.
func (m *Model) FitEpoch(d *dataset.Dataset, epoch int) (float64, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var batches int
	var totalLoss float64
	for r := range Generator(d, m.config.NumTasks, dataset.BatchOptions{
		BatchSize: m.config.BatchSize,
		Pad:       true,
		Seed:      m.config.Seed + int64(epoch),
		Ctx:       ctx,
	}) {
		if r.Err != nil {
			return 0, r.Err
		}

		res, err := m.model.RunWithTargets(
			r.Feed.FeedDict(m.config.Scope),
			[]string{scoped(m.config.Scope, lossOp)},
			[]string{scoped(m.config.Scope, trainStepOp)},
		)
		if err != nil {
			return 0, errors.Wrapf(err, "error on training batch %d", batches)
		}
		loss, err := scalarLoss(res, scoped(m.config.Scope, lossOp))
		if err != nil {
			return 0, err
		}
		totalLoss += loss
		batches++
	}
	if batches == 0 {
		return 0, errors.New("cannot train on an empty dataset")
	}
	return totalLoss / float64(batches), nil
}

// scalarLoss extracts the fetched loss, which must be a float32 scalar.
func scalarLoss(res map[string]interface{}, op string) (float64, error) {
	loss, ok := res[op].(float32)
	if !ok {
		return 0, errors.Errorf("op %s returned %T, expected a float32 scalar", op, res[op])
	}
	return float64(loss), nil
}

// positiveScores extracts the positive class column from a fetched two class
// softmax output with at least size rows.
func positiveScores(res map[string]interface{}, op string, size int) ([]float64, error) {
	probs, ok := res[op].([][]float32)
	if !ok || len(probs) < size {
		return nil, errors.Errorf("op %s returned unexpected shape", op)
	}
	out := make([]float64, size)
	for i := 0; i < size; i++ {
		if len(probs[i]) < 2 {
			return nil, errors.Errorf("op %s returned %d classes for row %d, expected 2", op, len(probs[i]), i)
		}
		out[i] = float64(probs[i][1])
	}
	return out, nil
}

// Fit trains for the given number of epochs, logging the mean loss of each.
func (m *Model) Fit(d *dataset.Dataset, epochs int) error {
	for epoch := 0; epoch < epochs; epoch++ {
		loss, err := m.FitEpoch(d, epoch)
		if err != nil {
			return err
		}
		log.Printf("epoch %d: mean loss %f", epoch, loss)
	}
	return nil
}

// Predict returns the positive class probability for every sample and task,
// indexed [sample][task]. Padding added to fill the final batch is stripped
// from the result.
func (m *Model) Predict(d *dataset.Dataset) ([][]float64, error) {
	fetches := make([]string, 0, m.config.NumTasks)
	for t := 0; t < m.config.NumTasks; t++ {
		fetches = append(fetches, scoped(m.config.Scope, outputOp(t)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var scores [][]float64
	for r := range Generator(d, m.config.NumTasks, dataset.BatchOptions{
		BatchSize:     m.config.BatchSize,
		Deterministic: true,
		Pad:           true,
		Ctx:           ctx,
	}) {
		if r.Err != nil {
			return nil, r.Err
		}

		res, err := m.model.Run(r.Feed.FeedDict(m.config.Scope), fetches)
		if err != nil {
			return nil, errors.Wrapf(err, "error predicting batch")
		}

		batchScores := make([][]float64, r.Batch.Size)
		for i := range batchScores {
			batchScores[i] = make([]float64, m.config.NumTasks)
		}
		for t, fetch := range fetches {
			col, err := positiveScores(res, fetch, r.Batch.Size)
			if err != nil {
				return nil, err
			}
			for i, v := range col {
				batchScores[i][t] = v
			}
		}
		scores = append(scores, batchScores...)
	}
	return scores, nil
}

// Evaluate predicts on d and scores each task by ROC AUC, returning the per
// task scores and their mean.
func (m *Model) Evaluate(d *dataset.Dataset) ([]metrics.TaskScore, float64, error) {
	if len(d.Tasks()) != m.config.NumTasks {
		return nil, 0, errors.Errorf("dataset has %d tasks, model expects %d", len(d.Tasks()), m.config.NumTasks)
	}
	scores, err := m.Predict(d)
	if err != nil {
		return nil, 0, err
	}

	perTask := metrics.ROCAUCPerTask(d.Tasks(), d.Y, scores, d.W)
	mean, err := metrics.Mean(perTask)
	if err != nil {
		return nil, 0, err
	}
	return perTask, mean, nil
}
