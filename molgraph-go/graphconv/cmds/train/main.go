package main

import (
	"log"

	arg "github.com/alexflint/go-arg"
	"github.com/molgraph/molgraph/molgraph-go/dataset"
	"github.com/molgraph/molgraph/molgraph-go/graphconv"
	"github.com/molgraph/molgraph/molgraph-golib/logging"
	"github.com/sbwhitecap/tqdm"
	"github.com/sbwhitecap/tqdm/iterators"
)

// set MOLGRAPH_RUN (or pass --runid) to tag every log line of a training run
var logger = logging.Basic

func maybeQuit(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	args := struct {
		Graph     string `arg:"required,help:path to the frozen model graph"`
		Dataset   string `arg:"help:featurized dataset (see dataset/cmds/featurize); empty loads Tox21 from the public mirror"`
		Scope     string
		Epochs    int
		BatchSize int
		Seed      int64
		RunID     string `arg:"help:identifier added to every log line"`
	}{
		Scope:     "model",
		Epochs:    10,
		BatchSize: 50,
		Seed:      42,
	}
	arg.MustParse(&args)

	if args.RunID != "" {
		logger = logging.NewForRun(args.RunID)
	}

	var full *dataset.Dataset
	var err error
	if args.Dataset != "" {
		full, err = dataset.Load(args.Dataset)
	} else {
		full, err = dataset.LoadTox21(dataset.Tox21Options{})
	}
	maybeQuit(err)
	logger.Printf("loaded %d molecules, %d tasks", full.Len(), len(full.Tasks()))

	train, valid, _, err := dataset.RandomSplitter{Seed: args.Seed}.Split(full, 0.8, 0.1)
	maybeQuit(err)

	balancer := dataset.FitBalancing(train)
	balancer.Transform(train)
	balancer.Transform(valid)

	model, err := graphconv.NewModel(graphconv.Config{
		GraphPath: args.Graph,
		Scope:     args.Scope,
		NumTasks:  len(full.Tasks()),
		BatchSize: args.BatchSize,
		Seed:      args.Seed,
	})
	maybeQuit(err)
	defer model.Unload()
	maybeQuit(model.Init())

	maybeQuit(tqdm.With(iterators.Interval(0, args.Epochs), "Training", func(c interface{}) (brk bool) {
		epoch := c.(int)
		loss, err := model.FitEpoch(train, epoch)
		maybeQuit(err)
		logger.Printf("epoch %d: mean loss %f", epoch, loss)
		return
	}))

	scores, mean, err := model.Evaluate(valid)
	maybeQuit(err)
	for _, s := range scores {
		if s.Valid {
			logger.Printf("%-15s auc %.4f", s.Task, s.Score)
		} else {
			logger.Printf("%-15s auc undefined", s.Task)
		}
	}
	logger.Printf("validation mean auc %.4f", mean)
}
