package main

import (
	"log"
	"os"

	arg "github.com/alexflint/go-arg"
	"github.com/gocarina/gocsv"
	"github.com/molgraph/molgraph/molgraph-go/dataset"
	"github.com/molgraph/molgraph/molgraph-go/graphconv"
)

type taskResult struct {
	Task string  `csv:"task"`
	AUC  float64 `csv:"roc_auc"`
	// Tasks with a single class in the split have no defined AUC.
	Defined bool `csv:"defined"`
}

func main() {
	args := struct {
		Graph     string `arg:"required,help:path to the frozen model graph"`
		Dataset   string `arg:"help:featurized dataset; empty loads Tox21 from the public mirror"`
		Out       string `arg:"help:CSV to write per-task scores to; empty writes to stdout"`
		Scope     string
		BatchSize int
		Seed      int64 `arg:"help:split seed; must match the one used for training"`
	}{
		Scope:     "model",
		BatchSize: 50,
		Seed:      42,
	}
	arg.MustParse(&args)

	var full *dataset.Dataset
	var err error
	if args.Dataset != "" {
		full, err = dataset.Load(args.Dataset)
	} else {
		full, err = dataset.LoadTox21(dataset.Tox21Options{})
	}
	if err != nil {
		log.Fatal(err)
	}

	_, _, test, err := dataset.RandomSplitter{Seed: args.Seed}.Split(full, 0.8, 0.1)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("evaluating on %d held out molecules", test.Len())

	model, err := graphconv.NewModel(graphconv.Config{
		GraphPath: args.Graph,
		Scope:     args.Scope,
		NumTasks:  len(full.Tasks()),
		BatchSize: args.BatchSize,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer model.Unload()

	scores, mean, err := model.Evaluate(test)
	if err != nil {
		log.Fatal(err)
	}

	results := make([]taskResult, 0, len(scores))
	for _, s := range scores {
		results = append(results, taskResult{Task: s.Task, AUC: s.Score, Defined: s.Valid})
	}

	out := os.Stdout
	if args.Out != "" {
		f, err := os.Create(args.Out)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		out = f
	}
	if err := gocsv.Marshal(results, out); err != nil {
		log.Fatal(err)
	}
	log.Printf("test mean auc %.4f", mean)
}
