package main

import (
	"log"
	"os"

	arg "github.com/alexflint/go-arg"
	"github.com/molgraph/molgraph/molgraph-go/dataset"
	"github.com/molgraph/molgraph/molgraph-go/graphconv"
	"github.com/molgraph/molgraph/molgraph-go/metrics"
	chart "github.com/wcharczuk/go-chart"
)

func maybeQuit(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	args := struct {
		Graph     string `arg:"required,help:path to the frozen model graph"`
		Dataset   string `arg:"help:featurized dataset; empty loads Tox21 from the public mirror"`
		Out       string `arg:"help:PNG to write"`
		Scope     string
		BatchSize int
		Seed      int64
	}{
		Out:       "roc.png",
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
	maybeQuit(err)

	_, _, test, err := dataset.RandomSplitter{Seed: args.Seed}.Split(full, 0.8, 0.1)
	maybeQuit(err)

	model, err := graphconv.NewModel(graphconv.Config{
		GraphPath: args.Graph,
		Scope:     args.Scope,
		NumTasks:  len(full.Tasks()),
		BatchSize: args.BatchSize,
	})
	maybeQuit(err)
	defer model.Unload()

	scores, err := model.Predict(test)
	maybeQuit(err)

	var series []chart.Series
	for t, task := range test.Tasks() {
		points, err := metrics.ROCCurve(
			metrics.Column(test.Y, t),
			metrics.Column(scores, t),
			metrics.Column(test.W, t))
		if err != nil {
			log.Printf("skipping %s: %v", task, err)
			continue
		}

		xs := make([]float64, 0, len(points))
		ys := make([]float64, 0, len(points))
		for _, p := range points {
			xs = append(xs, p.FPR)
			ys = append(ys, p.TPR)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    task,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				Show:        true,
				StrokeColor: chart.GetAlternateColor(t),
			},
		})
	}
	series = append(series, chart.ContinuousSeries{
		Name:    "chance",
		XValues: []float64{0, 1},
		YValues: []float64{0, 1},
		Style: chart.Style{
			Show:            true,
			StrokeColor:     chart.ColorBlack,
			StrokeDashArray: []float64{5.0, 5.0},
		},
	})

	graph := chart.Chart{
		Title:      "ROC curves by assay",
		TitleStyle: chart.StyleShow(),
		XAxis: chart.XAxis{
			Name:      "False positive rate",
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
		},
		YAxis: chart.YAxis{
			Name:      "True positive rate",
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{
		chart.Legend(&graph),
	}

	f, err := os.Create(args.Out)
	maybeQuit(err)
	maybeQuit(graph.Render(chart.PNG, f))
	maybeQuit(f.Close())
	log.Printf("wrote %s", args.Out)
}
