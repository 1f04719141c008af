package main

import (
	"log"
	"runtime"
	"time"

	arg "github.com/alexflint/go-arg"
	humanize "github.com/dustin/go-humanize"
	"github.com/molgraph/molgraph/molgraph-go/dataset"
	"github.com/molgraph/molgraph/molgraph-golib/awsutil"
	"github.com/molgraph/molgraph/molgraph-golib/fileutil"
)

func main() {
	args := struct {
		Input     string `arg:"help:CSV to featurize (local path or URL)"`
		Output    string `arg:"help:where to write the featurized dataset"`
		NumGo     int
		S3Cache   string `arg:"help:override the local S3 cache directory"`
		LocalOnly bool   `arg:"help:fail instead of fetching from S3"`
	}{
		Input:  dataset.DefaultTox21Path,
		Output: "tox21.gob.gz",
		NumGo:  runtime.NumCPU(),
	}
	arg.MustParse(&args)

	if args.S3Cache != "" {
		awsutil.SetCacheRoot(args.S3Cache)
	}
	if args.LocalOnly {
		fileutil.SetLocalOnly()
	}

	start := time.Now()
	d, err := dataset.LoadTox21(dataset.Tox21Options{
		Path:  args.Input,
		NumGo: args.NumGo,
	})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("featurized %s molecules in %v", humanize.Comma(int64(d.Len())), time.Since(start))

	if err := d.Save(args.Output); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", args.Output)
}
