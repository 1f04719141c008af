package dataset

import (
	"compress/gzip"
	"io"
	"log"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"
	"github.com/molgraph/molgraph/molgraph-go/chem/featurize"
	"github.com/molgraph/molgraph/molgraph-golib/errors"
	"github.com/molgraph/molgraph/molgraph-golib/fileutil"
	"github.com/molgraph/molgraph/molgraph-golib/workerpool"
	"github.com/sbwhitecap/tqdm"
	"github.com/sbwhitecap/tqdm/iterators"
)

// Tox21Tasks lists the twelve assay columns of the Tox21 screening set, in
// the column order of the source CSV.
var Tox21Tasks = []string{
	"NR-AR", "NR-AR-LBD", "NR-AhR", "NR-Aromatase", "NR-ER", "NR-ER-LBD",
	"NR-PPAR-gamma", "SR-ARE", "SR-ATAD5", "SR-HSE", "SR-MMP", "SR-p53",
}

// DefaultTox21Path is the public mirror of the Tox21 CSV.
const DefaultTox21Path = "https://deepchem-data.s3-us-west-1.amazonaws.com/datasets/tox21.csv.gz"

type tox21Row struct {
	MolID  string `csv:"mol_id"`
	SMILES string `csv:"smiles"`

	NRAR        string `csv:"NR-AR"`
	NRARLBD     string `csv:"NR-AR-LBD"`
	NRAhR       string `csv:"NR-AhR"`
	NRAromatase string `csv:"NR-Aromatase"`
	NRER        string `csv:"NR-ER"`
	NRERLBD     string `csv:"NR-ER-LBD"`
	NRPPARGamma string `csv:"NR-PPAR-gamma"`
	SRARE       string `csv:"SR-ARE"`
	SRATAD5     string `csv:"SR-ATAD5"`
	SRHSE       string `csv:"SR-HSE"`
	SRMMP       string `csv:"SR-MMP"`
	SRP53       string `csv:"SR-p53"`
}

func (r tox21Row) labels() []string {
	return []string{
		r.NRAR, r.NRARLBD, r.NRAhR, r.NRAromatase, r.NRER, r.NRERLBD,
		r.NRPPARGamma, r.SRARE, r.SRATAD5, r.SRHSE, r.SRMMP, r.SRP53,
	}
}

// Tox21Options controls loading of the Tox21 dataset.
type Tox21Options struct {
	// Path defaults to DefaultTox21Path; local, http and s3 paths work.
	Path string
	// NumGo is the number of featurization workers, default NumCPU.
	NumGo int

	// Splitting options, used by LoadTox21Splits only. Splitter defaults to
	// RandomSplitter{Seed: 42}, the fractions to 0.8/0.1.
	Splitter  Splitter
	FracTrain float64
	FracValid float64
}

// LoadTox21 downloads (or reads) the Tox21 CSV and featurizes every entry.
// Entries whose structures fail to parse are dropped with a log line. Missing
// assay labels get weight zero.
func LoadTox21(opts Tox21Options) (*Dataset, error) {
	if opts.Path == "" {
		opts.Path = DefaultTox21Path
	}
	if opts.NumGo <= 0 {
		opts.NumGo = runtime.NumCPU()
	}

	rows, err := readTox21Rows(opts.Path)
	if err != nil {
		return nil, err
	}

	feats := make([]*featurize.ConvMol, len(rows))
	featErrs := make([]error, len(rows))
	featurizer := featurize.NewFeaturizer()

	pool := workerpool.New(opts.NumGo)
	defer pool.Stop()

	const chunk = 512
	numChunks := (len(rows) + chunk - 1) / chunk
	if err := tqdm.With(iterators.Interval(0, numChunks), "Featurizing", func(c interface{}) (brk bool) {
		start := c.(int) * chunk
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}

		var wg sync.WaitGroup
		wg.Add(end - start)
		jobs := make([]workerpool.Job, 0, end-start)
		for i := start; i < end; i++ {
			i := i
			jobs = append(jobs, func() error {
				defer wg.Done()
				// Some screening entries are unparseable, record and keep going.
				feats[i], featErrs[i] = featurizer.Featurize(rows[i].SMILES)
				return nil
			})
		}
		pool.Add(jobs)
		wg.Wait()
		return
	}); err != nil {
		return nil, errors.Wrapf(err, "error featurizing %s", opts.Path)
	}

	var X []*featurize.ConvMol
	var Y, W [][]float64
	var ids []string
	var dropErrs errors.Errors
	for i, row := range rows {
		if featErrs[i] != nil {
			dropErrs = errors.Append(dropErrs, errors.Wrapf(featErrs[i], "dropping %s", row.MolID))
			continue
		}
		y, w, err := parseLabels(row.labels())
		if err != nil {
			return nil, errors.Wrapf(err, "error in labels for %s", row.MolID)
		}
		X = append(X, feats[i])
		Y = append(Y, y)
		W = append(W, w)
		ids = append(ids, row.MolID)
	}
	if dropErrs != nil {
		log.Printf("dropped %d of %d entries from %s:\n%v", dropErrs.Len(), len(rows), opts.Path, dropErrs)
	}

	return New(Tox21Tasks, X, Y, W, ids)
}

// LoadTox21Splits loads Tox21, splits it into train/valid/test and balances
// every split with a transformer fitted on the training set. The fitted
// transformer is returned so callers can apply it to further data.
func LoadTox21Splits(opts Tox21Options) (tasks []string, train, valid, test *Dataset, balancer Transformer, err error) {
	if opts.Splitter == nil {
		opts.Splitter = RandomSplitter{Seed: 42}
	}
	if opts.FracTrain == 0 {
		opts.FracTrain = 0.8
	}
	if opts.FracValid == 0 {
		opts.FracValid = 0.1
	}

	full, err := LoadTox21(opts)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	train, valid, test, err = opts.Splitter.Split(full, opts.FracTrain, opts.FracValid)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	fitted := FitBalancing(train)
	fitted.Transform(train)
	fitted.Transform(valid)
	fitted.Transform(test)
	return full.Tasks(), train, valid, test, fitted, nil
}

func readTox21Rows(path string) (rows []tox21Row, err error) {
	r, err := fileutil.NewCachedReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %s", path)
	}
	defer errors.Defer(&err, r.Close)

	var src io.Reader = r
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading %s", path)
		}
		defer gz.Close()
		src = gz
	}

	if err := gocsv.Unmarshal(src, &rows); err != nil {
		return nil, errors.Wrapf(err, "error parsing %s", path)
	}
	return rows, nil
}

func parseLabels(labels []string) ([]float64, []float64, error) {
	y := make([]float64, len(labels))
	w := make([]float64, len(labels))
	for t, s := range labels {
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "bad label %q", s)
		}
		y[t] = v
		w[t] = 1
	}
	return y, w, nil
}
