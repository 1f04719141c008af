package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/molgraph/molgraph/molgraph-go/chem/featurize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDataset(t *testing.T, smiles []string) *Dataset {
	f := featurize.NewFeaturizer()

	var X []*featurize.ConvMol
	var Y, W [][]float64
	var ids []string
	for i, s := range smiles {
		cm, err := f.Featurize(s)
		require.NoError(t, err)
		X = append(X, cm)
		Y = append(Y, []float64{float64(i % 2), 0})
		W = append(W, []float64{1, 1})
		ids = append(ids, s)
	}

	d, err := New([]string{"assay-a", "assay-b"}, X, Y, W, ids)
	require.NoError(t, err)
	return d
}

func TestNewLengthChecks(t *testing.T) {
	d := buildDataset(t, []string{"C", "CC"})

	_, err := New(d.Tasks(), d.X, d.Y[:1], d.W, d.IDs)
	assert.Error(t, err)

	_, err = New([]string{"only-one"}, d.X, d.Y, d.W, d.IDs)
	assert.Error(t, err)
}

func TestSelectOrderAndSharing(t *testing.T) {
	d := buildDataset(t, []string{"C", "CC", "CCC"})

	sub := d.Select([]int{2, 0})
	require.Equal(t, 2, sub.Len())
	assert.Equal(t, []string{"CCC", "C"}, sub.IDs)
	assert.Same(t, d.X[2], sub.X[0])
}

func TestIterBatchesDeterministic(t *testing.T) {
	d := buildDataset(t, []string{"C", "CC", "CCC", "CCCC", "CCCCC"})

	var ids []string
	var epochs []int
	for b := range d.IterBatches(BatchOptions{BatchSize: 2, Epochs: 2, Deterministic: true}) {
		ids = append(ids, b.IDs...)
		epochs = append(epochs, b.Epoch)
	}

	assert.Equal(t, []string{
		"C", "CC", "CCC", "CCCC", "CCCCC",
		"C", "CC", "CCC", "CCCC", "CCCCC",
	}, ids)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, epochs)
}

func TestIterBatchesPadding(t *testing.T) {
	d := buildDataset(t, []string{"C", "CC", "CCC"})

	var batches []Batch
	for b := range d.IterBatches(BatchOptions{BatchSize: 2, Deterministic: true, Pad: true}) {
		batches = append(batches, b)
	}

	require.Len(t, batches, 2)
	last := batches[1]
	assert.Equal(t, 1, last.Size)
	require.Len(t, last.X, 2)
	assert.Same(t, last.X[0], last.X[1])
	assert.Equal(t, []float64{0, 0}, last.W[1])
	assert.Equal(t, []float64{1, 1}, last.W[0])
}

func TestIterBatchesShuffleReproducible(t *testing.T) {
	d := buildDataset(t, []string{"C", "CC", "CCC", "CCCC", "CCCCC", "CCCCCC"})

	collect := func(seed int64) []string {
		var ids []string
		for b := range d.IterBatches(BatchOptions{BatchSize: 2, Seed: seed}) {
			ids = append(ids, b.IDs...)
		}
		return ids
	}

	first := collect(7)
	assert.Equal(t, first, collect(7))
	assert.ElementsMatch(t, d.IDs, first)
}

func TestIterBatchesCancelReleasesProducer(t *testing.T) {
	d := buildDataset(t, []string{"C", "CC", "CCC", "CCCC", "CCCCC", "CCCCCC"})

	before := runtime.NumGoroutine()
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		ch := d.IterBatches(BatchOptions{BatchSize: 2, Deterministic: true, Ctx: ctx})
		// take one batch and walk away without draining the channel
		_, ok := <-ch
		require.True(t, ok)
		cancel()
	}
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, 2*time.Second, 10*time.Millisecond, "batch producers still blocked after cancel")
}

func TestSaveLoadRoundtrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "dataset-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	d := buildDataset(t, []string{"CCO", "c1ccccc1"})
	path := filepath.Join(dir, "dataset.gob.gz")
	require.NoError(t, d.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, d.Tasks(), loaded.Tasks())
	assert.Equal(t, d.IDs, loaded.IDs)
	assert.Equal(t, d.Y, loaded.Y)
	assert.Equal(t, d.W, loaded.W)
	require.Equal(t, d.Len(), loaded.Len())
	for i := range d.X {
		assert.Equal(t, d.X[i].AtomFeatures, loaded.X[i].AtomFeatures)
		assert.Equal(t, d.X[i].DegSlice, loaded.X[i].DegSlice)
		assert.Equal(t, d.X[i].DegAdjLists, loaded.X[i].DegAdjLists)
	}
}

func TestIndexSplitter(t *testing.T) {
	d := buildDataset(t, []string{"C", "CC", "CCC", "CCCC", "CCCCC",
		"CCCCCC", "CCCCCCC", "CCCCCCCC", "CCCCCCCCC", "CCCCCCCCCC"})

	train, valid, test, err := IndexSplitter{}.Split(d, 0.8, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 8, train.Len())
	assert.Equal(t, 1, valid.Len())
	assert.Equal(t, 1, test.Len())
	assert.Equal(t, "C", train.IDs[0])
	assert.Equal(t, "CCCCCCCCC", valid.IDs[0])
	assert.Equal(t, "CCCCCCCCCC", test.IDs[0])
}

func TestRandomSplitterSeeded(t *testing.T) {
	d := buildDataset(t, []string{"C", "CC", "CCC", "CCCC", "CCCCC",
		"CCCCCC", "CCCCCCC", "CCCCCCCC", "CCCCCCCCC", "CCCCCCCCCC"})

	train1, valid1, test1, err := RandomSplitter{Seed: 42}.Split(d, 0.8, 0.1)
	require.NoError(t, err)
	train2, valid2, test2, err := RandomSplitter{Seed: 42}.Split(d, 0.8, 0.1)
	require.NoError(t, err)

	assert.Equal(t, train1.IDs, train2.IDs)
	assert.Equal(t, valid1.IDs, valid2.IDs)
	assert.Equal(t, test1.IDs, test2.IDs)

	var all []string
	all = append(all, train1.IDs...)
	all = append(all, valid1.IDs...)
	all = append(all, test1.IDs...)
	assert.ElementsMatch(t, d.IDs, all)

	_, _, _, err = RandomSplitter{}.Split(d, 0.9, 0.2)
	assert.Error(t, err)
}

func TestBalancingTransformer(t *testing.T) {
	d := buildDataset(t, []string{"C", "CC", "CCC", "CCCC"})
	// Task 0: three negatives, one positive, task 1: one of each plus two
	// missing labels.
	d.Y = [][]float64{{0, 0}, {0, 1}, {0, 0}, {1, 0}}
	d.W = [][]float64{{1, 1}, {1, 1}, {1, 0}, {1, 0}}

	FitBalancing(d).Transform(d)

	for task := 0; task < 2; task++ {
		var posW, negW float64
		for i := range d.Y {
			if d.Y[i][task] > 0 {
				posW += d.W[i][task]
			} else {
				negW += d.W[i][task]
			}
		}
		assert.InDelta(t, posW, negW, 1e-9, "task %d", task)
	}
	// Missing labels stay missing.
	assert.Zero(t, d.W[2][1])
	assert.Zero(t, d.W[3][1])
}

func TestLoadTox21SplitsBalanced(t *testing.T) {
	dir, err := ioutil.TempDir("", "tox21-splits-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	header := "NR-AR,NR-AR-LBD,NR-AhR,NR-Aromatase,NR-ER,NR-ER-LBD,NR-PPAR-gamma,SR-ARE,SR-ATAD5,SR-HSE,SR-MMP,SR-p53,mol_id,smiles\n"
	var rows string
	for i, s := range []string{"C", "CC", "CCC", "CCCC", "CCCCC",
		"CCCCCC", "CCCCCCC", "CCCCCCCC", "CCCCCCCCC", "CCCCCCCCCC"} {
		label := "0"
		if i%3 == 0 {
			label = "1"
		}
		rows += fmt.Sprintf("%s,0,0,0,0,0,0,0,0,0,0,0,TOX%04d,%s\n", label, i, s)
	}
	path := filepath.Join(dir, "tox21.csv")
	require.NoError(t, ioutil.WriteFile(path, []byte(header+rows), 0644))

	tasks, train, valid, test, balancer, err := LoadTox21Splits(Tox21Options{Path: path, NumGo: 2})
	require.NoError(t, err)

	assert.Equal(t, Tox21Tasks, tasks)
	assert.Equal(t, 8, train.Len())
	assert.Equal(t, 1, valid.Len())
	assert.Equal(t, 1, test.Len())
	require.NotNil(t, balancer)

	// Balancing fitted on train equalizes the class mass on task 0.
	var posW, negW float64
	for i := range train.Y {
		if train.Y[i][0] > 0 {
			posW += train.W[i][0]
		} else {
			negW += train.W[i][0]
		}
	}
	assert.InDelta(t, posW, negW, 1e-9)
}

func TestLoadTox21LocalFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "tox21-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	csv := "NR-AR,NR-AR-LBD,NR-AhR,NR-Aromatase,NR-ER,NR-ER-LBD,NR-PPAR-gamma,SR-ARE,SR-ATAD5,SR-HSE,SR-MMP,SR-p53,mol_id,smiles\n" +
		"0,0,1,,0,0,0,1,0,0,0,0,TOX3021,CCO\n" +
		"1,,,,,,,,,,,1,TOX5110,c1ccccc1\n" +
		"0,0,0,0,0,0,0,0,0,0,0,0,TOX9999,C1CC\n"
	path := filepath.Join(dir, "tox21.csv")
	require.NoError(t, ioutil.WriteFile(path, []byte(csv), 0644))

	d, err := LoadTox21(Tox21Options{Path: path, NumGo: 2})
	require.NoError(t, err)

	// The unclosed ring in the last row drops it.
	require.Equal(t, 2, d.Len())
	assert.Equal(t, Tox21Tasks, d.Tasks())
	assert.Equal(t, []string{"TOX3021", "TOX5110"}, d.IDs)

	assert.Equal(t, 1.0, d.Y[0][2])
	assert.Zero(t, d.W[0][3])
	assert.Equal(t, 1.0, d.W[0][2])

	assert.Equal(t, 1.0, d.Y[1][0])
	assert.Equal(t, 1.0, d.Y[1][11])
	assert.Zero(t, d.W[1][1])
}

func TestLoadTox21DropReport(t *testing.T) {
	dir, err := ioutil.TempDir("", "tox21-drop-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	csv := "NR-AR,NR-AR-LBD,NR-AhR,NR-Aromatase,NR-ER,NR-ER-LBD,NR-PPAR-gamma,SR-ARE,SR-ATAD5,SR-HSE,SR-MMP,SR-p53,mol_id,smiles\n" +
		"0,0,0,0,0,0,0,0,0,0,0,0,TOX0001,CCO\n" +
		"0,0,0,0,0,0,0,0,0,0,0,0,TOXBAD1,C1CC\n" +
		"0,0,0,0,0,0,0,0,0,0,0,0,TOXBAD2,=CC\n"
	path := filepath.Join(dir, "tox21.csv")
	require.NoError(t, ioutil.WriteFile(path, []byte(csv), 0644))

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	d, err := LoadTox21(Tox21Options{Path: path, NumGo: 2})
	require.NoError(t, err)
	require.Equal(t, 1, d.Len())

	// The summary names every dropped entry along with its parse error.
	out := buf.String()
	assert.Contains(t, out, "dropped 2 of 3 entries")
	assert.Contains(t, out, "TOXBAD1")
	assert.Contains(t, out, "TOXBAD2")
}
