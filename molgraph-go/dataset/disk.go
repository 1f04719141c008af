package dataset

import (
	"compress/gzip"
	"encoding/gob"

	"github.com/molgraph/molgraph/molgraph-go/chem/featurize"
	"github.com/molgraph/molgraph/molgraph-golib/errors"
	"github.com/molgraph/molgraph/molgraph-golib/fileutil"
)

type diskDataset struct {
	Tasks []string
	X     []*featurize.ConvMol
	Y     [][]float64
	W     [][]float64
	IDs   []string
}

// Save writes the dataset to a local path as a gzipped gob stream.
func (d *Dataset) Save(path string) error {
	w, err := fileutil.NewWriter(path)
	if err != nil {
		return errors.Wrapf(err, "error creating writer for %s", path)
	}

	gz := gzip.NewWriter(w)
	if err := gob.NewEncoder(gz).Encode(diskDataset{
		Tasks: d.tasks,
		X:     d.X,
		Y:     d.Y,
		W:     d.W,
		IDs:   d.IDs,
	}); err != nil {
		w.Close()
		return errors.Wrapf(err, "error encoding dataset to %s", path)
	}
	if err := gz.Close(); err != nil {
		w.Close()
		return errors.Wrapf(err, "error flushing dataset to %s", path)
	}
	return w.Close()
}

// Load reads a dataset written by Save.
func Load(path string) (*Dataset, error) {
	r, err := fileutil.NewCachedReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening dataset %s", path)
	}
	defer r.Close()

	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading dataset %s", path)
	}
	defer gz.Close()

	var disk diskDataset
	if err := gob.NewDecoder(gz).Decode(&disk); err != nil {
		return nil, errors.Wrapf(err, "error decoding dataset %s", path)
	}
	return New(disk.Tasks, disk.X, disk.Y, disk.W, disk.IDs)
}
