package tensorflow

import (
	"io/ioutil"

	"github.com/molgraph/molgraph/molgraph-golib/errors"
	"github.com/molgraph/molgraph/molgraph-golib/fileutil"
	"github.com/molgraph/molgraph/molgraph-golib/lazy"
	tf "github.com/tensorflow/tensorflow/tensorflow/go"
)

// ForceLoadCycle will force a load and unload of the model. One use-case for this is to
// force loading of the model early so that a bad path fails before training starts.
var ForceLoadCycle = false

// RunCallback is a function that can be called whenever Run is called, with the inputs and results of the model
type RunCallback func(feeds map[string]interface{}, fetches []string, result map[string]interface{}, err error)

// Model wraps a Tensorflow graph and the session executing it
type Model struct {
	*lazy.Loader
	session *tf.Session
	graph   *tf.Graph

	// RunCallback, if set, is called whenever Run is called
	RunCallback RunCallback
}

// NewModel loads a Tensorflow model (serialized as a GraphDef proto) from the given
// local/S3/http path. Graphs frozen with Tensorflow's freeze_graph utility load directly;
// graphs carrying variables must include an init op to run before training.
func NewModel(path string) (*Model, error) {
	m := &Model{}

	load := func() error {
		r, err := fileutil.NewCachedReader(path)
		if err != nil {
			return err
		}
		defer r.Close()

		data, err := ioutil.ReadAll(r)
		if err != nil {
			return errors.Wrapf(err, "error reading graph definition")
		}

		graph := tf.NewGraph()
		if err := graph.Import(data, ""); err != nil {
			return errors.Wrapf(err, "error importing graph")
		}

		sess, err := tf.NewSession(graph, nil)
		if err != nil {
			return errors.Wrapf(err, "error creating session")
		}

		m.graph = graph
		m.session = sess
		return nil
	}

	unload := func() {
		if m.session != nil {
			m.session.Close()
		}
		m.session = nil
		m.graph = nil
	}

	// Force a load & unload to surface path errors early
	if ForceLoadCycle {
		err := load()
		if err != nil {
			return nil, err
		}
		unload()
	}

	m.Loader = lazy.NewLoader(load, unload)

	return m, nil
}

// Unload the model
func (m *Model) Unload() {
	m.Loader.Unload()
}

// OpExists reports whether the graph contains an operation with the given name.
func (m *Model) OpExists(name string) (bool, error) {
	err := m.Loader.LoadAndLock()
	if err != nil {
		return false, err
	}
	defer m.Loader.Unlock()
	for _, op := range m.graph.Operations() {
		if op.Name() == name {
			return true, nil
		}
	}
	return false, nil
}

// RunTargets runs the named target operations (operations with no fetched outputs),
// e.g. a variable initializer.
func (m *Model) RunTargets(targets []string) error {
	_, err := m.RunWithTargets(nil, nil, targets)
	return err
}

// Run takes in a map of feed tensors, keyed by the operation names, as well as a slice of operations to fetch.
// As output, it returns a map of output operation names to the resulting output tensors.
func (m *Model) Run(feeds map[string]interface{}, fetches []string) (map[string]interface{}, error) {
	return m.RunWithTargets(feeds, fetches, nil)
}

// RunWithTargets is Run with additional target operations to step, e.g. a training op.
func (m *Model) RunWithTargets(feeds map[string]interface{}, fetches []string, targets []string) (map[string]interface{}, error) {
	res, err := m.run(feeds, fetches, targets)
	if m.RunCallback != nil {
		m.RunCallback(feeds, fetches, res, err)
	}
	return res, err
}

func (m *Model) run(feeds map[string]interface{}, fetches []string, targets []string) (map[string]interface{}, error) {
	err := m.Loader.LoadAndLock()
	if err != nil {
		return nil, err
	}
	defer m.Loader.Unlock()

	tfFeeds := make(map[tf.Output]*tf.Tensor)
	for op, val := range feeds {
		out, err := m.tfOut(op)
		if err != nil {
			return nil, err
		}
		tensor, err := tf.NewTensor(val)
		if err != nil {
			return nil, errors.Wrapf(err, "error creating tensor for '%s'", op)
		}
		tfFeeds[out] = tensor
	}

	var tfFetches []tf.Output
	for _, op := range fetches {
		out, err := m.tfOut(op)
		if err != nil {
			return nil, err
		}
		tfFetches = append(tfFetches, out)
	}

	var tfTargets []*tf.Operation
	for _, name := range targets {
		op := m.graph.Operation(name)
		if op == nil {
			return nil, errors.Errorf("unable to find target op '%s'", name)
		}
		tfTargets = append(tfTargets, op)
	}

	res, err := m.session.Run(tfFeeds, tfFetches, tfTargets)
	if err != nil {
		return nil, errors.Wrapf(err, "error running model")
	}

	out := make(map[string]interface{})
	for i, op := range fetches {
		out[op] = res[i].Value()
	}

	return out, nil
}

func (m *Model) tfOut(opName string) (tf.Output, error) {
	op := m.graph.Operation(opName)
	if op == nil {
		return tf.Output{}, errors.Errorf("could not find op with name: %s", opName)
	}

	return tf.Output{
		Op:    op,
		Index: 0,
	}, nil
}
