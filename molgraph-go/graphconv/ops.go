package graphconv

import (
	"fmt"
	"path"
)

// Op names inside the frozen graph, relative to the model scope. The graph
// builder on the python side emits placeholders and outputs under these
// names; keep the two in sync.
const (
	atomFeaturesOp = "topology/atom_features"
	degSliceOp     = "topology/deg_slice"
	membershipOp   = "topology/membership"
	weightsOp      = "weights"

	lossOp      = "train/loss"
	trainStepOp = "train/step"
	initOp      = "init"
)

func degAdjOp(degree int) string {
	return fmt.Sprintf("topology/deg_adj_%d", degree)
}

func labelOp(task int) string {
	return fmt.Sprintf("labels/task_%d", task)
}

func outputOp(task int) string {
	return fmt.Sprintf("output/task_%d", task)
}

func scoped(scope, op string) string {
	return path.Join(scope, op)
}
