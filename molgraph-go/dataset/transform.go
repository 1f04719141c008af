package dataset

// Transformer rewrites a dataset's labels or weights in place.
type Transformer interface {
	Transform(d *Dataset)
}

// BalancingTransformer rescales per-task weights so that positive and
// negative samples contribute equal total weight on each task. Missing labels
// (weight zero) are left untouched. Fit on the training set, then apply the
// fitted transformer to every split.
type BalancingTransformer struct {
	// posScale[t] multiplies the weight of positive samples on task t,
	// negScale[t] the negatives.
	posScale []float64
	negScale []float64
}

// FitBalancing computes balancing factors from the label distribution of d.
func FitBalancing(d *Dataset) *BalancingTransformer {
	numTasks := len(d.Tasks())
	t := &BalancingTransformer{
		posScale: make([]float64, numTasks),
		negScale: make([]float64, numTasks),
	}
	for task := 0; task < numTasks; task++ {
		var posW, negW float64
		for i := range d.Y {
			if d.W[i][task] == 0 {
				continue
			}
			if d.Y[i][task] > 0 {
				posW += d.W[i][task]
			} else {
				negW += d.W[i][task]
			}
		}
		// With one class absent the task carries no signal, leave it as is.
		t.posScale[task], t.negScale[task] = 1, 1
		if posW > 0 && negW > 0 {
			total := posW + negW
			t.posScale[task] = total / (2 * posW)
			t.negScale[task] = total / (2 * negW)
		}
	}
	return t
}

// Transform implements Transformer.
func (t *BalancingTransformer) Transform(d *Dataset) {
	for i := range d.W {
		for task := range d.W[i] {
			if d.W[i][task] == 0 {
				continue
			}
			if d.Y[i][task] > 0 {
				d.W[i][task] *= t.posScale[task]
			} else {
				d.W[i][task] *= t.negScale[task]
			}
		}
	}
}
