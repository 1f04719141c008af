package metrics

import (
	"sort"

	"github.com/molgraph/molgraph/molgraph-golib/errors"
	"github.com/montanaflynn/stats"
)

// Point is one operating point of a ROC curve.
type Point struct {
	FPR float64
	TPR float64
}

// ROCCurve sweeps the decision threshold from high score to low and returns
// the (false positive rate, true positive rate) curve, starting at (0, 0) and
// ending at (1, 1). Labels are 0/1, scores are the predicted probability of
// the positive class, and samples with weight zero are ignored. Both classes
// must be present among the weighted samples.
func ROCCurve(labels, scores, weights []float64) ([]Point, error) {
	if len(scores) != len(labels) || len(weights) != len(labels) {
		return nil, errors.Errorf("inconsistent lengths: labels=%d scores=%d weights=%d",
			len(labels), len(scores), len(weights))
	}

	type sample struct {
		score  float64
		label  float64
		weight float64
	}
	var samples []sample
	var totalPos, totalNeg float64
	for i := range labels {
		if weights[i] <= 0 {
			continue
		}
		samples = append(samples, sample{scores[i], labels[i], weights[i]})
		if labels[i] > 0 {
			totalPos += weights[i]
		} else {
			totalNeg += weights[i]
		}
	}
	if totalPos == 0 || totalNeg == 0 {
		return nil, errors.New("both classes must be present to compute a ROC curve")
	}
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].score > samples[j].score
	})

	// Ties in score advance together, so a run of equal scores contributes a
	// single point.
	points := []Point{{0, 0}}
	var tp, fp float64
	for i := 0; i < len(samples); {
		j := i
		for j < len(samples) && samples[j].score == samples[i].score {
			if samples[j].label > 0 {
				tp += samples[j].weight
			} else {
				fp += samples[j].weight
			}
			j++
		}
		points = append(points, Point{FPR: fp / totalNeg, TPR: tp / totalPos})
		i = j
	}
	return points, nil
}

// ROCAUC computes the weighted area under the ROC curve for one binary task.
func ROCAUC(labels, scores, weights []float64) (float64, error) {
	points, err := ROCCurve(labels, scores, weights)
	if err != nil {
		return 0, err
	}

	var area float64
	for i := 1; i < len(points); i++ {
		area += (points[i].FPR - points[i-1].FPR) * (points[i].TPR + points[i-1].TPR) / 2
	}
	return area, nil
}

// TaskScore is a per-task metric value. Valid is false when the metric could
// not be computed for the task, such as a single-class validation split.
type TaskScore struct {
	Task  string
	Score float64
	Valid bool
}

// ROCAUCPerTask scores each task of a multitask prediction. Y and W are
// indexed [sample][task], scores likewise. Tasks whose AUC is undefined are
// returned with Valid false rather than failing the whole evaluation.
func ROCAUCPerTask(tasks []string, y, scores, w [][]float64) []TaskScore {
	out := make([]TaskScore, 0, len(tasks))
	for t, task := range tasks {
		auc, err := ROCAUC(Column(y, t), Column(scores, t), Column(w, t))
		out = append(out, TaskScore{Task: task, Score: auc, Valid: err == nil})
	}
	return out
}

// Mean averages the valid per-task scores.
func Mean(scores []TaskScore) (float64, error) {
	var valid []float64
	for _, s := range scores {
		if s.Valid {
			valid = append(valid, s.Score)
		}
	}
	if len(valid) == 0 {
		return 0, errors.New("no task produced a valid score")
	}
	return stats.Mean(valid)
}

// Column extracts column i of a [sample][task] matrix.
func Column(rows [][]float64, i int) []float64 {
	out := make([]float64, 0, len(rows))
	for _, row := range rows {
		out = append(out, row[i])
	}
	return out
}
