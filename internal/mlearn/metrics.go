package mlearn

import "sort"

// ClassMetrics holds precision, recall, and F1 for one class.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Evaluation summarizes test-set performance. ROCAUC is nil when the test
// labels contain a single class, since the rank statistic is undefined there.
type Evaluation struct {
	TrainSize     int          `json:"n_train"`
	TestSize      int          `json:"n_test"`
	Accuracy      float64      `json:"accuracy"`
	ROCAUC        *float64     `json:"roc_auc,omitempty"`
	PositiveRatio float64      `json:"positive_class_ratio"`
	Class0        ClassMetrics `json:"class_0"`
	Class1        ClassMetrics `json:"class_1"`
}

// Evaluate computes classification metrics from test labels, hard
// predictions, and positive-class scores. Undefined ratios (zero
// denominators) report as 0 rather than NaN.
func Evaluate(yTrue, yPred []int, scores []float64) Evaluation {
	n := len(yTrue)
	ev := Evaluation{TestSize: n}
	if n == 0 {
		return ev
	}

	var correct, positives int
	// confusion[actual][predicted]
	var confusion [2][2]int
	for i, actual := range yTrue {
		if yPred[i] == actual {
			correct++
		}
		if actual == 1 {
			positives++
		}
		confusion[actual][yPred[i]]++
	}
	ev.Accuracy = float64(correct) / float64(n)
	ev.PositiveRatio = float64(positives) / float64(n)
	ev.Class0 = classMetrics(confusion, 0)
	ev.Class1 = classMetrics(confusion, 1)

	if positives > 0 && positives < n {
		auc := rocAUC(yTrue, scores)
		ev.ROCAUC = &auc
	}
	return ev
}

func classMetrics(confusion [2][2]int, class int) ClassMetrics {
	other := 1 - class
	tp := float64(confusion[class][class])
	fp := float64(confusion[other][class])
	fn := float64(confusion[class][other])

	var m ClassMetrics
	if tp+fp > 0 {
		m.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		m.Recall = tp / (tp + fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// rocAUC computes the area under the ROC curve as the Mann-Whitney rank
// statistic, with average ranks for tied scores. Both classes must be
// present.
func rocAUC(yTrue []int, scores []float64) float64 {
	n := len(scores)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && scores[idx[j]] == scores[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}

	var rankSum, nPos float64
	for i, label := range yTrue {
		if label == 1 {
			rankSum += ranks[i]
			nPos++
		}
	}
	nNeg := float64(n) - nPos
	return (rankSum - nPos*(nPos+1)/2) / (nPos * nNeg)
}
