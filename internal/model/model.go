// Package model loads and evaluates the trained classifier artifacts. The
// artifact is a JSON dump of a boosted tree ensemble exported by the training
// pipeline for both the GradientBoosting and XGBoost models, carrying the
// feature schema version it was trained against.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"auroracast/internal/features"
)

// Scorer is an opaque classifier: a full feature vector in, a probability
// in [0,1] out. Implementations are loaded once at startup and treated as
// immutable for the process lifetime.
type Scorer interface {
	ModelID() string
	Score(feats [features.Count]float64) (float64, error)
}

// tree is one regression tree in node-array form: feature[i] < 0 marks node
// i as a leaf whose value is value[i]; otherwise the split sends the sample
// left when x[feature[i]] <= threshold[i].
type tree struct {
	Feature   []int     `json:"feature"`
	Threshold []float64 `json:"threshold"`
	Left      []int     `json:"left"`
	Right     []int     `json:"right"`
	Value     []float64 `json:"value"`
}

type artifact struct {
	ModelID       string  `json:"model_id"`
	SchemaVersion int     `json:"schema_version"`
	NumFeatures   int     `json:"num_features"`
	InitScore     float64 `json:"init_score"`
	Logistic      bool    `json:"logistic_output"`
	Trees         []tree  `json:"trees"`
}

// Ensemble is a loaded boosted tree ensemble.
type Ensemble struct {
	id       string
	init     float64
	logistic bool
	trees    []tree
}

// Load reads an ensemble artifact and verifies it against the current
// feature schema. A version or width mismatch is refused outright: scoring
// with drifted features would silently corrupt predictions.
func Load(path string) (*Ensemble, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var a artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode model artifact %s: %w", path, err)
	}

	if a.SchemaVersion != features.SchemaVersion {
		return nil, fmt.Errorf("model %s trained on schema v%d, runtime schema is v%d",
			a.ModelID, a.SchemaVersion, features.SchemaVersion)
	}
	if a.NumFeatures != features.Count {
		return nil, fmt.Errorf("model %s expects %d features, runtime schema has %d",
			a.ModelID, a.NumFeatures, features.Count)
	}
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("model %s has no trees", a.ModelID)
	}
	for i, tr := range a.Trees {
		n := len(tr.Feature)
		if n == 0 || len(tr.Threshold) != n || len(tr.Left) != n || len(tr.Right) != n || len(tr.Value) != n {
			return nil, fmt.Errorf("model %s tree %d has inconsistent node arrays", a.ModelID, i)
		}
	}

	return &Ensemble{
		id:       a.ModelID,
		init:     a.InitScore,
		logistic: a.Logistic,
		trees:    a.Trees,
	}, nil
}

// ModelID returns the identifier recorded in the artifact ("gb", "xgb").
func (e *Ensemble) ModelID() string {
	return e.id
}

// Score sums the trees' leaf values and maps the margin to a probability.
func (e *Ensemble) Score(feats [features.Count]float64) (float64, error) {
	margin := e.init
	for i := range e.trees {
		leaf, err := e.trees[i].evaluate(feats)
		if err != nil {
			return 0, fmt.Errorf("model %s tree %d: %w", e.id, i, err)
		}
		margin += leaf
	}

	p := margin
	if e.logistic {
		p = 1 / (1 + math.Exp(-margin))
	}
	if math.IsNaN(p) {
		return 0, fmt.Errorf("model %s produced NaN", e.id)
	}
	return math.Max(0, math.Min(1, p)), nil
}

func (t *tree) evaluate(feats [features.Count]float64) (float64, error) {
	node := 0
	// A tree of n nodes cannot have a root-to-leaf path longer than n;
	// exceeding it means the node arrays encode a cycle.
	for steps := 0; steps <= len(t.Feature); steps++ {
		f := t.Feature[node]
		if f < 0 {
			return t.Value[node], nil
		}
		if f >= features.Count {
			return 0, fmt.Errorf("split on feature %d outside schema", f)
		}
		next := t.Right[node]
		if feats[f] <= t.Threshold[node] {
			next = t.Left[node]
		}
		if next < 0 || next >= len(t.Feature) {
			return 0, fmt.Errorf("child index %d out of range", next)
		}
		node = next
	}
	return 0, fmt.Errorf("tree traversal did not terminate")
}
