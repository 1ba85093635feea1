package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// identityObjectives produce raw margins that are already in output space.
var identityObjectives = map[string]bool{
	"reg:squarederror":     true,
	"reg:linear":           true,
	"reg:absoluteerror":    true,
	"reg:pseudohubererror": true,
	"reg:quantileerror":    true,
}

type node struct {
	left, right int
	feature     int
	threshold   float32
	defaultLeft bool
	cover       float64
}

type tree struct {
	nodes []node
	// value holds the leaf output for leaves; meanValue the cover-weighted
	// expected output below every node.
	value     []float32
	meanValue []float64
}

func (t *tree) isLeaf(i int) bool {
	return t.nodes[i].left < 0
}

// next returns the child x follows at split node i.
func (t *tree) next(i int, x []float32) int {
	n := t.nodes[i]
	v := missing(x, n.feature)
	switch {
	case math.IsNaN(float64(v)):
		if n.defaultLeft {
			return n.left
		}
		return n.right
	case v < n.threshold:
		return n.left
	default:
		return n.right
	}
}

func (t *tree) leaf(x []float32) float32 {
	i := 0
	for !t.isLeaf(i) {
		i = t.next(i, x)
	}
	return t.value[i]
}

func (t *tree) fillMeans() {
	t.meanValue = make([]float64, len(t.nodes))
	var walk func(i int) float64
	walk = func(i int) float64 {
		if t.isLeaf(i) {
			t.meanValue[i] = float64(t.value[i])
			return t.meanValue[i]
		}
		n := t.nodes[i]
		l, r := walk(n.left), walk(n.right)
		if n.cover > 0 {
			t.meanValue[i] = (l*t.nodes[n.left].cover + r*t.nodes[n.right].cover) / n.cover
		}
		return t.meanValue[i]
	}
	walk(0)
}

func missing(x []float32, feature int) float32 {
	if feature < 0 || feature >= len(x) {
		return float32(math.NaN())
	}
	return x[feature]
}

// Ensemble is a gradient boosted tree model.
type Ensemble struct {
	trees        []tree
	baseScore    float32
	objective    string
	featureNames []string
	numFeature   int
	expected     float64
}

// xgbDocument mirrors the parts of XGBoost's JSON model format we use.
type xgbDocument struct {
	Learner struct {
		FeatureNames []string `json:"feature_names"`
		ModelParam   struct {
			BaseScore  string `json:"base_score"`
			NumFeature string `json:"num_feature"`
			NumTarget  string `json:"num_target"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Trees []xgbTree `json:"trees"`
			} `json:"model"`
		} `json:"gradient_booster"`
	} `json:"learner"`
}

type xgbTree struct {
	LeftChildren    []int      `json:"left_children"`
	RightChildren   []int      `json:"right_children"`
	SplitIndices    []int      `json:"split_indices"`
	SplitConditions []float64  `json:"split_conditions"`
	DefaultLeft     []flexBool `json:"default_left"`
	SumHessian      []float64  `json:"sum_hessian"`
	SplitType       []int      `json:"split_type"`
}

// flexBool accepts both 0/1 and true/false; XGBoost versions differ.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "1", "true":
		*b = true
	case "0", "false":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

// Load reads an XGBoost JSON model. When features is non-empty and the
// artifact records feature names, both lists must match exactly.
func Load(path string, features []string) (*Ensemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return Parse(data, features)
}

// Parse decodes an XGBoost JSON model document.
func Parse(data []byte, features []string) (*Ensemble, error) {
	var doc xgbDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	l := doc.Learner

	if name := l.GradientBooster.Name; name != "gbtree" {
		return nil, fmt.Errorf("%w: booster %q", ErrUnsupported, name)
	}
	if obj := l.Objective.Name; !identityObjectives[obj] {
		return nil, fmt.Errorf("%w: objective %q", ErrUnsupported, obj)
	}
	if nt := l.ModelParam.NumTarget; nt != "" && nt != "1" && nt != "0" {
		return nil, fmt.Errorf("%w: %s targets", ErrUnsupported, nt)
	}

	base, err := parseBaseScore(l.ModelParam.BaseScore)
	if err != nil {
		return nil, err
	}

	numFeature, _ := strconv.Atoi(l.ModelParam.NumFeature)
	if len(features) > 0 {
		if len(l.FeatureNames) > 0 && !equalStrings(l.FeatureNames, features) {
			return nil, fmt.Errorf("%w: model has %v, configured %v", ErrSchemaMismatch, l.FeatureNames, features)
		}
		if numFeature > 0 && numFeature != len(features) {
			return nil, fmt.Errorf("%w: model has %d features, configured %d", ErrSchemaMismatch, numFeature, len(features))
		}
	}

	m := &Ensemble{
		baseScore:    base,
		objective:    l.Objective.Name,
		featureNames: l.FeatureNames,
		numFeature:   numFeature,
	}
	if len(features) > 0 {
		m.featureNames = append([]string(nil), features...)
		m.numFeature = len(features)
	}

	for i, raw := range l.GradientBooster.Model.Trees {
		t, err := convertTree(raw)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		m.trees = append(m.trees, t)
		m.expected += t.meanValue[0]
	}
	m.expected += float64(base)

	return m, nil
}

func convertTree(raw xgbTree) (tree, error) {
	n := len(raw.LeftChildren)
	if n == 0 {
		return tree{}, fmt.Errorf("empty tree")
	}
	if len(raw.RightChildren) != n || len(raw.SplitIndices) != n ||
		len(raw.SplitConditions) != n || len(raw.SumHessian) != n {
		return tree{}, fmt.Errorf("inconsistent node arrays")
	}
	if len(raw.DefaultLeft) != 0 && len(raw.DefaultLeft) != n {
		return tree{}, fmt.Errorf("inconsistent default_left")
	}
	for _, st := range raw.SplitType {
		if st != 0 {
			return tree{}, fmt.Errorf("%w: categorical split", ErrUnsupported)
		}
	}

	t := tree{
		nodes: make([]node, n),
		value: make([]float32, n),
	}
	for i := 0; i < n; i++ {
		left, right := raw.LeftChildren[i], raw.RightChildren[i]
		if left >= n || right >= n || (left < 0) != (right < 0) {
			return tree{}, fmt.Errorf("node %d has invalid children", i)
		}
		t.nodes[i] = node{
			left:      left,
			right:     right,
			feature:   raw.SplitIndices[i],
			threshold: float32(raw.SplitConditions[i]),
			cover:     raw.SumHessian[i],
		}
		if len(raw.DefaultLeft) == n {
			t.nodes[i].defaultLeft = bool(raw.DefaultLeft[i])
		}
		if left < 0 {
			t.value[i] = float32(raw.SplitConditions[i])
		}
	}
	t.fillMeans()
	return t, nil
}

// parseBaseScore handles "5E-1" as well as the bracketed "[5E-1]" form
// written by newer XGBoost releases.
func parseBaseScore(s string) (float32, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "["), "]")
	if s == "" {
		return 0.5, nil
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid base_score %q: %w", s, err)
	}
	return float32(v), nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func toFloat32(x []float64) []float32 {
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = float32(v)
	}
	return out
}

// Predict returns the model output for x.
func (m *Ensemble) Predict(x []float64) float64 {
	fx := toFloat32(x)
	sum := m.baseScore
	for i := range m.trees {
		sum += m.trees[i].leaf(fx)
	}
	return float64(sum)
}

// Contributions returns per-feature TreeSHAP values and the base value.
func (m *Ensemble) Contributions(x []float64) ([]float64, float64) {
	fx := toFloat32(x)
	width := len(x)
	if m.numFeature > width {
		width = m.numFeature
	}
	phi := make([]float64, width)
	for i := range m.trees {
		m.trees[i].shap(fx, phi)
	}
	return phi[:len(x)], m.expected
}

// ExpectedValue is the cover-weighted mean output over the training data.
func (m *Ensemble) ExpectedValue() float64 {
	return m.expected
}

// FeatureNames returns the column names stored in the model, if any.
func (m *Ensemble) FeatureNames() []string {
	return m.featureNames
}

// Objective returns the training objective name.
func (m *Ensemble) Objective() string {
	return m.objective
}

// NumTrees returns the number of boosted trees.
func (m *Ensemble) NumTrees() int {
	return len(m.trees)
}
