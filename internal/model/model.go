// Package model loads the trained temperature regressor and evaluates it.
//
// The training pipeline exports an XGBoost booster with save_model("*.json");
// this package reads that document directly, predicts with XGBoost's
// single-precision split semantics (NaN takes the node's default branch)
// and computes exact TreeSHAP contributions.
package model

import (
	"errors"
)

var (
	// ErrUnsupported is returned for artifacts this package cannot evaluate
	// faithfully (non-tree boosters, non-identity objectives, categorical splits).
	ErrUnsupported = errors.New("unsupported model artifact")

	// ErrSchemaMismatch is returned when the artifact was trained on a
	// different feature list than the one configured for serving.
	ErrSchemaMismatch = errors.New("model features do not match configured feature columns")
)

// Model is a trained regressor over a fixed, ordered feature list.
// Missing feature values are passed as NaN.
type Model interface {
	Predict(x []float64) float64
	// Contributions returns one signed contribution per feature and the
	// base value; their sum equals Predict(x).
	Contributions(x []float64) ([]float64, float64)
	FeatureNames() []string
}
