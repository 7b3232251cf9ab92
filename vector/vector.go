// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package vector provides differentiable []float64 values whose gradients
// are summed with autodiff.Dense.
package vector

import (
	"github.com/born-ml/autograd/internal/vector"
)

// Vector is a dense float64 node in a computation graph.
type Vector = vector.Vector

// Function is a differentiable operation on vectors.
type Function = vector.Function

// New creates a leaf vector.
func New(data ...float64) *Vector { return vector.New(data...) }

// Constant creates an untracked vector.
func Constant(data ...float64) *Vector { return vector.Constant(data...) }

// Apply runs fn forward and records its history on the result.
func Apply(fn Function, inputs ...*Vector) *Vector { return vector.Apply(fn, inputs...) }

// Add returns a + b elementwise. Panics on length mismatch.
func Add(a, b *Vector) *Vector { return vector.Add(a, b) }

// Mul returns a ⊙ b. Panics on length mismatch.
func Mul(a, b *Vector) *Vector { return vector.Mul(a, b) }

// Scale returns c · a.
func Scale(a *Vector, c float64) *Vector { return vector.Scale(a, c) }

// Sum returns the one-element vector Σ a.
func Sum(a *Vector) *Vector { return vector.Sum(a) }

// Dot returns the one-element vector a · b.
func Dot(a, b *Vector) *Vector { return vector.Dot(a, b) }

// Tanh applies tanh elementwise.
func Tanh(a *Vector) *Vector { return vector.Tanh(a) }

// ReLU applies max(x, 0) elementwise.
func ReLU(a *Vector) *Vector { return vector.ReLU(a) }
