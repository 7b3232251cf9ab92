// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package scalar provides differentiable float64 values.
//
// Leaves created with New collect derivatives; values created with Constant
// are never tracked.
//
//	x := scalar.New(0.5)
//	y := scalar.Sigmoid(scalar.Mul(x, x))
//	y.Backward()
//	x.Derivative()
package scalar

import (
	"github.com/born-ml/autograd/internal/scalar"
)

// Scalar is a float64 node in a computation graph.
type Scalar = scalar.Scalar

// Function is a differentiable operation on scalars.
type Function = scalar.Function

// New creates a leaf that accumulates derivatives.
func New(v float64) *Scalar { return scalar.New(v) }

// Constant creates an untracked value.
func Constant(v float64) *Scalar { return scalar.Constant(v) }

// Apply runs fn forward and records its history on the result.
func Apply(fn Function, inputs ...*Scalar) *Scalar { return scalar.Apply(fn, inputs...) }

// Add returns a + b.
func Add(a, b *Scalar) *Scalar { return scalar.Add(a, b) }

// Sub returns a - b.
func Sub(a, b *Scalar) *Scalar { return scalar.Sub(a, b) }

// Neg returns -a.
func Neg(a *Scalar) *Scalar { return scalar.Neg(a) }

// Mul returns a · b.
func Mul(a, b *Scalar) *Scalar { return scalar.Mul(a, b) }

// Div returns a / b.
func Div(a, b *Scalar) *Scalar { return scalar.Div(a, b) }

// Inv returns 1 / a.
func Inv(a *Scalar) *Scalar { return scalar.Inv(a) }

// Log returns ln a.
func Log(a *Scalar) *Scalar { return scalar.Log(a) }

// Exp returns eᵃ.
func Exp(a *Scalar) *Scalar { return scalar.Exp(a) }

// Sigmoid returns 1 / (1 + e⁻ᵃ).
func Sigmoid(a *Scalar) *Scalar { return scalar.Sigmoid(a) }

// ReLU returns max(a, 0).
func ReLU(a *Scalar) *Scalar { return scalar.ReLU(a) }

// Pow returns aⁿ.
func Pow(a *Scalar, n int) *Scalar { return scalar.Pow(a, n) }

// LT returns 1 if a < b, else 0.
func LT(a, b *Scalar) *Scalar { return scalar.LT(a, b) }

// EQ returns 1 if a == b, else 0.
func EQ(a, b *Scalar) *Scalar { return scalar.EQ(a, b) }
