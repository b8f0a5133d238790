// Copyright 2025 The NE16 Driver Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
)

// Validation failures. Each is wrapped in a *ValidationError naming the
// offending field.
var (
	ErrWeightBitwidthOutOfRange   = errors.New("weight bitwidth out of range")
	ErrUnsupportedOffsetMode      = errors.New("unsupported weight offset mode")
	ErrUnsupportedFeatureBitwidth = errors.New("unsupported feature bitwidth")
	ErrUnsupportedStride          = errors.New("unsupported stride")
	ErrShiftOutOfRange            = errors.New("quantization shift amount out of range")
	ErrUnsupportedQuantMode       = errors.New("unsupported quantization mode")

	// ErrUnsupportedVariant is returned for kernel shapes outside 1x1, 3x3
	// and 3x3 depthwise.
	ErrUnsupportedVariant = errors.New("unsupported convolution variant")
)

// ValidationError reports a rejected configuration parameter.
type ValidationError struct {
	Field string
	Value int
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ne16 config: %s = %d: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, value int, err error) error {
	return &ValidationError{Field: field, Value: value, Err: err}
}
