// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	assert.NotNil(t, ErrWasmInvalid)
	assert.NotNil(t, ErrUnsupportedOpcode)
	assert.NotNil(t, ErrMalformedBreakTarget)
	assert.NotNil(t, ErrUnknownNodeKind)
	assert.NotNil(t, ErrLabelNotEmpty)
	assert.NotNil(t, ErrMarshalFailed)
	assert.NotNil(t, ErrUnmarshalFailed)
	assert.NotNil(t, ErrConfigError)
	assert.NotNil(t, ErrValidationError)
}

func TestErrorWrapping(t *testing.T) {
	baseErr := fmt.Errorf("base error")

	wrappedErr := WrapWasmInvalid("bad magic bytes")
	assert.True(t, errors.Is(wrappedErr, ErrWasmInvalid))
	assert.Contains(t, wrappedErr.Error(), "bad magic bytes")

	wrappedErr = WrapUnsupportedOpcode(0xfd)
	assert.True(t, errors.Is(wrappedErr, ErrUnsupportedOpcode))
	assert.Contains(t, wrappedErr.Error(), "0xfd")

	wrappedErr = WrapMalformedBreakTarget("L3")
	assert.True(t, errors.Is(wrappedErr, ErrMalformedBreakTarget))
	assert.Contains(t, wrappedErr.Error(), "L3")

	wrappedErr = WrapUnknownNodeKind(99)
	assert.True(t, errors.Is(wrappedErr, ErrUnknownNodeKind))

	wrappedErr = WrapMarshalFailed(baseErr)
	assert.True(t, errors.Is(wrappedErr, ErrMarshalFailed))
	assert.True(t, errors.Is(wrappedErr, baseErr))

	wrappedErr = WrapUnmarshalFailed(baseErr, "output")
	assert.True(t, errors.Is(wrappedErr, ErrUnmarshalFailed))
	assert.True(t, errors.Is(wrappedErr, baseErr))

	wrappedErr = WrapConfigError("failed to read config file", baseErr)
	assert.True(t, errors.Is(wrappedErr, ErrConfigError))
	assert.True(t, errors.Is(wrappedErr, baseErr))

	wrappedErr = WrapValidationError("input path cannot be empty")
	assert.True(t, errors.Is(wrappedErr, ErrValidationError))
}

func TestErrorComparison(t *testing.T) {
	err1 := WrapWasmInvalid("test")
	err2 := WrapUnsupportedOpcode(0x00)

	assert.True(t, errors.Is(err1, ErrWasmInvalid))
	assert.False(t, errors.Is(err1, ErrUnsupportedOpcode))

	assert.True(t, errors.Is(err2, ErrUnsupportedOpcode))
	assert.False(t, errors.Is(err2, ErrWasmInvalid))
}
