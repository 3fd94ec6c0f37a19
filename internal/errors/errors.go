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
)

// Sentinel errors for comparison with errors.Is
var (
	ErrWasmInvalid          = errors.New("malformed WASM module")
	ErrUnsupportedOpcode    = errors.New("unsupported opcode")
	ErrMalformedBreakTarget = errors.New("break target not in scope")
	ErrUnknownNodeKind      = errors.New("unknown expression node kind")
	ErrLabelNotEmpty        = errors.New("reachable break set not empty at function end")
	ErrMarshalFailed        = errors.New("failed to marshal request")
	ErrUnmarshalFailed      = errors.New("failed to unmarshal response")
	ErrConfigError          = errors.New("configuration error")
	ErrValidationError      = errors.New("validation error")
)

// WrapWasmInvalid wraps ErrWasmInvalid with a human-readable detail. Referenced
// throughout internal/abi and internal/codec wherever a binary module fails to
// parse.
func WrapWasmInvalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrWasmInvalid, msg)
}

func WrapUnsupportedOpcode(opcode byte) error {
	return fmt.Errorf("%w: 0x%02x", ErrUnsupportedOpcode, opcode)
}

func WrapMalformedBreakTarget(label string) error {
	return fmt.Errorf("%w: %q", ErrMalformedBreakTarget, label)
}

func WrapUnknownNodeKind(kind int) error {
	return fmt.Errorf("%w: %d", ErrUnknownNodeKind, kind)
}

func WrapMarshalFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrMarshalFailed, err)
}

func WrapUnmarshalFailed(err error, output string) error {
	return fmt.Errorf("%w: %w, output: %s", ErrUnmarshalFailed, err, output)
}

func WrapConfigError(msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrConfigError, msg, err)
}

func WrapValidationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidationError, msg)
}
