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

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestModule(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mod.wat")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestInspectExec_PrintsFunctionTree(t *testing.T) {
	path := writeTestModule(t, `(module
  (func $add
    (i32.add (local.get 0) (local.get 1))))`)

	var out bytes.Buffer
	inspectCmd.SetOut(&out)
	err := inspectExec(inspectCmd, []string{path, "add"})
	require.NoError(t, err)
	require.Contains(t, out.String(), "func add")
	require.Contains(t, out.String(), "i32.add")
}

func TestInspectExec_FunctionNotFound(t *testing.T) {
	path := writeTestModule(t, `(module
  (func $add
    (i32.add (local.get 0) (local.get 1))))`)

	err := inspectExec(inspectCmd, []string{path, "missing"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing")
}

func TestInspectExec_UnreadableModule(t *testing.T) {
	err := inspectExec(inspectCmd, []string{filepath.Join(t.TempDir(), "nope.wat"), "add"})
	require.Error(t, err)
}

func TestUseColor_RespectsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	require.False(t, useColor())
}

func TestPrintTree_PlainWhenNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var out bytes.Buffer
	inspectCmd.SetOut(&out)
	printTree(inspectCmd, "add", "(i32.add ...)")
	require.True(t, strings.HasPrefix(out.String(), "func add\n"))
}
