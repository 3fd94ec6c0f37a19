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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotandev/wasmprune/internal/cache"
	"github.com/dotandev/wasmprune/internal/moduleio"
	"github.com/dotandev/wasmprune/internal/wasm"
)

func newTestCacheManager(t *testing.T) *cache.Manager {
	t.Helper()
	return cache.NewManager(getCacheDir(), cache.DefaultConfig())
}

func resetRunFlags(t *testing.T) {
	t.Helper()
	runOutput = ""
	runKeepDeadFuncs = false
	runQuiet = true
}

func writeTestBinaryModule(t *testing.T) string {
	t.Helper()
	m := &moduleio.Module{Functions: []moduleio.Function{
		{Name: "add", Body: wasm.Block([]*wasm.Expression{
			{Kind: wasm.KindBinary, Type: wasm.TypeI32, Op: "i32.add",
				Left:  &wasm.Expression{Kind: wasm.KindGetLocal, Type: wasm.TypeI32, Index: 0},
				Right: &wasm.Expression{Kind: wasm.KindGetLocal, Type: wasm.TypeI32, Index: 1}},
		}, wasm.TypeNone)},
	}}
	data, err := moduleio.EncodeBinary(m)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "mod.wasm")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunExec_PopulatesCacheOnFirstRun(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WASMPRUNE_CACHE_DIR", t.TempDir())
	resetRunFlags(t)

	path := writeTestBinaryModule(t)
	require.NoError(t, runExec(runCmd, []string{path}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	mgr := newTestCacheManager(t)
	_, ok, err := mgr.Get(hashModule(raw))
	require.NoError(t, err)
	require.True(t, ok, "a successful run must populate the artifact cache")
}

func TestRunExec_SecondRunServesFromCache(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WASMPRUNE_CACHE_DIR", t.TempDir())
	resetRunFlags(t)

	path := writeTestBinaryModule(t)
	require.NoError(t, runExec(runCmd, []string{path}))

	out := filepath.Join(t.TempDir(), "out.wasm")
	runOutput = out
	require.NoError(t, runExec(runCmd, []string{path}))

	_, err := os.Stat(out)
	require.NoError(t, err, "cache-hit path must still honor --output")
}
