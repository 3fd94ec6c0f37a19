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

package dce

import (
	"runtime"
	"sync"

	"github.com/dotandev/wasmprune/internal/wasm"
)

// FunctionResult is one function's outcome from a module-wide run.
type FunctionResult struct {
	Index int
	Body  *wasm.Expression
	Err   error
}

// RunModule eliminates dead code from every function body independently and
// concurrently, since no per-function Walker state crosses a function
// boundary. Concurrency is capped at GOMAXPROCS workers over a shared job
// channel.
func RunModule(bodies []*wasm.Expression) []FunctionResult {
	results := make([]FunctionResult, len(bodies))

	workers := runtime.GOMAXPROCS(0)
	if workers > len(bodies) {
		workers = len(bodies)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				body, err := Eliminate(bodies[i])
				results[i] = FunctionResult{Index: i, Body: body, Err: err}
			}
		}()
	}

	for i := range bodies {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
