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

package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dotandev/wasmprune/internal/dce"
	"github.com/dotandev/wasmprune/internal/logger"
	"github.com/dotandev/wasmprune/internal/moduleio"
	"github.com/dotandev/wasmprune/internal/telemetry"
	"github.com/dotandev/wasmprune/internal/wasm"
	"github.com/dotandev/wasmprune/internal/wasmopt"
	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"go.opentelemetry.io/otel/attribute"
)

// Server is the JSON-RPC daemon exposing the pruner as a service: callers
// send a module over the wire and get the pruned module plus stats back,
// rather than shelling out to the CLI.
type Server struct {
	authToken string
}

// Config holds daemon configuration.
type Config struct {
	Port      string
	AuthToken string
}

// EliminateDeadCodeRequest carries a module to prune. Module is the raw
// bytes of a binary (.wasm) module; KeepDeadFunctions skips the
// whole-module call-graph pass the same way the CLI flag does.
type EliminateDeadCodeRequest struct {
	Module            []byte `json:"module"`
	KeepDeadFunctions bool   `json:"keep_dead_functions"`
}

// EliminateDeadCodeResponse returns the pruned module plus before/after
// function counts from each pass.
type EliminateDeadCodeResponse struct {
	Module            []byte `json:"module"`
	FunctionsBefore   int    `json:"functions_before"`
	FunctionsAfter    int    `json:"functions_after"`
	ExpressionsBefore int    `json:"expressions_before"`
	ExpressionsAfter  int    `json:"expressions_after"`
}

// InspectRequest asks for the decoded tree of a single function.
type InspectRequest struct {
	Module   []byte `json:"module"`
	Function string `json:"function"`
}

// InspectResponse returns the function's decoded tree rendered as text.
type InspectResponse struct {
	Function string `json:"function"`
	Tree     string `json:"tree"`
}

// NewServer creates a new JSON-RPC server.
func NewServer(config Config) (*Server, error) {
	return &Server{authToken: config.AuthToken}, nil
}

// authenticate validates the authorization token.
func (s *Server) authenticate(r *http.Request) bool {
	if s.authToken == "" {
		return true // No auth required
	}

	auth := r.Header.Get("Authorization")
	if auth == "" {
		return false
	}

	if strings.HasPrefix(auth, "Bearer ") {
		token := strings.TrimPrefix(auth, "Bearer ")
		return token == s.authToken
	}

	return auth == s.authToken
}

// EliminateDeadCode handles the Server.EliminateDeadCode RPC call: the
// whole-module call-graph pass, then the per-function tree pass, in the
// same order the run command applies them.
func (s *Server) EliminateDeadCode(r *http.Request, req *EliminateDeadCodeRequest, resp *EliminateDeadCodeResponse) error {
	if !s.authenticate(r) {
		return fmt.Errorf("unauthorized")
	}

	ctx := r.Context()
	tracer := telemetry.GetTracer()
	ctx, span := tracer.Start(ctx, "rpc_eliminate_dead_code")
	span.SetAttributes(attribute.Int("module.size", len(req.Module)))
	defer span.End()

	logger.Logger.Info("Processing eliminate_dead_code RPC", "size", len(req.Module))

	module := req.Module
	functionsBefore, functionsAfter := 0, 0
	if !req.KeepDeadFunctions {
		pruned, report, err := wasmopt.EliminateDeadCode(module)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("whole-module pass: %w", err)
		}
		module = pruned
		functionsBefore = report.OriginalDefinedFunctions
		functionsAfter = report.KeptDefinedFunctions
	}

	mod, err := moduleio.ParseBinary(module)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("decoding module: %w", err)
	}
	if functionsBefore == 0 {
		functionsBefore = len(mod.Functions)
		functionsAfter = len(mod.Functions)
	}

	bodies := make([]*wasm.Expression, len(mod.Functions))
	for i, fn := range mod.Functions {
		bodies[i] = fn.Body
	}
	results := dce.RunModule(bodies)

	exprBefore, exprAfter := 0, 0
	for i, res := range results {
		if res.Err != nil {
			span.RecordError(res.Err)
			return fmt.Errorf("function %s: %w", mod.Functions[i].Name, res.Err)
		}
		exprBefore += countExpressions(mod.Functions[i].Body)
		mod.Functions[i].Body = res.Body
		exprAfter += countExpressions(res.Body)
	}

	out, err := moduleio.EncodeBinary(mod)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("encoding module: %w", err)
	}

	*resp = EliminateDeadCodeResponse{
		Module:            out,
		FunctionsBefore:   functionsBefore,
		FunctionsAfter:    functionsAfter,
		ExpressionsBefore: exprBefore,
		ExpressionsAfter:  exprAfter,
	}
	return nil
}

// Inspect handles the Server.Inspect RPC call, returning one function's decoded
// tree for tooling/debugging use rather than applying any pass.
func (s *Server) Inspect(r *http.Request, req *InspectRequest, resp *InspectResponse) error {
	if !s.authenticate(r) {
		return fmt.Errorf("unauthorized")
	}

	ctx := r.Context()
	tracer := telemetry.GetTracer()
	_, span := tracer.Start(ctx, "rpc_inspect")
	span.SetAttributes(attribute.String("function", req.Function))
	defer span.End()

	logger.Logger.Info("Processing inspect RPC", "function", req.Function)

	mod, err := moduleio.ParseBinary(req.Module)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("decoding module: %w", err)
	}

	for _, fn := range mod.Functions {
		if fn.Name == req.Function {
			*resp = InspectResponse{
				Function: req.Function,
				Tree:     moduleio.RenderText(&moduleio.Module{Functions: []moduleio.Function{fn}}),
			}
			return nil
		}
	}
	return fmt.Errorf("function %q not found", req.Function)
}

// Start starts the JSON-RPC server.
func (s *Server) Start(ctx context.Context, port string) error {
	server := rpc.NewServer()
	server.RegisterCodec(json2.NewCodec(), "application/json")
	server.RegisterCodec(json2.NewCodec(), "application/json;charset=UTF-8")

	if err := server.RegisterService(s, ""); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/rpc", server)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	logger.Logger.Info("Starting JSON-RPC server", "port", port)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Logger.Info("Shutting down JSON-RPC server")
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

func countExpressions(e *wasm.Expression) int {
	if e == nil {
		return 0
	}
	n := 1
	switch e.Kind {
	case wasm.KindBlock, wasm.KindLoop:
		for _, c := range e.Children {
			n += countExpressions(c)
		}
	case wasm.KindIf:
		n += countExpressions(e.Condition) + countExpressions(e.IfTrue) + countExpressions(e.IfFalse)
	case wasm.KindBreak:
		n += countExpressions(e.BreakValue) + countExpressions(e.BreakCondition)
	case wasm.KindSwitch:
		n += countExpressions(e.BreakValue) + countExpressions(e.Condition)
	case wasm.KindCall, wasm.KindCallImport, wasm.KindHost:
		for _, op := range e.Operands {
			n += countExpressions(op)
		}
	case wasm.KindCallIndirect:
		for _, op := range e.Operands {
			n += countExpressions(op)
		}
		n += countExpressions(e.CallIndex)
	case wasm.KindSetLocal, wasm.KindSetGlobal:
		n += countExpressions(e.Value)
	case wasm.KindLoad:
		n += countExpressions(e.Ptr)
	case wasm.KindStore:
		n += countExpressions(e.Ptr) + countExpressions(e.Stored)
	case wasm.KindUnary:
		n += countExpressions(e.Left)
	case wasm.KindBinary:
		n += countExpressions(e.Left) + countExpressions(e.Right)
	case wasm.KindSelect:
		n += countExpressions(e.IfTrueVal) + countExpressions(e.IfFalseVal) + countExpressions(e.SelectCond)
	case wasm.KindDrop:
		n += countExpressions(e.Operand)
	case wasm.KindReturn:
		n += countExpressions(e.ReturnValue)
	}
	return n
}
