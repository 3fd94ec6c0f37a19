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
	"fmt"

	"github.com/dotandev/wasmprune/internal/daemon"
	"github.com/dotandev/wasmprune/internal/telemetry"
	"github.com/spf13/cobra"
)

var (
	servePort      string
	serveAuthToken string
	serveTracing   bool
	serveOTLPURL   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pruner as a JSON-RPC daemon",
	Long: `Serve starts a JSON-RPC 2.0 server exposing the pruner over HTTP, for
tools and IDEs that want to prune modules without shelling out to the CLI.

Methods:
  - Server.EliminateDeadCode: run both passes over a module, return the pruned bytes
  - Server.Inspect: return one function's decoded tree, for debugging

Example:
  wasmprune serve --port 8080
  wasmprune serve --port 8080 --auth-token secret123`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if serveTracing {
			cleanup, err := telemetry.Init(ctx, telemetry.Config{
				Enabled:     true,
				ExporterURL: serveOTLPURL,
				ServiceName: "wasmprune-daemon",
			})
			if err != nil {
				return fmt.Errorf("failed to initialize telemetry: %w", err)
			}
			defer cleanup()
		}

		server, err := daemon.NewServer(daemon.Config{
			Port:      servePort,
			AuthToken: serveAuthToken,
		})
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		fmt.Printf("Starting wasmprune daemon on port %s\n", servePort)
		if serveAuthToken != "" {
			fmt.Println("Authentication: enabled")
		}

		return server.Start(ctx, servePort)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "8080", "Port to listen on")
	serveCmd.Flags().StringVar(&serveAuthToken, "auth-token", "", "Authentication token for API access")
	serveCmd.Flags().BoolVar(&serveTracing, "tracing", false, "Enable OpenTelemetry tracing")
	serveCmd.Flags().StringVar(&serveOTLPURL, "otlp-url", "http://localhost:4318", "OTLP exporter URL")

	rootCmd.AddCommand(serveCmd)
}
