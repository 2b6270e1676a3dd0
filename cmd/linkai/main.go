// Package main is the CLI entry point for the linkai agent runtime.
//
// linkai connects communication channels (web chat, voice, SMS, WhatsApp)
// to LLM providers (OpenAI, Anthropic, Gemini) behind a single
// channel-agnostic orchestration engine.
//
// Start the server:
//
//	linkai serve --config linkai.yaml
//
// Provider keys can be supplied through the config file's ${VAR}
// expansion, e.g. OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "linkai",
		Short:         "Multi-channel AI agent runtime",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(buildServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildServeCmd creates the "serve" command that starts the runtime server.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agent runtime server",
		Long: `Start the agent runtime server with all configured channels and providers.

The server loads configuration, opens the conversation store, initializes
the configured provider gateways, and serves the channel endpoints:

  POST /web/threads         open a thread (returns the welcome message)
  POST /web/messages        web chat (JSON, or SSE with Accept: text/event-stream)
  POST /web/cancel          cancel an in-flight generation
  POST /webhooks/voice      telephony speech transcripts
  POST /webhooks/sms        inbound SMS
  POST /webhooks/whatsapp   inbound WhatsApp
  GET  /healthz             liveness
  GET  /metrics             Prometheus metrics

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		Example: `  # Start with default config
  linkai serve

  # Start with custom config and debug logging
  linkai serve --config /etc/linkai/production.yaml --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "linkai.yaml", "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}
