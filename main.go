/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/PivotLLM/Paralegal/agent"
	"github.com/PivotLLM/Paralegal/config"
	"github.com/PivotLLM/Paralegal/global"
	"github.com/PivotLLM/Paralegal/llm"
	"github.com/PivotLLM/Paralegal/logging"
	"github.com/PivotLLM/Paralegal/prompts"
	"github.com/PivotLLM/Paralegal/search"
	"github.com/PivotLLM/Paralegal/server"
	"github.com/PivotLLM/Paralegal/store"
)

func main() {
	// Top-level panic recovery
	defer func() {
		if rec := recover(); rec != nil {
			_, _ = fmt.Fprintf(os.Stderr, "FATAL PANIC: %v\n", rec)
			os.Exit(2)
		}
	}()

	// Parse command line flags
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		mcpMode    = flag.Bool("mcp", false, "Serve over MCP on stdio instead of HTTP")
		version    = flag.Bool("version", false, "Show version information")
		help       = flag.Bool("help", false, "Show help information")
	)
	flag.Parse()

	// Handle version flag
	if *version {
		fmt.Printf("%s v%s\n", global.ProgramName, global.Version)
		return
	}

	// Handle help flag
	if *help {
		showHelp()
		return
	}

	// Load .env if present; a missing file is not an error
	_ = godotenv.Load()

	var opts []config.Option
	if *configPath != "" {
		opts = append(opts, config.WithConfigPath(*configPath))
	}
	cfg := config.New(opts...)

	// Load and validate configuration
	if err := cfg.Load(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger. In MCP mode stdout carries the protocol, so the
	// stderr default is safe either way.
	logger, err := logging.New(cfg.LogFile())
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *logging.Logger) {
		// Ensure logs are flushed before exit
		_ = logger.Sync()
		_ = logger.Close()
	}(logger)

	// Set log level from config
	logger.SetLevel(cfg.LogLevel())

	// Announce startup
	logger.Infof("%s v%s starting", global.ProgramName, global.Version)

	// Log first-run message
	if cfg.IsFirstRun() {
		logger.Infof("First run detected - created default configuration at %s", cfg.ConfigPath())
		logger.Info("Please edit the configuration or set API keys in the environment")
	}

	if cfg.LLMAPIKey() == "" {
		logger.Warn("No completion API key configured - requests must supply X-OpenAI-Key")
	}
	if cfg.SearchAPIKey() == "" {
		logger.Warn("No search API key configured - requests must supply X-Tavily-Key")
	}

	// Prompt templates come from the remote store when one is configured,
	// with compiled-in copies as the connectivity fallback
	var promptStore prompts.Store
	if cfg.PromptStoreEnabled() {
		publicKey, secretKey := cfg.PromptStoreCredentials()
		promptStore = prompts.NewHTTPStore(cfg.PromptStoreBaseURL(), publicKey, secretKey, cfg.PromptStoreLabel())
		logger.Infof("Prompt store enabled at %s", cfg.PromptStoreBaseURL())
	}
	resolver := prompts.NewResolver(promptStore, logger)

	llmClient := llm.New(cfg.LLMBaseURL(), cfg.LLMModel(), cfg.LLMAPIKey(), logger)
	searchClient := search.New(cfg.SearchBaseURL(), cfg.SearchAPIKey(), logger)

	sessions := store.NewSessions(cfg.SessionsDir(), logger)
	reports := store.NewReports(cfg.ReportsDir(), logger)

	agentService := agent.New(resolver, llmClient, searchClient, sessions, reports, logger)

	srv := server.New(cfg, logger, agentService)

	if *mcpMode {
		if err := srv.RunMCP(); err != nil {
			logger.Fatalf("Server error: %v", err)
		}
		return
	}

	if err := srv.Run(); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
}

func showHelp() {
	fmt.Printf(`%s v%s - Legal Research Agent

USAGE:
    %s [OPTIONS]

OPTIONS:
    --config PATH    Path to configuration file
                     (default: $%s or %s/%s)
    --mcp            Serve over MCP on stdio instead of HTTP
    --version        Show version information
    --help           Show this help message

DESCRIPTION:
    %s runs multi-step legal research sessions. Each session turns a
    research goal into a plan of tasks, executes them one at a time
    (query refinement, web search, compression, reflection), and
    produces a final Markdown report with sources.

CONFIGURATION:
    The server uses a JSON configuration file defining the listen
    address, API endpoints and keys, and storage directories. On first
    run a default configuration is created in %s.

    API keys may also come from the environment (%s, %s)
    or per-request headers (X-OpenAI-Key, X-Tavily-Key).

EXAMPLES:
    # Start the HTTP server with default config
    %s

    # Start with custom config
    %s --config /path/to/config.json

    # Serve tools over MCP on stdio
    %s --mcp

ENVIRONMENT:
    %s    Path to configuration file (if --config not used)
    %s      Completion API key (config file takes precedence)
    %s       Completion model override
    %s      Web search API key (config file takes precedence)
`, global.ProgramName, global.Version,
		global.ProgramName,
		global.ConfigEnvVar, global.DefaultBaseDir, global.DefaultConfigFileName,
		global.ProgramName,
		global.DefaultBaseDir,
		global.EnvOpenAIKey, global.EnvTavilyKey,
		global.ProgramName,
		global.ProgramName,
		global.ProgramName,
		global.ConfigEnvVar,
		global.EnvOpenAIKey,
		global.EnvOpenAIModel,
		global.EnvTavilyKey)
}
