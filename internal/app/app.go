package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/tally/internal/clients/claude"
	"github.com/bobmcallan/tally/internal/clients/gemini"
	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/services/analysis"
	"github.com/bobmcallan/tally/internal/services/chart"
	"github.com/bobmcallan/tally/internal/services/dataset"
	"github.com/bobmcallan/tally/internal/services/report"
	"github.com/bobmcallan/tally/internal/services/summary"
	"github.com/bobmcallan/tally/internal/storage"
)

// App holds the initialized configuration, storage, clients, services and
// the MCP server. It is the shared core used by cmd/tally-server and cmd/tally.
type App struct {
	Config          *common.Config
	Logger          *common.Logger
	Storage         interfaces.StorageManager
	LLMClient       interfaces.LLMClient
	AnalysisService interfaces.AnalysisService
	DatasetService  interfaces.DatasetService
	SummaryService  *summary.Service
	ReportService   *report.Service
	ChartService    *chart.Service
	MCPServer       *server.MCPServer
	StartupTime     time.Time

	shutdownTracing func(context.Context) error
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath returns configPath, TALLY_CONFIG, tally.toml next to the
// binary, or config/tally.toml, whichever is found first.
func ResolveConfigPath(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if p := os.Getenv("TALLY_CONFIG"); p != "" {
		return p
	}
	p := filepath.Join(getBinaryDir(), "tally.toml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return "config/tally.toml"
}

// NewApp loads configuration and initializes everything.
// configPath may be empty, in which case ResolveConfigPath decides.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)
	return New(config, logger)
}

// New initializes storage, the LLM client and services from an already
// loaded config.
func New(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()
	ctx := context.Background()

	shutdownTracing, err := common.InitTracing(config.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	llmClient, err := NewLLMClient(ctx, config, logger)
	if err != nil {
		logger.Warn().Err(err).Str("provider", config.LLM.Provider).Msg("LLM client unavailable - using rule-based summaries")
		llmClient = nil
	}

	summaryService := summary.NewService(llmClient, logger)
	analysisService := analysis.NewService(storageManager, summaryService, config.Analysis, logger)
	datasetService := dataset.NewService(storageManager, logger)

	mcpServer := server.NewMCPServer(
		"tally",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:          config,
		Logger:          logger,
		Storage:         storageManager,
		LLMClient:       llmClient,
		AnalysisService: analysisService,
		DatasetService:  datasetService,
		SummaryService:  summaryService,
		ReportService:   report.NewService(logger),
		ChartService:    chart.NewService(logger),
		MCPServer:       mcpServer,
		StartupTime:     startupStart,
		shutdownTracing: shutdownTracing,
	}

	a.registerTools()

	logger.Info().
		Str("llm_provider", summaryService.Provider()).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// NewLLMClient builds the configured summary provider. It returns a nil
// client for provider "none" or when the provider has no API key.
func NewLLMClient(ctx context.Context, config *common.Config, logger *common.Logger) (interfaces.LLMClient, error) {
	llm := config.LLM

	switch llm.Provider {
	case common.ProviderGemini:
		if llm.Gemini.APIKey == "" {
			logger.Warn().Msg("Gemini API key not configured - AI summaries will be unavailable")
			return nil, nil
		}
		client, err := gemini.NewClient(ctx, llm.Gemini.APIKey,
			gemini.WithLogger(logger),
			gemini.WithModel(llm.Gemini.Model),
			gemini.WithRateLimit(llm.RateLimit),
			gemini.WithTimeout(llm.GetTimeout()),
		)
		if err != nil {
			return nil, err
		}
		return client, nil

	case common.ProviderClaude:
		if llm.Claude.APIKey == "" {
			logger.Warn().Msg("Anthropic API key not configured - AI summaries will be unavailable")
			return nil, nil
		}
		client, err := claude.NewClient(llm.Claude.APIKey,
			claude.WithLogger(logger),
			claude.WithModel(llm.Claude.Model),
			claude.WithMaxTokens(llm.Claude.MaxTokens),
			claude.WithRateLimit(llm.RateLimit),
			claude.WithTimeout(llm.GetTimeout()),
		)
		if err != nil {
			return nil, err
		}
		return client, nil

	default:
		return nil, nil
	}
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Storage = nil
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to flush traces")
		}
		a.shutdownTracing = nil
	}
}
