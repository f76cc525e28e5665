// Package config builds the single Config value the orchestrator is
// constructed from. There is no process-wide mutable state: the pipeline's
// environment variables are read once, at startup, into this struct. The
// exception is the OpenAI client's OPENAI_API_KEY, OPENAI_BASE_URL and
// OPENAI_MODEL, which openaimodel.NewFromEnv reads itself.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SubIssueStrategy controls how sub-issues are folded into a run.
type SubIssueStrategy string

const (
	SubIssueInclude    SubIssueStrategy = "include"
	SubIssueSequential SubIssueStrategy = "sequential"
	SubIssueSkip       SubIssueStrategy = "skip"
)

// Provider selects which Model implementation backs agent.Runner.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderOpenAI Provider = "openai"
)

// Config is constructed once at process startup from the environment
// variables enumerated here. Outside this package, only
// openaimodel.NewFromEnv and localmodel.NewFromEnv read the environment,
// each for its own provider variables.
type Config struct {
	ForgeToken    string
	DefaultRepo   string
	BaseWorkDir   string

	Provider       Provider
	ProviderModel  string
	ProviderBaseURL string
	CallTimeout    time.Duration

	AutoPush bool

	ProtectedBranches []string

	MoveInPipeline          bool
	BoardInProgressColumn   string
	BoardDoneColumn         string

	ProcessSubIssues  bool
	SubIssueStrategy  SubIssueStrategy

	EnableTesting bool

	OtelSDKDisabled bool

	DatabaseURL string
}

// Load reads Config from the environment. Only the names documented in the
// specification are recognized; anything else is ignored.
func Load() (*Config, error) {
	cfg := &Config{
		ForgeToken:      os.Getenv("FORGE_TOKEN"),
		DefaultRepo:     os.Getenv("DEFAULT_REPO"),
		BaseWorkDir:     envOr("BASE_WORK_DIR", "."),
		Provider:        Provider(envOr("MODEL_PROVIDER", string(ProviderLocal))),
		ProviderModel:   envOr("MODEL_NAME", "local-default"),
		ProviderBaseURL: os.Getenv("MODEL_BASE_URL"),
		BoardInProgressColumn: envOr("PIPELINE_IN_PROGRESS_COLUMN", "In Progress"),
		BoardDoneColumn:       envOr("PIPELINE_DONE_COLUMN", "Done"),
		SubIssueStrategy:      SubIssueStrategy(envOr("SUB_ISSUE_STRATEGY", string(SubIssueSequential))),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		ProtectedBranches:     splitList(envOr("PROTECTED_BRANCHES", "main,master,development")),
	}

	if cfg.ForgeToken == "" {
		return nil, fmt.Errorf("fatal configuration: FORGE_TOKEN is required")
	}

	timeoutSeconds, err := envOrInt("MODEL_CALL_TIMEOUT_SECONDS", 1200)
	if err != nil {
		return nil, err
	}
	cfg.CallTimeout = time.Duration(timeoutSeconds) * time.Second

	cfg.AutoPush, err = envOrBool("AUTO_PUSH", false)
	if err != nil {
		return nil, err
	}
	cfg.MoveInPipeline, err = envOrBool("MOVE_IN_PIPELINE", false)
	if err != nil {
		return nil, err
	}
	cfg.ProcessSubIssues, err = envOrBool("PROCESS_SUB_ISSUES", false)
	if err != nil {
		return nil, err
	}
	cfg.EnableTesting, err = envOrBool("ENABLE_TESTING", true)
	if err != nil {
		return nil, err
	}
	cfg.OtelSDKDisabled, err = envOrBool("OTEL_SDK_DISABLED", true)
	if err != nil {
		return nil, err
	}

	switch cfg.SubIssueStrategy {
	case SubIssueInclude, SubIssueSequential, SubIssueSkip:
	default:
		return nil, fmt.Errorf("fatal configuration: invalid SUB_ISSUE_STRATEGY %q", cfg.SubIssueStrategy)
	}

	return cfg, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envOrBool(name string, fallback bool) (bool, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("fatal configuration: %s must be a boolean, got %q", name, v)
	}
	return b, nil
}

func envOrInt(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("fatal configuration: %s must be an integer, got %q", name, v)
	}
	return n, nil
}

// splitList parses a comma-separated env value into a trimmed, non-empty
// slice, e.g. "main, master" -> []string{"main", "master"}.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
