package cli

import (
	"context"
	"fmt"

	"github.com/lucasnoah/polyagent/internal/agent"
	"github.com/lucasnoah/polyagent/internal/agent/localmodel"
	"github.com/lucasnoah/polyagent/internal/agent/openaimodel"
	"github.com/lucasnoah/polyagent/internal/board"
	"github.com/lucasnoah/polyagent/internal/checks"
	"github.com/lucasnoah/polyagent/internal/config"
	"github.com/lucasnoah/polyagent/internal/db"
	"github.com/lucasnoah/polyagent/internal/forge"
	"github.com/lucasnoah/polyagent/internal/orchestrator"
	"github.com/lucasnoah/polyagent/internal/runner"
)

// exitCode is set by whichever RunE last ran and read back by Execute,
// since cobra itself only distinguishes "error" from "no error" — the
// specification's three-way exit code (0 complete, 1 fatal config, 2
// pipeline incomplete) needs a side channel.
var exitCode int

// buildPipeline wires every collaborator the orchestrator needs from cfg
// and the requested repo, honoring the --openai/--force-openai override
// over cfg.Provider. When DATABASE_URL is unset no database is opened and
// the orchestrator is built with a nil *db.DB, which its logging skips.
func buildPipeline(ctx context.Context, cfg *config.Config, repo string, forceOpenAI bool) (*orchestrator.Orchestrator, func(), error) {
	cmd := &runner.ExecRunner{}

	model, err := selectModel(cfg, forceOpenAI)
	if err != nil {
		return nil, nil, err
	}

	agentRunner := agent.NewRunner(model)
	if cfg.CallTimeout > 0 {
		agentRunner.Timeout = cfg.CallTimeout
	}

	gh := forge.NewGitHubForge(cmd, repo)
	boardClient := board.NewForgeAdapter(gh)
	checksRunner := checks.NewRunner(cmd)

	var database *db.DB
	cleanup := func() {}
	if cfg.DatabaseURL != "" {
		database, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		cleanup = database.Close
	}

	kind := config.DefaultRepoKind()

	o := orchestrator.New(cfg, kind, gh, boardClient, agentRunner, checksRunner, cmd, database)
	return o, cleanup, nil
}

func selectModel(cfg *config.Config, forceOpenAI bool) (agent.Model, error) {
	useOpenAI := forceOpenAI || cfg.Provider == config.ProviderOpenAI
	if !useOpenAI {
		return localmodel.New(cfg.ProviderBaseURL, cfg.ProviderModel), nil
	}
	return openaimodel.NewFromEnv()
}
