package cli

import (
	"context"
	"fmt"

	"resumeforge/internal/ai"
	"resumeforge/internal/common"
	"resumeforge/internal/generation"
	"resumeforge/internal/interview"

	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var cmdConfig common.CommandConfig

	cmd := &cobra.Command{
		Use:   "generate [answers-file]",
		Short: "Generate a resume from a saved answers file",
		Long: `Generate a resume from a JSON or YAML answers file, such as one saved by
the interview command. Every question must have an answer. The validated
resume is stored for the editor and the result is printed.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return prepareOutput(cmd, &cmdConfig)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args[0], cmdConfig)
		},
	}
	outputFlags(cmd, &cmdConfig)
	return cmd
}

func runGenerate(cmd *cobra.Command, answersFile string, cmdConfig common.CommandConfig) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	catalog, err := newCatalog(cfg, logger)
	if err != nil {
		return err
	}
	locale := commandLocale(cmd, catalog)

	pipeline, err := generation.NewPipeline(cfg, catalog, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to create generation pipeline: %w", err)
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			logger.LogError(err, "Failed to close generation pipeline")
		}
	}()

	generateOperation := func(ctx context.Context, answers map[string]string) (*generation.Result, *ai.TokenUsage, error) {
		session := interview.NewSession("cli", "", locale)
		if err := session.LoadAnswers(answers); err != nil {
			return nil, nil, err
		}

		result, err := pipeline.Orchestrator.Generate(ctx, session, locale)
		if err != nil {
			return nil, nil, err
		}
		return result, result.TokenUsage, nil
	}

	return common.RunAnswersCommand(cmd.Context(), logger, cmdConfig, answersFile, generateOperation)
}
