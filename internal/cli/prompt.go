package cli

import (
	"context"

	"resumeforge/internal/ai"
	"resumeforge/internal/common"
	"resumeforge/internal/interview"

	"github.com/spf13/cobra"
)

func newPromptCmd() *cobra.Command {
	var cmdConfig common.CommandConfig

	cmd := &cobra.Command{
		Use:   "prompt [answers-file]",
		Short: "Show the prompt that would be sent to the model",
		Long: `Render the system and user prompts for an answers file without calling
the model. Unanswered questions are left out of the prompt, so a partial
answers file can be previewed too.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return prepareOutput(cmd, &cmdConfig)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrompt(cmd, args[0], cmdConfig)
		},
	}
	outputFlags(cmd, &cmdConfig)
	return cmd
}

func runPrompt(cmd *cobra.Command, answersFile string, cmdConfig common.CommandConfig) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	catalog, err := newCatalog(cfg, logger)
	if err != nil {
		return err
	}
	translator := catalog.Translator(commandLocale(cmd, catalog))

	generateConfig := cfg.GetGenerateConfig()
	builder := ai.NewPromptBuilder(cfg.GetLoadedGeneratePrompts(), generateConfig.CustomPrompts)

	promptOperation := func(_ context.Context, answers map[string]string) (ai.PromptPair, *ai.TokenUsage, error) {
		session := interview.NewSession("cli", "", translator.Locale())
		if err := session.LoadAnswers(answers); err != nil {
			return ai.PromptPair{}, nil, err
		}
		if !session.IsComplete() {
			answered, total := session.Progress()
			logger.Warn("Answers file is incomplete", "answered", answered, "total", total)
		}
		return builder.Build(interview.Sections(), session.Answers(), translator), nil, nil
	}

	return common.RunAnswersCommand(cmd.Context(), logger, cmdConfig, answersFile, promptOperation)
}
