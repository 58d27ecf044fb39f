package common

import (
	"context"
	"fmt"
	"os"

	"resumeforge/internal/ai"
	"resumeforge/internal/errors"
)

// PipelineFunc runs one pipeline operation over an Answer Record. It may report token usage.
type PipelineFunc[Output any] func(ctx context.Context, answers map[string]string) (Output, *ai.TokenUsage, error)

// RunAnswersCommand encapsulates the common logic for commands that take an answers
// file: load and parse the file, run the operation, report token usage and write
// the formatted output.
func RunAnswersCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	answersFile string,
	operation PipelineFunc[Output],
) error {
	fileProcessor := NewFileProcessor(logger, cmdConfig.MaxFileSize)
	outputHandler := NewOutputHandler(logger, cmdConfig.Stdout)

	answers, err := fileProcessor.LoadAnswersFile(answersFile)
	if err != nil {
		return err
	}

	if logger != nil {
		logger.Info("Loaded answers file",
			"file", answersFile,
			"answers", len(answers),
			"output_format", cmdConfig.OutputFormat)
	}

	result, tokenUsage, err := operation(ctx, answers)
	if err != nil {
		return err
	}

	// Report token usage
	if tokenUsage != nil {
		if logger != nil {
			logger.Info("AI token usage", "input_tokens", tokenUsage.InputTokens, "output_tokens", tokenUsage.OutputTokens, "total_tokens", tokenUsage.TotalTokens)
		} else {
			fmt.Fprintf(os.Stderr, "AI token usage: input=%d, output=%d, total=%d\n", tokenUsage.InputTokens, tokenUsage.OutputTokens, tokenUsage.TotalTokens)
		}
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
