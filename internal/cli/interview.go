package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"resumeforge/internal/common"
	"resumeforge/internal/errors"
	"resumeforge/internal/generation"
	"resumeforge/internal/i18n"
	"resumeforge/internal/interview"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const (
	resetCommand = ":reset"
	quitCommand  = ":quit"

	maxAnswerLine = 1 << 20
)

type interviewOptions struct {
	saveFile string
	generate bool
}

func newInterviewCmd() *cobra.Command {
	var opts interviewOptions

	cmd := &cobra.Command{
		Use:   "interview",
		Short: "Answer the interview questions in the terminal",
		Long: `Ask every interview question in order and read one answer per line.
Type :reset to start over or :quit to stop. When every question is
answered the answers can be saved and the resume generated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInterview(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.saveFile, "save", "", "Save the answers to this YAML file")
	cmd.Flags().BoolVar(&opts.generate, "generate", true, "Generate the resume when the interview is complete")
	return cmd
}

func runInterview(cmd *cobra.Command, opts interviewOptions) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	catalog, err := newCatalog(cfg, logger)
	if err != nil {
		return err
	}
	t := catalog.Translator(commandLocale(cmd, catalog))

	session := interview.NewSession(uuid.NewString(), "", t.Locale())
	out := cmd.OutOrStdout()

	finished, err := askQuestions(cmd.InOrStdin(), out, session, t)
	if err != nil {
		return err
	}

	if opts.saveFile != "" {
		if err := saveAnswers(logger, opts.saveFile, session.Answers(), cfg.App.MaxFileSize); err != nil {
			return err
		}
		fmt.Fprintf(out, "Answers saved to %s\n", opts.saveFile)
	}

	if !finished {
		answered, total := session.Progress()
		logger.Info("Interview stopped before the last question", "answered", answered, "total", total)
		return nil
	}
	if !opts.generate {
		return nil
	}

	pipeline, err := generation.NewPipeline(cfg, catalog, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to create generation pipeline: %w", err)
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			logger.LogError(err, "Failed to close generation pipeline")
		}
	}()

	result, err := pipeline.Orchestrator.Generate(cmd.Context(), session, t.Locale())
	if err != nil {
		fmt.Fprintln(out, t.T("messages.generationFailed"))
		return err
	}

	fmt.Fprintln(out, t.T("messages.generationSucceeded"))
	return common.NewOutputHandler(logger, out).HandleOutput(result, common.CommandConfig{
		OutputFormat: cfg.App.DefaultFormat,
	})
}

// askQuestions runs the question loop until the session is complete or the
// user quits. It reports whether every question was answered.
func askQuestions(in io.Reader, out io.Writer, session *interview.Session, t i18n.Translator) (bool, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxAnswerLine)
	lastSection := ""

	for !session.IsComplete() {
		section, _ := session.CurrentSection()
		question, _ := session.CurrentQuestion()

		if section.ID != lastSection {
			fmt.Fprintf(out, "\n== %s ==\n", section.Title(t))
			lastSection = section.ID
		}
		answered, total := session.Progress()
		fmt.Fprintf(out, "[%s] %s\n> ", progressLabel(t, answered+1, total), question.Text(t))

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return false, errors.NewIOError("STDIN_READ_FAILED", "failed to read answer", err)
			}
			fmt.Fprintln(out)
			return false, nil
		}

		// Commands are matched loosely, answers are stored as typed
		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case quitCommand:
			return false, nil
		case resetCommand:
			session.Reset()
			lastSection = ""
			continue
		}

		if err := session.SubmitAnswer(line); err != nil {
			if errors.HasCode(err, errors.ErrCodeEmptyAnswer) {
				fmt.Fprintln(out, t.T("messages.emptyAnswer"))
				continue
			}
			return false, err
		}
	}
	return true, nil
}

func progressLabel(t i18n.Translator, current, total int) string {
	return i18n.Format(t.T("messages.progress"), map[string]string{
		"current": strconv.Itoa(current),
		"total":   strconv.Itoa(total),
	})
}

func saveAnswers(logger *errors.Logger, filename string, answers map[string]string, maxFileSize int64) error {
	fileProcessor := common.NewFileProcessor(logger, maxFileSize)
	if err := fileProcessor.ValidateOutputFile(filename); err != nil {
		return err
	}

	data, err := common.EncodeAnswers(answers)
	if err != nil {
		return err
	}
	return fileProcessor.WriteFile(filename, string(data))
}
