package cli

import (
	"resumeforge/internal/common"
	"resumeforge/internal/interview"

	"github.com/spf13/cobra"
)

func newQuestionsCmd() *cobra.Command {
	var cmdConfig common.CommandConfig

	cmd := &cobra.Command{
		Use:   "questions",
		Short: "List the interview questions",
		Long: `Print every interview section and question in the selected language.
The JSON output lists the answer keys an answers file must use.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return prepareOutput(cmd, &cmdConfig)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfigFromContext(cmd.Context())
			logger := getLoggerFromContext(cmd.Context())

			catalog, err := newCatalog(cfg, logger)
			if err != nil {
				return err
			}
			sections := interview.Localize(catalog.Translator(commandLocale(cmd, catalog)))
			return common.NewOutputHandler(logger, cmdConfig.Stdout).HandleOutput(sections, cmdConfig)
		},
	}
	outputFlags(cmd, &cmdConfig)
	return cmd
}
