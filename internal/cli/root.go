package cli

import (
	"context"

	"resumeforge/internal/common"
	"resumeforge/internal/config"
	"resumeforge/internal/errors"
	"resumeforge/internal/formatters"
	"resumeforge/internal/i18n"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "resumeforge",
		Short: "An interview-driven resume generator",
		Long: `Resumeforge walks you through a short interview about your career,
then asks an AI model to turn your answers into a structured resume.
Run the interview in the terminal, generate from a saved answers file,
or serve the same pipeline over HTTP.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("locale", "", "Interview and prompt language (default from config)")

	rootCmd.AddCommand(newInterviewCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newPromptCmd())
	rootCmd.AddCommand(newQuestionsCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	return execute(ctx, newRootCmd(), cfg, logger)
}

func execute(ctx context.Context, rootCmd *cobra.Command, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	return rootCmd.ExecuteContext(ctx)
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

// newCatalog loads the message catalog with any configured overrides
func newCatalog(cfg *config.Config, logger *errors.Logger) (*i18n.Catalog, error) {
	return i18n.NewCatalog(cfg.I18n.DefaultLocale, cfg.I18n.OverridesDir, logger)
}

// commandLocale resolves the --locale flag against catalog
func commandLocale(cmd *cobra.Command, catalog *i18n.Catalog) string {
	locale, _ := cmd.Flags().GetString("locale")
	if locale == "" {
		return catalog.DefaultLocale()
	}
	return catalog.Resolve(locale)
}

// outputFlags registers the shared --output and --format flags on cmd
func outputFlags(cmd *cobra.Command, cmdConfig *common.CommandConfig) {
	cmd.Flags().StringVarP(&cmdConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cmdConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return formatters.GlobalRegistry.GetSupportedFormats(), cobra.ShellCompDirectiveNoFileComp
	})
}

// prepareOutput applies the configured default format and checks it is supported
func prepareOutput(cmd *cobra.Command, cmdConfig *common.CommandConfig) error {
	cfg := getConfigFromContext(cmd.Context())
	if cmdConfig.OutputFormat == "" {
		cmdConfig.OutputFormat = cfg.App.DefaultFormat
	}
	cmdConfig.MaxFileSize = cfg.App.MaxFileSize
	cmdConfig.Stdout = cmd.OutOrStdout()
	return common.ValidateOutputFormat(cmdConfig.OutputFormat, cfg.App.SupportedFormats)
}
