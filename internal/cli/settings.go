package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sopflow/internal/settings"
	"sopflow/internal/util/jsonutil"
)

func newSettingsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the AI provider settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the settings with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadSettings(root)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), jsonutil.IndentString(mgr.Current().Redacted()))
			return nil
		},
	})
	cmd.AddCommand(newSettingsSetCmd(root))
	return cmd
}

func newSettingsSetCmd(root *rootOptions) *cobra.Command {
	var next settings.AiConfig
	var provider string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update individual settings and save them",
		Example: `  sopflow settings set --provider azure --azure-endpoint https://x.openai.azure.com \
      --azure-deployment gpt-4o --azure-key $AZURE_OPENAI_KEY`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadSettings(root)
			if err != nil {
				return err
			}
			cfg := mgr.Current()
			flags := cmd.Flags()
			apply := func(name string, dst *string, v string) {
				if flags.Changed(name) {
					*dst = v
				}
			}
			if flags.Changed("provider") {
				cfg.Provider = settings.Provider(provider)
			}
			apply("gemini-key", &cfg.Gemini.APIKey, next.Gemini.APIKey)
			apply("gemini-model", &cfg.Gemini.Model, next.Gemini.Model)
			apply("azure-endpoint", &cfg.Azure.Endpoint, next.Azure.Endpoint)
			apply("azure-deployment", &cfg.Azure.Deployment, next.Azure.Deployment)
			apply("azure-key", &cfg.Azure.APIKey, next.Azure.APIKey)
			apply("azure-api-version", &cfg.Azure.APIVersion, next.Azure.APIVersion)
			apply("ollama-url", &cfg.Ollama.BaseURL, next.Ollama.BaseURL)
			apply("ollama-model", &cfg.Ollama.Model, next.Ollama.Model)

			saved, err := mgr.Save(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n%s\n", mgr.Path(), jsonutil.IndentString(saved.Redacted()))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&provider, "provider", "", "gemini, azure or ollama")
	f.StringVar(&next.Gemini.APIKey, "gemini-key", "", "Gemini API key")
	f.StringVar(&next.Gemini.Model, "gemini-model", "", "Gemini model id")
	f.StringVar(&next.Azure.Endpoint, "azure-endpoint", "", "Azure OpenAI endpoint")
	f.StringVar(&next.Azure.Deployment, "azure-deployment", "", "Azure OpenAI deployment name")
	f.StringVar(&next.Azure.APIKey, "azure-key", "", "Azure OpenAI API key")
	f.StringVar(&next.Azure.APIVersion, "azure-api-version", "", "Azure OpenAI API version")
	f.StringVar(&next.Ollama.BaseURL, "ollama-url", "", "Ollama base URL")
	f.StringVar(&next.Ollama.Model, "ollama-model", "", "Ollama model")
	return cmd
}
