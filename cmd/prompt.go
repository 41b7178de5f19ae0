package cmd

import (
	"fmt"
	"strings"

	"github.com/birmacher/dealing-with-ai/input"
	"github.com/birmacher/dealing-with-ai/prompt"
	"github.com/spf13/cobra"
)

var promptCmd = &cobra.Command{
	Use:   "prompt [text]",
	Short: "Print the prompt the gateway would send for a request",
	Long: `Normalize the given text the way the gateway does and print the final prompt
for the selected option, without calling any language model.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		option, _ := cmd.Flags().GetString("option")
		language, _ := cmd.Flags().GetString("language")
		task, _ := cmd.Flags().GetString("task")
		number, _ := cmd.Flags().GetString("number")
		maxChars, _ := cmd.Flags().GetInt("max-characters")
		newlines, _ := cmd.Flags().GetString("newlines")

		if option != "" && !prompt.Supported(prompt.Option(option)) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Unknown option %q, the text is passed through unchanged\n", option)
		}

		text := input.Normalize(strings.Join(args, " "), input.NewlinePolicy(newlines))
		if text == "" {
			return input.ErrEmptyInput
		}

		transformer, err := prompt.NewTransformer(maxChars)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), transformer.Transform(prompt.Input{
			Text:     text,
			Option:   prompt.Option(option),
			Language: language,
			Task:     task,
			Number:   number,
		}))
		return nil
	},
}

func supportedOptions() string {
	var names []string
	for _, o := range prompt.Options() {
		names = append(names, string(o))
	}
	return strings.Join(names, ", ")
}

func init() {
	rootCmd.AddCommand(promptCmd)

	promptCmd.Flags().StringP("option", "o", "", "Prompt option, one of: "+supportedOptions())
	promptCmd.Flags().StringP("language", "l", "", "Programming language for the programming option")
	promptCmd.Flags().StringP("task", "t", "", "Task for the programming, writing and website options")
	promptCmd.Flags().StringP("number", "n", "", "Number of papers for the compare review papers option")
	promptCmd.Flags().Int("max-characters", 4000, "Maximum prompt length in characters")
	promptCmd.Flags().String("newlines", string(input.NewlineStrip), "Newline policy: strip or collapse")
}
