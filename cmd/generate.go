package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Send a prompt to the configured text-generation backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return generateRun(args[0])
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func generateRun(prompt string) error {
	gen, err := newGenerator()
	if err != nil {
		return err
	}

	text, err := gen.Generate(context.Background(), prompt)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	fmt.Fprintln(ui.Out, text)
	return nil
}
