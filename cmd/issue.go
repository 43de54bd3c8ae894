package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/segnala/segnala/internal/models"
	"github.com/segnala/segnala/internal/output"
	"github.com/segnala/segnala/internal/store"
	"github.com/segnala/segnala/internal/workflow"
)

var (
	issueTitle    string
	issueDesc     string
	issueCategory string
	issueStatus   string
	issuePhotoURL string
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage reported issues",
	Long:  "Report, list, and resolve municipal issues.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report a new issue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueReportRun()
	},
}

var issueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show <issue-id>",
	Short: "Show issue details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueShowRun(args[0])
	},
}

var issueResolveCmd = &cobra.Command{
	Use:   "resolve <issue-id>",
	Short: "Confirm an issue and run its solution workflow",
	Long: `Confirm the issue and run the deferred solution workflow to completion.

The issue is marked 'report confermato' immediately, then the two timed
transitions run; the command waits for them (twice workflow.step_delay) so
the generated solution is attached before it returns.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueResolveRun(args[0])
	},
}

func init() {
	issueReportCmd.Flags().StringVar(&issueTitle, "title", "", "Issue title (required)")
	issueReportCmd.Flags().StringVar(&issueDesc, "desc", "", "Issue description")
	issueReportCmd.Flags().StringVar(&issueCategory, "category", "", "Issue category")
	issueReportCmd.Flags().StringVar(&issueStatus, "status", string(models.StatusSubmitted), "Initial status")
	issueReportCmd.Flags().StringVar(&issuePhotoURL, "photo", "", "Photo URL")
	_ = issueReportCmd.MarkFlagRequired("title")

	issueCmd.AddCommand(issueReportCmd)
	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueShowCmd)
	issueCmd.AddCommand(issueResolveCmd)
	rootCmd.AddCommand(issueCmd)
}

func issueReportRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	issue := &models.Issue{
		Title:       issueTitle,
		Description: issueDesc,
		Category:    issueCategory,
		Status:      models.Status(issueStatus),
		PhotoURL:    issuePhotoURL,
	}
	if err := s.CreateIssue(context.Background(), issue); err != nil {
		return err
	}

	ui.Success("Issue reported: %s", output.Cyan(issue.ID))
	return nil
}

func issueListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	issues, err := s.ListIssues(context.Background())
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		ui.Info("No issues reported")
		return nil
	}

	table := ui.Table([]string{"ID", "Title", "Category", "Status", "Created"})
	for _, issue := range issues {
		created := ""
		if !issue.CreatedAt.IsZero() {
			created = issue.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		table.Append([]string{
			issue.ID,
			issue.Title,
			issue.Category,
			output.StatusColor(string(issue.Status)),
			created,
		})
	}
	return table.Render()
}

func issueShowRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	if !store.ValidID(id) {
		return fmt.Errorf("malformed issue id: %s", id)
	}

	issue, err := s.GetIssue(context.Background(), id)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s %s\n", output.Cyan(issue.ID), issue.Title)
	fmt.Fprintf(ui.Out, "  Category:  %s\n", issue.Category)
	fmt.Fprintf(ui.Out, "  Status:    %s\n", output.StatusColor(string(issue.Status)))
	if issue.PhotoURL != "" {
		fmt.Fprintf(ui.Out, "  Photo:     %s\n", issue.PhotoURL)
	}
	if !issue.CreatedAt.IsZero() {
		fmt.Fprintf(ui.Out, "  Created:   %s\n", issue.CreatedAt.Local().Format(time.RFC822))
	}
	if issue.Description != "" {
		fmt.Fprintf(ui.Out, "\n%s\n", issue.Description)
	}
	if issue.GeneratedSummary != "" {
		fmt.Fprintf(ui.Out, "\n%s\n%s\n", output.Yellow("Summary:"), issue.GeneratedSummary)
	}
	if issue.SolutionDescription != "" {
		fmt.Fprintf(ui.Out, "\n%s\n%s\n", output.Green("Solution:"), issue.SolutionDescription)
	}
	return nil
}

func issueResolveRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if !store.ValidID(id) {
		return fmt.Errorf("malformed issue id: %s", id)
	}
	if _, err := s.GetIssue(ctx, id); err != nil {
		return err
	}

	gen, err := newGenerator()
	if err != nil {
		return err
	}

	runner := workflow.NewRunner(s, gen, viper.GetDuration("workflow.step_delay"), slog.Default())
	if err := runner.Confirm(ctx, id); err != nil {
		return err
	}
	ui.Info("Issue confirmed, running solution workflow...")

	runner.Spawn(id)
	runner.Wait()

	issue, err := s.GetIssue(ctx, id)
	if err != nil {
		return err
	}
	ui.Success("Issue %s: %s", issue.ID, output.StatusColor(string(issue.Status)))
	if issue.SolutionDescription != "" {
		fmt.Fprintf(ui.Out, "\n%s\n", issue.SolutionDescription)
	}
	return nil
}
