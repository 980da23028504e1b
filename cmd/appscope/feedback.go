package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ooAKLoo/AppScope/internal/analytics"
	"github.com/ooAKLoo/AppScope/internal/client"
	"github.com/spf13/cobra"
)

var feedbackCmd = &cobra.Command{
	Use:     "feedback",
	Short:   "List or send user feedback",
	GroupID: "stats",
}

var feedbackListCmd = &cobra.Command{
	Use:   "list <app-id>",
	Short: "List recent feedback, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		items, err := appClient.Feedback(context.Background(), args[0], limit)
		if err != nil {
			return fmt.Errorf("listing feedback: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), items)
		}
		return printFeedbackList(cmd.OutOrStdout(), items)
	},
}

var feedbackSendCmd = &cobra.Command{
	Use:   "send <app-id> <content...>",
	Short: "Submit feedback on behalf of a user",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		contact, _ := cmd.Flags().GetString("contact")
		props, _ := cmd.Flags().GetString("props")

		req := &client.FeedbackRequest{
			AppID:   args[0],
			Content: strings.Join(args[1:], " "),
			UserID:  userID,
			Contact: contact,
		}
		if props != "" {
			if !json.Valid([]byte(props)) {
				return fmt.Errorf("--props must be valid JSON")
			}
			req.Properties = json.RawMessage(props)
		}

		if err := appClient.SubmitFeedback(context.Background(), req); err != nil {
			return fmt.Errorf("sending feedback: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]bool{"success": true})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "feedback sent")
		return nil
	},
}

func init() {
	feedbackListCmd.Flags().Int("limit", analytics.DefaultFeedbackLimit, "maximum entries to return")

	feedbackSendCmd.Flags().String("user", "", "user id of the submitter")
	feedbackSendCmd.Flags().String("contact", "", "contact address of the submitter")
	feedbackSendCmd.Flags().String("props", "", "JSON object of extra properties")

	feedbackCmd.AddCommand(feedbackListCmd)
	feedbackCmd.AddCommand(feedbackSendCmd)
}
