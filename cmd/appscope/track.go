package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/ooAKLoo/AppScope/internal/client"
	"github.com/ooAKLoo/AppScope/internal/model"
	"github.com/spf13/cobra"
)

// userIDPrefix matches the ids client SDKs persist per device.
const userIDPrefix = "u_"

func newUserID() string {
	return userIDPrefix + uuid.NewString()
}

var trackCmd = &cobra.Command{
	Use:   "track <app-id> <event>",
	Short: "Record one event",
	Long: `Record one event for an application.

The reserved events ` + model.EventOpen + ` and ` + model.EventInstall + ` drive DAU, retention
and install counts; any other name is stored as-is. When --user is omitted a
fresh u_<uuid> id is generated and printed.`,
	GroupID: "ingest",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		props, _ := cmd.Flags().GetString("props")

		generated := userID == ""
		if generated {
			userID = newUserID()
		}
		req := &client.TrackRequest{AppID: args[0], Event: args[1], UserID: userID}
		if props != "" {
			if !json.Valid([]byte(props)) {
				return fmt.Errorf("--props must be valid JSON")
			}
			req.Properties = json.RawMessage(props)
		}

		if err := appClient.Track(context.Background(), req); err != nil {
			return fmt.Errorf("tracking event: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"success": true, "user_id": userID})
		}
		if generated {
			fmt.Fprintf(cmd.OutOrStdout(), "tracked %s for %s (generated)\n", args[1], userID)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "tracked %s for %s\n", args[1], userID)
		}
		return nil
	},
}

func init() {
	trackCmd.Flags().String("user", "", "user id (default: generated u_<uuid>)")
	trackCmd.Flags().String("props", "", "JSON object of event properties")
}
