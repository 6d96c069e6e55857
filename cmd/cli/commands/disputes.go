package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meshcompute/clearing/pkg/api/v1/handlers"
)

// Dispute flag names
const (
	flagCaller        = "caller"
	flagReason        = "reason"
	flagArbiter       = "arbiter"
	flagFavorProvider = "favor-provider"
)

func init() {
	disputesCmd.AddCommand(createDisputeCmd)
	disputesCmd.AddCommand(resolveDisputeCmd)

	// Add flags for create
	createDisputeCmd.Flags().UintP(flagJobID, "i", 0, "Job ID")
	createDisputeCmd.Flags().StringP(flagCaller, "c", "", "Participant raising the dispute")
	createDisputeCmd.Flags().StringP(flagReason, "r", "", "Reason for the dispute")
	_ = createDisputeCmd.MarkFlagRequired(flagJobID)
	_ = createDisputeCmd.MarkFlagRequired(flagCaller)
	_ = createDisputeCmd.MarkFlagRequired(flagReason)

	// Add flags for resolve
	resolveDisputeCmd.Flags().UintP(flagJobID, "i", 0, "Job ID")
	resolveDisputeCmd.Flags().StringP(flagArbiter, "a", "", "Arbiter participant ID")
	resolveDisputeCmd.Flags().Bool(flagFavorProvider, false, "Rule in favor of the provider (default favors the client)")
	_ = resolveDisputeCmd.MarkFlagRequired(flagJobID)
	_ = resolveDisputeCmd.MarkFlagRequired(flagArbiter)
}

var disputesCmd = &cobra.Command{
	Use:   "disputes",
	Short: "Manage disputes",
}

var createDisputeCmd = &cobra.Command{
	Use:   "create",
	Short: "Contest a completed job's outcome",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetUint(flagJobID)
		callerID, _ := cmd.Flags().GetString(flagCaller)
		reason, _ := cmd.Flags().GetString(flagReason)

		record, err := apiClient.CreateDispute(context.Background(), handlers.DisputeCreateParams{
			CallerID: callerID,
			JobID:    jobID,
			Reason:   reason,
		})
		if err != nil {
			return fmt.Errorf("error creating dispute: %w", err)
		}

		fmt.Printf("Dispute %d opened on job %d\n", record.ID, record.JobID)
		return nil
	},
}

var resolveDisputeCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Apply an arbiter ruling to an open dispute",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetUint(flagJobID)
		arbiterID, _ := cmd.Flags().GetString(flagArbiter)
		favorProvider, _ := cmd.Flags().GetBool(flagFavorProvider)

		record, err := apiClient.ResolveDispute(context.Background(), handlers.DisputeResolveParams{
			ArbiterID:     arbiterID,
			JobID:         jobID,
			FavorProvider: favorProvider,
		})
		if err != nil {
			return fmt.Errorf("error resolving dispute: %w", err)
		}

		fmt.Printf("Dispute %d on job %d resolved: %s\n", record.ID, record.JobID, record.Outcome)
		return nil
	},
}

// GetDisputesCmd returns the disputes command
func GetDisputesCmd() *cobra.Command {
	return disputesCmd
}
