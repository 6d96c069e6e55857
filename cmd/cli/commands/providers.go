package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Provider flag names
const (
	flagProviderID = "id"
)

func init() {
	providersCmd.AddCommand(providerStatsCmd)

	providerStatsCmd.Flags().StringP(flagProviderID, "i", "", "Provider participant ID")
	_ = providerStatsCmd.MarkFlagRequired(flagProviderID)
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Inspect providers",
}

var providerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a provider's participation record and scores",
	RunE: func(cmd *cobra.Command, _ []string) error {
		providerID, _ := cmd.Flags().GetString(flagProviderID)

		stats, err := apiClient.GetProviderStats(context.Background(), providerID)
		if err != nil {
			return fmt.Errorf("error getting provider stats: %w", err)
		}

		return printJSON(stats)
	},
}

// GetProvidersCmd returns the providers command
func GetProvidersCmd() *cobra.Command {
	return providersCmd
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show marketplace-wide aggregates",
	RunE: func(_ *cobra.Command, _ []string) error {
		analytics, err := apiClient.GetAnalytics(context.Background())
		if err != nil {
			return fmt.Errorf("error getting analytics: %w", err)
		}

		return printJSON(analytics)
	},
}

// GetAnalyticsCmd returns the analytics command
func GetAnalyticsCmd() *cobra.Command {
	return analyticsCmd
}
