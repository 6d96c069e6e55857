package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/meshcompute/clearing/pkg/api/v1/handlers"
)

// Job flag names
const (
	flagJobID    = "id"
	flagClient   = "client"
	flagProvider = "provider"
	flagJobType  = "type"
	flagSpecHash = "spec-hash"
	flagAmount   = "amount"
	flagDeadline = "deadline"
	flagPriority = "priority"
	flagPrivate  = "private"
	flagMetadata = "metadata"

	flagOutputHash = "output-hash"
	flagProofHash  = "proof-hash"
	flagScore      = "score"
	flagRating     = "rating"

	flagParticipant = "participant"
	flagJobPage     = "page"
)

// jobOutput represents the filtered output for a job
type jobOutput struct {
	ID       uint   `json:"id"`
	Phase    string `json:"phase"`
	Client   string `json:"client_id"`
	Provider string `json:"provider_id,omitempty"`
	Type     string `json:"job_type"`
	Amount   int64  `json:"amount"`
	Deadline string `json:"deadline"`
	Created  string `json:"created_at"`
}

// jobListOutput represents the filtered output for a list of jobs
type jobListOutput struct {
	Jobs []jobOutput `json:"jobs"`
}

func init() {
	jobsCmd.AddCommand(submitJobCmd)
	jobsCmd.AddCommand(claimJobCmd)
	jobsCmd.AddCommand(startJobCmd)
	jobsCmd.AddCommand(completeJobCmd)
	jobsCmd.AddCommand(cancelJobCmd)
	jobsCmd.AddCommand(expireJobCmd)
	jobsCmd.AddCommand(rateJobCmd)
	jobsCmd.AddCommand(getJobCmd)
	jobsCmd.AddCommand(listJobsCmd)
	jobsCmd.AddCommand(jobHistoryCmd)

	// Add flags for submit
	submitJobCmd.Flags().StringP(flagClient, "c", "", "Client participant ID")
	submitJobCmd.Flags().StringP(flagJobType, "t", "generic", "Job type (training, inference, render, generic)")
	submitJobCmd.Flags().String(flagSpecHash, "", "Hex fingerprint of the job specification")
	submitJobCmd.Flags().Int64P(flagAmount, "a", 0, "Payment amount in micro-credits")
	submitJobCmd.Flags().StringP(flagDeadline, "d", "", "Deadline (RFC 3339)")
	submitJobCmd.Flags().Int(flagPriority, 0, "Scheduling priority hint")
	submitJobCmd.Flags().Bool(flagPrivate, false, "Hide the job from public listings")
	submitJobCmd.Flags().String(flagMetadata, "", "Opaque metadata JSON")
	_ = submitJobCmd.MarkFlagRequired(flagClient)
	_ = submitJobCmd.MarkFlagRequired(flagSpecHash)
	_ = submitJobCmd.MarkFlagRequired(flagAmount)
	_ = submitJobCmd.MarkFlagRequired(flagDeadline)

	// Add flags for claim
	claimJobCmd.Flags().UintP(flagJobID, "i", 0, "Job ID")
	claimJobCmd.Flags().StringP(flagProvider, "p", "", "Provider participant ID")
	_ = claimJobCmd.MarkFlagRequired(flagJobID)
	_ = claimJobCmd.MarkFlagRequired(flagProvider)

	// Add flags for start
	startJobCmd.Flags().UintP(flagJobID, "i", 0, "Job ID")
	startJobCmd.Flags().StringP(flagProvider, "p", "", "Provider participant ID")
	_ = startJobCmd.MarkFlagRequired(flagJobID)
	_ = startJobCmd.MarkFlagRequired(flagProvider)

	// Add flags for complete
	completeJobCmd.Flags().UintP(flagJobID, "i", 0, "Job ID")
	completeJobCmd.Flags().StringP(flagProvider, "p", "", "Provider participant ID")
	completeJobCmd.Flags().String(flagOutputHash, "", "Hex fingerprint of the result")
	completeJobCmd.Flags().String(flagProofHash, "", "Hex fingerprint of the execution proof")
	completeJobCmd.Flags().Int(flagScore, 0, "Self-reported quality score (0-100)")
	_ = completeJobCmd.MarkFlagRequired(flagJobID)
	_ = completeJobCmd.MarkFlagRequired(flagProvider)
	_ = completeJobCmd.MarkFlagRequired(flagOutputHash)
	_ = completeJobCmd.MarkFlagRequired(flagProofHash)

	// Add flags for cancel
	cancelJobCmd.Flags().UintP(flagJobID, "i", 0, "Job ID")
	cancelJobCmd.Flags().StringP(flagClient, "c", "", "Client participant ID")
	_ = cancelJobCmd.MarkFlagRequired(flagJobID)
	_ = cancelJobCmd.MarkFlagRequired(flagClient)

	// Add flags for expire
	expireJobCmd.Flags().UintP(flagJobID, "i", 0, "Job ID")
	_ = expireJobCmd.MarkFlagRequired(flagJobID)

	// Add flags for rate
	rateJobCmd.Flags().UintP(flagJobID, "i", 0, "Job ID")
	rateJobCmd.Flags().StringP(flagClient, "c", "", "Client participant ID")
	rateJobCmd.Flags().IntP(flagRating, "r", 0, "Quality rating (0-100)")
	_ = rateJobCmd.MarkFlagRequired(flagJobID)
	_ = rateJobCmd.MarkFlagRequired(flagClient)
	_ = rateJobCmd.MarkFlagRequired(flagRating)

	// Add flags for get and history
	getJobCmd.Flags().UintP(flagJobID, "i", 0, "Job ID")
	_ = getJobCmd.MarkFlagRequired(flagJobID)
	jobHistoryCmd.Flags().UintP(flagJobID, "i", 0, "Job ID")
	_ = jobHistoryCmd.MarkFlagRequired(flagJobID)

	// Add flags for list
	listJobsCmd.Flags().StringP(flagParticipant, "u", "", "Filter to jobs where this participant is client or provider")
	listJobsCmd.Flags().IntP(flagJobPage, "g", 1, "Page number for pagination")
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage jobs",
}

var submitJobCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new job, locking the payment in escrow",
	RunE: func(cmd *cobra.Command, _ []string) error {
		clientID, _ := cmd.Flags().GetString(flagClient)
		jobType, _ := cmd.Flags().GetString(flagJobType)
		specHash, _ := cmd.Flags().GetString(flagSpecHash)
		amount, _ := cmd.Flags().GetInt64(flagAmount)
		deadlineStr, _ := cmd.Flags().GetString(flagDeadline)
		priority, _ := cmd.Flags().GetInt(flagPriority)
		private, _ := cmd.Flags().GetBool(flagPrivate)
		metadata, _ := cmd.Flags().GetString(flagMetadata)

		deadline, err := time.Parse(time.RFC3339, deadlineStr)
		if err != nil {
			return fmt.Errorf("invalid deadline, expected RFC 3339: %w", err)
		}

		params := handlers.JobSubmitParams{
			ClientID: clientID,
			JobType:  jobType,
			SpecHash: specHash,
			Amount:   amount,
			Deadline: deadline,
			Priority: priority,
			Private:  private,
		}
		if metadata != "" {
			params.Metadata = json.RawMessage(metadata)
		}

		job, err := apiClient.SubmitJob(context.Background(), params)
		if err != nil {
			return fmt.Errorf("error submitting job: %w", err)
		}

		fmt.Printf("Job %d submitted (%d micro-credits in escrow)\n", job.ID, job.Amount)
		return nil
	},
}

var claimJobCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim a pending job for a provider",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetUint(flagJobID)
		providerID, _ := cmd.Flags().GetString(flagProvider)

		job, err := apiClient.ClaimJob(context.Background(), handlers.JobClaimParams{
			ProviderID: providerID,
			JobID:      jobID,
		})
		if err != nil {
			return fmt.Errorf("error claiming job: %w", err)
		}

		fmt.Printf("Job %d claimed by %s\n", job.ID, job.ProviderID)
		return nil
	},
}

var startJobCmd = &cobra.Command{
	Use:   "start",
	Short: "Start execution of a claimed job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetUint(flagJobID)
		providerID, _ := cmd.Flags().GetString(flagProvider)

		job, err := apiClient.StartJob(context.Background(), handlers.JobStartParams{
			ProviderID: providerID,
			JobID:      jobID,
		})
		if err != nil {
			return fmt.Errorf("error starting job: %w", err)
		}

		fmt.Printf("Job %d is now %s\n", job.ID, job.Phase)
		return nil
	},
}

var completeJobCmd = &cobra.Command{
	Use:   "complete",
	Short: "Deliver a result and settle payment",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetUint(flagJobID)
		providerID, _ := cmd.Flags().GetString(flagProvider)
		outputHash, _ := cmd.Flags().GetString(flagOutputHash)
		proofHash, _ := cmd.Flags().GetString(flagProofHash)
		score, _ := cmd.Flags().GetInt(flagScore)

		job, err := apiClient.CompleteJob(context.Background(), handlers.JobCompleteParams{
			ProviderID:   providerID,
			JobID:        jobID,
			OutputHash:   outputHash,
			ProofHash:    proofHash,
			QualityScore: score,
		})
		if err != nil {
			return fmt.Errorf("error completing job: %w", err)
		}

		fmt.Printf("Job %d completed, %d micro-credits released to %s\n",
			job.ID, job.Amount-job.FeeCharged, job.ProviderID)
		return nil
	},
}

var cancelJobCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel a still-pending job and refund the client",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetUint(flagJobID)
		clientID, _ := cmd.Flags().GetString(flagClient)

		settlement, err := apiClient.CancelJob(context.Background(), handlers.JobCancelParams{
			ClientID: clientID,
			JobID:    jobID,
		})
		if err != nil {
			return fmt.Errorf("error cancelling job: %w", err)
		}

		fmt.Printf("Job %d cancelled, %d micro-credits refunded\n", settlement.JobID, settlement.Amount)
		return nil
	},
}

var expireJobCmd = &cobra.Command{
	Use:   "expire",
	Short: "Settle a job whose deadline has passed",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetUint(flagJobID)

		job, err := apiClient.ExpireJob(context.Background(), handlers.JobExpireParams{JobID: jobID})
		if err != nil {
			return fmt.Errorf("error expiring job: %w", err)
		}

		fmt.Printf("Job %d expired, %d micro-credits refunded to %s\n", job.ID, job.Amount, job.ClientID)
		return nil
	},
}

var rateJobCmd = &cobra.Command{
	Use:   "rate",
	Short: "Rate the quality of a completed job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetUint(flagJobID)
		clientID, _ := cmd.Flags().GetString(flagClient)
		rating, _ := cmd.Flags().GetInt(flagRating)

		if err := apiClient.RateJob(context.Background(), handlers.JobRateParams{
			ClientID: clientID,
			JobID:    jobID,
			Rating:   rating,
		}); err != nil {
			return fmt.Errorf("error rating job: %w", err)
		}

		fmt.Printf("Job %d rated %d\n", jobID, rating)
		return nil
	},
}

var getJobCmd = &cobra.Command{
	Use:   "get",
	Short: "Get a specific job by its ID",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetUint(flagJobID)

		job, err := apiClient.GetJob(context.Background(), fmt.Sprintf("%d", jobID))
		if err != nil {
			return fmt.Errorf("error getting job: %w", err)
		}

		return printJSON(job)
	},
}

var listJobsCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, optionally filtered by participant",
	RunE: func(cmd *cobra.Command, _ []string) error {
		participant, _ := cmd.Flags().GetString(flagParticipant)
		page, _ := cmd.Flags().GetInt(flagJobPage)

		jobs, err := apiClient.ListJobs(context.Background(), participant, page)
		if err != nil {
			return fmt.Errorf("error listing jobs: %w", err)
		}

		output := jobListOutput{
			Jobs: make([]jobOutput, len(jobs)),
		}
		for i, job := range jobs {
			output.Jobs[i] = jobOutput{
				ID:       job.ID,
				Phase:    job.Phase.String(),
				Client:   job.ClientID,
				Provider: job.ProviderID,
				Type:     string(job.JobType),
				Amount:   job.Amount,
				Deadline: job.Deadline.Format("2006-01-02 15:04:05"),
				Created:  job.CreatedAt.Format("2006-01-02 15:04:05"),
			}
		}

		return printJSON(output)
	},
}

var jobHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the phase transition log of a job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetUint(flagJobID)

		events, err := apiClient.GetJobHistory(context.Background(), fmt.Sprintf("%d", jobID))
		if err != nil {
			return fmt.Errorf("error getting job history: %w", err)
		}

		return printJSON(events)
	},
}

// GetJobsCmd returns the jobs command
func GetJobsCmd() *cobra.Command {
	return jobsCmd
}
