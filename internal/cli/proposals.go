package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/voss/swarmtool/internal/config"
	"github.com/voss/swarmtool/pkg/gateway"
)

var proposalSender string

var proposalsCmd = &cobra.Command{
	Use:   "proposals",
	Short: "Decide on tools proposed by peers",
	Long: `List, approve, and reject tool proposals queued in a running
daemon. Decisions go through the daemon's gateway; the daemon must be
serving for these commands to work.`,
}

var proposalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending proposals",
	RunE:  runProposalsList,
}

var proposalsApproveCmd = &cobra.Command{
	Use:   "approve <name>",
	Short: "Approve a pending proposal, installing its tool",
	Args:  cobra.ExactArgs(1),
	RunE:  runProposalsApprove,
}

var proposalsRejectCmd = &cobra.Command{
	Use:   "reject <name>",
	Short: "Reject a pending proposal, discarding it",
	Args:  cobra.ExactArgs(1),
	RunE:  runProposalsReject,
}

func init() {
	proposalsCmd.PersistentFlags().StringVar(&proposalSender, "sender", "", "sender to disambiguate same-named proposals (default: earliest)")
	proposalsCmd.AddCommand(proposalsListCmd)
	proposalsCmd.AddCommand(proposalsApproveCmd)
	proposalsCmd.AddCommand(proposalsRejectCmd)
	rootCmd.AddCommand(proposalsCmd)
}

// gatewayBaseURL resolves the running daemon's gateway address from config.
func gatewayBaseURL() (string, *gateway.Client, error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Gateway.Enabled {
		return "", nil, fmt.Errorf("gateway is disabled in config; proposals live in the serving process")
	}
	base := fmt.Sprintf("http://%s:%d", cfg.Gateway.Bind, cfg.Gateway.Port)
	client := gateway.NewClient(time.Duration(cfg.Peer.TimeoutSeconds) * time.Second)
	return base, client, nil
}

func runProposalsList(cmd *cobra.Command, args []string) error {
	base, client, err := gatewayBaseURL()
	if err != nil {
		return err
	}

	pending, err := client.PendingProposals(base)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no pending proposals")
		return nil
	}

	for _, p := range pending {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tfrom %s\t%s\n",
			p.Name, p.Risk, p.SenderID, p.ReceivedAt.Format(time.RFC3339))
	}
	return nil
}

func runProposalsApprove(cmd *cobra.Command, args []string) error {
	base, client, err := gatewayBaseURL()
	if err != nil {
		return err
	}
	if err := client.ApproveProposal(base, args[0], proposalSender); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "approved %s\n", args[0])
	return nil
}

func runProposalsReject(cmd *cobra.Command, args []string) error {
	base, client, err := gatewayBaseURL()
	if err != nil {
		return err
	}
	if err := client.RejectProposal(base, args[0], proposalSender); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rejected %s\n", args[0])
	return nil
}
