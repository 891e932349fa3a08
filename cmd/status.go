package cmd

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gagarinchain/accountability/accountability"
)

var statusCmd = &cobra.Command{
	Use:   "status [instance]",
	Short: "Print a session's state, or every active instance id if no argument is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		defer app.Store.Close()

		if len(args) == 0 {
			for _, id := range app.Registry.ActiveInstances() {
				cmd.Println(uint64(id))
			}
			return nil
		}

		instance, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return errors.Wrap(err, "parsing instance id")
		}
		id := accountability.InstanceID(instance)

		snap, err := app.Registry.State(id)
		if err != nil {
			return err
		}

		cmd.Printf("instance %d: phase %s\n", uint64(id), snap.Phase)
		cmd.Printf("  earlier: block %d round %d\n", snap.BlockEarlier, snap.RoundEarlier)
		cmd.Printf("  later:   block %d round %d\n", snap.BlockLater, snap.RoundLater)
		for _, q := range snap.Queries {
			cmd.Printf("  query round %d: %s, %d/%d responded\n", q.Round, q.Kind, len(q.Responded), len(q.Addressees))
		}
		for _, e := range snap.Equivocations {
			cmd.Printf("  equivocation: voter %s round %d\n", e.Voter, e.Round)
		}
		if snap.Verdict != nil {
			cmd.Printf("  verdict: %v\n", snap.Verdict.Reason)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
