package cmd

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gagarinchain/accountability/accountability"
)

// errByzantineTimeout is returned by tick when driving the clock forward
// terminated at least one session with a VerdictByzantineTimeout verdict,
// so Execute reports exit code 3 rather than success.
var errByzantineTimeout = errors.New("cmd: one or more sessions timed out with Byzantine addressees")

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Advance every active session's deadline clock to now",
	Long:  "Drives tick(now) across the whole registry (§6): any session whose outstanding query deadline has passed is finalized with a Byzantine-timeout verdict against its non-responders.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		defer app.Store.Close()

		now := time.Now().Unix()
		before := make(map[accountability.InstanceID]bool)
		for _, id := range app.Registry.ActiveInstances() {
			before[id] = true
		}

		app.Registry.Tick(now)

		timedOut := false
		for id := range before {
			v, err := app.Registry.Verdict(id)
			if err != nil {
				return err
			}
			if v == nil {
				continue
			}
			session, err := app.Registry.Session(id)
			if err != nil {
				return err
			}
			if err := app.Store.Save(session); err != nil {
				return err
			}
			if v.Reason == accountability.VerdictByzantineTimeout {
				cmd.Printf("session %d timed out: byzantine addressees %v\n", uint64(id), v.Byzantine)
				timedOut = true
			}
		}

		if timedOut {
			return errByzantineTimeout
		}
		cmd.Println("tick complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tickCmd)
}
