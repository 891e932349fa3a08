package cmd

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gagarinchain/accountability/accountability"
)

var abortCmd = &cobra.Command{
	Use:   "abort [instance]",
	Short: "Abort a session without a verdict",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		defer app.Store.Close()

		instance, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return errors.Wrap(err, "parsing instance id")
		}
		id := accountability.InstanceID(instance)

		if err := app.Registry.Abort(id); err != nil {
			return err
		}

		session, err := app.Registry.Session(id)
		if err != nil {
			return err
		}
		if err := app.Store.Save(session); err != nil {
			return err
		}

		cmd.Printf("aborted session %d\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(abortCmd)
}
