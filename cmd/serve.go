package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gagarinchain/accountability/statusrpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the status RPC server",
	Long:  "Starts the net/rpc-over-HTTP status surface from §6: active_instances, state, pending_queries and verdict, read-only, for an external dispatcher to poll.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		defer app.Store.Close()

		go purgeLoop(app)

		service := &statusrpc.StatusService{Registry: app.Registry}
		_, handler, err := statusrpc.NewServer(service, viper.GetStringSlice("rpc.allowedOrigins"), viper.GetStringSlice("rpc.allowedHosts"))
		if err != nil {
			return err
		}

		addr := fmt.Sprintf("%s:%s", viper.GetString("rpc.host"), viper.GetString("rpc.port"))
		fmt.Println("status rpc listening on", addr)
		return http.ListenAndServe(addr, handler)
	},
}

// purgeLoop drops terminated sessions past their retention window from the
// in-memory registry once a minute; their stored records are left in place.
func purgeLoop(app *App) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for now := range ticker.C {
		if n := app.Registry.Purge(now.Unix()); n > 0 {
			log.Infof("purged %d terminated sessions", n)
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("rpc-host", "H", viper.GetString("rpc.host"), "Address the status RPC server binds to")
	serveCmd.Flags().StringP("rpc-port", "P", viper.GetString("rpc.port"), "Port the status RPC server binds to")
	if err := viper.BindPFlag("rpc.host", serveCmd.Flags().Lookup("rpc-host")); err != nil {
		println(err.Error())
	}
	if err := viper.BindPFlag("rpc.port", serveCmd.Flags().Lookup("rpc-port")); err != nil {
		println(err.Error())
	}
}
