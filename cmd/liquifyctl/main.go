// Command liquifyctl is the operator/maker CLI for a liquifyd daemon: a
// cobra command tree over internal/wireclient, replacing the teacher's bare
// flag-parsed client (cmd/client/client.go) with a subcommand per engine
// operation, configured via viper so flags and LIQUIFYCTL_-prefixed env vars
// bind to the same settings. No config file is read.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "liquifyctl",
		Short: "Client for the liquify matching engine daemon",
	}

	root.PersistentFlags().String("server", "127.0.0.1:9101", "liquifyd address (host:port)")
	root.PersistentFlags().String("admin-token", "", "owner-badge token, required for admin subcommands")
	viper.BindPFlag("server", root.PersistentFlags().Lookup("server"))
	viper.BindPFlag("admin-token", root.PersistentFlags().Lookup("admin-token"))
	viper.SetEnvPrefix("liquifyctl")
	viper.AutomaticEnv()

	root.AddCommand(
		newAddCmd(),
		newIncreaseCmd(),
		newUpdateAutomationCmd(),
		newRemoveCmd(),
		newCycleCmd(),
		newUnstakeCmd(),
		newCollectCmd(),
		newBurnCmd(),
		newGetClaimableCmd(),
		newGetLiquidityCmd(),
		newGetDepthCmd(),
		newAdminCmd(),
	)
	return root
}

func serverAddr() string { return viper.GetString("server") }
func adminToken() string { return viper.GetString("admin-token") }
