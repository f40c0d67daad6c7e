package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/liquify/liquify-engine/internal/wire"
	"github.com/liquify/liquify-engine/internal/wireclient"
)

// authenticatedDial opens a connection and presents the configured admin
// token before returning, so every admin subcommand gets a ready-to-use,
// already-authenticated client.
func authenticatedDial() (*wireclient.Client, error) {
	c, err := dial()
	if err != nil {
		return nil, err
	}
	if err := c.Authenticate(adminToken()); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Owner-badge administrative operations",
	}
	cmd.AddCommand(
		newAdminSetStatusCmd(),
		newAdminSetDecimalParamCmd("set-platform-fee", wire.ParamPlatformFee, "Set the taker-side platform fee fraction"),
		newAdminSetDecimalParamCmd("set-cycle-fee", wire.ParamCycleFee, "Set the flat fee charged per cycle_liquidity call"),
		newAdminSetDecimalParamCmd("set-min-liquidity", wire.ParamMinLiquidity, "Set the minimum add/increase deposit"),
		newAdminSetDecimalParamCmd("set-min-refill-threshold", wire.ParamMinRefillThreshold, "Set the minimum auto_refill threshold"),
		newAdminSetDecimalParamCmd("set-small-order-threshold", wire.ParamSmallOrderThreshold, "Set the small-order skip threshold"),
		newAdminSetReceiptImageURLCmd(),
		newAdminCollectFeesCmd(),
	)
	return cmd
}

func newAdminSetStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <true|false>",
		Short: "Open or close the component to new liquidity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := strconv.ParseBool(args[0])
			if err != nil {
				return err
			}
			c, err := authenticatedDial()
			if err != nil {
				return err
			}
			defer c.Close()

			_, err = c.Call(wire.MsgSetComponentStatus, wire.SetComponentStatusRequest{Status: status}.Encode())
			if err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func newAdminSetDecimalParamCmd(use string, param wire.ParamKind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <amount>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseDecimal(args[0])
			if err != nil {
				return err
			}
			c, err := authenticatedDial()
			if err != nil {
				return err
			}
			defer c.Close()

			req := wire.SetDecimalParamRequest{Param: param, Value: value}
			_, err = c.Call(wire.MsgSetDecimalParam, req.Encode())
			if err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func newAdminSetReceiptImageURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-receipt-image-url <url>",
		Short: "Set the cosmetic image stamped on newly minted receipts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := authenticatedDial()
			if err != nil {
				return err
			}
			defer c.Close()

			req := wire.SetStringParamRequest{Param: wire.ParamReceiptImageURL, Value: args[0]}
			_, err = c.Call(wire.MsgSetStringParam, req.Encode())
			if err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func newAdminCollectFeesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect-fees",
		Short: "Drain the platform fee vault to the caller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := authenticatedDial()
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Call(wire.MsgCollectPlatformFees, nil)
			if err != nil {
				return err
			}
			amt, err := wire.DecodeAmount(resp.Body)
			if err != nil {
				return err
			}
			fmt.Println(amt)
			return nil
		},
	}
}
