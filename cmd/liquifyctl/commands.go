package main

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/liquify/liquify-engine/internal/wire"
	"github.com/liquify/liquify-engine/internal/wireclient"
)

func dial() (*wireclient.Client, error) { return wireclient.Dial(serverAddr()) }

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func parseIDs(args []string) ([]uint64, error) {
	ids := make([]uint64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", a, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newAddCmd() *cobra.Command {
	var autoUnstake, autoRefill bool
	var refillThreshold string

	cmd := &cobra.Command{
		Use:   "add <resource> <amount> <discount>",
		Short: "Open a new liquidity order",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseDecimal(args[1])
			if err != nil {
				return err
			}
			discount, err := parseDecimal(args[2])
			if err != nil {
				return err
			}
			threshold, err := parseDecimal(refillThreshold)
			if err != nil {
				return err
			}

			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()

			req := wire.AddLiquidityRequest{
				Resource:        args[0],
				Amount:          amount,
				Discount:        discount,
				AutoUnstake:     autoUnstake,
				AutoRefill:      autoRefill,
				RefillThreshold: threshold,
			}
			resp, err := c.Call(wire.MsgAddLiquidity, req.Encode())
			if err != nil {
				return err
			}
			id, err := wire.DecodeUint64(resp.Body)
			if err != nil {
				return err
			}
			fmt.Printf("opened order %d\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&autoUnstake, "auto-unstake", false, "auto-unstake matched LSU into receipts")
	cmd.Flags().BoolVar(&autoRefill, "auto-refill", false, "enable auto-refill cycling (requires --auto-unstake)")
	cmd.Flags().StringVar(&refillThreshold, "refill-threshold", "0", "minimum claimable XRD before cycling")
	return cmd
}

func newIncreaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "increase <id> <resource> <amount>",
		Short: "Add to an existing order, re-queuing it at the current epoch",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return err
			}
			amount, err := parseDecimal(args[2])
			if err != nil {
				return err
			}
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()

			req := wire.IncreaseLiquidityRequest{ID: id, Resource: args[1], Amount: amount}
			_, err = c.Call(wire.MsgIncreaseLiquidity, req.Encode())
			if err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func newUpdateAutomationCmd() *cobra.Command {
	var autoRefill bool
	var refillThreshold string

	cmd := &cobra.Command{
		Use:   "update-automation <id>",
		Short: "Toggle auto-refill and its claimable threshold on an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return err
			}
			threshold, err := parseDecimal(refillThreshold)
			if err != nil {
				return err
			}
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()

			req := wire.UpdateAutomationRequest{ID: id, AutoRefill: autoRefill, RefillThreshold: threshold}
			_, err = c.Call(wire.MsgUpdateAutomation, req.Encode())
			if err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
	cmd.Flags().BoolVar(&autoRefill, "auto-refill", false, "enable auto-refill")
	cmd.Flags().StringVar(&refillThreshold, "refill-threshold", "0", "minimum claimable XRD before cycling")
	return cmd
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Close out every listed order's available balance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()

			req := wire.IDListRequest{IDs: ids}
			resp, err := c.Call(wire.MsgRemoveLiquidity, req.Encode())
			if err != nil {
				return err
			}
			total, err := wire.DecodeAmount(resp.Body)
			if err != nil {
				return err
			}
			fmt.Printf("removed %s\n", total)
			return nil
		},
	}
}

func newCycleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cycle <id>",
		Short: "Claim matured unstake fills and re-queue the order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return err
			}
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()

			req := wire.IDRequest{ID: id}
			resp, err := c.Call(wire.MsgCycleLiquidity, req.Encode())
			if err != nil {
				return err
			}
			remainder, err := wire.DecodeAmount(resp.Body)
			if err != nil {
				return err
			}
			fmt.Printf("re-queued with %s\n", remainder)
			return nil
		},
	}
}

func newUnstakeCmd() *cobra.Command {
	var maxIterations uint8

	cmd := &cobra.Command{
		Use:   "unstake <resource> <amount>",
		Short: "Match LSU against the standing buy-book, ascending by priority",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseDecimal(args[1])
			if err != nil {
				return err
			}
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()

			req := wire.UnstakeRequest{Resource: args[0], Amount: amount, MaxIterations: maxIterations}
			resp, err := c.Call(wire.MsgUnstake, req.Encode())
			if err != nil {
				return err
			}
			result, err := wire.DecodeMatchResultResponse(resp.Body)
			if err != nil {
				return err
			}
			fmt.Printf("paid %s, %s LSU unmatched\n", result.BasePaid, result.LSURemain)
			return nil
		},
	}
	cmd.Flags().Uint8Var(&maxIterations, "max-iterations", 50, "maximum book entries to visit")
	return cmd
}

func newCollectCmd() *cobra.Command {
	var maxFills uint64

	cmd := &cobra.Command{
		Use:   "collect <id>...",
		Short: "Drain uncollected fills across the listed orders out of the vault bank",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()

			req := wire.IDListRequest{IDs: ids, MaxFills: maxFills}
			resp, err := c.Call(wire.MsgCollectFills, req.Encode())
			if err != nil {
				return err
			}
			fills, err := wire.DecodeFills(resp.Body)
			if err != nil {
				return err
			}
			fmt.Printf("collected %d fills\n", len(fills))
			for _, f := range fills {
				fmt.Printf("  kind=%d resource=%s amount=%s receipt_id=%d\n", f.Kind, f.Resource, f.Amount, f.ReceiptID)
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&maxFills, "max-fills", 100, "maximum fills to drain in this call")
	return cmd
}

func newBurnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "burn <id>...",
		Short: "Report which listed orders are fully drained and eligible to burn",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()

			req := wire.IDListRequest{IDs: ids}
			resp, err := c.Call(wire.MsgBurnClosedReceipts, req.Encode())
			if err != nil {
				return err
			}
			closed, err := wire.DecodeIDList(resp.Body)
			if err != nil {
				return err
			}
			fmt.Printf("closed: %v\n", closed)
			return nil
		},
	}
}

func newGetClaimableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-claimable <id>",
		Short: "Report claimable XRD across an order's matured unstake fills",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return err
			}
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Call(wire.MsgGetClaimableXRD, wire.IDRequest{ID: id}.Encode())
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

func newGetLiquidityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-liquidity <id>",
		Short: "Print an order's current body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return err
			}
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Call(wire.MsgGetLiquidityData, wire.IDRequest{ID: id}.Encode())
			if err != nil {
				return err
			}
			data, err := wire.DecodeLiquidityDataResponse(resp.Body)
			if err != nil {
				return err
			}
			fmt.Printf("available=%s filled=%s fills_to_collect=%d last_added_epoch=%d\n",
				data.Available, data.Filled, data.FillsToCollect, data.LastAddedEpoch)
			return nil
		},
	}
}

func newGetDepthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-depth <discount>",
		Short: "Print the total available liquidity at a discount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			discount, err := parseDecimal(args[0])
			if err != nil {
				return err
			}
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Call(wire.MsgGetBookDepth, wire.EncodeAmount(discount))
			if err != nil {
				return err
			}
			depth, err := wire.DecodeAmount(resp.Body)
			if err != nil {
				return err
			}
			fmt.Println(depth)
			return nil
		},
	}
}
