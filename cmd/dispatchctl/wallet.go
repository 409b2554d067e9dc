// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"code.hybscloud.com/dispatch"
	"code.hybscloud.com/dispatch/wallet"
)

// withHandle opens a handle over the configured wallet, runs fn and
// closes the handle.
func (c *cli) withHandle(node wallet.Node, fn func(h *dispatch.Handle) error) (err error) {
	h, err := c.open(node)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, h.Close())
	}()
	return fn(h)
}

func (c *cli) accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List or create accounts",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List account ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withHandle(nil, func(h *dispatch.Handle) error {
				ids, err := h.ListAccounts(cmd.Context())
				if err != nil {
					return err
				}
				return output(cmd, ids)
			})
		},
	}

	var seed string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withHandle(nil, func(h *dispatch.Handle) error {
				id, err := h.CreateAccount(cmd.Context(), []byte(seed))
				if err != nil {
					return err
				}
				return output(cmd, map[string]string{"account_id": id})
			})
		},
	}
	create.Flags().StringVar(&seed, "seed", "", "account seed, random when empty")

	cmd.AddCommand(list, create)
	return cmd
}

func (c *cli) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account>",
		Short: "Show the vault of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withHandle(nil, func(h *dispatch.Handle) error {
				b, err := h.GetBalance(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return output(cmd, b)
			})
		},
	}
}

func (c *cli) notesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notes [account]",
		Short: "List consumable notes, of every account when none is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var account string
			if len(args) == 1 {
				account = args[0]
			}
			return c.withHandle(nil, func(h *dispatch.Handle) error {
				l, err := h.ListConsumableNotes(cmd.Context(), account)
				if err != nil {
					return err
				}
				return output(cmd, l)
			})
		},
	}
}

func (c *cli) consumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume <account> <note>...",
		Short: "Consume notes into the vault of an account",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withHandle(nil, func(h *dispatch.Handle) error {
				tx, err := h.ConsumeNotes(cmd.Context(), args[0], args[1:])
				if err != nil {
					return err
				}
				return output(cmd, map[string]string{"transaction_id": tx})
			})
		},
	}
}

func (c *cli) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull new notes from the node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withHandle(nil, func(h *dispatch.Handle) error {
				height, err := h.SyncState(cmd.Context())
				if err != nil {
					return err
				}
				return output(cmd, map[string]uint32{"block_num": height})
			})
		},
	}
}

func (c *cli) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the node is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withHandle(nil, func(h *dispatch.Handle) error {
				if err := h.TestConnection(cmd.Context()); err != nil {
					return err
				}
				return output(cmd, map[string]bool{"ok": true})
			})
		},
	}
}

type sweepResult struct {
	Transactions []string         `json:"transactions"`
	Balance      dispatch.Balance `json:"balance"`
}

// faucetCmd mints notes on an in-process node and sweeps them into the
// account with one asynchronous protocol.
func (c *cli) faucetCmd() *cobra.Command {
	var (
		notes    int
		amount   uint64
		faucetID string
		batch    int
	)
	cmd := &cobra.Command{
		Use:   "faucet <account>",
		Short: "Mint notes on the in-process node and consume them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := wallet.ParseAccountID(args[0])
			if err != nil {
				return err
			}
			node, err := wallet.Dial(c.v.GetString(flagEndpoint))
			if err != nil {
				return err
			}
			mem, ok := node.(*wallet.MemNode)
			if !ok {
				return fmt.Errorf("endpoint %q is not an in-process node", c.v.GetString(flagEndpoint))
			}
			for range notes {
				mem.Mint(account, faucetID, amount)
			}

			return c.withHandle(mem, func(h *dispatch.Handle) error {
				type swept struct {
					txs []string
					err error
				}
				done := make(chan swept, 1)
				dispatch.Go(h, dispatch.SweepNotes(account.Hex(), batch), func(txs []string, err error) {
					done <- swept{txs, err}
				})
				var r swept
				select {
				case r = <-done:
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				}
				if r.err != nil {
					return r.err
				}
				b, err := h.GetBalance(cmd.Context(), account.Hex())
				if err != nil {
					return err
				}
				c.log.Info().Str("account", account.Hex()).Int("transactions", len(r.txs)).Msg("swept")
				return output(cmd, sweepResult{Transactions: r.txs, Balance: b})
			})
		},
	}
	f := cmd.Flags()
	f.IntVar(&notes, "notes", 1, "notes to mint")
	f.Uint64Var(&amount, "amount", 100, "amount per note")
	f.StringVar(&faucetID, "faucet-id", "0xfaucet", "issuing faucet")
	f.IntVar(&batch, "batch", 0, "notes per transaction, 0 for all")
	return cmd
}
