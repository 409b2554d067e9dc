// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"code.hybscloud.com/dispatch"
	"code.hybscloud.com/dispatch/metrics"
	"code.hybscloud.com/dispatch/wallet"
)

type benchConfig struct {
	accounts    int
	workers     int
	calls       int
	latency     time.Duration
	metricsAddr string
}

type benchReport struct {
	Calls      uint64         `json:"calls"`
	Failed     uint64         `json:"failed"`
	QueueFull  uint64         `json:"queue_full"`
	Elapsed    string         `json:"elapsed"`
	CallsPerS  float64        `json:"calls_per_second"`
	Stats      dispatch.Stats `json:"stats"`
	FinalBlock uint32         `json:"final_block"`
}

// benchCmd drives a mixed blocking and callback load against a throwaway
// wallet on a private in-process node.
func (c *cli) benchCmd() *cobra.Command {
	var bc benchConfig
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Load a handle from many goroutines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, err := os.MkdirTemp("", "dispatchctl-bench-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(keys)
			c.v.Set(flagKeystore, keys)
			c.v.Set(flagStore, "")

			node := wallet.NewMemNode()
			node.SetLatency(bc.latency)
			return c.withHandle(node, func(h *dispatch.Handle) error {
				r, err := runBench(cmd.Context(), c.log, h, node, bc)
				if err != nil {
					return err
				}
				return output(cmd, r)
			})
		},
	}
	f := cmd.Flags()
	f.IntVar(&bc.accounts, "accounts", 4, "accounts to spread calls over")
	f.IntVar(&bc.workers, "workers", 8, "concurrent callers")
	f.IntVar(&bc.calls, "calls", 1000, "calls per caller")
	f.DurationVar(&bc.latency, "node-latency", 0, "simulated node round trip")
	f.StringVar(&bc.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while running")
	return cmd
}

func runBench(ctx context.Context, log zerolog.Logger, h *dispatch.Handle, node *wallet.MemNode, bc benchConfig) (benchReport, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector(h))
	obs := metrics.NewCallObserver(reg)

	if bc.metricsAddr != "" {
		ln, err := net.Listen("tcp", bc.metricsAddr)
		if err != nil {
			return benchReport{}, err
		}
		srv := &http.Server{Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info().Str("endpoint", ln.Addr().String()).Msg("serving metrics")
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer srv.Close()
	}

	accounts := make([]string, max(bc.accounts, 1))
	for i := range accounts {
		id, err := h.CreateAccount(ctx, nil)
		if err != nil {
			return benchReport{}, err
		}
		parsed, err := wallet.ParseAccountID(id)
		if err != nil {
			return benchReport{}, err
		}
		node.Mint(parsed, "0xfaucet", uint64(i+1))
		accounts[i] = id
	}
	if _, err := h.SyncState(ctx); err != nil {
		return benchReport{}, err
	}

	var calls, failed, full atomic.Uint64
	record := func(op dispatch.Op, err error, d time.Duration) {
		calls.Add(1)
		obs.Observe(op, err, d)
		if err != nil {
			failed.Add(1)
			if errors.Is(err, dispatch.ErrQueueFull) {
				full.Add(1)
			}
		}
	}

	began := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := range max(bc.workers, 1) {
		g.Go(func() error {
			done := make(chan error, 1)
			for i := range bc.calls {
				if err := ctx.Err(); err != nil {
					return err
				}
				account := accounts[(w+i)%len(accounts)]
				t := time.Now()
				switch i % 4 {
				case 0:
					_, err := h.GetBalance(ctx, account)
					record(dispatch.OpGetBalance, err, time.Since(t))
				case 1:
					h.GetBalanceAsync(account, func(_ dispatch.Balance, err error) { done <- err })
					record(dispatch.OpGetBalance, <-done, time.Since(t))
				case 2:
					_, err := h.ListConsumableNotes(ctx, account)
					record(dispatch.OpListConsumableNotes, err, time.Since(t))
				default:
					h.SyncStateAsync(func(_ uint32, err error) { done <- err })
					record(dispatch.OpSyncState, <-done, time.Since(t))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return benchReport{}, err
	}
	elapsed := time.Since(began)

	height, err := h.SyncState(context.WithoutCancel(ctx))
	if err != nil {
		return benchReport{}, err
	}
	return benchReport{
		Calls:      calls.Load(),
		Failed:     failed.Load(),
		QueueFull:  full.Load(),
		Elapsed:    elapsed.String(),
		CallsPerS:  float64(calls.Load()) / elapsed.Seconds(),
		Stats:      h.Stats(),
		FinalBlock: height,
	}, nil
}
