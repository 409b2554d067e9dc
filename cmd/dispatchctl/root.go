// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"code.hybscloud.com/dispatch"
	"code.hybscloud.com/dispatch/wallet"
)

// envPrefix prefixes environment overrides, e.g. DISPATCH_KEYSTORE.
const envPrefix = "DISPATCH"

const (
	flagConfig   = "config"
	flagKeystore = "keystore"
	flagStore    = "store"
	flagEndpoint = "endpoint"
	flagCapacity = "capacity"
	flagTimeout  = "timeout"
	flagShutdown = "shutdown"
	flagLogLevel = "log-level"
)

type cli struct {
	v   *viper.Viper
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New(), log: zerolog.Nop()}
	root := &cobra.Command{
		Use:   "dispatchctl",
		Short: "Run wallet operations through a dispatch handle",
		Long: `Run wallet operations through a dispatch handle.

Every command opens the wallet behind a single worker, runs its calls
through the bounded request queue and closes the handle on exit.

Settings are read, in order of precedence, from flags, DISPATCH_*
environment variables and the optional --config file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	f := root.PersistentFlags()
	f.String(flagConfig, "", "YAML config file")
	f.String(flagKeystore, filepath.Join(".dispatch", "keys"), "secret key directory")
	f.String(flagStore, filepath.Join(".dispatch", "store"), "wallet database directory, empty for memory")
	f.String(flagEndpoint, wallet.DefaultEndpoint, "node network")
	f.Int(flagCapacity, dispatch.DefaultCapacity, "request queue capacity")
	f.Duration(flagTimeout, dispatch.DefaultCallTimeout, "timeout of each blocking call")
	f.String(flagShutdown, dispatch.Fast.String(), "close behavior: fast or graceful")
	f.String(flagLogLevel, zerolog.LevelInfoValue, "log level")

	root.AddCommand(
		c.accountsCmd(),
		c.balanceCmd(),
		c.notesCmd(),
		c.consumeCmd(),
		c.syncCmd(),
		c.pingCmd(),
		c.faucetCmd(),
		c.benchCmd(),
	)
	return root
}

// setup binds flags, environment and config file into viper and builds
// the logger.
func (c *cli) setup(cmd *cobra.Command) error {
	if err := c.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	if path := c.v.GetString(flagConfig); path != "" {
		c.v.SetConfigFile(path)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	lvl, err := zerolog.ParseLevel(c.v.GetString(flagLogLevel))
	if err != nil {
		return err
	}
	c.log = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().Timestamp().Logger()
	return nil
}

// open starts a handle over the configured wallet. A nil node is dialed
// from the endpoint setting.
func (c *cli) open(node wallet.Node) (*dispatch.Handle, error) {
	var cfg wallet.Config
	if err := c.v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Logger = &c.log

	mode, err := dispatch.ParseShutdownMode(c.v.GetString(flagShutdown))
	if err != nil {
		return nil, fmt.Errorf("--%s %q: %w", flagShutdown, c.v.GetString(flagShutdown), err)
	}
	w, err := wallet.Open(cfg, node)
	if err != nil {
		return nil, err
	}
	h, err := dispatch.New(w,
		dispatch.WithCapacity(c.v.GetInt(flagCapacity)),
		dispatch.WithCallTimeout(c.v.GetDuration(flagTimeout)),
		dispatch.WithShutdown(mode),
		dispatch.WithLogger(c.log),
	)
	if err != nil {
		w.Close()
		return nil, err
	}
	return h, nil
}

// output writes v as indented JSON.
func output(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
