package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ogurasousui/staffing-ledger/internal/app"
	"github.com/ogurasousui/staffing-ledger/internal/core/assignment"
	"github.com/ogurasousui/staffing-ledger/internal/platform/config"
	"github.com/ogurasousui/staffing-ledger/internal/platform/logger"
)

// ledgerOps は保守コマンドが使うアサイン台帳の操作です。
type ledgerOps interface {
	RecomputeClientCount(ctx context.Context, clientID string) (int, error)
	RecomputeAllClientCounts(ctx context.Context) (*assignment.RecountSummary, error)
	Stats(ctx context.Context) (*assignment.Stats, error)
}

// errRecountFailed は一部のクライアントの再計算に失敗した場合に返ります。
var errRecountFailed = errors.New("recount finished with failures")

type cli struct {
	configPath string
	ops        ledgerOps
	closeFn    func()
	log        *zap.Logger
}

func newCLI(ops ledgerOps) *cli {
	return &cli{ops: ops, log: zap.NewNop()}
}

// newRootCmd はルートコマンドを構築します。c.ops が nil の場合は設定ファイルから接続します。
func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Maintenance commands for the staffing assignment ledger",
		Long: `Maintenance commands for the staffing assignment ledger.

Available subcommands:
  recount         - Recompute employees_assigned for every client
  recount-client  - Recompute employees_assigned for one client
  stats           - Show assignment statistics`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.connect,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")

	root.AddCommand(c.recountCmd(), c.recountClientCmd(), c.statsCmd())
	return root
}

func (c *cli) connect(cmd *cobra.Command, _ []string) error {
	if c.ops != nil || cmd.Name() == "help" {
		return nil
	}

	cfg, err := config.Load(config.ResolvePath(c.configPath))
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	ledger, err := app.Build(cmd.Context(), cfg, log)
	if err != nil {
		_ = log.Sync()
		return err
	}

	c.log = log
	c.ops = ledger.Assignment
	c.closeFn = func() {
		ledger.Close()
		_ = log.Sync()
	}
	return nil
}

func (c *cli) close() {
	if c.closeFn != nil {
		c.closeFn()
		c.closeFn = nil
	}
}
