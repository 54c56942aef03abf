package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"packmgr-deploy/internal/app"
	"packmgr-deploy/internal/types"
)

type waitReadyOptions struct {
	Targets     []string
	TargetsFile string
	TimeoutSec  int
}

func newWaitReadyCommand() *cobra.Command {
	opts := waitReadyOptions{}
	cmd := &cobra.Command{
		Use:   "wait-ready",
		Short: "Wait until every target reports no stopping or failed bundles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWaitReady(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.Targets, "target", nil, "Target URL with credentials")
	cmd.Flags().StringVar(&opts.TargetsFile, "targets-file", "", "YAML file with a targets list")
	cmd.Flags().IntVar(&opts.TimeoutSec, "timeout", 30, "HTTP timeout per status query in seconds (0 = default)")
	_ = viper.BindPFlag("targets", cmd.Flags().Lookup("target"))
	_ = viper.BindPFlag("targets_file", cmd.Flags().Lookup("targets-file"))
	_ = viper.BindPFlag("status_timeout_sec", cmd.Flags().Lookup("timeout"))
	return cmd
}

func runWaitReady(ctx context.Context, cmd *cobra.Command, opts waitReadyOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	service := newAppService()
	result, err := service.AwaitReady(ctx, app.WaitReadyRequest{
		Targets:     resolveStrings(cmd, opts.Targets, "targets", "target"),
		TargetsFile: resolveString(cmd, opts.TargetsFile, "targets_file", "targets-file"),
		TimeoutSec:  resolveInt(cmd, opts.TimeoutSec, "status_timeout_sec", "timeout"),
	}, func(r types.DeliveryResult) {
		printDeliveryResult(os.Stdout, r)
	})
	if err != nil {
		return err
	}
	if result.NotReady > 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("targets not ready: %d of %d", result.NotReady, len(result.Results)))
	}
	return nil
}
