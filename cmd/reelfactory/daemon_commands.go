package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"reelfactory/internal/daemonctl"
	"reelfactory/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if socket := ctx.socketPath(); socket != "" {
				cfg.Paths.SocketPath = socket
			}
			return daemonrun.Run(cmd.Context(), cfg)
		},
	}
}

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the background daemon",
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonctl.LaunchOptions{SocketPath: ctx.socketPath(), ConfigPath: ctx.configPath()},
				10*time.Second,
			)
			if err != nil {
				return err
			}
			return render(ctx, cmd, result, func() error {
				stdout := cmd.OutOrStdout()
				if result.Launched {
					fmt.Fprintln(stdout, "Daemon not running, launching...")
				}
				switch result.State {
				case daemonctl.StartStateStarted:
					fmt.Fprintln(stdout, "Daemon started")
				case daemonctl.StartStateAlreadyRunning:
					fmt.Fprintln(stdout, "Daemon already running")
				}
				return nil
			})
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon process",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			return render(ctx, cmd, result, func() error {
				if result.ShutdownAcknowledged {
					fmt.Fprintln(stdout, "Stopping daemon...")
				} else {
					fmt.Fprintln(stdout, "Shutdown request sent")
				}
				if result.ForcedKill && result.PID > 0 {
					fmt.Fprintf(stdout, "Killed daemon process (pid %d)\n", result.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
				return nil
			})
		},
	}

	daemonCmd.AddCommand(startCmd, stopCmd)
	return daemonCmd
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}
