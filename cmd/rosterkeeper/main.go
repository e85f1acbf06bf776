package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wurt83ow/rosterkeeper/pkg/access"
	"github.com/wurt83ow/rosterkeeper/pkg/bdkeeper"
	"github.com/wurt83ow/rosterkeeper/pkg/client"
	"github.com/wurt83ow/rosterkeeper/pkg/config"
	"github.com/wurt83ow/rosterkeeper/pkg/fastkeeper"
	"github.com/wurt83ow/rosterkeeper/pkg/logger"
	"github.com/wurt83ow/rosterkeeper/pkg/rksync"
	"github.com/wurt83ow/rosterkeeper/pkg/services"
	"github.com/wurt83ow/rosterkeeper/pkg/syncinfo"
)

func main() {
	option := config.NewConfig(os.Args[1:])
	log := logger.NewLogger(option.LogPath)

	keeper, err := bdkeeper.Open(option.DatabasePath)
	if err != nil {
		// Degraded mode: fast store and remote only, nothing survives a restart.
		log.Printf("durable storage unavailable, running degraded: %v", err)
		keeper = nil
	}

	state, err := syncinfo.NewSyncManager(option.DatabasePath + ".syncinfo")
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot initialize sync state:", err)
		os.Exit(1)
	}
	if lastSync, err := state.LoadSyncInfoFromFile(); err == nil {
		state.UpdateSyncInfo(syncinfo.SyncInfo{LastSync: lastSync})
	}

	fast := fastkeeper.New(option.CacheCapacity, log)

	var remote services.RemoteStore
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if option.SyncWithServer {
		auth := access.NewAccess(option.Secret)
		remote = rksync.NewClient(option.ServerURL, auth.Token(), option.RequestTimeout)
		watcher := rksync.NewWatcher(option.ServerURL, log)
		go watcher.Run(ctx, state.SetOnline)
	}

	service := services.NewServices(fast, keeper, remote, state, log, option.SyncWithServer)
	go service.Run(ctx, option.SyncInterval)

	rootCmd := newRootCmd(ctx, service)
	rootCmd.SetArgs(option.Args())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if keeper != nil {
		keeper.Close()
	}
}

func newRootCmd(ctx context.Context, service *services.Service) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rosterkeeper",
		Short: "Offline-first basketball roster manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(ctx, service)
		},
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "shell",
		Short: "Interactive roster shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(ctx, service)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Push pending changes to the server now",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := service.SyncPendingChanges(ctx); err != nil {
				return err
			}
			fmt.Println("all changes synced")
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "export [file]",
		Short: "Export all collections as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := os.Stdout
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return service.Export(ctx, out)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "import [file]",
		Short: "Import a JSON export through the normal write path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := os.Stdin
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			n, err := service.Import(ctx, in)
			if err != nil {
				return err
			}
			fmt.Printf("imported %d record(s)\n", n)
			return nil
		},
	})

	return rootCmd
}

func runShell(ctx context.Context, service *services.Service) error {
	rk := client.NewClient(ctx, service)
	defer rk.Close()
	rk.Start()
	return nil
}
