package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cordx56/autosave/internal/cliapp"
	"github.com/cordx56/autosave/internal/daemonctl"
	"github.com/cordx56/autosave/internal/daemonstate"
	"github.com/cordx56/autosave/internal/fileutil"
	"github.com/cordx56/autosave/internal/ipc"
)

func main() {
	if daemonctl.IsDaemonChild() {
		os.Exit(runDaemon())
	}
	os.Exit(cliapp.Execute())
}

// runDaemon is the re-exec'd daemon process's entry point: it loads the
// persisted watch list, starts the control socket, and serves until
// killed over the socket or signaled.
func runDaemon() int {
	cacheDir, err := fileutil.CacheDir()
	if err != nil {
		fileutil.LogError("%s", err)
		return 1
	}
	if err := fileutil.EnsureDir(cacheDir); err != nil {
		fileutil.LogError("%s", err)
		return 1
	}

	watchList, err := daemonstate.Load(fileutil.WatchListPath(cacheDir))
	if err != nil {
		fileutil.LogError("loading watch list: %s", err)
		return 1
	}
	defer watchList.Close()

	server, err := ipc.Listen(fileutil.SocketPath(cacheDir), watchList)
	if err != nil {
		fileutil.LogError("listening on control socket: %s", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	pidPath := fileutil.PIDPath(cacheDir)
	if err := daemonctl.RunForeground(ctx, cacheDir, pidPath, server.Serve); err != nil {
		fileutil.LogError("%s", err)
		return 1
	}
	return 0
}
