package daemonctl

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/cordx56/autosave/internal/fileutil"
)

// childMarkerEnv is set on the re-exec'd daemon process so its main
// function knows to run the server loop instead of CLI dispatch. Go has
// no direct fork() equivalent that preserves a running goroutine runtime,
// so daemonization re-execs the same binary with this marker instead.
const childMarkerEnv = "AUTOSAVE_DAEMON_CHILD=1"

// readyPollInterval/readyPollAttempts mirror the original daemon's
// poll-for-socket-file readiness handshake: the launching process waits
// for the socket file to appear rather than synchronizing via a pipe.
var (
	readyPollInterval = 100 * time.Millisecond
	readyPollAttempts = 50
)

// IsDaemonChild reports whether the current process was re-exec'd to run
// the daemon server loop.
func IsDaemonChild() bool {
	return os.Getenv("AUTOSAVE_DAEMON_CHILD") == "1"
}

// Spawn re-execs the current binary as a detached daemon process and
// waits for its control socket to appear, mirroring the upstream
// poll-for-socket-file readiness handshake (no IPC pipe to the child is
// used). Returns once the daemon is ready to accept connections.
func Spawn(cacheDir, sockPath, logPath, pidPath string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}

	if err := fileutil.EnsureDir(cacheDir); err != nil {
		return err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening daemon log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), childMarkerEnv)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	cmd.SysProcAttr = detachedProcAttr()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting daemon process: %w", err)
	}
	// The daemon process is detached (new session); it is safe to let it
	// outlive this process without Wait()ing on it.
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(cmd.Process.Pid)), 0o644); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}

	return waitForSocket(sockPath)
}

func waitForSocket(sockPath string) error {
	for i := 0; i < readyPollAttempts; i++ {
		if _, err := os.Stat(sockPath); err == nil {
			return nil
		}
		time.Sleep(readyPollInterval)
	}
	return fmt.Errorf("daemon did not become ready within %v", readyPollInterval*time.Duration(readyPollAttempts))
}

// RunForeground acquires the single-instance lock, writes the PID file,
// and runs serve until it returns, cleaning up the PID file and lock
// afterward. Used by the re-exec'd daemon process itself.
func RunForeground(ctx context.Context, cacheDir, pidPath string, serve func(context.Context) error) error {
	unlock, err := AcquireDaemonLock(cacheDir)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	defer os.Remove(pidPath)

	return serve(ctx)
}
