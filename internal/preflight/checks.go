package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"rabc/internal/rabc"
)

// DaemonCheckTimeout bounds the ping/pong exchange in CheckDaemon.
const DaemonCheckTimeout = 3 * time.Second

// maxSocketPath is the usable length of sockaddr_un.sun_path.
const maxSocketPath = len(unix.RawSockaddrUnix{}.Path) - 1

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSocketPath verifies the path fits in a unix socket address and, if
// something exists there, that it is a socket.
func CheckSocketPath(path string) Result {
	const name = "Socket path"
	if len(path) > maxSocketPath {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %d bytes exceeds the %d byte limit)", path, len(path), maxSocketPath)}
	}
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not created yet)", path)}
	}
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.Mode()&os.ModeSocket == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: exists and is not a socket)", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDaemon connects to the daemon, sends one ping and waits for the reply.
func CheckDaemon(ctx context.Context, socketPath string, maxFrameSize int) Result {
	const name = "Daemon"

	checkCtx, cancel := context.WithTimeout(ctx, DaemonCheckTimeout)
	defer cancel()

	conn, err := rabc.Connect(socketPath, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("not reachable (%s)", summarize(err))}
	}
	if maxFrameSize > 0 {
		conn.SetMaxFrameSize(maxFrameSize)
	}

	type reply struct {
		text string
		err  error
	}
	replies := make(chan reply, 1)
	start := time.Now()
	go func() {
		if err := conn.Send(rabc.PingMessage); err != nil {
			replies <- reply{err: err}
			return
		}
		text, err := conn.Recv()
		replies <- reply{text: text, err: err}
	}()

	select {
	case r := <-replies:
		_ = conn.Close()
		if r.err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("exchange failed (%s)", summarize(r.err))}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("replied %q in %s", r.text, time.Since(start).Round(time.Microsecond))}
	case <-checkCtx.Done():
		_ = conn.Close()
		<-replies
		return Result{Name: name, Detail: fmt.Sprintf("no reply within %s", DaemonCheckTimeout)}
	}
}

func summarize(err error) string {
	kind, msg := rabc.ErrorPair(err)
	return kind + ": " + msg
}
