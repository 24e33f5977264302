// Package launcher supervises the lifecycle of launched sub-applications.
//
// Each tool runs as a child process; the supervisor tracks running ones so
// the gate can terminate a session whose window closed and so shutdown can
// reap everything.
package launcher

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/tartampluch/go-coursebox/internal/apps"
	"github.com/tartampluch/go-coursebox/internal/config"
)

// ErrLaunchFailed wraps process start failures.
var ErrLaunchFailed = errors.New(config.ErrLaunchFailed)

// Supervisor starts and tracks sub-application processes. One process per
// app at a time: launching an already running tool brings nothing new up.
type Supervisor struct {
	// ResourceDir is the root under which tool executables are installed.
	ResourceDir string

	mu      sync.Mutex
	running map[string]*exec.Cmd
	log     *slog.Logger
}

func New(resourceDir string) *Supervisor {
	return &Supervisor{
		ResourceDir: resourceDir,
		running:     make(map[string]*exec.Cmd),
		log:         slog.With(config.LogKeyComponent, config.CompLauncher),
	}
}

// Launch starts the tool described by d unless it is already running. The
// process is detached from ctx on purpose: closing the gate session must go
// through Terminate so the exit is logged as a kill, not a cancellation.
func (s *Supervisor) Launch(d apps.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.running[d.ID]; ok {
		s.log.Debug(config.MsgProcLaunched, config.LogKeyAppID, d.ID, config.LogKeyState, "already_running")
		return nil
	}

	cmd := exec.Command(d.Command(s.ResourceDir))
	cmd.Dir = d.Dir(s.ResourceDir)

	if err := cmd.Start(); err != nil {
		s.log.Error(config.ErrLaunchFailed, config.LogKeyAppID, d.ID, config.LogKeyError, err)
		return errors.Join(ErrLaunchFailed, err)
	}

	s.running[d.ID] = cmd
	s.log.Info(config.MsgProcLaunched, config.LogKeyAppID, d.ID, config.LogKeyPID, cmd.Process.Pid)

	go s.reap(d.ID, cmd)
	return nil
}

// reap waits for the process and removes it from the running set, so a tool
// its user closed normally can be launched again.
func (s *Supervisor) reap(appID string, cmd *exec.Cmd) {
	err := cmd.Wait()

	s.mu.Lock()
	// Only forget the entry if it is still ours; Terminate may have
	// replaced nothing but a relaunch could have.
	if s.running[appID] == cmd {
		delete(s.running, appID)
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Info(config.MsgProcExited, config.LogKeyAppID, appID, config.LogKeyError, err)
		return
	}
	s.log.Info(config.MsgProcExited, config.LogKeyAppID, appID)
}

// Running reports whether the tool currently has a live process.
func (s *Supervisor) Running(appID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[appID]
	return ok
}

// Terminate kills the tool's process if it is running. Used when a session's
// window has closed while the tool was open.
func (s *Supervisor) Terminate(appID string) {
	s.mu.Lock()
	cmd, ok := s.running[appID]
	if ok {
		delete(s.running, appID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	s.log.Warn(config.MsgProcKilled, config.LogKeyAppID, appID, config.LogKeyPID, cmd.Process.Pid)
	_ = cmd.Process.Kill()
}

// Shutdown terminates every running process. Called once when the shell
// exits; processes the user keeps open must not outlive the gate.
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.mu.Lock()
	procs := make(map[string]*exec.Cmd, len(s.running))
	for id, cmd := range s.running {
		procs[id] = cmd
	}
	s.running = make(map[string]*exec.Cmd)
	s.mu.Unlock()

	if len(procs) == 0 {
		return
	}

	s.log.Info(config.MsgProcShutdown, config.LogKeyCount, len(procs))
	for id, cmd := range procs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.log.Warn(config.MsgProcKilled, config.LogKeyAppID, id, config.LogKeyPID, cmd.Process.Pid)
		_ = cmd.Process.Kill()
	}
}
