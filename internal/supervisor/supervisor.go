// ===============================
// FILE: internal/supervisor/supervisor.go
// ===============================

// Package supervisor is the process-supervision control server: a small
// start/stop/status wrapper around spawning the agent process, with the
// desired state and the last process record persisted as two JSON files.
package supervisor

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ovifx6/Ovizone/internal/config"
)

// ErrAlreadyRunning is returned by Start when the agent is already up.
var ErrAlreadyRunning = errors.New("agent is already running")

// ErrNotRunning is returned by Stop when there is nothing to stop.
var ErrNotRunning = errors.New("agent is not running")

// Supervisor spawns and tracks one agent process.
type Supervisor struct {
	cfg    config.SupervisorConfig
	logger *zap.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	exited  chan struct{}
	state   State
	process ProcessInfo
}

// New builds a supervisor and reloads any persisted state.
func New(cfg config.SupervisorConfig, logger *zap.Logger) (*Supervisor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Supervisor{
		cfg:    cfg,
		logger: logger,
		state:  State{Desired: DesiredStopped},
	}
	if err := loadJSON(cfg.StateFile, &s.state); err != nil {
		return nil, err
	}
	if err := loadJSON(cfg.ProcessFile, &s.process); err != nil {
		return nil, err
	}
	return s, nil
}

// Start spawns the agent process and persists the new state.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return ErrAlreadyRunning
	}
	if len(s.cfg.AgentCommand) == 0 {
		return errors.New("no agent command configured")
	}

	cmd := exec.Command(s.cfg.AgentCommand[0], s.cfg.AgentCommand[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start agent: %w", err)
	}
	s.cmd = cmd
	s.exited = make(chan struct{})

	s.state.Desired = DesiredRunning
	s.state.UpdatedAt = time.Now().UTC()
	s.process = ProcessInfo{
		PID:       cmd.Process.Pid,
		Command:   s.cfg.AgentCommand,
		StartedAt: time.Now().UTC(),
	}
	if err := s.persistLocked(); err != nil {
		s.logger.Error("Failed to persist supervisor state", zap.Error(err))
	}

	s.logger.Info("Agent started",
		zap.Int("pid", cmd.Process.Pid),
		zap.Strings("command", s.cfg.AgentCommand))

	go s.reap(cmd, s.exited)
	return nil
}

// reap waits for the process to exit and clears the running record.
func (s *Supervisor) reap(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()
	close(exited)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != cmd {
		return
	}
	s.cmd = nil

	if s.state.Desired == DesiredRunning {
		s.state.Restarts++
		s.logger.Warn("Agent exited unexpectedly",
			zap.Int("pid", cmd.Process.Pid),
			zap.Int("restarts", s.state.Restarts),
			zap.Error(err))
	} else {
		s.logger.Info("Agent exited", zap.Int("pid", cmd.Process.Pid))
	}
	if perr := s.persistLocked(); perr != nil {
		s.logger.Error("Failed to persist supervisor state", zap.Error(perr))
	}
}

// Stop terminates the agent, escalating from SIGTERM to SIGKILL after the
// configured timeout, and persists the new state.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	cmd := s.cmd
	exited := s.exited
	s.state.Desired = DesiredStopped
	s.state.UpdatedAt = time.Now().UTC()
	if err := s.persistLocked(); err != nil {
		s.logger.Error("Failed to persist supervisor state", zap.Error(err))
	}
	s.mu.Unlock()

	if cmd == nil {
		return ErrNotRunning
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		s.logger.Warn("Failed to signal agent", zap.Error(err))
	}
	select {
	case <-exited:
	case <-time.After(s.cfg.StopTimeout):
		s.logger.Warn("Agent did not exit in time, killing",
			zap.Int("pid", cmd.Process.Pid))
		_ = cmd.Process.Kill()
		<-exited
	}
	return nil
}

// StatusResponse reports the live and persisted supervisor state.
type StatusResponse struct {
	Running bool        `json:"running"`
	State   State       `json:"state"`
	Process ProcessInfo `json:"process"`
}

// Status returns the current supervisor status.
func (s *Supervisor) Status() StatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatusResponse{
		Running: s.cmd != nil,
		State:   s.state,
		Process: s.process,
	}
}

func (s *Supervisor) persistLocked() error {
	if err := saveJSON(s.cfg.StateFile, &s.state); err != nil {
		return err
	}
	return saveJSON(s.cfg.ProcessFile, &s.process)
}
