package apps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// LaunchSpec is a resolved launch directive
type LaunchSpec struct {
	AppID string
	Argv  []string
	Dir   string
}

// Starter performs the foreground transition. It is the only place the
// adapter causes a side effect.
type Starter interface {
	Start(ctx context.Context, spec LaunchSpec) error
}

// ExecStarter starts the app as a detached child process and reaps it in
// the background. The child is not tied to the call's context: the app must
// keep running after the reply is sent.
type ExecStarter struct {
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewExecStarter creates a process starter
func NewExecStarter(logger *zap.Logger) *ExecStarter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecStarter{logger: logger}
}

// Start launches spec.Argv
func (s *ExecStarter) Start(ctx context.Context, spec LaunchSpec) error {
	if len(spec.Argv) == 0 {
		return errors.New("empty launch command")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = os.Environ()
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", spec.AppID, err)
	}

	pid := cmd.Process.Pid
	s.logger.Info("Launched application",
		zap.String("app_id", spec.AppID),
		zap.Int("pid", pid),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := cmd.Wait(); err != nil {
			s.logger.Debug("Application exited with error",
				zap.String("app_id", spec.AppID),
				zap.Int("pid", pid),
				zap.Error(err),
			)
		}
	}()

	return nil
}

// Wait blocks until every started child has exited. Tests only.
func (s *ExecStarter) Wait() {
	s.wg.Wait()
}
