package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/internal/config"
	"cointrack/internal/svc"
)

// openService loads the config and wires the service context. Library logs
// are silenced unless verbose is set.
func openService(verbose bool) (*svc.ServiceContext, error) {
	if !verbose {
		logx.Disable()
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	return svc.Build(*cfg)
}

// syncOnce runs one full sync and waits for the background pages.
func syncOnce(ctx context.Context, s *svc.ServiceContext) error {
	_, err := s.Engine.RequestRefresh(ctx, false)
	s.Engine.Wait()
	return err
}

func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitFailure
}

func closeService(s *svc.ServiceContext) {
	if err := s.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
}
