// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package main

import (
	"context"
	"flag"
	"fmt"

	"cointrack/internal/cli"
	"cointrack/internal/config"
	"cointrack/internal/handler"
	"cointrack/internal/svc"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest"
)

var configFile = flag.String("f", "etc/cointrack.yaml", "the config file")

func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)
	cli.LogConfigSummary(cfg)

	server := rest.MustNewServer(cfg.RestConf)
	defer server.Stop()

	ctx := svc.NewServiceContext(*cfg)
	defer func() {
		if err := ctx.Close(); err != nil {
			logx.Errorf("shutdown: %v", err)
		}
	}()
	handler.RegisterHandlers(server, ctx)
	ctx.Engine.Start(context.Background())

	fmt.Printf("Starting server at %s:%d...\n", cfg.Host, cfg.Port)
	server.Start()
}
