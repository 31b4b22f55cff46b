package cli

import (
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/internal/config"
	"cointrack/pkg/confkit"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	s := cfg.Sync
	lines := []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Ledger store: %s", storeLine(cfg.Store)),
		fmt.Sprintf("Postgres: %s", presence(cfg.Postgres.DSN != "")),
		fmt.Sprintf("Redis: %s", presence(strings.TrimSpace(cfg.Redis.Host) != "")),
		fmt.Sprintf("TTL (short/medium/long): %ds / %ds / %ds", cfg.TTL.Short, cfg.TTL.Medium, cfg.TTL.Long),
		fmt.Sprintf("Sync: provider=%s currency=%s pageSize=%d maxPages=%d", orDefault(s.Provider), s.Currency, s.PageSize, s.MaxPages),
		fmt.Sprintf("Sync timing: pageDelay=%s refresh=%s cacheTTL=%s", s.PageDelay, s.RefreshInterval, s.CacheTTL),
		fmt.Sprintf("Sync retries: max=%d baseDelay=%s onPageError=%s", s.MaxRetries, s.BaseDelay, s.FailurePolicy()),
		fmt.Sprintf("Cache snapshot: %s", pathLine(s.CacheSnapshot)),
		fmt.Sprintf("Journal: %s", pathLine(s.JournalDir)),
		fmt.Sprintf("Market mirror: %s", enabled(s.Mirror)),
		sectionLine("Market config", cfg.Market),
	}

	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func storeLine(s config.StoreConf) string {
	if s.Driver == config.StoreFile {
		return fmt.Sprintf("%s (%s)", s.Driver, s.Dir)
	}
	return s.Driver
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func enabled(ok bool) string {
	if ok {
		return "enabled"
	}
	return "disabled"
}

func orDefault(v string) string {
	if strings.TrimSpace(v) == "" {
		return "<default>"
	}
	return v
}

func pathLine(p string) string {
	if strings.TrimSpace(p) == "" {
		return "disabled"
	}
	return p
}

func sectionLine[T any](name string, section confkit.Section[T]) string {
	switch {
	case strings.TrimSpace(section.File) != "":
		return fmt.Sprintf("%s: %s", name, section.File)
	case section.Value != nil:
		return fmt.Sprintf("%s: inline", name)
	default:
		return fmt.Sprintf("%s: not configured", name)
	}
}
