package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"imkit/internal/app"
	"imkit/internal/config"
	"imkit/internal/imsdk"
	"imkit/internal/store"
)

type checkStatus int

const (
	checkPass checkStatus = iota
	checkWarn
	checkFail
)

type checkResult struct {
	name   string
	status checkStatus
	detail string
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your imkit setup",
		Long: `Verifies that configuration, the directory store, the seed fixture,
the SDK token and the metrics and websocket ports are usable. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imkit doctor v%s\n\n", version)

			results := runChecks(resolveConfigPath())
			failed := printResults(out, results)
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}

func runChecks(cfgPath string) []checkResult {
	var rs []checkResult
	add := func(name string, st checkStatus, detail string) {
		rs = append(rs, checkResult{name: name, status: st, detail: detail})
	}

	if _, err := os.Stat(cfgPath); err != nil {
		add("Config file", checkWarn, fmt.Sprintf("not found at %s, using defaults", cfgPath))
	} else {
		add("Config file", checkPass, cfgPath)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		add("Config validation", checkFail, err.Error())
		return rs
	}
	add("Config validation", checkPass, "valid")

	if err := checkStore(cfg.Store); err != nil {
		add("Store", checkFail, err.Error())
	} else {
		add("Store", checkPass, cfg.Store.Driver)
	}

	if cfg.Store.Fixture != "" {
		if f, err := store.LoadFixture(cfg.Store.Fixture); err != nil {
			add("Fixture", checkFail, err.Error())
		} else {
			add("Fixture", checkPass, fmt.Sprintf("%d users, %d groups", len(f.Users), len(f.Groups)))
		}
	}

	if cfg.SDK.Token == "" {
		add("SDK token", checkWarn, "not set; run will fail with "+imsdk.ErrInvalidToken.Error())
	} else {
		add("SDK token", checkPass, "configured")
	}

	if cfg.Metrics.Enabled {
		if err := checkAddr(cfg.Metrics.Addr); err != nil {
			add("Metrics address", checkWarn, fmt.Sprintf("%s may be in use: %v", cfg.Metrics.Addr, err))
		} else {
			add("Metrics address", checkPass, cfg.Metrics.Addr+" available")
		}
	}

	if cfg.WebSocket.Enabled {
		if err := checkAddr(cfg.WebSocket.Addr); err != nil {
			add("WebSocket address", checkWarn, fmt.Sprintf("%s may be in use: %v", cfg.WebSocket.Addr, err))
		} else {
			add("WebSocket address", checkPass, cfg.WebSocket.Addr+" available")
		}
	}

	if fn := cfg.Logging.File.Filename; fn != "" {
		if err := os.MkdirAll(filepath.Dir(fn), 0o755); err != nil {
			add("Log file", checkWarn, fmt.Sprintf("cannot create log directory: %v", err))
		} else {
			add("Log file", checkPass, fn)
		}
	}
	return rs
}

func checkStore(cfg config.StoreConfig) error {
	if cfg.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return fmt.Errorf("cannot create database directory: %w", err)
		}
	}
	st, err := app.OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := st.UserInfos(ctx); err != nil {
		return fmt.Errorf("cannot query: %w", err)
	}
	return nil
}

func checkAddr(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ln.Close()
}

func printResults(w io.Writer, rs []checkResult) (failed int) {
	passed, warned := 0, 0
	for _, r := range rs {
		switch r.status {
		case checkPass:
			fmt.Fprintf(w, "  ✓ %-18s %s\n", r.name, r.detail)
			passed++
		case checkWarn:
			fmt.Fprintf(w, "  ! %-18s %s\n", r.name, r.detail)
			warned++
		case checkFail:
			fmt.Fprintf(w, "  ✗ %-18s %s\n", r.name, r.detail)
			failed++
		}
	}
	fmt.Fprintf(w, "\nResults: %d passed, %d warnings, %d failed\n", passed, warned, failed)
	return failed
}
