package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"authwatchd/internal/audit"
	"authwatchd/internal/config"
	"authwatchd/internal/dashboard"
	"authwatchd/internal/history"
	"authwatchd/internal/metrics"
	"authwatchd/internal/monitor"
	"authwatchd/internal/notify"
	"authwatchd/internal/source"
	"authwatchd/internal/types"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCommand(os.Args[2:])
	case "audit":
		auditCommand(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: authwatchd <command> [flags]")
	fmt.Println("Commands:")
	fmt.Println("  run     Start the log monitor")
	fmt.Println("  audit   Print the alert audit trail")
}

func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "/etc/authwatchd/config.yml", "Path to config file")
	logFile := fs.String("log-file", "", "Override the monitored log file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	if *logFile != "" {
		cfg.Input.LogFile = *logFile
	}

	fmt.Printf("Starting authwatchd...\n")
	fmt.Printf("Monitoring: %s\n", cfg.Input.LogFile)

	mon, err := monitor.New(cfg, source.ExecRunner{})
	if err != nil {
		log.Fatalf("Failed to initialize monitor: %v", err)
	}

	// Alert sinks: audit trail, webhook, history. All optional.
	var auditLogger *audit.Logger
	if cfg.Output.AuditLogPath != "" {
		auditLogger = audit.NewLogger(cfg.Output.AuditLogPath)
	}

	notifier := notify.NewNotifier(cfg.Notification.WebhookURL)

	var histStore *history.Store
	if cfg.Output.HistoryDB != "" {
		histStore, err = history.NewStore(cfg.Output.HistoryDB)
		if err != nil {
			log.Printf("[HISTORY] Failed to open %s: %v", cfg.Output.HistoryDB, err)
		} else {
			defer histStore.Close()
		}
	}

	mon.SetAlertHandler(func(a types.SecurityAlert) {
		notifier.Notify(a)
		if auditLogger != nil {
			if err := auditLogger.LogAlert(a); err != nil {
				log.Printf("[AUDIT] Failed to write alert: %v", err)
			}
		}
		if histStore != nil {
			if err := histStore.Insert(a); err != nil {
				log.Printf("[HISTORY] Failed to insert alert: %v", err)
			}
		}
	})

	if cfg.Metrics.Enabled {
		go func() {
			log.Printf("[METRICS] Starting on %s", cfg.Metrics.Port)
			if err := metrics.StartServer(cfg.Metrics.Port); err != nil {
				log.Printf("[METRICS] Failed to start: %v", err)
			}
		}()
	}

	var dash *dashboard.Server
	if cfg.Dashboard.Enabled {
		dash = dashboard.NewServer(mon, histStore, cfg.Dashboard.Port)
		go func() {
			if err := dash.Start(); err != nil {
				log.Printf("[DASHBOARD] Failed to start: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mon.Run(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			log.Println("[CONFIG] SIGHUP received, reloading configuration...")
			newCfg, err := config.Load(*configPath)
			if err != nil {
				log.Printf("[CONFIG] Reload failed: %v", err)
				continue
			}
			// Detection windows and source paths need a restart; the
			// notification target can be swapped live.
			notifier.UpdateURL(newCfg.Notification.WebhookURL)
			metrics.ConfigReloads.Inc()
			log.Println("[CONFIG] Reload successful")
			continue
		}
		fmt.Println("\nShutting down...")
		break
	}

	cancel()
	<-done
	if dash != nil {
		dash.Shutdown()
	}
	fmt.Println("Shutdown complete.")
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist so the daemon still comes up on an unconfigured host.
func loadConfig(path string) *types.Config {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("[CONFIG] %s not found, using defaults", path)
			return config.Default()
		}
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func auditCommand(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	configPath := fs.String("config", "/etc/authwatchd/config.yml", "Path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	if cfg.Output.AuditLogPath == "" {
		fmt.Println("No audit log configured (output.audit_log_path)")
		return
	}

	content, err := os.ReadFile(cfg.Output.AuditLogPath)
	if err != nil {
		fmt.Printf("Error reading audit log: %v\n", err)
		return
	}
	fmt.Print(string(content))
}
