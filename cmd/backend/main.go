package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	analysisimpl "github.com/foxseedlab/meetbot/external/analysis"
	audioimpl "github.com/foxseedlab/meetbot/external/audio"
	configloader "github.com/foxseedlab/meetbot/external/config"
	"github.com/foxseedlab/meetbot/external/discord"
	"github.com/foxseedlab/meetbot/external/inbox"
	llmimpl "github.com/foxseedlab/meetbot/external/llm"
	mailerimpl "github.com/foxseedlab/meetbot/external/mailer"
	mcpimpl "github.com/foxseedlab/meetbot/external/mcp"
	meetingimpl "github.com/foxseedlab/meetbot/external/meeting"
	memoryimpl "github.com/foxseedlab/meetbot/external/memory"
	recordingimpl "github.com/foxseedlab/meetbot/external/recording"
	reportimpl "github.com/foxseedlab/meetbot/external/report"
	repositoryimpl "github.com/foxseedlab/meetbot/external/repository"
	transcriberimpl "github.com/foxseedlab/meetbot/external/transcriber"
	webhookimpl "github.com/foxseedlab/meetbot/external/webhook"
	"github.com/foxseedlab/meetbot/internal/config"
	"github.com/foxseedlab/meetbot/internal/httpapi"
	"github.com/foxseedlab/meetbot/internal/session"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

const statusPollInterval = time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "meetbot",
		Short:         "Meeting assistant that records, transcribes and summarizes meetings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newJoinCmd())
	root.AddCommand(newMCPCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := mustLoadConfig()
			initLogger(cfg, os.Stdout)
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			slog.Info("startup: building dependency graph")
			injector := setupDI(cfg)
			defer shutdownDI(injector)
			return runServer(cfg, injector)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

func newJoinCmd() *cobra.Command {
	var meetingURL, email string
	var noEmail bool
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join one meeting, record it and process it",
		RunE: func(_ *cobra.Command, _ []string) error {
			if strings.TrimSpace(meetingURL) == "" {
				return errors.New("--url is required")
			}
			if email == "" && !noEmail {
				return errors.New("--email is required unless --no-email is set")
			}
			cfg := mustLoadConfig()
			initLogger(cfg, os.Stderr)
			injector := setupDI(cfg)
			defer shutdownDI(injector)
			return runJoin(injector, session.Request{MeetingURL: meetingURL, Recipient: email, SendEmail: !noEmail})
		},
	}
	cmd.Flags().StringVar(&meetingURL, "url", "", "meeting URL")
	cmd.Flags().StringVar(&email, "email", "", "recipient of the meeting report")
	cmd.Flags().BoolVar(&noEmail, "no-email", false, "do not email the report")
	return cmd
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve meeting history and memory tools over MCP stdio",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := mustLoadConfig()
			// stdout carries the protocol.
			initLogger(cfg, os.Stderr)
			injector := setupDI(cfg)
			defer shutdownDI(injector)
			srv, err := do.Invoke[*mcpimpl.Server](injector)
			if err != nil {
				return fmt.Errorf("resolve mcp server: %w", err)
			}
			return srv.ServeStdio()
		},
	}
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config, w io.Writer) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	meetingimpl.RegisterDI(injector)
	recordingimpl.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	llmimpl.RegisterDI(injector)
	analysisimpl.RegisterDI(injector)
	memoryimpl.RegisterDI(injector)
	reportimpl.RegisterDI(injector)
	mailerimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	session.RegisterDI(injector)
	httpapi.RegisterDI(injector)
	inbox.RegisterDI(injector)
	mcpimpl.RegisterDI(injector)

	return injector
}

// shutdownDI stops services in reverse dependency order: sessions first,
// then the stores they write to.
func shutdownDI(injector do.Injector) {
	report := injector.Shutdown()
	slog.Info("dependency graph shut down", "report", report)
}

func runServer(cfg *config.Config, injector do.Injector) error {
	srv, err := do.Invoke[*httpapi.Server](injector)
	if err != nil {
		return fmt.Errorf("resolve http api: %w", err)
	}
	manager := do.MustInvoke[*session.Manager](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inboxDone := make(chan struct{})
	if cfg.InboxDir != "" {
		watcher, err := do.Invoke[*inbox.Watcher](injector)
		if err != nil {
			return fmt.Errorf("start inbox watcher: %w", err)
		}
		go func() {
			defer close(inboxDone)
			defer watcher.Close()
			if err := watcher.Run(ctx); err != nil {
				slog.Error("inbox watcher failed", "error", err)
			}
		}()
	} else {
		close(inboxDone)
	}

	err = srv.ListenAndServe(ctx, cfg.HTTPAddr)
	slog.Info("shutting down")
	stop()
	<-inboxDone
	if shutdownErr := manager.Shutdown(); shutdownErr != nil {
		slog.Error("failed to stop sessions cleanly", "error", shutdownErr)
	}
	return err
}

func runJoin(injector do.Injector, req session.Request) error {
	manager, err := do.Invoke[*session.Manager](injector)
	if err != nil {
		return fmt.Errorf("resolve session manager: %w", err)
	}
	snap, err := manager.StartSession(req)
	if err != nil {
		return err
	}
	fmt.Printf("Session %d: %s\n", snap.ID, session.StartMessage(snap))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()
	last := ""
	ctx := context.Background()
	for {
		select {
		case <-sigCh:
			fmt.Println("Stopping session...")
			snap, err = manager.StopSession(ctx, snap.ID)
			if err != nil {
				return err
			}
			snap, err = manager.Wait(ctx, snap.ID)
			if err != nil {
				return err
			}
			printResult(snap)
			return nil
		case <-ticker.C:
			snap, err = manager.GetStatus(ctx, snap.ID)
			if err != nil {
				return err
			}
			if status := snap.Status(); status != last {
				fmt.Printf("Status: %s\n", status)
				last = status
			}
			if snap.State.IsTerminal() {
				printResult(snap)
				if snap.State == session.StateError {
					return fmt.Errorf("session failed: %s", snap.Error)
				}
				return nil
			}
		}
	}
}

func printResult(snap session.Snapshot) {
	fmt.Printf("Final state: %s\n", snap.State)
	if detail := session.EndReasonDetail(snap.EndReason); detail != "" {
		fmt.Println(detail)
	}
	if snap.Outputs.ReportPath != "" {
		fmt.Printf("Report: %s\n", snap.Outputs.ReportPath)
	}
	if snap.RecordID > 0 {
		fmt.Printf("Record id: %d\n", snap.RecordID)
	}
	if snap.Outputs.Summary != nil && snap.Outputs.Summary.Value.ExecutiveSummary != "" {
		fmt.Printf("\nSummary:\n%s\n", snap.Outputs.Summary.Value.ExecutiveSummary)
	}
	if snap.EmailSent {
		fmt.Printf("Report emailed to %s\n", snap.Recipient)
	}
	for _, e := range snap.StepErrors {
		fmt.Printf("Warning: %s step failed: %s\n", e.Step, e.Message)
	}
}
