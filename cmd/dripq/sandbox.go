package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dripq/dripq/internal/mailer"
)

var sandboxListLimit int

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Sandbox capture management commands",
}

var sandboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List captured messages",
	RunE:  runSandboxList,
}

func init() {
	sandboxListCmd.Flags().IntVar(&sandboxListLimit, "limit", 50, "Maximum number of messages to show")

	sandboxCmd.AddCommand(sandboxListCmd)
	rootCmd.AddCommand(sandboxCmd)
}

func runSandboxList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sandbox, err := mailer.NewSandboxMailer(cfg.SMTP.SandboxPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open sandbox storage: %w", err)
	}
	defer sandbox.Close()

	messages, err := sandbox.List(context.Background(), sandboxListLimit)
	if err != nil {
		return fmt.Errorf("failed to list captured messages: %w", err)
	}

	if len(messages) == 0 {
		fmt.Println("Sandbox is empty")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CAPTURED\tFROM\tTO\tSUBJECT")
	for _, msg := range messages {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			msg.CapturedAt.Format("2006-01-02 15:04:05"),
			msg.From, msg.To, msg.Subject)
	}
	return w.Flush()
}
