package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"quranrag/internal/tui"
)

const defaultAPI = "http://localhost:8000"

func chatCmd() *cobra.Command {
	var api string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat UI against a running API",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := tui.NewClient(api, 5*time.Minute)
			_, err := tea.NewProgram(tui.New(client), tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&api, "api", defaultAPI, "base URL of the quranrag API")
	return cmd
}

func askCmd() *cobra.Command {
	var (
		api      string
		passages bool
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			a, err := tui.NewClient(api, 5*time.Minute).Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Answer: %s\n", a.Answer)
			if passages {
				fmt.Fprintln(out, "\nDocument Similarity Search")
				for _, p := range a.Context {
					fmt.Fprintln(out, p)
					fmt.Fprintln(out, "--------------------------------")
				}
			}
			fmt.Fprintf(out, "(%.2fs)\n", a.ResponseTime)
			return nil
		},
	}
	cmd.Flags().StringVar(&api, "api", defaultAPI, "base URL of the quranrag API")
	cmd.Flags().BoolVar(&passages, "passages", true, "print the cited passages")
	return cmd
}
