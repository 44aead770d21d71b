// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/wellintent/services/intent/app"
	"github.com/AleutianAI/wellintent/services/intent/config"
	"github.com/AleutianAI/wellintent/services/intent/dispatch"
	"github.com/AleutianAI/wellintent/services/intent/logging"
)

// errDispatchFailed makes the process exit non-zero after a failed envelope
// has already been printed.
var errDispatchFailed = errors.New("dispatch failed")

// rootOptions hold the persistent flag values.
type rootOptions struct {
	jsonOut     bool
	catalogPath string
	logLevel    string
	actor       string
	sessionID   string
	stdin       bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "wellintent",
		Short:        "Classify and dispatch well-log analysis requests",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print JSON even on a terminal")
	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "Intent catalog YAML (default: embedded)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr")

	classifyCmd := &cobra.Command{
		Use:   "classify [text...]",
		Short: "Show how a request is classified",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, opts, args)
		},
	}
	classifyCmd.Flags().BoolVar(&opts.stdin, "stdin", false, "Classify each line of stdin as one request")

	dispatchCmd := &cobra.Command{
		Use:   "dispatch <text...>",
		Short: "Classify a request and run its handler",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDispatch(cmd, opts, strings.Join(args, " "))
		},
	}
	dispatchCmd.Flags().StringVar(&opts.actor, "actor", "", "Actor recorded on audit entries")
	dispatchCmd.Flags().StringVar(&opts.sessionID, "session", "", "Session identifier forwarded to the remote agent")

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "List intents in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCatalog(cmd, opts)
		},
	}

	root.AddCommand(classifyCmd, dispatchCmd, catalogCmd)
	return root
}

// buildRuntime loads configuration from the environment and applies the
// persistent flags on top.
func buildRuntime(ctx context.Context, cmd *cobra.Command, opts *rootOptions) (*app.Runtime, error) {
	cfg, err := config.LoadServiceConfig()
	if err != nil {
		return nil, err
	}
	if opts.catalogPath != "" {
		cfg.CatalogPath = opts.catalogPath
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.LogFormat, logging.ParseLevel(opts.logLevel))
	slog.SetDefault(logger)
	return app.Build(ctx, cfg, logger)
}

func runClassify(cmd *cobra.Command, opts *rootOptions, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var texts []string
	switch {
	case opts.stdin:
		lines, err := readLines(cmd.InOrStdin())
		if err != nil {
			return err
		}
		texts = lines
	case len(args) > 0:
		texts = []string{strings.Join(args, " ")}
	default:
		return errors.New("classify: provide text arguments or --stdin")
	}

	rt, err := buildRuntime(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	results, err := rt.Dispatcher.Classifier().ClassifyBatch(ctx, texts, rt.Config.BatchConcurrency)
	if err != nil {
		return err
	}
	return newRenderer(cmd.OutOrStdout(), opts.jsonOut).classifications(texts, results)
}

func runDispatch(cmd *cobra.Command, opts *rootOptions, text string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := buildRuntime(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	env := rt.Dispatcher.Dispatch(ctx, text, &dispatch.SessionContext{
		SessionID: opts.sessionID,
		Actor:     opts.actor,
	})
	if err := newRenderer(cmd.OutOrStdout(), opts.jsonOut).envelope(env); err != nil {
		return err
	}
	if !env.Success {
		return errDispatchFailed
	}
	return nil
}

func runCatalog(cmd *cobra.Command, opts *rootOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := buildRuntime(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	return newRenderer(cmd.OutOrStdout(), opts.jsonOut).catalog(rt.Dispatcher.Classifier().Catalog())
}

// readLines returns the non-blank lines of r.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	if len(lines) == 0 {
		return nil, errors.New("classify: stdin is empty")
	}
	return lines, nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
