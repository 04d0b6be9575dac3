package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ukernel/internal/config"
	"ukernel/internal/trace"
)

// traceSetting returns the flag value when it was set explicitly or the
// config leaves it empty, otherwise the config value.
func traceSetting(cmd *cobra.Command, flag, fromConfig string) (string, error) {
	flags := cmd.Root().PersistentFlags()
	value, err := flags.GetString(flag)
	if err != nil {
		return "", fmt.Errorf("failed to get %s flag: %w", flag, err)
	}
	if flags.Changed(flag) || fromConfig == "" {
		return value, nil
	}
	return fromConfig, nil
}

// setupTracing inspects trace-related flags and the [trace] section and
// attaches a tracer to the command context. The returned cleanup flushes
// and closes it.
func setupTracing(cmd *cobra.Command, cfg *config.Config) (trace.Tracer, func(), error) {
	if cfg == nil {
		cfg = &config.Config{}
	}

	traceOutput, err := traceSetting(cmd, "trace", cfg.Trace.Output)
	if err != nil {
		return nil, nil, err
	}
	levelStr, err := traceSetting(cmd, "trace-level", cfg.Trace.Level)
	if err != nil {
		return nil, nil, err
	}
	modeStr, err := traceSetting(cmd, "trace-mode", cfg.Trace.Mode)
	if err != nil {
		return nil, nil, err
	}
	formatStr, err := traceSetting(cmd, "trace-format", cfg.Trace.Format)
	if err != nil {
		return nil, nil, err
	}
	ringSize, err := cmd.Root().PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// an output without a level means "trace everything there"
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelModule
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return trace.Nop, func() {}, nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	// error level only ever shows up through a ring dump
	if level == trace.LevelError && mode == trace.ModeStream && !cmd.Root().PersistentFlags().Changed("trace-mode") && cfg.Trace.Mode == "" {
		mode = trace.ModeRing
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid trace format: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	cleanup := func() {
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}
