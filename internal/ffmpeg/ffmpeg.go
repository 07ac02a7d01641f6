package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Executor runs ffmpeg and ffprobe as child processes
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
}

// Options selects the binaries and thread count used by an Executor.
// Empty binary names fall back to "ffmpeg" and "ffprobe" on PATH.
type Options struct {
	FFmpegBinary  string
	FFprobeBinary string
	Threads       int
}

// New creates a new ffmpeg executor
func New(logger zerolog.Logger, opts Options) (*Executor, error) {
	ffmpegBin := opts.FFmpegBinary
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	ffprobeBin := opts.FFprobeBinary
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}

	ffmpegPath, err := exec.LookPath(ffmpegBin)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath(ffprobeBin)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     opts.Threads,
	}, nil
}

// Run executes ffmpeg with the given arguments.
// Stdout is copied to opts.Stdout when set, otherwise it is scanned line by line.
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	args := e.buildArgs(opts)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var (
		wg       sync.WaitGroup
		lastLine string
		copyErr  error
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		lastLine = e.streamOutput(stderr, opts.LogHandler)
	}()

	go func() {
		defer wg.Done()
		if opts.Stdout != nil {
			_, copyErr = io.Copy(opts.Stdout, stdout)
			return
		}
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if opts.LogHandler != nil {
				opts.LogHandler(scanner.Text())
			}
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ctx.Err()
		}
		if lastLine != "" {
			return fmt.Errorf("ffmpeg execution failed: %w: %s", err, lastLine)
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}
	if copyErr != nil {
		return fmt.Errorf("failed to read ffmpeg output: %w", copyErr)
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

func (e *Executor) buildArgs(opts RunOptions) []string {
	// Global options must precede the inputs
	loglevel := "error"
	if opts.LogHandler != nil {
		loglevel = "info"
	}
	args := []string{"-y", "-hide_banner", "-nostdin", "-loglevel", loglevel}

	if e.threads > 0 {
		args = append(args, "-threads", fmt.Sprintf("%d", e.threads))
	}
	return append(args, opts.Args...)
}

// streamOutput hands ffmpeg stderr to logHandler and returns the last non-empty line
func (e *Executor) streamOutput(r io.Reader, logHandler func(string)) string {
	scanner := bufio.NewScanner(r)
	var last string

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) != "" {
			last = line
		}
		if logHandler != nil {
			logHandler(line)
		}
	}
	return last
}

// traceOutput returns a LogHandler that forwards ffmpeg output to the
// trace log, or nil when trace logging is off
func (e *Executor) traceOutput() func(string) {
	if e.logger.GetLevel() > zerolog.TraceLevel || zerolog.GlobalLevel() > zerolog.TraceLevel {
		return nil
	}
	return func(line string) {
		e.logger.Trace().Str("line", line).Msg("ffmpeg output")
	}
}
