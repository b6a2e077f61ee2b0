// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/aibor/osvgrade/internal/bootsect"
	"github.com/aibor/osvgrade/internal/build"
	"github.com/aibor/osvgrade/internal/config"
	"github.com/aibor/osvgrade/internal/grader"
	"github.com/aibor/osvgrade/internal/labs"
	"github.com/aibor/osvgrade/internal/score"
	"github.com/aibor/osvgrade/internal/submission"
)

// IO provides input and output details for the command.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func newCommand(cfg IO) *cli.Command {
	return &cli.Command{
		Name:      "osvgrade",
		Usage:     "grade kernel lab assignments by running their tests in QEMU",
		Reader:    cfg.Stdin,
		Writer:    cfg.Stdout,
		ErrWriter: cfg.Stderr,
		Flags:     globalFlags(),
		OnUsageError: func(_ context.Context, _ *cli.Command, err error, _ bool) error {
			return &UsageError{msg: "usage", err: err}
		},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "build the kernel and run the tests of a lab",
				ArgsUsage: "<lab-number>",
				Flags:     runFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					setupLogging(cfg.Stderr, cmd.Bool(flagDebug))
					return runLab(ctx, cmd, cfg)
				},
			},
			{
				Name:      "sign",
				Usage:     "pad a boot block to a sector and append the boot signature",
				ArgsUsage: "<boot-binary>",
				Action: func(_ context.Context, cmd *cli.Command) error {
					setupLogging(cfg.Stderr, cmd.Bool(flagDebug))

					if cmd.Args().Len() != 1 {
						return &UsageError{msg: "exactly one boot binary required"}
					}

					return bootsect.Sign(cmd.Args().First())
				},
			},
			{
				Name:  "labs",
				Usage: "list the configured labs",
				Action: func(_ context.Context, cmd *cli.Command) error {
					setupLogging(cfg.Stderr, cmd.Bool(flagDebug))
					return listLabs(cmd, cfg.Stdout)
				},
			},
		},
	}
}

func parseLabArg(cmd *cli.Command) (int, error) {
	if cmd.Args().Len() != 1 {
		return 0, &UsageError{err: errLabArgument, msg: "run"}
	}

	id, err := strconv.Atoi(cmd.Args().First())
	if err != nil {
		return 0, &UsageError{err: err, msg: "lab number"}
	}

	return id, nil
}

//nolint:cyclop,funlen
func runLab(ctx context.Context, cmd *cli.Command, stdio IO) error {
	id, err := parseLabArg(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	autograder := cmd.Bool(flagAutograder)

	// Any failure before tests ran still produces a report in autograder
	// mode.
	fail := func(err error) error {
		if autograder {
			writeReport(score.Failure(id, err.Error()), cfg.Report.Path)
		}

		return err
	}

	table, err := cfg.Table()
	if err != nil {
		return fail(err)
	}

	lab, err := table.Lab(id)
	if errors.Is(err, labs.ErrUnknownLab) {
		fmt.Fprintf(stdio.Stdout, "lab%d tests not available\n", id)

		lab = &labs.Lab{ID: id}
	} else if err != nil {
		return fail(err)
	} else if len(lab.Redo) > 0 {
		err := table.CheckRedo(id)
		if err != nil {
			return fail(err)
		}
	}

	if autograder {
		err := submission.Validate(os.DirFS(cfg.SourceRoot), cfg.Submission.Dirs)
		if err != nil {
			return fail(err)
		}
	}

	var buildOutput string

	if !cfg.Build.Skip {
		buildOutput, err = cfg.Builder().Run(ctx)
		if err != nil {
			if autograder {
				writeReport(score.BuildFailure(id, lab.MaxScore(), buildOutput), cfg.Report.Path)
			}

			return err
		}
	}

	graderCfg, err := cfg.Grader()
	if err != nil {
		return fail(err)
	}

	coordinator := grader.New(graderCfg, stdio.Stdout)

	run, err := coordinator.RunLab(ctx, lab)
	if err != nil {
		return fail(err)
	}

	report, err := score.NewEngine(table, coordinator).Score(ctx, lab, run)
	if err != nil {
		return fail(err)
	}

	fmt.Fprintln(stdio.Stdout, report.Summary())

	if !autograder {
		return nil
	}

	if !cfg.Build.Skip {
		report.AddBuildOutput(buildOutput)
	}

	err = report.Write(cfg.Report.Path)
	if err != nil {
		return err
	}

	if cfg.Report.Archive {
		archiveTranscripts(graderCfg, lab, filepath.Dir(cfg.Report.Path))
	}

	return nil
}

func writeReport(report score.Report, path string) {
	err := report.Write(path)
	if err != nil {
		slog.Error("Failed to write report", slog.Any("error", err))
	}
}

// archiveTranscripts archives the transcripts of the lab and of all labs
// rerun for redo edges. Failures are logged only.
func archiveTranscripts(cfg grader.Config, lab *labs.Lab, dir string) {
	ids := []int{lab.ID}
	for _, redo := range lab.Redo {
		ids = append(ids, redo.Lab)
	}

	for _, id := range ids {
		path, err := archiveTranscript(cfg.TranscriptPath(id), dir)
		if err != nil {
			slog.Warn("Failed to archive transcript",
				slog.Int("lab", id),
				slog.Any("error", err),
			)

			continue
		}

		slog.Debug("Archived transcript", slog.String("path", path))
	}
}

func listLabs(cmd *cli.Command, out io.Writer) error {
	cfg, err := loadConfigFile(cmd)
	if err != nil {
		return err
	}

	table, err := cfg.Table()
	if err != nil {
		return err
	}

	for _, id := range table.IDs() {
		lab, _ := table.Lab(id)

		fmt.Fprintf(out, "lab%d: dir %s, timeout %s, max score %d\n",
			lab.ID, lab.TestDir(), lab.RunTimeout(), lab.MaxScore())

		for _, name := range lab.WeightedTests() {
			weight, _ := lab.Weight(name)
			fmt.Fprintf(out, "  %-24s %3d\n", name, weight)
		}

		for _, redo := range lab.Redo {
			fmt.Fprintf(out, "  %-24s %3d\n", "redo lab"+strconv.Itoa(redo.Lab), redo.Weight)
		}
	}

	return nil
}

func handleRunError(err error, errOutput io.Writer) int {
	if err == nil {
		return exitOK
	}

	exitCode := exitFailure

	var buildErr *build.Error

	switch {
	case errors.Is(err, &UsageError{}):
		exitCode = exitUsage
	case errors.Is(err, submission.ErrMissing):
		exitCode = exitSubmission
	case errors.As(err, &buildErr):
		exitCode = exitBuild

		if buildErr.Output != "" {
			fmt.Fprint(errOutput, buildErr.Output)
		}
	case errors.Is(err, labs.ErrRedoCycle),
		errors.Is(err, labs.ErrUnknownLab),
		errors.Is(err, config.ErrInvalid):
		exitCode = exitConfig
	}

	fmt.Fprintf(errOutput, "Error [osvgrade]: %v\n", err)

	return exitCode
}

// Run is the main entry point for the CLI command.
func Run(ctx context.Context, args []string, cfg IO) int {
	setupLogging(cfg.Stderr, false)

	err := newCommand(cfg).Run(ctx, args)

	return handleRunError(err, cfg.Stderr)
}
