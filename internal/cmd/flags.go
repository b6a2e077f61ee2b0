// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/aibor/osvgrade/internal/config"
)

const (
	flagConfig     = "config"
	flagDebug      = "debug"
	flagAutograder = "autograder"
	flagQemuBin    = "qemu-bin"
	flagImage      = "image"
	flagMemory     = "memory"
	flagGrace      = "grace"
	flagQuitDelay  = "quit-delay"
	flagTimeout    = "timeout"
	flagNoBuild    = "no-build"
	flagNoKVM      = "no-kvm"
	flagResults    = "results"
	flagSourceRoot = "source"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  flagConfig,
			Value: config.DefaultFile,
			Usage: "TOML config `file`, ignored if missing",
		},
		&cli.BoolFlag{
			Name:  flagDebug,
			Usage: "enable debug output",
		},
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  flagAutograder,
			Usage: "validate the submission and write the JSON report",
		},
		&cli.StringFlag{
			Name:  flagSourceRoot,
			Usage: "kernel source `dir`",
		},
		&cli.StringFlag{
			Name:  flagQemuBin,
			Usage: "QEMU `binary` to run",
		},
		&cli.StringSliceFlag{
			Name:  flagImage,
			Usage: "disk `image` to boot, may be given multiple times",
		},
		&cli.StringFlag{
			Name:  flagMemory,
			Usage: "guest memory in `MiB`",
		},
		&cli.DurationFlag{
			Name:  flagGrace,
			Usage: "time to wait after the first console output before sending the test",
		},
		&cli.DurationFlag{
			Name:  flagQuitDelay,
			Usage: "time to wait between sending the test and quit",
		},
		&cli.DurationFlag{
			Name:  flagTimeout,
			Usage: "wall-clock limit per test, overrides the lab timeout",
		},
		&cli.BoolFlag{
			Name:  flagNoBuild,
			Usage: "do not build the kernel before running the tests",
		},
		&cli.BoolFlag{
			Name:  flagNoKVM,
			Usage: "disable KVM acceleration",
		},
		&cli.StringFlag{
			Name:  flagResults,
			Usage: "report `file` written in autograder mode",
		},
	}
}

// loadConfig layers the config file, the dotenv file, the environment and
// the command's flags.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := loadConfigFile(cmd)
	if err != nil {
		return cfg, err
	}

	err = config.LoadDotEnv(config.DefaultEnvFile)
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}

	err = cfg.ApplyEnv(nil)
	if err != nil {
		return cfg, err
	}

	err = applyFlags(cmd, &cfg)
	if err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func loadConfigFile(cmd *cli.Command) (config.Config, error) {
	path := cmd.String(flagConfig)

	return config.Load(os.DirFS(filepath.Dir(path)), filepath.Base(path))
}

func applyFlags(cmd *cli.Command, cfg *config.Config) error {
	if cmd.IsSet(flagSourceRoot) {
		cfg.SourceRoot = cmd.String(flagSourceRoot)
	}

	if cmd.IsSet(flagQemuBin) {
		cfg.Qemu.Executable = cmd.String(flagQemuBin)
	}

	if cmd.IsSet(flagImage) {
		cfg.Qemu.Images = cmd.StringSlice(flagImage)
	}

	if cmd.IsSet(flagMemory) {
		memory := config.LimitedUintValue{Value: &cfg.Qemu.Memory, Min: 1}

		err := memory.Set(cmd.String(flagMemory))
		if err != nil {
			return &UsageError{msg: "--" + flagMemory, err: err}
		}
	}

	if cmd.IsSet(flagGrace) {
		cfg.SetGrace(cmd.Duration(flagGrace))
	}

	if cmd.IsSet(flagQuitDelay) {
		cfg.Run.QuitDelay.Duration = cmd.Duration(flagQuitDelay)
	}

	if cmd.IsSet(flagTimeout) {
		cfg.SetTimeout(cmd.Duration(flagTimeout))
	}

	if cmd.Bool(flagNoBuild) {
		cfg.Build.Skip = true
	}

	if cmd.Bool(flagNoKVM) {
		cfg.Qemu.NoKVM = true
	}

	if cmd.IsSet(flagResults) {
		cfg.Report.Path = cmd.String(flagResults)
	}

	return nil
}
