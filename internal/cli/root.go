// SPDX-License-Identifier: EPL-2.0

// Package cli implements the audvox command line tool.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ik5/audvox/audio"
	"github.com/ik5/audvox/backend"
	"github.com/ik5/audvox/backend/malgosink"
	"github.com/ik5/audvox/engine"
	"github.com/ik5/audvox/formats"
)

var errUsage = errors.New("invalid usage")

// sinkOpener starts pulling frames from r on an output device.
type sinkOpener func(kind string, r renderer, cfg sinkConfig, logger *zap.Logger) (io.Closer, error)

type app struct {
	configPath string
	logLevel   string
	logFormat  string
	device     string
	updateRate int

	cfg      engine.Config
	logger   *zap.Logger
	registry *audio.Registry

	listDevices func(*zap.Logger) ([]backend.DeviceDetails, error)
	openSink    sinkOpener
}

func newApp() *app {
	return &app{
		logger:      zap.NewNop(),
		registry:    formats.NewRegistry(),
		listDevices: malgosink.Devices,
		openSink:    openSink,
	}
}

// NewRootCommand returns the audvox command tree.
func NewRootCommand() *cobra.Command {
	return newApp().command()
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "audvox",
		Short:         "Play and render audio through the audvox voice engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "YAML engine configuration file")
	f.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	f.StringVar(&a.logFormat, "log-format", "console", "log format: console or json")
	f.StringVarP(&a.device, "device", "d", "", "output device name substring")
	f.IntVar(&a.updateRate, "update-rate", engine.DefaultUpdateRate, "voice maintenance passes per second")

	root.AddCommand(
		devicesCommand(a),
		playCommand(a),
		renderCommand(a),
	)
	return root
}

// setup builds the logger, then loads the configuration with flags taking
// precedence over the file and environment.
func (a *app) setup(cmd *cobra.Command) error {
	logger, err := newLogger(a.logLevel, a.logFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger = logger

	cfg, err := engine.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("device") {
		cfg.Device = a.device
	}
	if cmd.Flags().Changed("update-rate") {
		cfg.UpdateRate = a.updateRate
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger.Debug("configuration loaded",
		zap.String("path", a.configPath),
		zap.Int("update_rate", cfg.UpdateRate),
		zap.String("device", cfg.Device))
	return nil
}

func newLogger(level, format string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	var enc zapcore.Encoder
	switch format {
	case "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.TimeKey = "timestamp"
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
	default:
		return nil, fmt.Errorf("%w: unknown log format %q", errUsage, format)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.NewAtomicLevelAt(lvl))
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
