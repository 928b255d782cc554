// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ik5/audvox/backend"
	"github.com/ik5/audvox/backend/softmix"
	"github.com/ik5/audvox/engine"
	"github.com/ik5/audvox/formats/wav"
)

const renderBlock = 10 * time.Millisecond

type renderOptions struct {
	voiceOptions
	rate     int
	channels int
	bits     int
	duration time.Duration
}

func renderCommand(a *app) *cobra.Command {
	var o renderOptions

	cmd := &cobra.Command{
		Use:   "render <input> <output.wav>",
		Short: "Mix a file through the engine into a WAV file",
		Long: `Render plays the input on an offline software mixer and writes what
would have reached the speakers. The engine is ticked once per 10ms block
instead of running its own maintenance goroutine.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := a.render(args[0], args[1], o)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d frames to %s\n", frames, args[1])
			return err
		},
	}

	addVoiceFlags(cmd, &o.voiceOptions)
	f := cmd.Flags()
	f.IntVar(&o.rate, "rate", 48000, "output sample rate")
	f.IntVar(&o.channels, "channels", 2, "output channels")
	f.IntVar(&o.bits, "bits", 16, "output bit depth")
	f.DurationVar(&o.duration, "duration", 0, "stop after this long, required with --loop")
	return cmd
}

// render returns the number of frames written.
func (a *app) render(in, out string, o renderOptions) (int, error) {
	if o.rate <= 0 || o.channels <= 0 {
		return 0, fmt.Errorf("%w: %d channels at %d Hz", errUsage, o.channels, o.rate)
	}
	if o.loop && o.duration <= 0 {
		return 0, fmt.Errorf("%w: --loop needs --duration", errUsage)
	}

	mixer := softmix.New(softmix.WithDevices(backend.DeviceDetails{
		ID:         "render",
		Name:       "Offline Renderer",
		Role:       backend.RoleDefault,
		Channels:   uint16(o.channels),
		SampleRate: uint32(o.rate),
	}))

	cfg := a.cfg
	cfg.UpdateRate = 0
	cfg.Device = ""
	dev := engine.Create(mixer, engine.WithConfig(cfg), engine.WithLogger(a.logger))
	defer dev.Close()

	if !dev.Available() {
		return 0, fmt.Errorf("offline mixer: %w", dev.Err())
	}

	pb, err := a.start(dev, in, o.voiceOptions)
	if err != nil {
		return 0, err
	}
	defer pb.stop()

	limit := -1
	if o.duration > 0 {
		limit = int(o.duration.Seconds() * float64(o.rate))
	}
	block := make([]float32, max(1, int(renderBlock.Seconds()*float64(o.rate)))*o.channels)

	var samples []float32
	for limit < 0 || len(samples)/o.channels < limit {
		dev.Tick()
		if pb.state() == engine.Stopped {
			break
		}
		mixer.Render(block)
		samples = append(samples, block...)
	}
	if limit >= 0 {
		samples = samples[:min(len(samples), limit*o.channels)]
	}

	if err := writeWav(out, o, samples); err != nil {
		return 0, err
	}

	frames := len(samples) / o.channels
	a.logger.Info("rendered",
		zap.String("output", out),
		zap.Int("frames", frames),
		zap.Duration("length", time.Duration(frames)*time.Second/time.Duration(o.rate)))
	return frames, nil
}

func writeWav(path string, o renderOptions, samples []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := wav.Write(f, o.rate, o.channels, o.bits, samples); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
