// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ik5/audvox/backend/softmix"
	"github.com/ik5/audvox/engine"
)

type playOptions struct {
	voiceOptions
	sink        string
	metricsAddr string
}

func playCommand(a *app) *cobra.Command {
	var o playOptions

	cmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Play an audio file on an output device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.play(ctx, args[0], o)
		},
	}

	addVoiceFlags(cmd, &o.voiceOptions)
	cmd.Flags().StringVar(&o.sink, "sink", "malgo", "output driver: malgo or oto")
	cmd.Flags().StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while playing")
	return cmd
}

func (a *app) play(ctx context.Context, path string, o playOptions) error {
	var opts []softmix.Option
	hardware := false
	devices, err := a.listDevices(a.logger)
	switch {
	case err != nil:
		a.logger.Warn("device enumeration failed, using the system default output", zap.Error(err))
	case len(devices) > 0:
		opts = append(opts, softmix.WithDevices(devices...))
		hardware = true
	}

	mixer := softmix.New(opts...)
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	dev := engine.Create(mixer,
		engine.WithConfig(a.cfg),
		engine.WithLogger(a.logger),
		engine.WithMetrics(reg))
	defer dev.Close()

	if !dev.Available() {
		return fmt.Errorf("no audio output: %w", dev.Err())
	}

	channels, rate, _ := mixer.MasterFormat()
	sc := sinkConfig{SampleRate: rate, Channels: channels}
	if hardware {
		sc.Device = dev.Details().Name
	}
	sink, err := a.openSink(o.sink, mixer, sc, a.logger)
	if err != nil {
		return err
	}
	defer sink.Close()

	if o.metricsAddr != "" {
		shutdown := serveMetrics(o.metricsAddr, reg, a.logger)
		defer shutdown()
	}

	pb, err := a.start(dev, path, o.voiceOptions)
	if err != nil {
		return err
	}
	defer pb.stop()

	wait(ctx, pb)
	return nil
}

// serveMetrics exposes reg over HTTP until the returned function is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-done
	}
}
