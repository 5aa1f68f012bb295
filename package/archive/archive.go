// Package archive collects everything a run leaves behind: the played and
// captured tracks, the power chart, the decoded symbol log and its pcap
// export, and the received bytes.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"acoustic_modem/package/capture"
	"acoustic_modem/package/chart"
	"acoustic_modem/package/settings"
	"acoustic_modem/package/shared"
	"acoustic_modem/package/storage"
	"acoustic_modem/package/track"
)

type Archive struct {
	output     settings.OutputConfig
	sampleRate int
	logger     *slog.Logger

	recorder *track.Recorder
	monitor  *shared.PowerMonitor
	renderer *chart.Renderer
	io       *shared.IOHelper

	store     *storage.Store
	sessionID int64

	captureFile *os.File
	capture     *capture.Writer
}

// Open prepares every output named in s. Outputs with an empty path are
// skipped; the recorder, monitor and IO helper are always available.
func Open(ctx context.Context, s *settings.Settings, io *shared.IOHelper, logger *slog.Logger) (_ *Archive, err error) {
	a := &Archive{
		output:     s.Output,
		sampleRate: s.SampleRate,
		logger:     logger,
		recorder:   track.NewRecorder(),
		monitor:    shared.NewPowerMonitor(s.Chart.Width),
		io:         io,
	}
	defer func() {
		if err != nil {
			_ = a.closeSinks()
		}
	}()

	if s.Output.Chart != "" {
		options := chart.DefaultOptions()
		options.StripHeight = s.Chart.StripHeight
		if a.renderer, err = chart.NewRenderer(options); err != nil {
			return nil, fmt.Errorf("creating chart renderer: %w", err)
		}
	}

	if s.Output.Database != "" {
		if a.store, err = storage.Open(s.Output.Database); err != nil {
			return nil, err
		}
		if a.sessionID, err = a.store.CreateSession(ctx, s.SampleRate); err != nil {
			return nil, err
		}
		logger.Info("symbol log ready", slog.String("path", s.Output.Database), slog.Int64("session", a.sessionID))
	}

	if s.Output.Capture != "" {
		if a.captureFile, err = os.Create(s.Output.Capture); err != nil {
			return nil, fmt.Errorf("creating capture: %w", err)
		}
		if a.capture, err = capture.NewWriter(a.captureFile, s.SampleRate, time.Now()); err != nil {
			return nil, err
		}
	}

	return a, nil
}

func (a *Archive) Recorder() *track.Recorder { return a.recorder }

func (a *Archive) Monitor() *shared.PowerMonitor { return a.monitor }

func (a *Archive) SessionID() int64 { return a.sessionID }

// Symbol appends one decoded symbol to the log and the capture.
func (a *Archive) Symbol(ctx context.Context, sym shared.DecodedSymbol) error {
	if a.store != nil {
		if err := a.store.InsertSymbol(ctx, a.sessionID, sym); err != nil {
			return err
		}
	}
	if a.capture != nil {
		if err := a.capture.WriteSymbol(sym); err != nil {
			return err
		}
	}
	return nil
}

// Consume archives every symbol received on symbols until the channel is
// closed, calling onSymbol first when it is not nil. Symbols still buffered
// when ctx is cancelled are archived too; ctx only carries values here.
// It returns how many symbols failed to archive.
func (a *Archive) Consume(ctx context.Context, symbols <-chan shared.DecodedSymbol, onSymbol func(shared.DecodedSymbol)) int {
	ctx = context.WithoutCancel(ctx)
	failed := 0
	for sym := range symbols {
		if onSymbol != nil {
			onSymbol(sym)
		}
		if err := a.Symbol(ctx, sym); err != nil {
			a.logger.Error("archiving symbol", slog.String("error", err.Error()))
			failed++
		}
	}
	return failed
}

// Close writes the end-of-run files and releases the sinks. Every output is
// attempted; the errors are joined.
func (a *Archive) Close() error {
	var errs []error

	if err := a.recorder.Save(a.output.PlayedTrack, a.output.CapturedTrack, a.sampleRate); err != nil {
		errs = append(errs, err)
	}
	if a.renderer != nil {
		if err := a.renderer.RenderFile(a.output.Chart, a.monitor.Charts()); err != nil {
			errs = append(errs, fmt.Errorf("rendering chart: %w", err))
		}
	}
	if a.output.Received != "" {
		if err := a.io.WriteDataToFile(a.output.Received); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.closeSinks(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		a.logger.Info("outputs written", slog.Int("symbols", len(a.io.Symbols())))
	}
	return errors.Join(errs...)
}

func (a *Archive) closeSinks() error {
	var errs []error
	if a.captureFile != nil {
		if err := a.captureFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing capture: %w", err))
		}
		a.captureFile = nil
		a.capture = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing symbol log: %w", err))
		}
		a.store = nil
	}
	return errors.Join(errs...)
}
