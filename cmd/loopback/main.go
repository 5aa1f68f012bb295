package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"acoustic_modem/package/archive"
	"acoustic_modem/package/settings"
	"acoustic_modem/package/shared"
	"acoustic_modem/package/track"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	var configPath, text, inputPath, replayPath string
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.StringVar(&text, "text", "Hello, world!", "Text to send through the loop")
	flag.StringVar(&inputPath, "in", "", "File to send instead of -text")
	flag.StringVar(&replayPath, "replay", "", "Decode a recorded track (.wav or .csv) instead of running the loop")
	flag.Parse()

	config := settings.Default()
	if configPath != "" {
		var err error
		if config, err = settings.Load(configPath); err != nil {
			logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
			os.Exit(1)
		}
	}
	level, _ := config.Level()
	logLevel.Set(level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	if replayPath != "" {
		err = replay(ctx, config, replayPath, logger)
	} else {
		data := shared.EncodeText(text)
		if inputPath != "" {
			if data, err = os.ReadFile(inputPath); err != nil {
				logger.Error(err.Error())
				os.Exit(1)
			}
		}
		err = loop(ctx, config, data, logger)
	}
	if err != nil {
		logger.Error(err.Error())
		cancel()
		os.Exit(1)
	}
}

// newSession wires a receiving session to the archive. Symbols are archived
// in the decode path since nothing here runs in real time.
func newSession(ctx context.Context, config *settings.Settings, io *shared.IOHelper, arc *archive.Archive, logger *slog.Logger) *shared.Session {
	archiveCtx := context.WithoutCancel(ctx)
	options := []func(s *shared.Session){
		shared.WithLogger(logger),
		shared.WithSymbolHandler(func(sym shared.DecodedSymbol) {
			io.WriteSymbol(sym)
			if err := arc.Symbol(archiveCtx, sym); err != nil {
				logger.Error("archiving symbol", slog.String("error", err.Error()))
			}
		}),
	}
	if config.Output.Chart != "" {
		options = append(options, shared.WithPowerMonitor(arc.Monitor()))
	}
	return shared.NewSession(config.SampleRate, options...)
}

func loop(ctx context.Context, config *settings.Settings, data []byte, logger *slog.Logger) (err error) {
	io := shared.NewIOHelper(nil)
	arc, err := archive.Open(ctx, config, io, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := arc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	session := newSession(ctx, config, io, arc, logger)
	if err = session.Open(); err != nil {
		return err
	}
	defer session.Close()

	if err = session.TransmitBytes(data); err != nil {
		return err
	}

	options := []func(l *shared.Loopback){shared.WithTap(arc.Recorder().Record)}
	if config.Loopback.NoiseAmplitude > 0 {
		options = append(options, shared.WithWhiteNoise(config.Loopback.NoiseAmplitude, config.Loopback.NoiseSeed))
	}
	loopback := shared.NewLoopback(session, session, config.Loopback.BlockSize, options...)

	// one extra slot lets the last burst close
	samples := (len(data) + 1) * session.SymbolSamples()
	logger.Info("running loopback", slog.Int("bytes", len(data)), slog.Int("samples", samples), slog.Float64("noise", config.Loopback.NoiseAmplitude))
	if err = loopback.Run(ctx, samples); err != nil {
		return err
	}

	report(data, io)
	return nil
}

func replay(ctx context.Context, config *settings.Settings, path string, logger *slog.Logger) (err error) {
	samples, rate, err := track.Load(path)
	if err != nil {
		return err
	}
	if rate != 0 && rate != config.SampleRate {
		logger.Warn("track sample rate overrides configuration", slog.Int("track", rate), slog.Int("configured", config.SampleRate))
		config.SampleRate = rate
		if err = config.Validate(); err != nil {
			return fmt.Errorf("track %s: %w", path, err)
		}
	}

	io := shared.NewIOHelper(nil)
	arc, err := archive.Open(ctx, config, io, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := arc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	session := newSession(ctx, config, io, arc, logger)
	if err = session.Open(); err != nil {
		return err
	}
	defer session.Close()

	logger.Info("replaying track", slog.String("path", path), slog.Int("samples", len(samples)))
	if err = shared.Replay(ctx, session, samples, config.Loopback.BlockSize); err != nil {
		return err
	}

	fmt.Println(io.Render())
	fmt.Println(shared.DecodeText(io.Received()))
	return nil
}

func report(sent []byte, io *shared.IOHelper) {
	fmt.Println(io.Render())
	fmt.Println(shared.DecodeText(io.Received()))
	comparison := shared.CompareBytes(sent, io.Received())
	fmt.Println(comparison)
	if comparison.Match() {
		fmt.Println("Done.")
	}
}
