package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"acoustic_modem/package/archive"
	"acoustic_modem/package/settings"
	"acoustic_modem/package/shared"

	"github.com/xthexder/go-jack"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	var configPath, inputPath string
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.StringVar(&inputPath, "in", "", "File to transmit once the node is running")
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

	if err := run(ctx, config, inputPath, logger); err != nil {
		logger.Error(err.Error())
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, config *settings.Settings, inputPath string, logger *slog.Logger) (err error) {
	client, _ := jack.ClientOpen(config.Jack.ClientName, jack.NoStartServer)
	if client == nil {
		return fmt.Errorf("could not connect to jack server")
	}
	defer client.Close()

	sampleRate := int(client.GetSampleRate())
	if sampleRate != config.SampleRate {
		logger.Warn("jack sample rate overrides configuration", slog.Int("jack", sampleRate), slog.Int("configured", config.SampleRate))
		config.SampleRate = sampleRate
		if err = config.Validate(); err != nil {
			return fmt.Errorf("jack server: %w", err)
		}
	}

	symbolChan := make(chan shared.DecodedSymbol, 256)
	io := shared.NewIOHelper(symbolChan)
	arc, err := archive.Open(ctx, config, io, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := arc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	// Print every decoded symbol and archive it. Deferred calls close the
	// session first, then symbolChan, and Consume drains what is left before
	// the archive is closed.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		arc.Consume(ctx, symbolChan, func(sym shared.DecodedSymbol) {
			fmt.Print(shared.FormatSymbol(sym.Symbol), " ")
		})
	}()
	defer func() {
		close(symbolChan)
		wg.Wait()
	}()

	options := []func(s *shared.Session){
		shared.WithLogger(logger),
		shared.WithSymbolHandler(io.WriteSymbol),
	}
	if config.Output.Chart != "" {
		options = append(options, shared.WithPowerMonitor(arc.Monitor()))
	}
	session := shared.NewSession(sampleRate, options...)
	if err = session.Open(); err != nil {
		return err
	}
	defer session.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inPort := client.PortRegister("input", jack.DEFAULT_AUDIO_TYPE, jack.PortIsInput, 0)
	outPort := client.PortRegister("output", jack.DEFAULT_AUDIO_TYPE, jack.PortIsOutput, 0)
	systemInPort := client.GetPortByName(config.Jack.CapturePort)
	systemOutPort := client.GetPortByName(config.Jack.PlaybackPort)

	recorder := arc.Recorder()
	var played, captured []float32
	process := func(nframes uint32) int {
		inBuffer := inPort.GetBuffer(nframes)
		outBuffer := outPort.GetBuffer(nframes)
		if cap(played) < int(nframes) {
			played = make([]float32, nframes)
			captured = make([]float32, nframes)
		}
		played, captured = played[:nframes], captured[:nframes]

		session.ProduceBlock(played)
		for i, sample := range played {
			outBuffer[i] = jack.AudioSample(sample)
		}
		for i, sample := range inBuffer {
			captured[i] = float32(sample)
		}
		session.ConsumeBlock(captured)
		recorder.Record(played, captured)
		return 0
	}

	if code := client.SetProcessCallback(process); code != 0 {
		return fmt.Errorf("failed to set process callback: %d", code)
	}
	if code := client.Activate(); code != 0 {
		return fmt.Errorf("failed to activate client: %d", code)
	}
	client.ConnectPorts(systemInPort, inPort)
	client.ConnectPorts(outPort, systemOutPort)
	logger.Info("node running", slog.String("client", config.Jack.ClientName), slog.Int("sampleRate", sampleRate))

	if inputPath != "" {
		if err = io.ReadFile(inputPath); err != nil {
			return err
		}
	}

	// Feed queued bytes to the session one byte at a time, so that a line
	// typed while a file is playing goes out after it
	go func() {
		ticker := time.NewTicker(time.Duration(session.SymbolSamples()) * time.Second / time.Duration(sampleRate))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if data := io.ReadData(1); len(data) > 0 {
					if err := session.TransmitBytes(data); err != nil {
						logger.Error("transmitting", slog.String("error", err.Error()))
					}
				}
			}
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	fmt.Println("enter text to transmit or enter exit to quit...")
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case line, ok := <-lines:
			if !ok || line == "exit" {
				fmt.Println("Done.")
				return nil
			}
			io.WriteBuffer(shared.EncodeText(line))
		}
	}
}
