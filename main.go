package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/banshee-data/presence.report/internal/config"
	"github.com/banshee-data/presence.report/internal/csi"
	"github.com/banshee-data/presence.report/internal/records"
	"github.com/banshee-data/presence.report/internal/sense"
	"github.com/banshee-data/presence.report/internal/serialmux"
)

var (
	devMode    = flag.Bool("dev", false, "Replay fixtures.txt instead of opening a serial port")
	configPath = flag.String("config", "", "Path to a JSON tuning file")
	serialPort = flag.String("port", "", "Serial device path (overrides config)")
	outputCSV  = flag.String("output", "", "Decision record CSV path (overrides config)")
	quiet      = flag.Bool("quiet", false, "Suppress per-decision output; only state changes are printed")
)

const fixturesFile = "fixtures.txt"

// buildSession assembles a detection session from the tuning file.
func buildSession(cfg *config.Config) (*sense.Session, error) {
	order := csi.ImagReal
	if cfg.GetPairOrder() == config.PairOrderRealImag {
		order = csi.RealImag
	}

	sc := sense.SessionConfig{
		WindowSize:            cfg.GetWindowSize(),
		ThresholdMultiplier:   cfg.GetThresholdMultiplier(),
		CalibrationMinSamples: cfg.GetCalibrationMinSamples(),
		CalibrationDuration:   cfg.GetCalibrationDuration(),
		DebounceTicks:         cfg.GetDebounceTicks(),
		StrictFullWindow:      cfg.GetStrictFullWindow(),
		SpectralFeatures:      cfg.GetSpectralFeatures(),
		Parse: csi.ParseOptions{
			Order:           order,
			SubcarrierCount: cfg.GetSubcarrierCount(),
		},
	}

	if path := cfg.GetModelPath(); path != "" {
		clf, err := sense.LoadCentroidModel(path)
		if err != nil {
			return nil, fmt.Errorf("load activity model: %w", err)
		}
		log.Printf("activity model loaded: %s", clf.Model())
		sc.Classifier = clf
	}

	return sense.NewSession(sc), nil
}

func main() {
	flag.Parse()

	cfg := config.Empty()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if *serialPort != "" {
		cfg.SerialPort = serialPort
	}
	if *outputCSV != "" {
		cfg.OutputCSV = outputCSV
	}

	var m serialmux.SerialMuxInterface
	if *devMode {
		data, err := os.ReadFile(fixturesFile)
		if err != nil {
			log.Fatalf("failed to open fixtures file: %v", err)
		}
		m = serialmux.NewSerialMux(serialmux.NewReplayPort(data))
	} else {
		var err error
		m, err = serialmux.NewRealSerialMux(cfg.GetSerialPort(), &serialmux.PortMode{
			BaudRate: cfg.GetBaudRate(),
			DataBits: 8,
		})
		if err != nil {
			log.Fatalf("failed to open CSI radio: %v", err)
		}
	}
	defer m.Close()

	session, err := buildSession(cfg)
	if err != nil {
		log.Fatalf("failed to build session: %v", err)
	}

	var sink *records.Writer
	if path := cfg.GetOutputCSV(); path != "" {
		sink, err = records.NewWriter(path)
		if err != nil {
			log.Fatalf("failed to open record sink: %v", err)
		}
		defer sink.Close()
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		stop() // port EOF ends the session too
		log.Print("monitor routine terminated")
	}()

	// subscribe to the line stream and drive calibrate-then-detect
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := m.Subscribe()
		defer m.Unsubscribe(id)

		log.Printf("calibrating for %s; keep the environment empty", cfg.GetCalibrationDuration())
		baseline, err := session.Calibrate(ctx, c)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("calibration failed: %v", err)
				stop()
			}
			return
		}
		log.Printf("calibrated: session=%s variance=%.6f threshold=%.6f samples=%d subcarriers=%d",
			session.ID(), baseline.Variance, baseline.Threshold, baseline.SampleCount, len(baseline.MeanAmplitude))

		last := sense.StateEmpty
		err = session.Run(ctx, c, func(r sense.Result) {
			if sink != nil {
				if err := sink.Append(r); err != nil {
					log.Printf("record sink error: %v", err)
				}
			}
			if !*quiet || r.Decision.State != last {
				line := fmt.Sprintf("%s variance=%.4f confidence=%.2f rssi=%d fill=%d",
					r.Decision.State, r.Decision.Variance, r.Decision.Confidence,
					r.Decision.RSSI, r.Decision.WindowFill)
				if r.Activity != "" {
					line += " activity=" + string(r.Activity)
				}
				log.Print(line)
			}
			last = r.Decision.State
		})
		if err != nil && err != context.Canceled {
			log.Printf("session error: %v", err)
		}

		stats := session.Stats()
		log.Printf("session %s done: lines=%d parsed=%d dropped=%d drop_rate=%.3f",
			session.ID(), stats.LinesReceived, stats.FramesParsed, stats.FramesDropped, stats.DropRate())
	}()

	wg.Wait()
	if sink != nil {
		if err := sink.Flush(); err != nil {
			log.Printf("record sink flush: %v", err)
		}
		log.Printf("wrote %d decision records", sink.Rows())
	}
	log.Printf("Graceful shutdown complete")
}
