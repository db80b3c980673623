// Command gestured runs the gesture recognition service: it streams IMU
// samples from a serial port, an MQTT topic, or recorded session files into
// the recognition engine, exposes cycle control and results over HTTP, and
// records attempt outcomes to SQLite.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/banshee-data/motionkit/internal/api"
	"github.com/banshee-data/motionkit/internal/config"
	"github.com/banshee-data/motionkit/internal/db"
	"github.com/banshee-data/motionkit/internal/events"
	"github.com/banshee-data/motionkit/internal/monitoring"
	"github.com/banshee-data/motionkit/internal/motion"
	"github.com/banshee-data/motionkit/internal/motion/knn"
	"github.com/banshee-data/motionkit/internal/sampler"
	"github.com/banshee-data/motionkit/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "HTTP listen address")
	dbPath      = flag.String("db", "gestures.db", "path to the SQLite database")
	configPath  = flag.String("config", "", "path to a tuning config JSON file")
	source      = flag.String("source", "serial", "sample source: serial, mqtt, or replay")
	serialPort  = flag.String("serial-port", "/dev/ttyUSB0", "serial port for -source serial")
	mqttBroker  = flag.String("mqtt-broker", "tcp://localhost:1883", "broker URL for -source mqtt")
	mqttTopic   = flag.String("mqtt-topic", "motion/samples/#", "topic for -source mqtt")
	replayFiles = flag.String("replay", "", "comma-separated session CSV files for -source replay")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("gestured %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}
	monitoring.EnableDebug(cfg.GetDebug())

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()
	if err := database.MigrateUp(); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	session, err := database.CreateSession(*source)
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}

	classifier, err := knn.Load(cfg.GetPrototypesPath(), knn.Options{
		K:              cfg.GetKNNNeighbours(),
		SmoothingAlpha: cfg.GetSmoothingAlpha(),
	})
	if err != nil {
		log.Fatalf("failed to load classifier prototypes: %v", err)
	}
	monitoring.Logf("loaded classifier with labels %v", classifier.Labels())

	mux := events.NewMux()
	engine, err := motion.NewEngine(motion.Config{
		CycleConfig: motion.CycleConfig{
			Classifier: classifier,
			Threshold:  cfg.GetPredictionThreshold(),
			Timeout:    cfg.GetGestureTimeout(),
			OnResolved: func(res motion.Result) {
				monitoring.Logf("cycle resolved: expected=%s predicted=%s outcome=%s confidence=%.3f",
					res.Expected, res.Predicted, res.Outcome, res.Confidence)
				if err := database.RecordAttempt(session.SessionID, res); err != nil {
					monitoring.Logf("failed to record attempt: %v", err)
				}
				mux.Publish(resultEvent(res))
			},
		},
	})
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}

	src, err := buildSource(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Logf("engine stopped: %v", err)
		}
	}()
	go func() {
		if err := src.Run(ctx, engine.Samples()); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Logf("sampler stopped: %v", err)
			stop()
		}
	}()

	server := api.NewServer(engine, database, mux)
	httpServer := &http.Server{Addr: *listen, Handler: server.Routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	monitoring.Logf("gestured %s listening on %s (source=%s, session=%s)",
		version.Version, *listen, *source, session.SessionID)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("HTTP server failed: %v", err)
	}
}

// buildSource selects the sample source from flags and config.
func buildSource(cfg *config.TuningConfig) (sampler.Source, error) {
	switch *source {
	case "serial":
		src := sampler.NewSerialSource(*serialPort, cfg.GetSerialBaud())
		src.RotationUnits = cfg.GetRotationUnits()
		src.AccelerationUnits = cfg.GetAccelerationUnits()
		return src, nil
	case "mqtt":
		src := sampler.NewMQTTSource(*mqttBroker, *mqttTopic)
		src.RotationUnits = cfg.GetRotationUnits()
		src.AccelerationUnits = cfg.GetAccelerationUnits()
		return src, nil
	case "replay":
		if *replayFiles == "" {
			return nil, fmt.Errorf("-source replay requires -replay files")
		}
		return sampler.NewReplaySource(strings.Split(*replayFiles, ",")...), nil
	default:
		return nil, fmt.Errorf("unknown source %q (want serial, mqtt, or replay)", *source)
	}
}

// resultEvent converts a cycle resolution to its event stream form.
func resultEvent(res motion.Result) events.Event {
	e := events.Event{
		Expected:   res.Expected,
		Predicted:  res.Predicted,
		Confidence: res.Confidence,
		At:         time.Now().UTC(),
	}
	switch res.Outcome {
	case motion.OutcomeMatched:
		e.Type = events.TypeMatch
	case motion.OutcomeMismatched:
		e.Type = events.TypeMismatch
	case motion.OutcomeTimedOut:
		e.Type = events.TypeTimeout
	}
	return e
}
