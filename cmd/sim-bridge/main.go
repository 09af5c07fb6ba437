package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sim-bridge-go/internal/config"
	"sim-bridge-go/internal/output"
	"sim-bridge-go/internal/pilot"
	"sim-bridge-go/internal/policy"
	"sim-bridge-go/internal/server"
	"sim-bridge-go/internal/simulator"
)

func main() {
	var (
		addr           = flag.String("addr", "0.0.0.0:9090", "Listen address for the simulator transport")
		topSpeed       = flag.Float64("top-speed", 3.0, "Top speed for the throttle governor")
		steeringScale  = flag.Float64("steering-scale", 1.0, "Scale applied to predicted steering")
		policyName     = flag.String("policy", "creep", "Throttle policy: creep|proportional")
		policyGain     = flag.Float64("policy-gain", 1.0, "Gain for the proportional policy")
		modelEndpoint  = flag.String("model-endpoint", "", "ZMQ endpoint of the model server (empty: static pilot)")
		modelAPI       = flag.String("model-api", "", "HTTP base URL of the model server status API")
		modelTimeout   = flag.Duration("model-timeout", 2*time.Second, "Timeout per model request")
		statusInterval = flag.Duration("status-interval", 1*time.Second, "Polling interval for model server status")
		rawLog         = flag.Bool("raw-log", false, "Record raw telemetry payloads to disk")
		rawLogDir      = flag.String("raw-log-dir", "rawlog", "Directory for raw telemetry logs")
		decodeLogEvery = flag.Int("decode-log-every", 100, "Log every Nth dropped frame")
		debug          = flag.Bool("debug", false, "Run the built-in simulator against the bridge")
		debugRate      = flag.Float64("debug-rate", 20.0, "Simulated telemetry rate (frames/sec)")
	)
	flag.Parse()

	cfg := config.BridgeConfig{
		Addr:           *addr,
		TopSpeed:       *topSpeed,
		SteeringScale:  *steeringScale,
		ModelEndpoint:  *modelEndpoint,
		ModelAPIURL:    *modelAPI,
		ModelTimeout:   *modelTimeout,
		StatusInterval: *statusInterval,
		RawLogEnabled:  *rawLog,
		RawLogDir:      *rawLogDir,
		DecodeLogEvery: *decodeLogEvery,
		Debug:          *debug,
		DebugRate:      *debugRate,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var drivePilot pilot.Pilot
	if cfg.ModelEndpoint != "" {
		remote, err := pilot.NewRemote(cfg.ModelEndpoint, cfg.ModelTimeout, nil)
		if err != nil {
			log.Fatalf("failed to connect model backend: %v", err)
		}
		defer remote.Close()
		drivePilot = remote
		log.Printf("model backend at %s", cfg.ModelEndpoint)
	} else {
		drivePilot = pilot.Static{}
		log.Printf("no model endpoint configured; using static pilot")
	}

	var throttlePolicy policy.Policy
	switch *policyName {
	case "creep":
		throttlePolicy = policy.NewCreepPolicy(cfg.TopSpeed)
	case "proportional":
		throttlePolicy = policy.ProportionalPolicy{TargetSpeed: cfg.TopSpeed, Gain: *policyGain}
	default:
		log.Fatalf("unknown policy %q", *policyName)
	}

	var recorder server.Recorder
	if cfg.RawLogEnabled {
		writer, err := output.NewTelemetryLog(cfg.RawLogDir, "telemetry")
		if err != nil {
			log.Fatalf("failed to start raw log: %v", err)
		}
		recorder = writer
		go func() {
			<-ctx.Done()
			if err := writer.Close(); err != nil {
				log.Printf("raw log close failed: %v", err)
			}
		}()
	}

	var statusMu sync.Mutex
	status := map[string]any{
		"model_backend": "unconfigured",
	}
	if cfg.ModelEndpoint != "" {
		statusMu.Lock()
		status["model_backend"] = "unknown"
		statusMu.Unlock()
	}
	if cfg.ModelAPIURL != "" {
		go pilot.PollStatus(ctx, cfg.ModelAPIURL, cfg.StatusInterval, func(state string) {
			statusMu.Lock()
			status["model_backend"] = state
			statusMu.Unlock()
		})
	}
	statusFn := func() map[string]any {
		statusMu.Lock()
		defer statusMu.Unlock()
		copied := make(map[string]any, len(status))
		for k, v := range status {
			copied[k] = v
		}
		return copied
	}

	if cfg.Debug {
		go func() {
			// Give the listener a moment to come up.
			select {
			case <-ctx.Done():
				return
			case <-time.After(300 * time.Millisecond):
			}
			if err := simulator.Run(ctx, wsURL(cfg.Addr), cfg.DebugRate); err != nil {
				log.Printf("simulator stopped: %v", err)
			}
		}()
	}

	log.Printf("bridge listening on %s", cfg.Addr)

	if err := server.Run(ctx, cfg, drivePilot, throttlePolicy, recorder, statusFn); err != nil {
		log.Fatalf("server failed: %v", err)
	}
	log.Println("stopping")
}

func wsURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "ws://" + addr + "/ws"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "ws://" + net.JoinHostPort(host, port) + "/ws"
}
