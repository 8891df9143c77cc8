package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/journal"
	"main/internal/ops"
	"main/internal/session"
	"main/internal/trade"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if loaded.Token == "" {
		log.Fatalf("DERIV_TOKEN is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if addr := loaded.Pyroscope.ServerAddress; addr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: loaded.Pyroscope.ApplicationName,
			ServerAddress:   addr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	opts := []trade.Option{trade.WithObserver(consoleObserver{})}
	if loaded.PostgresDSN != "" {
		j, err := journal.Open(loaded.PostgresDSN)
		if err != nil {
			log.Fatalf("journal open failed: %v", err)
		}
		defer func() {
			_ = j.Close()
		}()
		go j.Run(ctx)
		opts = append(opts, trade.WithRecorder(j))
	}

	// The session delivers events through closures so the controller can
	// be built after it; callbacks only fire once sess.Run starts.
	var controller *trade.Controller
	sess, err := session.New(session.Config{
		URL:   loaded.Endpoint,
		Token: loaded.Token,
		OnState: func(state session.State) {
			controller.OnSessionState(state)
		},
		OnMessage: func(raw []byte) {
			controller.OnMessage(raw)
		},
	})
	if err != nil {
		log.Fatalf("session setup failed: %v", err)
	}

	controller, err = trade.New(loaded.Trade, sess, opts...)
	if err != nil {
		log.Fatalf("controller setup failed: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(loaded.MetricsAddr, mux); err != nil {
			logs.Errorf("metrics server, err: %+v", err)
		}
	}()

	go controller.Run(ctx)
	go func() {
		_ = sess.Run(ctx)
	}()

	if err := controller.Start(); err != nil {
		log.Fatalf("start refused: %v", err)
	}

	<-sys.Shutdown()
	logs.Info("shutting down")
	controller.Stop()
	sess.Close()
	cancel()
}

// consoleObserver renders the status and log streams for a headless run.
type consoleObserver struct{}

func (consoleObserver) Status(msg string) {
	logs.Infof("status: %s", msg)
}

func (consoleObserver) Log(msg string) {
	fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05"), msg)
}
