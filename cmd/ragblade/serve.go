package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/flarexio/ragblade"

	mcpE "github.com/flarexio/ragblade/mcp"
	httpT "github.com/flarexio/ragblade/transport/http"
	natsT "github.com/flarexio/ragblade/transport/nats"
)

func serve(ctx context.Context, cmd *cli.Command) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := setup(cmd, ragblade.InstrumentingMiddleware(reg))
	if err != nil {
		return err
	}
	defer a.Close()

	log := a.log
	endpoints := ragblade.MakeEndpoints(a.svc)

	// Add NATS Transport
	natsURL := cmd.String("nats")
	if natsURL != "" {
		edgeID, err := readEdgeID(cmd, a.path)
		if err != nil {
			return err
		}

		opts := []nats.Option{
			nats.Name("RAGBlade Server - " + edgeID),
		}

		natsCreds := cmd.String("nats-creds")
		if natsCreds == "" {
			natsCreds = filepath.Join(a.path, "user.creds")
		}

		if _, err := os.Stat(natsCreds); err == nil {
			opts = append(opts, nats.UserCredentials(natsCreds))
		}

		nc, err := nats.Connect(natsURL, opts...)
		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "ragblade",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		topic := "edges." + edgeID + ".ragblade"

		root := srv.AddGroup(topic)
		if err := natsT.AddEndpoints(root, endpoints); err != nil {
			return err
		}

		log.Info("nats transport ready", zap.String("topic", topic))
	}

	if cmd.Bool("http") {
		r := gin.Default()
		httpT.AddRouters(r, endpoints)
		httpT.AddStreamableRouters(r, mcpE.MakeEndpoints(a.svc))
		httpT.AddMetricsRouters(r, reg)

		httpAddr := cmd.String("http-addr")
		go func() {
			if err := r.Run(httpAddr); err != nil {
				log.Error(err.Error())
			}
		}()

		log.Info("http transport ready", zap.String("addr", httpAddr))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sign := <-quit:
		log.Info("graceful shutdown", zap.String("signal", sign.String()))
	case <-ctx.Done():
	}

	return nil
}

func readEdgeID(cmd *cli.Command, path string) (string, error) {
	if id := cmd.String("edge-id"); id != "" {
		return id, nil
	}

	idBytes, err := os.ReadFile(filepath.Join(path, "id"))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(idBytes)), nil
}
