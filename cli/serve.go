// Copyright 2023 The MQProbe Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dimiro1/banner"
	"github.com/gsalomao/mqprobe/api"
	"github.com/gsalomao/mqprobe/config"
	"github.com/gsalomao/mqprobe/logger"
	"github.com/gsalomao/mqprobe/metrics"
	"github.com/gsalomao/mqprobe/mqtt"
	"github.com/gsalomao/mqprobe/probe"
	"github.com/gsalomao/mqprobe/service"
	"github.com/mattn/go-colorable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var bannerTemplate = `{{ .Title "MQProbe" "" 0 }}
{{ .AnsiColor.BrightCyan }}  TLS connection probe for MQTT brokers
{{ .AnsiColor.Default }}
`

func newCommandServe() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the probe server",
		Long: "Start the HTTP API which runs probes on demand and export " +
			"the probe metrics",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			banner.InitString(colorable.NewColorableStdout(), true, true,
				bannerTemplate)

			if err := bindFlags(cmd.Flags()); err != nil {
				return err
			}

			conf, err := loadConfig(configFile)
			if err != nil {
				return err
			}

			log, err := newLogger(os.Stdout, conf)
			if err != nil {
				return err
			}

			svc, err := newService(conf, &log)
			if err != nil {
				return err
			}

			return runService(svc, &log)
		},
	}

	def := config.Default()
	fs := cmd.Flags()
	fs.StringVar(&configFile, "config", "", "Path to the configuration file")
	fs.String("http-address", def.HTTPAddress,
		"TCP address (<IP>:<port>) of the HTTP API")
	fs.String("metrics-address", def.MetricsAddress,
		"TCP address (<IP>:<port>) where the metrics are exported")
	addLogFlags(fs, def)

	return cmd
}

func newService(c config.Config, log *logger.Logger) (*service.Service,
	error) {

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	m, err := probe.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	mqtt.SetClientLogger(log)
	p := probe.New(probe.WithLogger(log), probe.WithMetrics(m))

	httpSrv, err := api.NewHTTPServer(api.NewConfiguration(c), log)
	if err != nil {
		return nil, err
	}
	httpSrv.AddProbeRoutes(p, probeOptions(c))

	svc := service.New(log)
	svc.AddRunner(httpSrv)

	if c.MetricsEnabled {
		var metricsSrv *metrics.Server

		metricsSrv, err = metrics.NewServer(metrics.NewConfiguration(c), reg,
			log)
		if err != nil {
			return nil, err
		}
		svc.AddRunner(metricsSrv)
	}

	return svc, nil
}

func runService(svc *service.Service, log *logger.Logger) error {
	err := svc.Start()
	if err != nil {
		log.Error().Msg("Failed to start service: " + err.Error())
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go waitOSSignals(svc, done)

	err = svc.Wait()
	if err != nil {
		log.Error().Msg("Service stopped with error: " + err.Error())
	}
	return err
}

func waitOSSignals(svc *service.Service, done <-chan struct{}) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		// Generates a new line to split the logs
		fmt.Println("")
		svc.Stop()
	case <-done:
	}
}
