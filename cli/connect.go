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
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gsalomao/mqprobe/config"
	"github.com/gsalomao/mqprobe/logger"
	"github.com/gsalomao/mqprobe/mqtt"
	"github.com/gsalomao/mqprobe/probe"
	"github.com/spf13/cobra"
)

func newCommandConnect() *cobra.Command {
	var configFile string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a broker",
		Long: "Establish a TLS connection to the broker, optionally perform " +
			"the MQTT handshake, and report the outcome",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(cmd.Flags()); err != nil {
				return err
			}

			conf, err := loadConfig(configFile)
			if err != nil {
				return err
			}

			log, err := newLogger(cmd.ErrOrStderr(), conf)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return runConnect(ctx, cmd.OutOrStdout(), conf, asJSON, &log)
		},
	}

	def := config.Default()
	fs := cmd.Flags()
	fs.StringVar(&configFile, "config", "", "Path to the configuration file")
	fs.BoolVar(&asJSON, "json", false, "Print the report as JSON")
	fs.String("host", def.BrokerHost, "Broker hostname or IP address")
	fs.Int("port", def.BrokerPort, "Broker TCP port")
	fs.Int("timeout", def.ConnectTimeout,
		"Seconds to wait for the TCP connection and the TLS handshake")
	fs.String("ca-file", def.TLSCAFile, "Trusted CA certificate bundle")
	fs.String("ca-dir", def.TLSCADir, "Directory of trusted CA certificates")
	fs.String("cert", def.TLSClientCert, "Client certificate for mutual TLS")
	fs.String("key", def.TLSClientKey, "Client private key for mutual TLS")
	fs.String("server-name", def.TLSServerName,
		"Name used to verify the broker certificate")
	fs.String("tls-version", def.TLSVersion,
		"Minimum TLS version (tlsv1.2 or tlsv1.3)")
	fs.String("ciphers", def.TLSCiphers,
		"Colon-separated list of allowed cipher suites")
	fs.Bool("insecure-skip-verify", def.TLSInsecureSkipVerify,
		"Do not verify the broker certificate (INSECURE)")
	fs.Bool("mqtt", def.MQTTEnabled,
		"Perform the MQTT handshake after the TLS handshake")
	fs.String("client-id", def.MQTTClientID, "MQTT client identifier")
	fs.String("username", def.MQTTUsername, "MQTT user name")
	fs.String("password", def.MQTTPassword, "MQTT password")
	fs.Int("keep-alive", def.MQTTKeepAlive, "MQTT keep alive, in seconds")
	fs.Int("protocol-version", def.MQTTProtocolVersion,
		"MQTT protocol version (3 or 4)")
	fs.Int("mqtt-timeout", def.MQTTTimeout,
		"Seconds to wait for the CONNACK packet")
	fs.String("will-topic", def.MQTTWillTopic, "Topic of the MQTT Will Message")
	fs.String("will-payload", def.MQTTWillPayload,
		"Payload of the MQTT Will Message")
	fs.Int("will-qos", def.MQTTWillQoS, "QoS level of the MQTT Will Message")
	fs.Bool("will-retain", def.MQTTWillRetain,
		"Ask the broker to retain the MQTT Will Message")
	addLogFlags(fs, def)

	return cmd
}

func runConnect(ctx context.Context, out io.Writer, c config.Config,
	asJSON bool, log *logger.Logger) error {

	mqtt.SetClientLogger(log)

	p := probe.New(probe.WithLogger(log))
	r, err := p.Run(ctx, probeOptions(c))

	var writeErr error
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		writeErr = enc.Encode(r)
	} else {
		writeErr = r.WriteText(out)
	}

	if err != nil {
		return err
	}
	return writeErr
}

func probeOptions(c config.Config) probe.Options {
	return probe.Options{
		Connection:  c.ConnectionConfig(),
		MQTT:        c.MQTTEnabled,
		MQTTOptions: c.MQTTOptions(),
	}
}
