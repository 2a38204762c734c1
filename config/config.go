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

package config

import (
	"os"
	"path/filepath"

	"github.com/gsalomao/mqprobe/bootstrap"
	"github.com/gsalomao/mqprobe/mqtt"
	"github.com/spf13/viper"
)

// Config holds all the application configuration.
type Config struct {
	// Minimal severity level of the logs.
	LogLevel string `mapstructure:"log_level"`

	// Format of the logs (pretty or json).
	LogFormat string `mapstructure:"log_format"`

	// Hostname or IP address of the broker.
	BrokerHost string `mapstructure:"broker_host"`

	// TCP port of the broker.
	BrokerPort int `mapstructure:"broker_port"`

	// The amount of time, in seconds, to wait for the TCP connection and the
	// TLS handshake.
	ConnectTimeout int `mapstructure:"connect_timeout"`

	// Path to the trusted CA certificate bundle.
	TLSCAFile string `mapstructure:"tls_ca_file"`

	// Path to a directory with trusted CA certificates.
	TLSCADir string `mapstructure:"tls_ca_dir"`

	// Path to the client certificate for mutual TLS.
	TLSClientCert string `mapstructure:"tls_client_cert"`

	// Path to the client private key for mutual TLS.
	TLSClientKey string `mapstructure:"tls_client_key"`

	// Name used to verify the broker certificate.
	TLSServerName string `mapstructure:"tls_server_name"`

	// Minimum TLS version (tlsv1.2 or tlsv1.3).
	TLSVersion string `mapstructure:"tls_version"`

	// List of TLS 1.2 cipher suites.
	TLSCiphers string `mapstructure:"tls_ciphers"`

	// Indicate whether the broker certificate is accepted without being
	// verified. Insecure.
	TLSInsecureSkipVerify bool `mapstructure:"tls_insecure_skip_verify"`

	// Indicate whether the MQTT handshake is performed after the TLS one.
	MQTTEnabled bool `mapstructure:"mqtt_enabled"`

	// MQTT client identifier.
	MQTTClientID string `mapstructure:"mqtt_client_id"`

	// Prefix to be added to automatically generated MQTT client IDs.
	MQTTClientIDPrefix string `mapstructure:"mqtt_client_id_prefix"`

	// MQTT user name.
	MQTTUsername string `mapstructure:"mqtt_username"`

	// MQTT password.
	MQTTPassword string `mapstructure:"mqtt_password"`

	// MQTT Keep Alive, in seconds.
	MQTTKeepAlive int `mapstructure:"mqtt_keep_alive"`

	// MQTT protocol version (3 or 4).
	MQTTProtocolVersion int `mapstructure:"mqtt_protocol_version"`

	// Indicate whether the broker discards any previous MQTT session.
	MQTTCleanSession bool `mapstructure:"mqtt_clean_session"`

	// The amount of time, in seconds, to wait for the CONNACK packet.
	MQTTTimeout int `mapstructure:"mqtt_timeout"`

	// Topic of the MQTT Will Message. When empty, no Will Message is sent.
	MQTTWillTopic string `mapstructure:"mqtt_will_topic"`

	// Payload of the MQTT Will Message.
	MQTTWillPayload string `mapstructure:"mqtt_will_payload"`

	// QoS level of the MQTT Will Message.
	MQTTWillQoS int `mapstructure:"mqtt_will_qos"`

	// Indicate whether the broker retains the MQTT Will Message.
	MQTTWillRetain bool `mapstructure:"mqtt_will_retain"`

	// TCP address (<IP>:<port>) that the HTTP API will bind to.
	HTTPAddress string `mapstructure:"http_address"`

	// The maximum duration, in seconds, for reading an HTTP request.
	HTTPReadTimeout int `mapstructure:"http_read_timeout"`

	// The maximum duration, in seconds, before timing out writes of the HTTP
	// response.
	HTTPWriteTimeout int `mapstructure:"http_write_timeout"`

	// The maximum duration, in seconds, to wait for the HTTP server to stop.
	HTTPShutdownTimeout int `mapstructure:"http_shutdown_timeout"`

	// Indicate whether the metrics are exported or not.
	MetricsEnabled bool `mapstructure:"metrics_enabled"`

	// TCP address (<IP>:<port>) where the Prometheus metrics are exported.
	MetricsAddress string `mapstructure:"metrics_address"`

	// The path where the metrics are exported.
	MetricsPath string `mapstructure:"metrics_path"`

	// Indicate whether the profiling metrics are exported or not.
	MetricsProfiling bool `mapstructure:"metrics_profiling"`
}

var keys = []string{
	"log_level",
	"log_format",
	"broker_host",
	"broker_port",
	"connect_timeout",
	"tls_ca_file",
	"tls_ca_dir",
	"tls_client_cert",
	"tls_client_key",
	"tls_server_name",
	"tls_version",
	"tls_ciphers",
	"tls_insecure_skip_verify",
	"mqtt_enabled",
	"mqtt_client_id",
	"mqtt_client_id_prefix",
	"mqtt_username",
	"mqtt_password",
	"mqtt_keep_alive",
	"mqtt_protocol_version",
	"mqtt_clean_session",
	"mqtt_timeout",
	"mqtt_will_topic",
	"mqtt_will_payload",
	"mqtt_will_qos",
	"mqtt_will_retain",
	"http_address",
	"http_read_timeout",
	"http_write_timeout",
	"http_shutdown_timeout",
	"metrics_enabled",
	"metrics_address",
	"metrics_path",
	"metrics_profiling",
}

// Default returns the default configuration.
func Default() Config {
	mo := mqtt.DefaultOptions()

	return Config{
		LogLevel:            "info",
		LogFormat:           "pretty",
		BrokerHost:          "localhost",
		BrokerPort:          8883,
		ConnectTimeout:      5,
		MQTTClientIDPrefix:  mo.ClientIDPrefix,
		MQTTKeepAlive:       mo.KeepAlive,
		MQTTProtocolVersion: mo.ProtocolVersion,
		MQTTCleanSession:    mo.CleanSession,
		MQTTTimeout:         mo.Timeout,
		HTTPAddress:         ":8080",
		HTTPReadTimeout:     5,
		HTTPWriteTimeout:    30,
		HTTPShutdownTimeout: 5,
		MetricsEnabled:      true,
		MetricsAddress:      ":8888",
		MetricsPath:         "/metrics",
	}
}

// ReadConfigFile reads the configuration file.
//
// The configuration file can be stored at one of the following locations:
//   - the directory of the executable (or its parent)
//   - /etc/mqprobe/mqprobe.conf
//   - /etc/mqprobe.conf
func ReadConfigFile() error {
	viper.SetConfigName("mqprobe.conf")
	viper.SetConfigType("toml")

	if exe, err := os.Executable(); err == nil {
		pwd := filepath.Dir(exe)
		viper.AddConfigPath(pwd)

		root := filepath.Dir(pwd + "/../")
		viper.AddConfigPath(root)
	}

	viper.AddConfigPath("/etc/mqprobe")
	viper.AddConfigPath("/etc")

	return viper.ReadInConfig()
}

// ReadConfigFileAt reads the configuration file at the given path.
func ReadConfigFileAt(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("toml")
	return viper.ReadInConfig()
}

// LoadConfig loads the configuration from the conf file, environment variables,
// bound command-line flags, or use the default values.
//
// Note: The ReadConfigFile must be called before in order to load the
// configuration from the conf file.
func LoadConfig() (Config, error) {
	viper.SetEnvPrefix("MQPROBE")
	viper.AutomaticEnv()

	for _, k := range keys {
		_ = viper.BindEnv(k)
	}

	c := Default()
	err := viper.Unmarshal(&c)
	return c, err
}

// ConnectionConfig returns the configuration of the TLS connection.
func (c Config) ConnectionConfig() bootstrap.ConnectionConfig {
	return bootstrap.ConnectionConfig{
		CAFile:                       c.TLSCAFile,
		CADir:                        c.TLSCADir,
		ClientCert:                   c.TLSClientCert,
		ClientKey:                    c.TLSClientKey,
		InsecureSkipPeerVerification: c.TLSInsecureSkipVerify,
		ServerName:                   c.TLSServerName,
		TLSVersion:                   c.TLSVersion,
		Ciphers:                      c.TLSCiphers,
		BrokerHost:                   c.BrokerHost,
		BrokerPort:                   c.BrokerPort,
		ConnectTimeout:               c.ConnectTimeout,
	}
}

// MQTTOptions returns the options of the MQTT handshake.
func (c Config) MQTTOptions() mqtt.Options {
	return mqtt.Options{
		ClientID:        c.MQTTClientID,
		ClientIDPrefix:  c.MQTTClientIDPrefix,
		Username:        c.MQTTUsername,
		Password:        c.MQTTPassword,
		KeepAlive:       c.MQTTKeepAlive,
		ProtocolVersion: c.MQTTProtocolVersion,
		CleanSession:    c.MQTTCleanSession,
		Timeout:         c.MQTTTimeout,
		WillTopic:       c.MQTTWillTopic,
		WillPayload:     c.MQTTWillPayload,
		WillQoS:         c.MQTTWillQoS,
		WillRetain:      c.MQTTWillRetain,
	}
}
