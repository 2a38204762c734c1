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
	"io"

	"github.com/gsalomao/mqprobe/config"
	"github.com/gsalomao/mqprobe/logger"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flags bound to the configuration keys they override.
var flagKeys = map[string]string{
	"host":                 "broker_host",
	"port":                 "broker_port",
	"timeout":              "connect_timeout",
	"ca-file":              "tls_ca_file",
	"ca-dir":               "tls_ca_dir",
	"cert":                 "tls_client_cert",
	"key":                  "tls_client_key",
	"server-name":          "tls_server_name",
	"tls-version":          "tls_version",
	"ciphers":              "tls_ciphers",
	"insecure-skip-verify": "tls_insecure_skip_verify",
	"mqtt":                 "mqtt_enabled",
	"client-id":            "mqtt_client_id",
	"username":             "mqtt_username",
	"password":             "mqtt_password",
	"keep-alive":           "mqtt_keep_alive",
	"protocol-version":     "mqtt_protocol_version",
	"mqtt-timeout":         "mqtt_timeout",
	"will-topic":           "mqtt_will_topic",
	"will-payload":         "mqtt_will_payload",
	"will-qos":             "mqtt_will_qos",
	"will-retain":          "mqtt_will_retain",
	"log-level":            "log_level",
	"log-format":           "log_format",
	"http-address":         "http_address",
	"metrics-address":      "metrics_address",
}

func addLogFlags(fs *pflag.FlagSet, c config.Config) {
	fs.String("log-level", c.LogLevel,
		"Minimal log severity (trace, debug, info, warn, error)")
	fs.String("log-format", c.LogFormat, "Log format (pretty or json)")
}

// bindFlags binds every known flag of the set into the configuration.
func bindFlags(fs *pflag.FlagSet) error {
	var err error

	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		err = viper.BindPFlag(key, f)
	})

	return err
}

// loadConfig loads the configuration from the file at path, or from the
// default locations when path is empty, and from the environment and the
// bound flags.
func loadConfig(path string) (config.Config, error) {
	var err error
	if path != "" {
		err = config.ReadConfigFileAt(path)
	} else {
		err = config.ReadConfigFile()
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			err = nil
		}
	}
	if err != nil {
		return config.Config{}, err
	}

	return config.LoadConfig()
}

func newLogger(out io.Writer, c config.Config) (logger.Logger, error) {
	f, err := logger.ParseFormat(c.LogFormat)
	if err != nil {
		return logger.Nop(), err
	}

	err = logger.SetSeverityLevel(c.LogLevel)
	if err != nil {
		return logger.Nop(), err
	}

	return logger.New(out, f), nil
}
