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

// Package cli provides the command line interface of MQProbe.
package cli

import (
	"fmt"
	"io"

	"github.com/gsalomao/mqprobe/internal/build"
	"github.com/spf13/cobra"
)

// CLI represents the command line interface.
type CLI struct {
	rootCmd *cobra.Command
}

// New creates an instance of the command line interface.
func New(out io.Writer, args []string) CLI {
	description := "MQProbe establishes verified TLS connections to MQTT " +
		"brokers and reports why a connection could not be established."

	cli := CLI{
		rootCmd: &cobra.Command{
			Use:           "mqprobe",
			Version:       build.GetInfo().ShortVersion(),
			Short:         "MQProbe is a TLS connection probe for MQTT brokers",
			Long:          description,
			SilenceUsage:  true,
			SilenceErrors: true,
		},
	}

	cli.rootCmd.CompletionOptions.DisableDefaultCmd = true
	cli.rootCmd.SetVersionTemplate("{{printf .Version}}")
	cli.rootCmd.SetArgs(args)
	cli.rootCmd.SetOut(out)
	cli.registerSubCommands()

	return cli
}

// Run executes the command line interface. Errors without a dedicated exit
// code are printed, as the other ones are already part of the probe report.
func (c *CLI) Run() error {
	err := c.rootCmd.Execute()
	if err != nil && ExitCode(err) == exitFailure {
		_, _ = fmt.Fprintln(c.rootCmd.ErrOrStderr(), "Error: "+err.Error())
	}
	return err
}

func (c *CLI) registerSubCommands() {
	c.rootCmd.AddCommand(newCommandConnect())
	c.rootCmd.AddCommand(newCommandServe())
	c.rootCmd.AddCommand(newCommandVersion())
}
