/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	nocks "github.com/nocksapp/nocks-gateway"
	"github.com/nocksapp/nocks-gateway/config"
	"github.com/nocksapp/nocks-gateway/database"
	"github.com/nocksapp/nocks-gateway/internal/notification"
)

// CLI encapsulates the root Cobra command for the gateway binary.
type CLI struct {
	cmd *cobra.Command
}

// gatewayInstance holds the Gateway instance and its configuration, shared
// between the subcommands.
type gatewayInstance struct {
	gateway *nocks.Gateway
	cnf     *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun sets up the configuration and initializes the Gateway instance
// before running any command.
func preRun(app *gatewayInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("nocks.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newGateway, err := setupGateway(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.gateway = newGateway
		app.cnf = cnf

		return nil
	}
}

// setupGateway creates a new Gateway wired to the configured order store.
func setupGateway(cfg *config.Configuration) (*nocks.Gateway, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newGateway, err := nocks.NewGateway(db)
	if err != nil {
		return nil, fmt.Errorf("error creating gateway: %v", err)
	}
	return newGateway, nil
}

// NewCLI creates the command-line interface for the gateway, with the
// server, workers and migrate subcommands.
func NewCLI() *CLI {
	var configFile string
	g := &gatewayInstance{}

	var rootCmd = &cobra.Command{
		Use:   "nocks",
		Short: "Nocks payment gateway",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./nocks.json", "Configuration file for the gateway")

	rootCmd.PersistentPreRunE = preRun(g)

	rootCmd.AddCommand(serverCommands(g))
	rootCmd.AddCommand(workerCommands(g))
	rootCmd.AddCommand(migrateCommands(g))

	return &CLI{cmd: rootCmd}
}

func (w CLI) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
