package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/station-sim/sim/network"
)

// defaultsCmd prints the built-in health-centre network as YAML, a starting
// point for --config files.
var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the default network configuration as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		if err := writeDefaults(os.Stdout); err != nil {
			logrus.Fatalf("Failed to write defaults: %v", err)
		}
	},
}

func writeDefaults(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(network.HealthCentre()); err != nil {
		return fmt.Errorf("encoding default network: %w", err)
	}
	return enc.Close()
}
