package network

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestMain(m *testing.M) {
	// Quiet by default; SIM_TEST_LOG=debug (or any logrus level) to see the run.
	level := logrus.WarnLevel
	if lvl, err := logrus.ParseLevel(os.Getenv("SIM_TEST_LOG")); err == nil {
		level = lvl
	}
	logrus.SetLevel(level)
	os.Exit(m.Run())
}
