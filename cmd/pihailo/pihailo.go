package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/cyclopcam/logs"
	"github.com/pihailo/pihailo/pkg/hailores"
	"github.com/pihailo/pihailo/pkg/setup"
	"github.com/pihailo/pihailo/server"
)

func main() {
	// Purely for documentation of the cmd-line args
	nominalDefaultConfig := "$HOME/pihailo/config.json"

	parser := argparse.NewParser("pihailo", "Hailo YOLO detection and recording service for Raspberry Pi cameras")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Configuration file", Default: nominalDefaultConfig})
	doctor := parser.Flag("", "doctor", &argparse.Options{Help: "Check for required tools and GStreamer elements, print a report, and exit", Default: false})
	envDir := parser.String("", "env-dir", &argparse.Options{Help: "Directory where the .env search for Hailo resources starts (overrides the config)", Default: ""})
	noDiscover := parser.Flag("", "nodiscover", &argparse.Options{Help: "Skip Hailo resource discovery (detection disabled, plain recording only)", Default: false})
	port := parser.Int("p", "port", &argparse.Options{Help: "HTTP port (overrides the config)", Default: 0})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if *doctor {
		report := setup.RunChecks(logger)
		fmt.Print(report.String())
		if !report.OK() {
			os.Exit(1)
		}
		return
	}

	if *configFile == nominalDefaultConfig {
		home, _ := os.UserHomeDir()
		if home == "" {
			home = "/var/lib"
		}
		*configFile = filepath.Join(home, "pihailo", "config.json")
	}

	cfg, err := server.LoadConfig(*configFile)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	if *envDir != "" {
		cfg.ResourceStartDir = *envDir
	}
	if *port != 0 {
		cfg.HTTPPort = *port
	}

	var resources *hailores.Resources
	if *noDiscover {
		logger.Infof("Resource discovery skipped (--nodiscover)")
	} else {
		resources, err = hailores.Discover(logger, cfg.ResourceStartDir)
		if err != nil {
			// Not fatal: the server still works for plain recording
			logger.Errorf("%v", err)
		}
	}

	srv, err := server.NewServer(logger, cfg, resources)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	srv.ListenForKillSignals()
	srv.StartCameras()

	// Tell systemd that we're alive
	daemon.SdNotify(false, daemon.SdNotifyReady)

	if err := srv.ListenHTTP(fmt.Sprintf(":%v", cfg.HTTPPort)); err != nil {
		logger.Errorf("ListenHTTP returned: %v", err)
		os.Exit(1)
	}
}
