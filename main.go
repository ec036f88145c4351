package main

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"omnichat/internal/app"
	"omnichat/internal/mock"
	"omnichat/rtc"
)

func main() {
	cliApp := &cli.App{
		Name:  "omnichat",
		Usage: "multimodal chat client for a realtime runtime",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "runtime base URL (http://... or ws://...)",
				EnvVars: []string{"OMNICHAT_BACKEND"},
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to YAML config file",
			},
			&cli.BoolFlag{
				Name:  "mock",
				Usage: "run the mock runtime instead of the TUI",
			},
			&cli.IntFlag{
				Name:  "mock-port",
				Value: 8000,
				Usage: "port for the mock runtime",
			},
		},
		Action: run,
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Bool("mock") {
		return mock.NewServer(c.Int("mock-port")).Start()
	}

	cfg, err := rtc.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if backend := c.String("backend"); backend != "" {
		cfg.ServerBaseURL = backend
	}

	logger := rtc.NewLoggerFromEnv()
	rtc.SetLogger(logger)

	var transport rtc.Transport
	if strings.HasPrefix(cfg.ServerBaseURL, "ws://") || strings.HasPrefix(cfg.ServerBaseURL, "wss://") {
		transport = rtc.NewWSTransport(cfg.ServerBaseURL, rtc.WithWSLogger(logger))
	} else {
		transport = rtc.NewHTTPTransport(cfg.ServerBaseURL, rtc.WithHTTPLogger(logger))
	}

	client := rtc.NewClient(cfg, transport, logger)
	defer client.Close()

	p := tea.NewProgram(
		app.New(client),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()
	return err
}
