package main

import (
	"context"
	"flag"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/louispotok/frieden/internal/busy"
	appLog "github.com/louispotok/frieden/internal/log"
	"github.com/louispotok/frieden/internal/timeutil"
	"github.com/louispotok/frieden/internal/tui"
)

func main() {
	endpoint := flag.String("endpoint", "http://127.0.0.1:8080/data", "Busy data endpoint URL")
	timezone := flag.String("timezone", "", "IANA timezone for display (default: local)")
	flag.Parse()

	loc := time.Local
	if *timezone != "" {
		l, err := time.LoadLocation(*timezone)
		if err != nil {
			appLog.Error("failed to load timezone", err, "name", *timezone)
			os.Exit(1)
		}
		loc = l
	}

	clock := timeutil.NewClock(loc, nil)
	client := busy.NewClient(*endpoint)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := tui.New(ctx, clock, client)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		appLog.Error("terminal UI failed", err)
		os.Exit(1)
	}
}
