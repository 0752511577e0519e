package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"blecentral/internal/adapter/tui/monitor"
)

func runMonitor(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	// Log lines on the terminal would tear the alt screen.
	if cfg.Logger.Output == "stderr" || cfg.Logger.Output == "stdout" {
		cfg.Logger.Output = "discard"
	}
	rt, err := startRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	c, err := rt.defaultCentral()
	if err != nil {
		return err
	}

	model := monitor.New(monitor.Deps{
		Central:         c,
		ServiceUUIDs:    rt.cfg.Scan.ServiceUUIDs,
		AllowDuplicates: flags.Duplicates || rt.cfg.Scan.AllowDuplicates,
		ScanOnStart:     true,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	model.SetProgramSender(func(msg tea.Msg) { p.Send(msg) })

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}
