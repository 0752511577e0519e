package monitor

import (
	tea "github.com/charmbracelet/bubbletea"
)

// startScanCmd calls into the driver off the UI goroutine; the driver
// answers with scanStart or error events.
func startScanCmd(c Central, serviceUUIDs []string, allowDuplicates bool) tea.Cmd {
	return func() tea.Msg {
		c.StartScanning(serviceUUIDs, allowDuplicates)
		return scanRequestedMsg{start: true}
	}
}

func stopScanCmd(c Central) tea.Cmd {
	return func() tea.Msg {
		c.StopScanning()
		return scanRequestedMsg{start: false}
	}
}
