package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"blecentral/internal/adapter/tui/theme"
	"blecentral/internal/domain"
)

func runPeripherals(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	rt, err := newRuntime(flags)
	if err != nil {
		return err
	}
	defer rt.close()

	st, err := rt.openStore()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	recs, err := st.ListPeripherals(ctx)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Printf("no peripherals cached in %s\n", rt.cfg.Store.Path)
		return nil
	}
	renderPeripherals(os.Stdout, recs, time.Now())
	return nil
}

func renderPeripherals(w io.Writer, recs []*domain.PeripheralRecord, now time.Time) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers("UUID", "NAME", "RSSI", "ADDRESS", "SERVICES", "SEEN", "LAST SEEN").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.Title.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, r := range recs {
		t.Row(
			r.UUID,
			r.Advertisement.LocalName,
			strconv.Itoa(r.RSSI),
			r.Address,
			strings.Join(r.Advertisement.ServiceUUIDs, ","),
			strconv.Itoa(r.SeenCount),
			ago(now.Sub(r.LastSeen)),
		)
	}
	fmt.Fprintln(w, t.Render())
}

// ago formats d coarsely: "12s", "5m", "3h", "2d".
func ago(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
