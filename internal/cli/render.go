package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go-space/internal/domain"
	"go-space/internal/orchestrator"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var (
	liveColor    = color.New(color.FgGreen, color.Bold)
	recentColor  = color.New(color.FgYellow)
	staleColor   = color.New(color.FgRed)
	unknownColor = color.New(color.FgHiBlack)
)

// freshnessLabel colors a freshness class for terminal output
func freshnessLabel(f orchestrator.Freshness) string {
	switch f {
	case orchestrator.FreshnessLive:
		return liveColor.Sprint(f.String())
	case orchestrator.FreshnessRecent:
		return recentColor.Sprint(f.String())
	case orchestrator.FreshnessStale:
		return staleColor.Sprint(f.String())
	default:
		return unknownColor.Sprint(f.String())
	}
}

// writePosition prints one ISS position line
func writePosition(w io.Writer, pos domain.IssPosition, fresh orchestrator.Freshness) error {
	_, err := fmt.Fprintf(w, "[%s] lat %8.4f  lon %9.4f  alt %.0f km  vel %.2f km/s  at %s\n",
		freshnessLabel(fresh),
		pos.Latitude, pos.Longitude, pos.Altitude, pos.Velocity,
		pos.Time().Format(time.RFC3339))
	return err
}

// writeMarsView prints the current photo page as a table followed by paging and suggestions
func writeMarsView(w io.Writer, v orchestrator.MarsView) error {
	rover := domain.Rovers[v.Filter.Rover]
	if _, err := fmt.Fprintf(w, "%s on %s", rover.Name, v.Filter.Date); err != nil {
		return err
	}
	if v.Filter.Camera != "" {
		if _, err := fmt.Fprintf(w, " (%s)", domain.CameraDisplayName(v.Filter.Camera)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	if v.Status == orchestrator.StatusErrored {
		msg := staleColor.Sprint(v.Message)
		if v.Empty {
			msg = recentColor.Sprint(v.Message)
		}
		if _, err := fmt.Fprintln(w, msg); err != nil {
			return err
		}
		return writeSuggestions(w, v)
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"ID", "Sol", "Camera", "Earth Date", "Image"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, p := range v.PageItems() {
		data = append(data, []string{
			strconv.Itoa(p.ID),
			strconv.Itoa(p.Sol),
			domain.CameraDisplayName(p.Camera.Name),
			p.EarthDate,
			p.ImgSrc,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Page %d of %d (%d photos)\n", v.Filter.Page, v.TotalPages(), len(v.Photos)); err != nil {
		return err
	}
	if len(v.Cameras) > 0 {
		if _, err := fmt.Fprintf(w, "Cameras: %s\n", strings.Join(v.Cameras, ", ")); err != nil {
			return err
		}
	}
	return writeSuggestions(w, v)
}

func writeSuggestions(w io.Writer, v orchestrator.MarsView) error {
	if len(v.Suggested) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "Suggested dates: %s\n", strings.Join(v.Suggested, ", "))
	return err
}
