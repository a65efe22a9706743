// Package cli is an interactive prompt for trying prefix searches against the loaded
// catalog.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bastiangx/placeserve/internal/utils"
	"github.com/bastiangx/placeserve/pkg/place"
	"github.com/bastiangx/placeserve/pkg/resource"
	"github.com/bastiangx/placeserve/pkg/search"
	"github.com/bastiangx/placeserve/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	nameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	stateStyle = lipgloss.NewStyle().Bold(true)
)

// InputHandler reads prefixes line by line and prints the matching records.
//
// Lines starting with ':' are commands: ":complete <prefix>" lists distinct names,
// ":stats" prints catalog numbers and ":quit" leaves.
type InputHandler struct {
	engine       *search.Engine
	completer    *suggest.Completer
	limit        int
	in           io.Reader
	out          io.Writer
	requestCount int
}

// NewInputHandler creates a handler on stdin/stdout. completer may be nil.
func NewInputHandler(engine *search.Engine, completer *suggest.Completer, limit int) *InputHandler {
	return &InputHandler{
		engine:    engine,
		completer: completer,
		limit:     limit,
		in:        os.Stdin,
		out:       os.Stdout,
	}
}

// SetIO replaces stdin/stdout.
func (h *InputHandler) SetIO(in io.Reader, out io.Writer) {
	h.in = in
	h.out = out
}

// Start runs the prompt until EOF or ":quit".
func (h *InputHandler) Start() error {
	reader := bufio.NewReader(h.in)
	c := h.engine.Catalog()
	res := resource.FromCatalog(c, nil)
	fmt.Fprintf(h.out, "placeserve CLI: %s %s places (catalog v%d)\n",
		stateStyle.Render(res.State.String()), utils.FormatWithCommas(res.Len()), c.Version())
	fmt.Fprintln(h.out, "type a prefix and press Enter, an empty line lists everything (Ctrl+D to exit):")

	for {
		fmt.Fprint(h.out, "> ")
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(h.out)
				return nil
			}
			return err
		}
		// Only the line ending goes; surrounding spaces are part of the prefix.
		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")

		if strings.HasPrefix(line, ":") {
			if quit := h.handleCommand(line[1:]); quit {
				return nil
			}
			continue
		}
		h.handleInput(line)
	}
}

func (h *InputHandler) handleCommand(cmd string) (quit bool) {
	name, arg, _ := strings.Cut(cmd, " ")
	switch name {
	case "q", "quit", "exit":
		return true
	case "c", "complete":
		h.handleComplete(arg)
	case "stats":
		for k, v := range h.engine.Stats() {
			fmt.Fprintf(h.out, "  %-14s %s\n", k, utils.FormatWithCommas(v))
		}
	default:
		log.Errorf("Unknown command: %s", name)
	}
	return false
}

// handleInput searches one prefix and prints the first limit records.
func (h *InputHandler) handleInput(prefix string) {
	h.requestCount++

	start := time.Now()
	records := h.engine.Search(prefix)
	elapsed := time.Since(start)
	log.Debugf("Took [ %v ] for prefix '%s'", elapsed, prefix)

	res := resource.FromSearch(records)
	fmt.Fprintf(h.out, "%s %s matches for '%s' %s\n",
		stateStyle.Render(res.State.String()),
		utils.FormatWithCommas(res.Len()),
		prefix,
		dimStyle.Render(elapsed.String()))

	shown := records
	if h.limit > 0 && len(shown) > h.limit {
		shown = shown[:h.limit]
	}
	for i, r := range shown {
		fmt.Fprintln(h.out, formatRecord(i+1, r))
	}
	if len(shown) < len(records) {
		fmt.Fprintln(h.out, dimStyle.Render(fmt.Sprintf("  ... %s more", utils.FormatWithCommas(len(records)-len(shown)))))
	}
}

func (h *InputHandler) handleComplete(prefix string) {
	if h.completer == nil {
		log.Error("Completion is not available")
		return
	}
	suggestions := h.completer.Complete(prefix, h.limit)
	if len(suggestions) == 0 {
		log.Warnf("No names found for prefix: '%s'", prefix)
		return
	}
	for i, s := range suggestions {
		fmt.Fprintf(h.out, "%2d. %-40s (places: %6s)\n", i+1, nameStyle.Render(s.Name), utils.FormatWithCommas(s.Count))
	}
}

func formatRecord(n int, r place.Record) string {
	var lon, lat *float64
	if r.Coordinates != nil {
		lon, lat = r.Coordinates.Longitude, r.Coordinates.Latitude
	}
	return fmt.Sprintf("%3d. %-40s %s",
		n,
		nameStyle.Render(r.Label()),
		dimStyle.Render(fmt.Sprintf("lon %s lat %s id %s", utils.FormatCoordinate(lon), utils.FormatCoordinate(lat), r.ID)))
}
