package agrictl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ritheshan/agri/internal/services/widget"
)

type completedGesture struct {
	Line     int             `json:"line"`
	Kind     string          `json:"kind"`
	Geometry widget.Geometry `json:"geometry"`
}

type replayReport struct {
	Viewport widget.Size        `json:"viewport"`
	Events   int                `json:"events"`
	Gestures []completedGesture `json:"gestures"`
	Final    widget.Geometry    `json:"final"`
}

func parseSize(s string) (widget.Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return widget.Size{}, fmt.Errorf("size %q: want WIDTHxHEIGHT", s)
	}
	width, err := strconv.ParseFloat(w, 64)
	if err != nil {
		return widget.Size{}, fmt.Errorf("size %q: %w", s, err)
	}
	height, err := strconv.ParseFloat(h, 64)
	if err != nil {
		return widget.Size{}, fmt.Errorf("size %q: %w", s, err)
	}
	if width <= 0 || height <= 0 {
		return widget.Size{}, fmt.Errorf("size %q: %w", s, widget.ErrBadViewport)
	}
	return widget.Size{Width: width, Height: height}, nil
}

// replay feeds newline-delimited events through one controller. Blank lines
// and lines starting with # are skipped.
func replay(r io.Reader, viewport widget.Size, log *zap.Logger) (replayReport, error) {
	rep := replayReport{Viewport: viewport, Gestures: []completedGesture{}}
	line := 0
	disp := widget.NewDispatcher(widget.NewController(viewport, widget.DefaultSize), func(kind widget.GestureKind, g widget.Geometry) {
		rep.Gestures = append(rep.Gestures, completedGesture{Line: line, Kind: kind.String(), Geometry: g})
	})

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var ev widget.Event
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			return rep, fmt.Errorf("line %d: %w", line, err)
		}
		if _, err := disp.Dispatch(ev); err != nil {
			return rep, fmt.Errorf("line %d: %w", line, err)
		}
		rep.Events++
		log.Debug("replayed", zap.Int("line", line), zap.String("type", string(ev.Type)))
	}
	if err := sc.Err(); err != nil {
		return rep, err
	}
	rep.Final = disp.Controller().Geometry()
	rep.Viewport = disp.Controller().Viewport()
	return rep, nil
}

func newReplayCmd(o *options) *cobra.Command {
	var viewport string
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Replay recorded widget pointer events and print the resulting geometry",
		Long:  `FILE holds one JSON event per line, as sent on the widget stream; "-" reads stdin.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vp, err := parseSize(viewport)
			if err != nil {
				return err
			}
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			rep, err := replay(in, vp, o.log)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), o.output, rep, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "LINE\tGESTURE\tX\tY\tWIDTH\tHEIGHT")
				for _, g := range rep.Gestures {
					fmt.Fprintf(tw, "%d\t%s\t%g\t%g\t%g\t%g\n", g.Line, g.Kind,
						g.Geometry.Position.X, g.Geometry.Position.Y, g.Geometry.Size.Width, g.Geometry.Size.Height)
				}
				f := rep.Final
				fmt.Fprintf(tw, "final\t\t%g\t%g\t%g\t%g\n", f.Position.X, f.Position.Y, f.Size.Width, f.Size.Height)
			})
		},
	}
	cmd.Flags().StringVar(&viewport, "viewport", "1280x800", "initial viewport WIDTHxHEIGHT")
	return cmd
}
