// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/reelfeed/internal/engagement"
	"github.com/tomtom215/reelfeed/internal/feed"
	"github.com/tomtom215/reelfeed/internal/logging"
	"github.com/tomtom215/reelfeed/internal/playback"
	"github.com/tomtom215/reelfeed/internal/preload"
	"github.com/tomtom215/reelfeed/internal/provider"
	"github.com/tomtom215/reelfeed/internal/viewport"
)

// simItemHeight is the height of every simulated item and of the viewport,
// so scroll position n shows exactly item n.
const simItemHeight = 800.0

type simulateOptions struct {
	items    int
	pageSize int
	scroll   []int
	react    string
	muted    bool
	logLevel string
}

func newSimulateCmd() *cobra.Command {
	opts := simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Scroll a demo feed and print the engine output as JSON lines",
		Long: `Opens one session on the built-in demo catalog, scrolls it to each
position given by --scroll (in items) and prints every render, media command,
notice and playback transition as one JSON object per line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Init(logging.Config{
				Level:  opts.logLevel,
				Format: "console",
				Output: cmd.ErrOrStderr(),
			})
			return simulate(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.items, "items", 12, "number of items in the demo catalog")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 5, "items per feed page")
	cmd.Flags().IntSliceVar(&opts.scroll, "scroll", []int{0, 1, 3, 1}, "scroll positions, in items")
	cmd.Flags().StringVar(&opts.react, "react", "LIKE", "reaction toggled on the active item after scrolling (empty to skip)")
	cmd.Flags().BoolVar(&opts.muted, "muted", true, "start the session muted")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	return cmd
}

// simEvent is one line of simulate output.
type simEvent struct {
	Type     string              `json:"type"`
	Step     *int                `json:"step,omitempty"`
	ItemID   string              `json:"item_id,omitempty"`
	From     string              `json:"from,omitempty"`
	To       string              `json:"to,omitempty"`
	Active   string              `json:"active,omitempty"`
	Playing  *int                `json:"playing,omitempty"`
	Render   *feed.RenderState   `json:"render,omitempty"`
	Command  *feed.MediaCommand  `json:"command,omitempty"`
	Notice   *feed.Notice        `json:"notice,omitempty"`
	Counts   *engagement.Counts  `json:"counts,omitempty"`
	Reaction engagement.Reaction `json:"reaction,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// printer is the session sink of the simulation. It serialises output from
// the session and its background preparation onto one writer.
type printer struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

func newPrinter(w io.Writer) *printer {
	return &printer{enc: json.NewEncoder(w)}
}

func (p *printer) emit(ev simEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = p.enc.Encode(ev)
	}
}

func (p *printer) Render(state feed.RenderState) {
	p.emit(simEvent{Type: "render", ItemID: state.ItemID, Render: &state})
}

func (p *printer) Command(cmd feed.MediaCommand) {
	p.emit(simEvent{Type: "command", ItemID: cmd.ItemID, Command: &cmd})
}

func (p *printer) Notice(n feed.Notice) {
	p.emit(simEvent{Type: "notice", ItemID: n.ItemID, Notice: &n})
}

func (p *printer) transition(_ string, t playback.Transition) {
	ev := simEvent{Type: "transition", ItemID: t.ItemID, From: t.From.String(), To: t.To.String()}
	if t.Err != nil {
		ev.Error = t.Err.Error()
	}
	p.emit(ev)
}

func (p *printer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// simulate runs one scripted scroll through a demo feed.
func simulate(ctx context.Context, w io.Writer, opts simulateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.items < 1 {
		return fmt.Errorf("--items must be at least 1, got %d", opts.items)
	}

	out := newPrinter(w)
	ledger := engagement.NewLedger(provider.NewMemoryEngagement())
	mgr := feed.NewManager(feed.Config{StartMuted: opts.muted},
		provider.NewDemoCatalog(opts.items, opts.pageSize), ledger,
		feed.WithPlaybackObserver(out.transition),
	)
	defer mgr.CloseAll()

	// Every item is buffered instantly, so playback starts as soon as an
	// item becomes active.
	ready := preload.PreparerFunc(func(ctx context.Context, mediaID, sourceURL string) error {
		return ctx.Err()
	})

	session, err := mgr.Open(ctx, feed.SessionOptions{
		Actor:    "simulator",
		Surface:  feed.SurfaceFeed,
		Sink:     out,
		Preparer: ready,
	})
	if err != nil {
		return err
	}

	for i, pos := range opts.scroll {
		if err := session.Observe(simFrame(session, pos)); err != nil {
			return fmt.Errorf("scroll step %d: %w", i, err)
		}
		session.Settle()

		// Stand in for the client's media element: it starts as soon as it
		// is told to load.
		if active := session.Active(); active != "" {
			if st, ok := session.RenderState(active); ok && st.PlaybackState == playback.Preparing {
				if err := session.MediaStarted(active); err != nil {
					return fmt.Errorf("scroll step %d: %w", i, err)
				}
				session.Settle()
			}
		}

		step, playing := i, session.PlayingCount()
		out.emit(simEvent{Type: "step", Step: &step, Active: session.Active(), Playing: &playing})
	}

	if opts.react != "" && session.Active() != "" {
		r := engagement.Reaction(opts.react)
		counts, err := session.ToggleReaction(ctx, session.Active(), r)
		ev := simEvent{Type: "reaction", ItemID: session.Active(), Reaction: r}
		if err != nil {
			ev.Error = err.Error()
		} else {
			ev.Counts = &counts
		}
		out.emit(ev)
		ledger.Wait()
	}

	return out.Err()
}

// simFrame lays the loaded items out top to bottom and places a
// one-item-high viewport at position pos.
func simFrame(s *feed.Session, pos int) viewport.Frame {
	states := s.Items()
	items := make([]viewport.Bounds, len(states))
	for i, st := range states {
		items[i] = viewport.Bounds{ItemID: st.ItemID, Top: float64(i) * simItemHeight, Height: simItemHeight}
	}
	return viewport.Frame{
		Viewport: viewport.Span{Top: float64(pos) * simItemHeight, Height: simItemHeight},
		Items:    items,
	}
}
