// Package tui draws a live polity map in the terminal.
package tui

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"

	"github.com/talgya/guard/internal/engine"
	"github.com/talgya/guard/internal/world"
)

var (
	seaStyle      = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	desertStyle   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	dormantStyle  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	singleStyle   = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	statusStyle   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)
	polityPalette = []tcell.Color{
		tcell.ColorRed, tcell.ColorFuchsia, tcell.ColorAqua, tcell.ColorOrange,
		tcell.ColorPurple, tcell.ColorLime, tcell.ColorMaroon, tcell.ColorTeal,
		tcell.ColorPink, tcell.ColorOlive, tcell.ColorSilver, tcell.ColorNavy,
	}
)

const (
	seaRune     = '~'
	desertRune  = '.'
	dormantRune = ','
	singleRune  = '+'
	polityRune  = '█'
)

// Viewer renders a world onto a tcell screen. North (high y) is at the top.
type Viewer struct {
	screen tcell.Screen
	paused atomic.Bool
	quit   chan struct{}
	once   sync.Once
}

// NewViewer wraps an initialised screen.
func NewViewer(screen tcell.Screen) *Viewer {
	return &Viewer{screen: screen, quit: make(chan struct{})}
}

// Quit is closed when the user asks to exit.
func (v *Viewer) Quit() <-chan struct{} { return v.quit }

// Paused reports whether the user has paused the run.
func (v *Viewer) Paused() bool { return v.paused.Load() }

// PolityStyle returns the style used for a community's polity.
func PolityStyle(c *engine.Community) tcell.Style {
	return tcell.StyleDefault.Foreground(polityPalette[int(c.Polity().ID)%len(polityPalette)])
}

// Draw renders every community and the status line, then shows the frame.
func (v *Viewer) Draw(w *engine.World) {
	v.screen.Clear()

	for _, c := range w.Communities() {
		r, style := v.cell(c, w.StepNumber())
		v.screen.SetContent(c.Coord.X, w.Height-1-c.Coord.Y, r, nil, style)
	}

	status := fmt.Sprintf(" step %s  year %d  polities %s  paradigms %s  [p]ause [q]uit ",
		humanize.Comma(int64(w.StepNumber())), w.Year(),
		humanize.Comma(int64(w.NumberOfPolities())), humanize.Comma(int64(w.Paradigms().Len())))
	if v.Paused() {
		status += " PAUSED "
	}
	for i, r := range status {
		v.screen.SetContent(i, w.Height, r, nil, statusStyle)
	}

	v.screen.Show()
}

func (v *Viewer) cell(c *engine.Community, step int) (rune, tcell.Style) {
	switch {
	case c.Terrain == world.TerrainSea:
		return seaRune, seaStyle
	case c.Terrain == world.TerrainDesert:
		return desertRune, desertStyle
	case !c.IsActive(step):
		return dormantRune, dormantStyle
	case c.Polity().Size() == 1:
		return singleRune, singleStyle
	default:
		return polityRune, PolityStyle(c)
	}
}

// HandleEvent applies a terminal event. It returns false once the viewer
// should stop.
func (v *Viewer) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return v.handleKey(ev.Key(), ev.Rune())
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return true
}

func (v *Viewer) handleKey(key tcell.Key, r rune) bool {
	switch {
	case key == tcell.KeyEscape || key == tcell.KeyCtrlC || (key == tcell.KeyRune && r == 'q'):
		v.once.Do(func() { close(v.quit) })
		return false
	case key == tcell.KeyRune && r == 'p':
		v.paused.Store(!v.paused.Load())
	}
	return true
}

// PollEvents handles screen events until the user quits or the screen is
// finalised.
func (v *Viewer) PollEvents() {
	for {
		ev := v.screen.PollEvent()
		if ev == nil || !v.HandleEvent(ev) {
			return
		}
	}
}
