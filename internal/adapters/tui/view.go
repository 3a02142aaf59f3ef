// Package tui is a terminal front end for the game built on tcell.
package tui

import (
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	service "github.com/okian/bonk/internal/app"
	"github.com/okian/bonk/internal/domain/game"
	"github.com/okian/bonk/internal/domain/leaderboard"
)

const (
	flashDuration  = 200 * time.Millisecond
	noticeDuration = 3 * time.Second

	cellWidth  = 14
	cellHeight = 5
	perRow     = 3
	maxNameLen = 40
)

var medals = [leaderboard.PodiumSize]string{"🥇", "🥈", "🥉"}

var (
	styleDefault = tcell.StyleDefault
	styleTitle   = tcell.StyleDefault.Foreground(tcell.ColorOrange).Bold(true)
	styleHole    = tcell.StyleDefault.Background(tcell.ColorSaddleBrown)
	styleTarget  = tcell.StyleDefault.Background(tcell.ColorSaddleBrown).Foreground(tcell.ColorYellow).Bold(true)
	styleHit     = tcell.StyleDefault.Background(tcell.ColorRed).Foreground(tcell.ColorWhite).Bold(true)
	styleDim     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	stylePodium  = tcell.StyleDefault.Foreground(tcell.ColorGold).Bold(true)
	styleNotice  = tcell.StyleDefault.Reverse(true)
	stylePrompt  = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
)

type slotView struct {
	up      bool
	image   string
	flashAt time.Time
}

// View holds what the terminal shows and implements service.Renderer.
// Instructions only update state and request a redraw; drawing happens
// on the App loop.
type View struct {
	mu sync.Mutex

	slots        []slotView
	score        int
	timer        int
	startEnabled bool
	image        string
	outcome      *game.Outcome

	promptOpen  bool
	promptScore int
	name        []rune

	view     service.View
	board    leaderboard.Board
	notice   string
	noticeAt time.Time

	now   func() time.Time
	dirty chan struct{}
}

var _ service.Renderer = (*View)(nil)

// NewView creates a view for slots target slots.
func NewView(slots int) *View {
	return &View{
		slots:        make([]slotView, max(slots, 1)),
		timer:        game.DefaultRoundSeconds,
		startEnabled: true,
		view:         service.ViewGame,
		now:          time.Now,
		dirty:        make(chan struct{}, 1),
	}
}

// Dirty is signalled whenever the view changed.
func (v *View) Dirty() <-chan struct{} {
	return v.dirty
}

func (v *View) update(fn func()) {
	v.mu.Lock()
	fn()
	v.mu.Unlock()
	select {
	case v.dirty <- struct{}{}:
	default:
	}
}

func (v *View) slot(i int) *slotView {
	if i < 0 || i >= len(v.slots) {
		return nil
	}
	return &v.slots[i]
}

func (v *View) Show(i int, image string) {
	v.update(func() {
		if s := v.slot(i); s != nil {
			s.up, s.image = true, image
		}
	})
}

func (v *View) Hide(i int) {
	v.update(func() {
		if s := v.slot(i); s != nil {
			s.up = false
		}
	})
}

func (v *View) FlashHit(i int) {
	v.update(func() {
		if s := v.slot(i); s != nil {
			s.flashAt = v.now()
		}
	})
}

func (v *View) SetScore(n int) { v.update(func() { v.score = n }) }

func (v *View) SetTimer(n int) { v.update(func() { v.timer = n }) }

func (v *View) ShowEndMessage(o game.Outcome) { v.update(func() { v.outcome = &o }) }

func (v *View) SetStartEnabled(enabled bool) {
	v.update(func() {
		v.startEnabled = enabled
		if !enabled {
			v.outcome = nil
		}
	})
}

func (v *View) ApplyTheme(image string) { v.update(func() { v.image = image }) }

func (v *View) ShowPrompt(score int) {
	v.update(func() {
		v.promptOpen, v.promptScore, v.name = true, score, v.name[:0]
	})
}

func (v *View) HidePrompt() { v.update(func() { v.promptOpen = false }) }

func (v *View) ShowLeaderboard(b leaderboard.Board) { v.update(func() { v.board = b }) }

func (v *View) SetView(view service.View) { v.update(func() { v.view = view }) }

func (v *View) ShowNotice(msg string) {
	v.update(func() { v.notice, v.noticeAt = msg, v.now() })
}

// Restore replaces the view with a service state, as on startup.
func (v *View) Restore(st service.State) {
	v.update(func() {
		v.slots = make([]slotView, len(st.Session.Slots))
		for i, up := range st.Session.Slots {
			v.slots[i] = slotView{up: up, image: st.Theme.ImageRef}
		}
		v.score = st.Session.Score
		v.timer = st.Session.TimeRemaining
		v.startEnabled = st.Session.State != game.StateRunning
		v.outcome = st.Session.LastOutcome
		v.image = st.Theme.ImageRef
		v.view = st.View
		v.promptOpen = st.Prompt != nil
		if st.Prompt != nil {
			v.promptScore = st.Prompt.Score
		}
	})
}

// promptName reports the typed name while the prompt is open.
func (v *View) promptName() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return string(v.name), v.promptOpen
}

func (v *View) typeRune(r rune) {
	v.update(func() {
		if len(v.name) < maxNameLen {
			v.name = append(v.name, r)
		}
	})
}

func (v *View) backspace() {
	v.update(func() {
		if len(v.name) > 0 {
			v.name = v.name[:len(v.name)-1]
		}
	})
}

func (v *View) canStart() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.startEnabled
}

// animating reports whether a flash or notice is still on screen, so the
// loop keeps redrawing until they fade.
func (v *View) animating() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := v.now()
	if v.notice != "" && now.Sub(v.noticeAt) < noticeDuration+flashDuration {
		return true
	}
	for _, s := range v.slots {
		if now.Sub(s.flashAt) < 2*flashDuration {
			return true
		}
	}
	return false
}

// Draw paints the whole view onto screen.
func (v *View) Draw(screen tcell.Screen) {
	v.mu.Lock()
	defer v.mu.Unlock()

	screen.Clear()
	width, height := screen.Size()
	now := v.now()

	drawText(screen, 1, 0, styleTitle, "SHIBA BONK")
	drawText(screen, 14, 0, styleDefault, fmt.Sprintf("Score: %d   Time: %ds   Shiba: %s",
		v.score, v.timer, themeName(v.image)))

	y := 2
	if v.view == service.ViewLeaderboard {
		y = v.drawLeaderboard(screen, y)
	} else {
		y = v.drawBoard(screen, y, now)
	}

	if v.promptOpen {
		v.drawPrompt(screen, y+1)
	}

	if v.notice != "" && now.Sub(v.noticeAt) < noticeDuration {
		drawText(screen, 1, height-2, styleNotice, " "+v.notice+" ")
	}
	drawText(screen, 1, height-1, styleDim, v.help(width))
	screen.Show()
}

func (v *View) drawBoard(screen tcell.Screen, y int, now time.Time) int {
	for i, s := range v.slots {
		x := 1 + (i%perRow)*(cellWidth+2)
		top := y + (i/perRow)*(cellHeight+1)

		style, face := styleHole, ""
		switch {
		case now.Sub(s.flashAt) < flashDuration:
			style, face = styleHit, "BONK!"
		case s.up:
			style, face = styleTarget, "(•ᴥ•)"
		}
		fillRect(screen, x, top, cellWidth, cellHeight, style)
		drawText(screen, x+1, top, style, fmt.Sprintf("%d", i+1))
		if face != "" {
			drawText(screen, x+(cellWidth-runewidth.StringWidth(face))/2, top+cellHeight/2, style, face)
		}
	}
	rows := (len(v.slots) + perRow - 1) / perRow
	y += rows * (cellHeight + 1)

	if v.outcome != nil {
		drawText(screen, 1, y, styleTitle, fmt.Sprintf("Final score: %d. %s", v.outcome.Score, v.outcome.Message))
		y++
	}
	return y
}

func (v *View) drawLeaderboard(screen tcell.Screen, y int) int {
	drawText(screen, 1, y, styleTitle, "LEADERBOARD")
	y += 2
	if v.board.Empty() {
		drawText(screen, 1, y, styleDefault, "No scores yet! Be the first to play!")
		return y + 1
	}
	for row := range v.board.All() {
		style, prefix := styleDefault, fmt.Sprintf("%2d.", row.Rank)
		if row.Podium {
			style, prefix = stylePodium, medals[row.Rank-1]+" "
		}
		drawText(screen, 1, y, style, fmt.Sprintf("%s %-20s %5d", prefix, row.Name, row.Score))
		y++
	}
	return y
}

func (v *View) drawPrompt(screen tcell.Screen, y int) {
	width, _ := screen.Size()
	boxWidth := min(width-2, 50)
	fillRect(screen, 1, y, boxWidth, 4, stylePrompt)
	drawText(screen, 2, y, stylePrompt, fmt.Sprintf("You scored %d! Save your score?", v.promptScore))
	drawText(screen, 2, y+1, stylePrompt, "Name: "+string(v.name)+"_")
	drawText(screen, 2, y+3, stylePrompt, "Enter to save, Esc to skip")
}

func (v *View) help(width int) string {
	var keys string
	switch {
	case v.promptOpen:
		keys = "type your name  enter save  esc skip"
	case v.view == service.ViewLeaderboard:
		keys = "l back to game  t shiba  q quit"
	case v.startEnabled:
		keys = fmt.Sprintf("s start  1-%d bonk  t shiba  l leaderboard  q quit", len(v.slots))
	default:
		keys = fmt.Sprintf("1-%d bonk  x stop  q quit", len(v.slots))
	}
	if len(keys) > width-2 && width > 2 {
		keys = keys[:width-2]
	}
	return keys
}

// themeName turns an image reference into a short label.
func themeName(image string) string {
	if image == "" {
		return "-"
	}
	return strings.TrimSuffix(path.Base(image), path.Ext(image))
}

func drawText(screen tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		screen.SetContent(x, y, r, nil, style)
		x += max(runewidth.RuneWidth(r), 1)
	}
}

func fillRect(screen tcell.Screen, x, y, w, h int, style tcell.Style) {
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			screen.SetContent(col, row, ' ', nil, style)
		}
	}
}
