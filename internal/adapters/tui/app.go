package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"

	service "github.com/okian/bonk/internal/app"
	"github.com/okian/bonk/internal/domain/game"
	"github.com/okian/bonk/internal/domain/scores"
	"github.com/okian/bonk/internal/domain/theme"
	"github.com/okian/bonk/pkg/logger"
)

const frameInterval = 50 * time.Millisecond

// Commands is the part of the service the terminal drives.
type Commands interface {
	StartRound() game.Snapshot
	EndRound() game.Snapshot
	Hit(slot int) bool
	SlotCount() int
	CycleTheme() theme.Theme
	ToggleView(ctx context.Context) (service.View, error)
	SubmitScore(ctx context.Context, name string) (scores.Result, error)
	SkipSubmission() error
	State() service.State
}

// App runs the terminal loop: it turns key presses into service commands
// and redraws the View when it changes.
type App struct {
	screen tcell.Screen
	view   *View
	cmds   Commands
	log    logger.Logger
}

// NewApp creates an App drawing view on screen. The screen must already
// be initialised.
func NewApp(screen tcell.Screen, view *View, cmds Commands, log logger.Logger) *App {
	if log == nil {
		log = logger.Nop()
	}
	return &App{screen: screen, view: view, cmds: cmds, log: log}
}

// Run blocks until the player quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.view.Restore(a.cmds.State())
	a.view.Draw(a.screen)

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if !a.handleEvent(ctx, ev) {
				return nil
			}
		case <-a.view.Dirty():
			a.view.Draw(a.screen)
		case <-ticker.C:
			if a.view.animating() {
				a.view.Draw(a.screen)
			}
		}
	}
}

// handleEvent reports false when the player asked to quit.
func (a *App) handleEvent(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		a.screen.Sync()
		a.view.Draw(a.screen)
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if _, open := a.view.promptName(); open {
			a.handlePromptKey(ctx, ev)
			return true
		}
		return a.handleGameKey(ctx, ev)
	}
	return true
}

func (a *App) handlePromptKey(ctx context.Context, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEnter:
		name, _ := a.view.promptName()
		// SubmitScore waits on the worker; the loop keeps drawing meanwhile.
		go func() {
			if _, err := a.cmds.SubmitScore(ctx, name); err != nil {
				a.log.Debug(ctx, "score submission failed", logger.Error(err))
			}
		}()
	case tcell.KeyEscape:
		_ = a.cmds.SkipSubmission()
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		a.view.backspace()
	case tcell.KeyRune:
		a.view.typeRune(ev.Rune())
	}
}

func (a *App) handleGameKey(ctx context.Context, ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape:
		return false
	case tcell.KeyRune:
	default:
		return true
	}

	switch r := ev.Rune(); {
	case r == 'q':
		return false
	case r == 's' || r == ' ':
		if a.view.canStart() {
			a.cmds.StartRound()
		}
	case r == 'x':
		a.cmds.EndRound()
	case r == 't':
		a.cmds.CycleTheme()
	case r == 'l':
		go func() {
			if _, err := a.cmds.ToggleView(ctx); err != nil {
				a.log.Warn(ctx, "leaderboard unavailable", logger.Error(err))
			}
		}()
	case r >= '1' && r <= '9':
		if slot := int(r - '1'); slot < a.cmds.SlotCount() {
			a.cmds.Hit(slot)
		}
	}
	return true
}
