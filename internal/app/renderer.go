package service

import (
	"github.com/okian/bonk/internal/domain/game"
	"github.com/okian/bonk/internal/domain/leaderboard"
)

// View is the screen the player is looking at.
type View string

const (
	ViewGame        View = "game"
	ViewLeaderboard View = "leaderboard"
)

// Renderer receives every visual instruction the service produces:
// the round instructions from the session plus theme, prompt,
// leaderboard and view changes. Calls may be made while service or
// session locks are held, so implementations must not call back into
// the Service.
type Renderer interface {
	game.Renderer

	ApplyTheme(image string)
	ShowPrompt(score int)
	HidePrompt()
	ShowLeaderboard(board leaderboard.Board)
	SetView(view View)
	// ShowNotice displays a short transient message to the player.
	ShowNotice(msg string)
}

// NopRenderer discards every instruction.
type NopRenderer struct {
	game.NopRenderer
}

func (NopRenderer) ApplyTheme(string)                 {}
func (NopRenderer) ShowPrompt(int)                    {}
func (NopRenderer) HidePrompt()                       {}
func (NopRenderer) ShowLeaderboard(leaderboard.Board) {}
func (NopRenderer) SetView(View)                      {}
func (NopRenderer) ShowNotice(string)                 {}
