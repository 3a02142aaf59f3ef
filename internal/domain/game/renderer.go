package game

// Renderer receives the visual instructions a round produces. Calls are
// made while the session lock is held, so implementations must not call
// back into the Session.
type Renderer interface {
	Show(slot int, image string)
	Hide(slot int)
	FlashHit(slot int)
	SetScore(score int)
	SetTimer(seconds int)
	ShowEndMessage(outcome Outcome)
	SetStartEnabled(enabled bool)
}

// NopRenderer discards every instruction.
type NopRenderer struct{}

func (NopRenderer) Show(int, string)       {}
func (NopRenderer) Hide(int)               {}
func (NopRenderer) FlashHit(int)           {}
func (NopRenderer) SetScore(int)           {}
func (NopRenderer) SetTimer(int)           {}
func (NopRenderer) ShowEndMessage(Outcome) {}
func (NopRenderer) SetStartEnabled(bool)   {}
