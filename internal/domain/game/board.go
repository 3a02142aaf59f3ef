package game

// Board tracks which of the fixed slots currently holds the target.
// At most one slot is occupied; the representation makes a second
// occupied slot impossible rather than merely checked.
type Board struct {
	size     int
	occupied int    // -1 when empty
	seq      uint64 // bumped on every occupation, identifies it for expiry
}

// NewBoard creates an empty board with size slots.
func NewBoard(size int) *Board {
	if size < 1 {
		size = 1
	}
	return &Board{size: size, occupied: -1}
}

// Size returns the number of slots.
func (b *Board) Size() int { return b.size }

// Valid reports whether slot addresses a slot on the board.
func (b *Board) Valid(slot int) bool {
	return slot >= 0 && slot < b.size
}

// Occupy places the target in slot, displacing any previous one, and
// returns the occupation sequence number.
func (b *Board) Occupy(slot int) uint64 {
	b.seq++
	b.occupied = slot
	return b.seq
}

// Occupied returns the occupied slot, if any.
func (b *Board) Occupied() (int, bool) {
	return b.occupied, b.occupied >= 0
}

// Current reports whether seq still identifies the live occupation.
func (b *Board) Current(seq uint64) bool {
	return b.occupied >= 0 && b.seq == seq
}

// Vacate empties the board and returns the slot that was occupied.
func (b *Board) Vacate() (int, bool) {
	slot, ok := b.Occupied()
	b.occupied = -1
	return slot, ok
}

// Slots returns the per-slot occupancy flags.
func (b *Board) Slots() []bool {
	out := make([]bool, b.size)
	if b.occupied >= 0 {
		out[b.occupied] = true
	}
	return out
}
