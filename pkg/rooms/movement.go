package rooms

// MoveResult is the movement authority's decision on one move request.
// On acceptance X and Y are the new position; on rejection they are the
// participant's unchanged current position, to be sent back as the
// correction.
type MoveResult struct {
	Accepted bool
	X        int
	Y        int
}

// ApplyMove validates a move request against the room's bounds and, if
// accepted, mutates the participant's position in place. The second
// return value is false when the user has no participant in the room,
// in which case the request is dropped without a correction.
//
// Clients are expected to send single-step cardinal moves, but the
// authority does not assume a step size: it revalidates absolute
// bounds regardless of how far the target is. Participants may share a
// cell; there is no occupancy check.
func (r *Room) ApplyMove(userID string, targetX, targetY int) (MoveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[userID]
	if !ok {
		return MoveResult{}, false
	}

	if targetX < 0 || targetX >= r.space.Width || targetY < 0 || targetY >= r.space.Height {
		return MoveResult{Accepted: false, X: p.X, Y: p.Y}, true
	}

	p.X = targetX
	p.Y = targetY
	return MoveResult{Accepted: true, X: targetX, Y: targetY}, true
}
