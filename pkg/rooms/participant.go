package rooms

import "hash/fnv"

// participantColors is the display palette. A participant's color is
// assigned once when it is first observed in a room and stays stable
// for its lifetime there.
var participantColors = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEEAD",
	"#D4A5A5", "#9B59B6", "#3498DB", "#E67E22", "#1ABC9C",
}

// Participant represents one user's authoritative presence in a room.
type Participant struct {
	UserID string
	X      int
	Y      int
	Color  string
}

func colorForUser(userID string) string {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return participantColors[h.Sum32()%uint32(len(participantColors))]
}
