package spaces

// Space holds the metadata for one shared grid space. Width and
// height are the grid bounds; positions satisfy 0 <= x < Width and
// 0 <= y < Height.
type Space struct {
	ID        string
	Name      string
	Width     int
	Height    int
	CreatorID string
	MapID     string
	Thumbnail string
}

type ErrNotFound struct {
}

func (e *ErrNotFound) Error() string {
	return "not found"
}

func IsNotFound(err error) bool {
	_, ok := err.(*ErrNotFound)
	return ok
}
