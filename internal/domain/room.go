// Package domain contains entity without logic, just meta-data
package domain

const (
	MaxRoomIDLen   = 64
	MaxRoomNameLen = 64
)

type (
	RoomID   string
	RoomName string
)

type Room struct {
	ID   RoomID   `json:"id"`
	Name RoomName `json:"name"`
}

// NewRoom is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewRoom(id RoomID, name RoomName) (*Room, error) {
	if len(id) == 0 {
		return nil, ErrRoomIDEmpty
	}
	if len(id) > MaxRoomIDLen {
		return nil, ErrRoomIDTooLong
	}
	// truncate on a rune boundary; names are display strings
	if runes := []rune(name); len(runes) > MaxRoomNameLen {
		name = RoomName(runes[:MaxRoomNameLen])
	}
	return &Room{ID: id, Name: name}, nil
}
