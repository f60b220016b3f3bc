// Package session turns inbound realtime events into matchmaking and game
// operations and fans the results out to room members. It knows nothing
// about the wire; the transport supplies Conn and Rooms.
package session

import "github.com/mcoot/battleship-go/internal/model"

// Conn is one connected client
type Conn interface {
	ID() string
	PlayerID() model.PlayerID
	DisplayName() string

	// Send queues an outbound event for this connection only
	Send(event string, payload any) error
}

// Rooms tracks which connections belong to which room
type Rooms interface {
	Join(room model.RoomID, conn Conn)
	InRoom(room model.RoomID, conn Conn) bool

	// Broadcast sends to every connection in the room
	Broadcast(room model.RoomID, event string, payload any)
	// BroadcastOthers sends to every connection in the room except conn
	BroadcastOthers(room model.RoomID, conn Conn, event string, payload any)
}
