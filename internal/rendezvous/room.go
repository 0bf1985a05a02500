package rendezvous

// Room pairs the two peers of a watch session: the host who created it
// and the guest who joins to mirror playback.
type Room struct {
	// ID is the unique identifier for the room.
	ID string

	// Host is the client who created the room and drives playback.
	Host *Client

	// Guest is the client who joined the room.
	Guest *Client
}
