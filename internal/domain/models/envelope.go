package models

// Game protocol event names, both directions.
const (
	EventConnection = "connection"
	EventStart      = "start"
	EventState      = "state"
	EventPuzzle     = "puzzle"
	EventTrade      = "trade"
	EventSkip       = "skip"
	EventEnd        = "end"
	EventFinish     = "finish"
)

// Envelope is the wire frame exchanged with the game server: a named event
// plus a flat data object. Inbound payloads are read with the lookup
// helpers below; keys the server omits fall back to defaults.
type Envelope struct {
	Event    string         `json:"event"`
	PlayerID string         `json:"player_id"`
	Data     map[string]any `json:"data"`
}

// Float returns data[key] as a float64, or def when the key is absent or
// not numeric.
func (e *Envelope) Float(key string, def float64) float64 {
	switch n := e.Data[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

// Int returns data[key] as an int, or def when the key is absent or not
// numeric. JSON numbers decode as float64 and are truncated.
func (e *Envelope) Int(key string, def int) int {
	switch n := e.Data[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return def
	}
}

// Str returns data[key] as a string, or "" when absent.
func (e *Envelope) Str(key string) string {
	s, _ := e.Data[key].(string)
	return s
}

// NewHello builds the handshake announcement for one session.
func NewHello(alias, playerID, token string) *Envelope {
	return &Envelope{
		Event: EventConnection,
		Data: map[string]any{
			"alias":     alias,
			"player_id": playerID,
			"token":     token,
		},
	}
}

// NewStart builds the begin-play command sent after the handshake ack.
func NewStart(playerID string) *Envelope {
	return &Envelope{
		Event: EventStart,
		Data:  map[string]any{"player_id": playerID},
	}
}

// NewTrade builds a trade command; positive volume buys, negative sells.
func NewTrade(playerID string, volume int) *Envelope {
	return &Envelope{
		Event:    EventTrade,
		PlayerID: playerID,
		Data:     map[string]any{"volume": volume},
	}
}

// NewSkip builds the command that advances past a puzzle.
func NewSkip() *Envelope {
	return &Envelope{Event: EventSkip, Data: map[string]any{}}
}
