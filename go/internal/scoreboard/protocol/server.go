package protocol

// Counters carries the full counter mapping
type Counters struct {
	Type   Type             `json:"type"`
	Values map[string]int64 `json:"values"`
}

// Notice is a bare envelope with no payload, such as pong or the reset announcement
type Notice struct {
	Type Type `json:"type"`
}

// NewCounters wraps a counter snapshot. A nil map is sent as an empty object.
func NewCounters(values map[string]int64) Counters {
	if values == nil {
		values = map[string]int64{}
	}
	return Counters{Type: TypeCounters, Values: values}
}

func ResetNotice() Notice { return Notice{Type: TypeResetCounters} }

func Pong() Notice { return Notice{Type: TypePong} }
