package calendar

// EventType は WebSocket に流すイベント種別
type EventType string

const (
	EventState        EventType = "state"
	EventConfetti     EventType = "confetti"
	EventWheelSpin    EventType = "wheel_spin"
	EventWheelSettled EventType = "wheel_settled"
)

type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// ConfettiData はビューに紙吹雪を1回出させる
type ConfettiData struct {
	PresentID string `json:"present_id"`
	Frames    int    `json:"frames"`
}

type WheelSettledData struct {
	PresentID string `json:"present_id"`
	Label     string `json:"label"`
	Index     int    `json:"index"`
}

// OnEvent registers a listener. Listeners run outside the controller lock
// and must not block or call back into the controller.
func (c *Controller) OnEvent(fn func(Event)) {
	if fn == nil {
		return
	}
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Controller) emit(ev Event) {
	c.listenersMu.RLock()
	listeners := make([]func(Event), len(c.listeners))
	copy(listeners, c.listeners)
	c.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
