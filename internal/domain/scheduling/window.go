package scheduling

import (
	"fmt"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Window is the daily operating window split into fixed-width slots. Closes
// is exclusive: the last slot starts at least Step before it.
type Window struct {
	Opens  time.Duration
	Closes time.Duration
	Step   time.Duration
}

// NewWindow parses "HH:MM" bounds and a slot width in minutes.
func NewWindow(opens, closes string, slotMinutes int) (Window, error) {
	o, err := parseClock(opens)
	if err != nil {
		return Window{}, fmt.Errorf("opens at: %w", err)
	}
	c, err := parseClock(closes)
	if err != nil {
		return Window{}, fmt.Errorf("closes at: %w", err)
	}
	step := time.Duration(slotMinutes) * time.Minute
	if o >= c {
		return Window{}, fmt.Errorf("window opens at %s but closes at %s", opens, closes)
	}
	if step <= 0 || step > c-o {
		return Window{}, fmt.Errorf("slot width %d minutes does not fit the window", slotMinutes)
	}
	return Window{Opens: o, Closes: c, Step: step}, nil
}

// DefaultWindow is 08:00 to 17:00 in hourly slots.
func DefaultWindow() Window {
	return Window{Opens: 8 * time.Hour, Closes: 17 * time.Hour, Step: time.Hour}
}

// Slots lists slot start times in chronological order.
func (w Window) Slots() []string {
	var out []string
	for t := w.Opens; t+w.Step <= w.Closes; t += w.Step {
		out = append(out, formatClock(t))
	}
	return out
}

// Aligned reports whether hhmm is the start of one of the window's slots.
func (w Window) Aligned(hhmm string) bool {
	t, err := parseClock(hhmm)
	if err != nil {
		return false
	}
	return t >= w.Opens && t+w.Step <= w.Closes && (t-w.Opens)%w.Step == 0
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func formatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}
