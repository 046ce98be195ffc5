// Package channel provides helpers over channels.
package channel

import "time"

// Debounce forwards the last event received from events once no other event
// arrived for duration. The output channel is closed after events is closed
// and the pending event, if any, has been flushed.
func Debounce[T any](events <-chan T, duration time.Duration) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		timer := time.NewTimer(duration)
		if !timer.Stop() {
			<-timer.C
		}
		var last T
		pending := false
		for {
			select {
			case event, ok := <-events:
				if !ok {
					timer.Stop()
					if pending {
						out <- last
					}
					return
				}
				last = event
				pending = true
				timer.Reset(duration)
			case <-timer.C:
				if pending {
					pending = false
					out <- last
				}
			}
		}
	}()
	return out
}
