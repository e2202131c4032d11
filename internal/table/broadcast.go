package table

import "errors"

// live returns the actors whose connection is still open, in order.
func live(actors []*Actor) []*Actor {
	out := make([]*Actor, 0, len(actors))
	for _, a := range actors {
		if a.Alive() {
			out = append(out, a)
		}
	}
	return out
}

// send delivers text to a single actor.
func (s *Session) send(a *Actor, text string) {
	if err := a.Send(text); err != nil && !errors.Is(err, ErrNotConnected) {
		s.logger.Warn().Err(err).Str("actor", a.ID).Str("message", text).Msg("Failed to send message")
	}
}

// broadcast delivers text to every live actor in actors.
func (s *Session) broadcast(actors []*Actor, text string) {
	for _, a := range live(actors) {
		s.send(a, text)
	}
}
