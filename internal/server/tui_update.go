// ABOUTME: TUI update helpers for server
// ABOUTME: Functions to send server state updates to TUI
package server

// status builds the current server state for the TUI
func (s *Server) status() ServerStatus {
	listeners := s.Listeners()
	infos := make([]ListenerInfo, 0, len(listeners))
	for _, l := range listeners {
		infos = append(infos, ListenerInfo{
			Remote:    l.Remote,
			Transport: l.Transport,
			Sent:      l.Sent(),
		})
	}

	return ServerStatus{
		Name:      s.config.Name,
		Port:      s.config.Port,
		Listeners: infos,
		Tone:      s.toneName(),
		StartTime: s.startTime,
	}
}

// updateTUI sends current server state to TUI
func (s *Server) updateTUI() {
	if s.tui == nil {
		return
	}
	s.tui.Update(s.status())
}
