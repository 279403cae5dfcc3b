package rtc

import (
	"fmt"

	"github.com/dkeye/Pairline/internal/config"
	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
)

// ICEServers validates the configured STUN/TURN entries and converts them to
// the form clients receive in the joined event.
func ICEServers(in []config.ICEServer) ([]webrtc.ICEServer, error) {
	out := make([]webrtc.ICEServer, 0, len(in))
	for i, s := range in {
		if len(s.URLs) == 0 {
			return nil, fmt.Errorf("ice server %d: no urls", i)
		}
		for _, raw := range s.URLs {
			uri, err := stun.ParseURI(raw)
			if err != nil {
				return nil, fmt.Errorf("ice server %d: %q: %w", i, raw, err)
			}
			if isTURN(uri) && (s.Username == "" || s.Credential == "") {
				return nil, fmt.Errorf("ice server %d: %q: turn needs username and credential", i, raw)
			}
		}
		srv := webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" {
			srv.Username = s.Username
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out, nil
}

func isTURN(uri *stun.URI) bool {
	return uri.Scheme == stun.SchemeTypeTURN || uri.Scheme == stun.SchemeTypeTURNS
}
