package arbiter

import "encoding/json"

// legacyInfo is the JSON-shaped info file an older build could have left
// behind. ParseLegacyInfo is read-only: this package never writes this
// format (Open Questions §1 — plain-text is authoritative). Check does not
// call it; it prints a peer's info file verbatim whatever its format.
type legacyInfo struct {
	NodeID string   `json:"nodeid"`
	Relay  string   `json:"relay"`
	IPs    []string `json:"ip"`
}

// ParseLegacyInfo accepts the older JSON-shaped info file, converting it
// to the same TransportLine ordering a plain-text file would have
// produced: nodeid, then relay, then each ip line, in that fixed order
// since the legacy format carried no per-transport readiness ordering.
func ParseLegacyInfo(b []byte) ([]TransportLine, error) {
	var li legacyInfo
	if err := json.Unmarshal(b, &li); err != nil {
		return nil, err
	}
	var lines []TransportLine
	if li.NodeID != "" {
		lines = append(lines, NodeIDLine(li.NodeID))
	}
	if li.Relay != "" {
		lines = append(lines, RelayLine(li.Relay))
	}
	for _, ip := range li.IPs {
		lines = append(lines, IPLine(ip))
	}
	return lines, nil
}
