package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// JSON keys of the modelled node fields.
const (
	keyID          = "id"
	keyLabel       = "label"
	keyType        = "type"
	keyICO         = "ico"
	keyCountry     = "country"
	keyRiskScore   = "risk_score"
	keyVirtualSeat = "virtual_seat"
	keyDetails     = "details"
	keyFounded     = "founded"
)

// IsNodeKey reports whether key is one of the modelled node fields.
func IsNodeKey(key string) bool {
	switch key {
	case keyID, keyLabel, keyType, keyICO, keyCountry, keyRiskScore, keyVirtualSeat, keyDetails, keyFounded:
		return true
	}
	return false
}

// MarshalJSON flattens the modelled fields and Extra into one object.
func (n *Node) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(n.Extra)+9)
	for k, v := range n.Extra {
		m[k] = v
	}
	m[keyID] = n.ID
	m[keyType] = n.Type
	if n.Label != "" {
		m[keyLabel] = n.Label
	}
	if n.ICO != "" {
		m[keyICO] = n.ICO
	}
	if n.Country != "" {
		m[keyCountry] = n.Country
	}
	if n.RiskScore != nil {
		m[keyRiskScore] = *n.RiskScore
	}
	if n.VirtualSeat != nil {
		m[keyVirtualSeat] = *n.VirtualSeat
	}
	if n.Details != "" {
		m[keyDetails] = n.Details
	}
	if n.Founded != "" {
		m[keyFounded] = n.Founded
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads the modelled fields and keeps everything else in Extra.
// Values of a modelled key that cannot be interpreted are kept in Extra verbatim.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode node: %w", err)
	}
	*n = Node{}
	for k, v := range raw {
		if !n.setField(k, v) {
			val, err := decodeAny(v)
			if err != nil {
				return fmt.Errorf("decode node field %q: %w", k, err)
			}
			n.SetExtra(k, val)
		}
	}
	return nil
}

// SetField assigns a decoded value to the matching node field, or to Extra.
func (n *Node) SetField(key string, value any) {
	data, err := json.Marshal(value)
	if err == nil && n.setField(key, data) {
		return
	}
	n.SetExtra(key, value)
}

// setField reports false for values that belong in Extra. A null id or type
// reads as absent since both are always written back; other nulls stay in
// Extra so they round-trip as null.
func (n *Node) setField(key string, raw json.RawMessage) bool {
	if isNull(raw) {
		return key == keyID || key == keyType
	}
	switch key {
	case keyID:
		return decodeText(raw, &n.ID)
	case keyLabel:
		return decodeText(raw, &n.Label)
	case keyType:
		var s string
		if !decodeText(raw, &s) {
			return false
		}
		n.Type = NodeType(s)
		return true
	case keyICO:
		return decodeText(raw, &n.ICO)
	case keyCountry:
		return decodeText(raw, &n.Country)
	case keyDetails:
		return decodeText(raw, &n.Details)
	case keyFounded:
		return decodeText(raw, &n.Founded)
	case keyRiskScore:
		f, ok := decodeFloat(raw)
		if ok {
			n.RiskScore = &f
		}
		return ok
	case keyVirtualSeat:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return false
		}
		n.VirtualSeat = &b
		return true
	}
	return false
}

// UnmarshalJSON defaults a missing edge type to RELATED.
func (e *Edge) UnmarshalJSON(data []byte) error {
	type plain Edge
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode edge: %w", err)
	}
	*e = Edge(p)
	e.Type = NormalizeEdgeType(e.Type)
	return nil
}

// decodeText accepts JSON strings and numbers (registry numbers are often numeric in exports).
func decodeText(raw json.RawMessage, dst *string) bool {
	trimmed := bytes.TrimSpace(raw)
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		*dst = s
		return true
	}
	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err == nil {
		*dst = num.String()
		return true
	}
	return false
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeFloat(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func decodeAny(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
