package graph

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNodeJSONRoundTrip(t *testing.T) {
	input := `{"id":"c1","label":"Acme s.r.o.","type":"company","ico":"12345678","country":"SK",
		"risk_score":7.5,"virtual_seat":true,"details":"d","founded":"2001","court":"Bratislava I","tags":["a","b"]}`

	var n Node
	if err := json.Unmarshal([]byte(input), &n); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if n.ID != "c1" || n.Label != "Acme s.r.o." || n.Type != NodeCompany {
		t.Errorf("modelled fields = %+v", n)
	}
	if n.Risk() != 7.5 {
		t.Errorf("Risk() = %v, want 7.5", n.Risk())
	}
	if n.VirtualSeat == nil || !*n.VirtualSeat {
		t.Error("VirtualSeat not decoded")
	}
	if n.Extra["court"] != "Bratislava I" {
		t.Errorf("Extra[court] = %v", n.Extra["court"])
	}

	out, err := json.Marshal(&n)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var want, got map[string]any
	if err := json.Unmarshal([]byte(input), &want); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("round trip mismatch:\n got: %v\nwant: %v", got, want)
	}
}

func TestNodeJSONNullsRoundTrip(t *testing.T) {
	input := `{"id":"c1","type":"company","risk_score":null,"virtual_seat":null,"ico":null,"label":null,"note":null}`

	var n Node
	if err := json.Unmarshal([]byte(input), &n); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if n.RiskScore != nil {
		t.Errorf("RiskScore = %v, want nil", *n.RiskScore)
	}
	if n.VirtualSeat != nil {
		t.Errorf("VirtualSeat = %v, want nil", *n.VirtualSeat)
	}

	out, err := json.Marshal(&n)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"risk_score", "virtual_seat", "ico", "label", "note"} {
		v, ok := got[key]
		if !ok || v != nil {
			t.Errorf("%s = %v (present %v), want null", key, v, ok)
		}
	}

	var absent Node
	if err := json.Unmarshal([]byte(`{"id":null,"type":null}`), &absent); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if absent.ID != "" || absent.Type != "" || len(absent.Extra) != 0 {
		t.Errorf("null id and type = %+v, want absent", absent)
	}
}

func TestNodeJSONLenientValues(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, n *Node)
	}{
		{
			name:  "numeric ico",
			input: `{"id":"x","ico":12345678}`,
			check: func(t *testing.T, n *Node) {
				if n.ICO != "12345678" {
					t.Errorf("ICO = %q", n.ICO)
				}
			},
		},
		{
			name:  "numeric id",
			input: `{"id":42}`,
			check: func(t *testing.T, n *Node) {
				if n.ID != "42" {
					t.Errorf("ID = %q", n.ID)
				}
			},
		},
		{
			name:  "risk score as string",
			input: `{"id":"x","risk_score":" 3.5 "}`,
			check: func(t *testing.T, n *Node) {
				if n.Risk() != 3.5 {
					t.Errorf("Risk() = %v", n.Risk())
				}
			},
		},
		{
			name:  "uninterpretable risk score kept as extra",
			input: `{"id":"x","risk_score":"high"}`,
			check: func(t *testing.T, n *Node) {
				if n.RiskScore != nil {
					t.Errorf("RiskScore = %v, want nil", *n.RiskScore)
				}
				if n.Extra["risk_score"] != "high" {
					t.Errorf("Extra[risk_score] = %v", n.Extra["risk_score"])
				}
			},
		},
		{
			name:  "absent risk score",
			input: `{"id":"x"}`,
			check: func(t *testing.T, n *Node) {
				if n.Risk() != 0 {
					t.Errorf("Risk() = %v, want 0", n.Risk())
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Node
			if err := json.Unmarshal([]byte(tt.input), &n); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			tt.check(t, &n)
		})
	}
}

func TestEdgeDefaultsToRelated(t *testing.T) {
	var frag Fragment
	input := `{"nodes":[],"edges":[{"source":"a","target":"b"},{"source":"b","target":"c","type":"OWNED_BY"}]}`
	if err := json.Unmarshal([]byte(input), &frag); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if frag.Edges[0].Type != EdgeRelated {
		t.Errorf("edge 0 type = %q, want RELATED", frag.Edges[0].Type)
	}
	if frag.Edges[1].Type != EdgeOwnedBy {
		t.Errorf("edge 1 type = %q, want OWNED_BY", frag.Edges[1].Type)
	}
}

func TestNormalizeNodeType(t *testing.T) {
	tests := map[string]NodeType{
		"company":   NodeCompany,
		"Person":    NodePerson,
		" address ": NodeAddress,
		"debt":      NodeDebt,
		"s.r.o.":    NodeCompany,
		"":          NodeCompany,
	}
	for in, want := range tests {
		if got := NormalizeNodeType(in); got != want {
			t.Errorf("NormalizeNodeType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEmptyFragmentMarshalsArrays(t *testing.T) {
	data, err := json.Marshal(NewFragment())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"nodes":[],"edges":[]}` {
		t.Errorf("Marshal(NewFragment()) = %s", data)
	}
}

func TestNewNodeIDDeterministic(t *testing.T) {
	a := NewNodeID("csv", "a.csv", "row:1")
	b := NewNodeID("csv", "a.csv", "row:1")
	c := NewNodeID("csv", "a.csv", "row:2")
	if a != b {
		t.Errorf("NewNodeID not deterministic: %s != %s", a, b)
	}
	if a == c {
		t.Error("NewNodeID collision for different keys")
	}
	if len(a) != 24 {
		t.Errorf("len(NewNodeID) = %d, want 24", len(a))
	}
}
