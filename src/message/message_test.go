package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

// asMap re-reads an encoded line with encoding/json so that tests compare
// structure rather than key order.
func asMap(t *testing.T, line []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(line, &m); err != nil {
		t.Fatalf("encoded line is not JSON: %v (%s)", err, line)
	}
	return m
}

func TestDecodeWireShapes(t *testing.T) {
	cases := []struct {
		protocol *Protocol
		line     string
		want     *Envelope
	}{
		{
			InitProtocol,
			`{"src":"c1","dest":"n1","body":{"type":"init","msg_id":1,"node_id":"n1","node_ids":["n1","n2","n3"]}}`,
			NewEnvelope("c1", "n1", Body{MsgID: ID(1), Payload: Init{NodeID: "n1", NodeIDs: []string{"n1", "n2", "n3"}}}),
		},
		{
			BroadcastProtocol,
			`{"src":"c1","dest":"n1","body":{"type":"broadcast","msg_id":7,"message":123}}`,
			NewEnvelope("c1", "n1", Body{MsgID: ID(7), Payload: Broadcast{Message: 123}}),
		},
		{
			BroadcastProtocol,
			`{"src":"n2","dest":"n1","body":{"type":"broadcast","message":-4}}`,
			NewEnvelope("n2", "n1", Body{Payload: Broadcast{Message: -4}}),
		},
		{
			BroadcastProtocol,
			`{"src":"n1","dest":"c1","body":{"type":"read_ok","msg_id":3,"in_reply_to":2,"messages":[1,2,3]}}`,
			NewEnvelope("n1", "c1", Body{MsgID: ID(3), InReplyTo: ID(2), Payload: ReadOk{Messages: []int{1, 2, 3}}}),
		},
		{
			BroadcastProtocol,
			`{"src":"c1","dest":"n1","body":{"type":"topology","msg_id":4,"topology":{"n1":["n2","n3"],"n2":["n1"]}}}`,
			NewEnvelope("c1", "n1", Body{MsgID: ID(4), Payload: Topology{Topology: map[string][]string{
				"n1": {"n2", "n3"},
				"n2": {"n1"},
			}}}),
		},
		{
			BroadcastProtocol,
			`{"src":"c1","dest":"n1","body":{"type":"read","msg_id":9,"extra":"ignored"}}`,
			NewEnvelope("c1", "n1", Body{MsgID: ID(9), Payload: Read{}}),
		},
		{
			EchoProtocol,
			`{"src":"c1","dest":"n1","body":{"type":"echo","msg_id":1,"echo":"hello\nworld"}}`,
			NewEnvelope("c1", "n1", Body{MsgID: ID(1), Payload: Echo{Echo: "hello\nworld"}}),
		},
		{
			UniqueIDProtocol,
			`{"src":"c1","dest":"n1","body":{"type":"generate","msg_id":null}}`,
			NewEnvelope("c1", "n1", Body{Payload: Generate{}}),
		},
	}

	for _, c := range cases {
		got, err := c.protocol.Decode([]byte(c.line))
		if err != nil {
			t.Fatalf("Decode(%s): %v", c.line, err)
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Fatalf("Decode(%s) = %#v, want %#v", c.line, got, c.want)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name  string
		line  string
		want  error
		field string
	}{
		{"not json", `this is not json`, ErrMalformed, ""},
		{"truncated", `{"src":"c1","dest":"n1","body":{"type":"read"`, ErrMalformed, ""},
		{"missing src", `{"dest":"n1","body":{"type":"read","msg_id":1}}`, ErrMissingField, "src"},
		{"missing dest", `{"src":"c1","body":{"type":"read","msg_id":1}}`, ErrMissingField, "dest"},
		{"missing body", `{"src":"c1","dest":"n1"}`, ErrMissingField, "body"},
		{"missing type", `{"src":"c1","dest":"n1","body":{"msg_id":1}}`, ErrMissingField, "type"},
		{"unknown type", `{"src":"c1","dest":"n1","body":{"type":"echo","msg_id":1,"echo":"x"}}`, ErrUnknownType, ""},
		{"missing value", `{"src":"c1","dest":"n1","body":{"type":"broadcast","msg_id":1}}`, ErrMissingField, "message"},
		{"null value", `{"src":"c1","dest":"n1","body":{"type":"broadcast","msg_id":1,"message":null}}`, ErrMissingField, "message"},
		{"missing topology", `{"src":"c1","dest":"n1","body":{"type":"topology","msg_id":1}}`, ErrMissingField, "topology"},
		{"negative msg_id", `{"src":"c1","dest":"n1","body":{"type":"read","msg_id":-1}}`, ErrMalformed, "msg_id"},
		{"non-string type", `{"src":"c1","dest":"n1","body":{"type":3}}`, ErrMalformed, "type"},
		{"two objects", `{"src":"c1","dest":"n1","body":{"type":"read","msg_id":1}}{"src":"c1","dest":"n1","body":{"type":"read","msg_id":2}}`, ErrMalformed, ""},
		{"trailing garbage", `{"src":"c1","dest":"n1","body":{"type":"read","msg_id":1}} garbage`, ErrMalformed, ""},
		{"top-level list", `[1,2]`, ErrMalformed, ""},
		{"top-level number", `5`, ErrMalformed, ""},
		{"top-level string", `"read"`, ErrMalformed, ""},
		{"body not an object", `{"src":"c1","dest":"n1","body":[1]}`, ErrMalformed, "body"},
		{"numeric src", `{"src":1,"dest":"n1","body":{"type":"read","msg_id":1}}`, ErrMalformed, "src"},
		{"numeric dest", `{"src":"c1","dest":2,"body":{"type":"read","msg_id":1}}`, ErrMalformed, "dest"},
		{"string message", `{"src":"c1","dest":"n1","body":{"type":"broadcast","msg_id":1,"message":"5"}}`, ErrMalformed, "message"},
		{"fractional message", `{"src":"c1","dest":"n1","body":{"type":"broadcast","msg_id":1,"message":5.5}}`, ErrMalformed, "message"},
		{"string msg_id", `{"src":"c1","dest":"n1","body":{"type":"read","msg_id":"1"}}`, ErrMalformed, "msg_id"},
		{"string in_reply_to", `{"src":"n1","dest":"c1","body":{"type":"read_ok","in_reply_to":"1","messages":[]}}`, ErrMalformed, "in_reply_to"},
		{"messages not a list", `{"src":"n1","dest":"c1","body":{"type":"read_ok","messages":5}}`, ErrMalformed, "messages"},
		{"string in messages", `{"src":"n1","dest":"c1","body":{"type":"read_ok","messages":[1,"2"]}}`, ErrMalformed, "messages"},
		{"topology as list", `{"src":"c1","dest":"n1","body":{"type":"topology","msg_id":1,"topology":[]}}`, ErrMalformed, "topology"},
		{"topology neighbour ids", `{"src":"c1","dest":"n1","body":{"type":"topology","msg_id":1,"topology":{"n1":[2]}}}`, ErrMalformed, "topology"},
	}

	for _, c := range cases {
		_, err := BroadcastProtocol.Decode([]byte(c.line))
		if err == nil {
			t.Fatalf("%s: expected an error", c.name)
		}
		if !errors.Is(err, c.want) {
			t.Fatalf("%s: error %v does not wrap %v", c.name, err, c.want)
		}
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("%s: error %T is not a *DecodeError", c.name, err)
		}
		if de.Field != c.field {
			t.Fatalf("%s: field = %q, want %q", c.name, de.Field, c.field)
		}
	}
}

func TestDecodeFieldKinds(t *testing.T) {
	cases := []struct {
		protocol *Protocol
		line     string
		field    string
	}{
		{InitProtocol, `{"src":"c1","dest":"n1","body":{"type":"init","msg_id":1,"node_id":7,"node_ids":["n1"]}}`, "node_id"},
		{InitProtocol, `{"src":"c1","dest":"n1","body":{"type":"init","msg_id":1,"node_id":"n1","node_ids":"n1"}}`, "node_ids"},
		{EchoProtocol, `{"src":"c1","dest":"n1","body":{"type":"echo","msg_id":1,"echo":5}}`, "echo"},
		{UniqueIDProtocol, `{"src":"n1","dest":"c1","body":{"type":"generate_ok","in_reply_to":1,"id":42}}`, "id"},
	}

	for _, c := range cases {
		_, err := c.protocol.Decode([]byte(c.line))
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("Decode(%s): error %v does not wrap %v", c.line, err, ErrMalformed)
		}
		var de *DecodeError
		if !errors.As(err, &de) || de.Field != c.field {
			t.Fatalf("Decode(%s): error %v, want field %q", c.line, err, c.field)
		}
	}

	// Fields a variant does not read keep any shape.
	line := `{"src":"c1","dest":"n1","body":{"type":"read","msg_id":1,"message":"not read"}}`
	if _, err := BroadcastProtocol.Decode([]byte(line)); err != nil {
		t.Fatalf("Decode(%s): %v", line, err)
	}

	// Whitespace after the object is not trailing data.
	line = "{\"src\":\"c1\",\"dest\":\"n1\",\"body\":{\"type\":\"read\",\"msg_id\":1}} \t\r"
	if _, err := BroadcastProtocol.Decode([]byte(line)); err != nil {
		t.Fatalf("Decode(%q): %v", line, err)
	}
}

func TestEncodeReplyShapes(t *testing.T) {
	req := NewEnvelope("c1", "n1", Body{MsgID: ID(5), Payload: Read{}})
	reply := req.Reply(12, ReadOk{Messages: []int{3, 1}})

	line, err := Encode(reply)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.ContainsAny(line, "\n\r") {
		t.Fatalf("encoded line contains a newline: %q", line)
	}

	want := map[string]interface{}{
		"src":  "n1",
		"dest": "c1",
		"body": map[string]interface{}{
			"type":        "read_ok",
			"msg_id":      float64(12),
			"in_reply_to": float64(5),
			"messages":    []interface{}{float64(3), float64(1)},
		},
	}
	if got := asMap(t, line); !reflect.DeepEqual(got, want) {
		t.Fatalf("encoded %s\n got %#v\nwant %#v", line, got, want)
	}
}

func TestEncodeOmitsUnsetCorrelation(t *testing.T) {
	fanout := NewEnvelope("n1", "n2", Body{Payload: Broadcast{Message: 7}})

	line, err := Encode(fanout)
	if err != nil {
		t.Fatal(err)
	}

	body := asMap(t, line)["body"].(map[string]interface{})
	if _, ok := body["msg_id"]; ok {
		t.Fatalf("fan-out message carries msg_id: %s", line)
	}
	if _, ok := body["in_reply_to"]; ok {
		t.Fatalf("fan-out message carries in_reply_to: %s", line)
	}
	if body["type"] != "broadcast" || body["message"] != float64(7) {
		t.Fatalf("unexpected body: %s", line)
	}
}

func TestEncodeInitOkKeepsZeroID(t *testing.T) {
	env := NewEnvelope("n1", "c1", Body{MsgID: ID(0), InReplyTo: ID(1), Payload: InitOk{}})

	line, err := Encode(env)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]interface{}{
		"type":        "init_ok",
		"msg_id":      float64(0),
		"in_reply_to": float64(1),
	}
	if got := asMap(t, line)["body"]; !reflect.DeepEqual(got, want) {
		t.Fatalf("init_ok body = %#v, want %#v", got, want)
	}
}

func TestEncodeEmptyCollections(t *testing.T) {
	line, err := Encode(NewEnvelope("n1", "c1", Body{MsgID: ID(1), InReplyTo: ID(1), Payload: ReadOk{}}))
	if err != nil {
		t.Fatal(err)
	}
	body := asMap(t, line)["body"].(map[string]interface{})
	if msgs, ok := body["messages"].([]interface{}); !ok || len(msgs) != 0 {
		t.Fatalf("empty read_ok should carry messages: [], got %s", line)
	}

	// An empty list must still decode as present.
	env, err := BroadcastProtocol.Decode(line)
	if err != nil {
		t.Fatalf("decoding %s: %v", line, err)
	}
	if _, ok := env.Body.Payload.(ReadOk); !ok {
		t.Fatalf("decoded %T, want ReadOk", env.Body.Payload)
	}
}

func TestEncodeDecodeTopology(t *testing.T) {
	topo := map[string][]string{"n1": {"n2", "n3"}, "n2": {}, "n3": {"n1"}}
	line, err := Encode(NewEnvelope("c1", "n1", Body{MsgID: ID(2), Payload: Topology{Topology: topo}}))
	if err != nil {
		t.Fatal(err)
	}

	env, err := BroadcastProtocol.Decode(line)
	if err != nil {
		t.Fatal(err)
	}
	got := env.Body.Payload.(Topology).Topology
	if len(got) != 3 || !reflect.DeepEqual(got["n1"], topo["n1"]) || !reflect.DeepEqual(got["n3"], topo["n3"]) {
		t.Fatalf("topology = %#v, want %#v", got, topo)
	}
	if len(got["n2"]) != 0 {
		t.Fatalf("n2 should have no neighbours, got %v", got["n2"])
	}
}

func TestEncodeWithoutPayload(t *testing.T) {
	if _, err := Encode(NewEnvelope("n1", "c1", Body{})); err == nil {
		t.Fatal("expected an error for an envelope without payload")
	}
}

func TestReplyWithoutRequestID(t *testing.T) {
	req := NewEnvelope("n2", "n1", Body{Payload: Broadcast{Message: 1}})
	reply := req.Reply(4, BroadcastOk{})

	if reply.Src != "n1" || reply.Dest != "n2" {
		t.Fatalf("reply routed %s -> %s", reply.Src, reply.Dest)
	}
	if _, ok := reply.InReplyTo(); ok {
		t.Fatal("reply to an unnumbered request should not set in_reply_to")
	}
	if id, ok := reply.MsgID(); !ok || id != 4 {
		t.Fatalf("reply msg_id = %d,%v want 4,true", id, ok)
	}
}

func TestRoute(t *testing.T) {
	src, dest, err := Route([]byte(`{"src":"n1","dest":"n2","body":{"type":"whatever"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if src != "n1" || dest != "n2" {
		t.Fatalf("Route = %s,%s want n1,n2", src, dest)
	}

	if _, _, err := Route([]byte(`{"src":"n1","body":{}}`)); !errors.Is(err, ErrMissingField) {
		t.Fatalf("Route without dest: %v", err)
	}

	for _, line := range []string{
		`{"src":"n1","dest":2,"body":{}}`,
		`{"src":"n1","dest":"n2","body":{}} {"src":"n1","dest":"n3","body":{}}`,
		`["n1","n2"]`,
	} {
		if _, _, err := Route([]byte(line)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Route(%s): error %v does not wrap %v", line, err, ErrMalformed)
		}
	}
}

func TestMergeProtocols(t *testing.T) {
	p := Merge("client", InitProtocol, BroadcastProtocol)
	for _, typ := range []string{"init", "init_ok", "broadcast", "read_ok", "topology_ok"} {
		if !p.Has(typ) {
			t.Fatalf("merged protocol is missing %q", typ)
		}
	}
	if p.Has("echo") {
		t.Fatal("merged protocol should not know echo")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("merging overlapping protocols should panic")
		}
	}()
	Merge("dup", BroadcastProtocol, BroadcastProtocol)
}

func TestProtocolTypes(t *testing.T) {
	want := []string{"echo", "echo_ok"}
	if got := EchoProtocol.Types(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Types() = %v, want %v", got, want)
	}
}
