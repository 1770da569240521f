package net

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/mosaicnetworks/relay/src/broadcast"
	"github.com/mosaicnetworks/relay/src/echo"
	"github.com/mosaicnetworks/relay/src/message"
	"github.com/mosaicnetworks/relay/src/node"
)

const timeout = 2 * time.Second

func TestEchoRPC(t *testing.T) {
	network := NewInmemNetwork(node.TestConfig(t))
	defer network.Close()

	if err := network.Spawn("n1", []string{"n1"}, message.EchoProtocol, echo.Factory); err != nil {
		t.Fatal(err)
	}

	client, err := network.Client("c1", message.EchoProtocol)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		text := fmt.Sprintf("hello %d", i)
		reply, err := client.RPC("n1", message.Echo{Echo: text}, timeout)
		if err != nil {
			t.Fatal(err)
		}

		ok, isEchoOk := reply.Body.Payload.(message.EchoOk)
		if !isEchoOk || ok.Echo != text {
			t.Fatalf("expected echo_ok %q, got %s %v", text, reply.Type(), reply.Body.Payload)
		}
		if id, _ := reply.MsgID(); id != uint64(i+1) {
			t.Fatalf("reply %d should have msg_id %d, not %d", i, i+1, id)
		}
	}
}

func TestSpawnDuplicate(t *testing.T) {
	network := NewInmemNetwork(node.TestConfig(t))
	defer network.Close()

	if err := network.Spawn("n1", []string{"n1"}, message.EchoProtocol, echo.Factory); err != nil {
		t.Fatal(err)
	}
	if err := network.Spawn("n1", []string{"n1"}, message.EchoProtocol, echo.Factory); err == nil {
		t.Fatalf("spawning n1 twice should fail")
	}
	if _, err := network.Client(ControlID, message.EchoProtocol); err == nil {
		t.Fatalf("the control address should be taken")
	}
}

func TestUnknownDestination(t *testing.T) {
	network := NewInmemNetwork(node.TestConfig(t))
	defer network.Close()

	client, err := network.Client("c1", message.EchoProtocol)
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.RPC("nowhere", message.Echo{Echo: "x"}, 50*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestFanOutToClient(t *testing.T) {
	network := NewInmemNetwork(node.TestConfig(t))
	defer network.Close()

	factory := broadcast.NewHandlerFactory(broadcast.NewInmemStore(true))
	if err := network.Spawn("n1", []string{"n1"}, message.BroadcastProtocol, factory); err != nil {
		t.Fatal(err)
	}

	client, err := network.Client("c1", message.BroadcastProtocol)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.RPC("n1", message.Topology{Topology: map[string][]string{"n1": {"c1"}}}, timeout); err != nil {
		t.Fatal(err)
	}
	if _, err := client.RPC("n1", message.Broadcast{Message: 3}, timeout); err != nil {
		t.Fatal(err)
	}

	// the fan-out is written before the reply, so it is already routed
	inbox := client.Inbox()
	if len(inbox) != 1 {
		t.Fatalf("expected 1 message in the inbox, got %d", len(inbox))
	}
	if b, ok := inbox[0].Body.Payload.(message.Broadcast); !ok || b.Message != 3 {
		t.Fatalf("expected broadcast 3, got %s %v", inbox[0].Type(), inbox[0].Body.Payload)
	}
	if _, ok := inbox[0].MsgID(); ok {
		t.Fatalf("fan-out should not carry a msg_id")
	}
}

func TestBroadcastCluster(t *testing.T) {
	for _, kind := range []broadcast.TopologyKind{broadcast.Line, broadcast.Ring, broadcast.Tree} {
		testBroadcastCluster(t, kind)
	}
}

func testBroadcastCluster(t *testing.T, kind broadcast.TopologyKind) {
	network := NewInmemNetwork(node.TestConfig(t))
	defer network.Close()

	ids := []string{"n1", "n2", "n3", "n4", "n5"}
	for _, id := range ids {
		factory := broadcast.NewHandlerFactory(broadcast.NewInmemStore(true))
		if err := network.Spawn(id, ids, message.BroadcastProtocol, factory); err != nil {
			t.Fatal(err)
		}
	}

	if !reflect.DeepEqual(network.Nodes(), ids) {
		t.Fatalf("nodes should be %v, not %v", ids, network.Nodes())
	}

	client, err := network.Client("c1", message.BroadcastProtocol)
	if err != nil {
		t.Fatal(err)
	}

	topology := kind.Build(ids)
	for _, id := range ids {
		reply, err := client.RPC(id, message.Topology{Topology: topology}, timeout)
		if err != nil {
			t.Fatal(err)
		}
		if reply.Type() != "topology_ok" {
			t.Fatalf("expected topology_ok, got %s", reply.Type())
		}
	}

	expected := []int{}
	for v := 0; v < 10; v++ {
		if _, err := client.RPC(ids[v%len(ids)], message.Broadcast{Message: v}, timeout); err != nil {
			t.Fatal(err)
		}
		expected = append(expected, v)
	}

	deadline := time.Now().Add(timeout)
	for _, id := range ids {
		for {
			reply, err := client.RPC(id, message.Read{}, timeout)
			if err != nil {
				t.Fatal(err)
			}
			values := append([]int{}, reply.Body.Payload.(message.ReadOk).Messages...)
			sort.Ints(values)
			if reflect.DeepEqual(values, expected) {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("%s topology: %s did not converge, has %v", kind, id, values)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	if err := network.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestMailbox(t *testing.T) {
	mb := newMailbox()
	for i := 0; i < 3; i++ {
		if !mb.put([]byte{byte('a' + i)}) {
			t.Fatalf("put on an open mailbox should succeed")
		}
	}
	mb.close()

	if mb.put([]byte("d")) {
		t.Fatalf("put on a closed mailbox should fail")
	}

	got := ""
	for {
		line, ok := mb.get()
		if !ok {
			break
		}
		got += string(line)
	}
	if got != "abc" {
		t.Fatalf("queued lines should drain in order, got %q", got)
	}
}
