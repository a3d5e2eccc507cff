package registry

import "testing"

type fakeConn struct {
	sent   []interface{}
	closed bool
	failOn bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	if f.failOn {
		return errTest
	}
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

type testError string

func (e testError) Error() string { return string(e) }

var errTest = testError("write failed")

func TestRegisterAndIsConnected(t *testing.T) {
	r := New()
	if r.IsConnected("alice") {
		t.Fatal("expected alice to not be connected before registration")
	}

	conn := &fakeConn{}
	handle := r.Register("alice", conn)
	if !r.IsConnected("alice") {
		t.Fatal("expected alice to be connected after registration")
	}

	r.Unregister("alice", handle)
	if r.IsConnected("alice") {
		t.Fatal("expected alice to be disconnected after unregistering last socket")
	}
}

func TestMultipleSocketsPerUser(t *testing.T) {
	r := New()
	conn1 := &fakeConn{}
	conn2 := &fakeConn{}
	h1 := r.Register("bob", conn1)
	h2 := r.Register("bob", conn2)

	r.Unregister("bob", h1)
	if !r.IsConnected("bob") {
		t.Fatal("expected bob to stay connected while one socket remains")
	}
	r.Unregister("bob", h2)
	if r.IsConnected("bob") {
		t.Fatal("expected bob to be disconnected once all sockets are gone")
	}
}

func TestSend_DeliversToAllSockets(t *testing.T) {
	r := New()
	conn1 := &fakeConn{}
	conn2 := &fakeConn{}
	r.Register("carol", conn1)
	r.Register("carol", conn2)

	errs := r.Send("carol", map[string]string{"type": "gameState"})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(conn1.sent) != 1 || len(conn2.sent) != 1 {
		t.Fatal("expected message delivered to both sockets")
	}
}
