package lifecycle

import "testing"

func TestMachine_InitialStateIsCreated(t *testing.T) {
	t.Parallel()

	m := New()
	if m.Current() != Created {
		t.Errorf("Current() = %v, want Created", m.Current())
	}
}

func TestMachine_TransitionToFailsWhenNotInFromState(t *testing.T) {
	t.Parallel()

	m := New()
	if m.TransitionTo(Ready, ShuttingDown) {
		t.Error("TransitionTo(Ready, ShuttingDown) = true from Created, want false")
	}
	if m.Current() != Created {
		t.Errorf("Current() = %v, want unchanged Created", m.Current())
	}
}

func TestMachine_FullServerLifecycle(t *testing.T) {
	t.Parallel()

	m := New()

	if !m.AllowRequest(DirectionServerInbound, "initialize") {
		t.Fatal("initialize should be allowed in Created")
	}
	if m.AllowRequest(DirectionServerInbound, "tools/list") {
		t.Fatal("tools/list should not be allowed in Created")
	}

	if !m.TransitionTo(Created, Initializing) {
		t.Fatal("Created -> Initializing should succeed")
	}
	if m.AllowRequest(DirectionServerInbound, "tools/list") {
		t.Fatal("tools/list should not be allowed in Initializing")
	}

	if !m.TransitionTo(Initializing, Ready) {
		t.Fatal("Initializing -> Ready should succeed")
	}
	if !m.AllowRequest(DirectionServerInbound, "tools/list") {
		t.Fatal("tools/list should be allowed in Ready")
	}

	m.ForceShutdown()
	if m.AllowRequest(DirectionServerInbound, "tools/list") {
		t.Fatal("tools/list should not be allowed in ShuttingDown")
	}
}

func TestMachine_ForceShutdownIsUnconditional(t *testing.T) {
	t.Parallel()

	m := New()
	m.ForceShutdown()
	if m.Current() != ShuttingDown {
		t.Errorf("Current() = %v, want ShuttingDown", m.Current())
	}
}

func TestMachine_ClientInboundOnlySamplingInReady(t *testing.T) {
	t.Parallel()

	m := New()
	m.TransitionTo(Created, Initializing)
	m.TransitionTo(Initializing, Ready)

	if !m.AllowRequest(DirectionClientInbound, "sampling/createMessage") {
		t.Error("sampling/createMessage should be allowed on a Ready client")
	}
}
