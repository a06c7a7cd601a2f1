package trafficsignal

import "testing"

func TestDutyCycleOffMsecRequiredOutputs(t *testing.T) {
	cases := []struct {
		lf   int
		want int64
	}{
		{75, 6667},
		{150, 60000},
		{200, 60000},
		{74, 0},
	}
	for _, c := range cases {
		got := DutyCycleOffMsec(c.lf)
		if got != c.want {
			t.Errorf("DutyCycleOffMsec(%d) = %d, want %d", c.lf, got, c.want)
		}
	}
}

func TestShuttingDownAlwaysDisallows(t *testing.T) {
	s := New()
	allow, reason := s.ShouldAllowTrafficAt(0, Inputs{Health: true, ShuttingDown: true})
	if allow || reason != ReasonShuttingDown {
		t.Fatalf("got (%v, %v)", allow, reason)
	}
}

func TestUnhealthyDisallows(t *testing.T) {
	s := New()
	allow, reason := s.ShouldAllowTrafficAt(0, Inputs{Health: false})
	if allow || reason != ReasonUnhealthy {
		t.Fatalf("got (%v, %v)", allow, reason)
	}
}

func TestColdStartAllowsImmediately(t *testing.T) {
	s := New()
	allow, reason := s.ShouldAllowTrafficAt(0, Inputs{Health: true, LoadFactor: 0})
	if !allow || reason != ReasonAllowedOn {
		t.Fatalf("got (%v, %v)", allow, reason)
	}
}

func TestHysteresisKeepsOnDuringForceWindow(t *testing.T) {
	s := New()
	s.ShouldAllowTrafficAt(0, Inputs{Health: true, LoadFactor: 200})
	allow, reason := s.ShouldAllowTrafficAt(1000, Inputs{Health: true, LoadFactor: 200})
	if !allow || reason != ReasonForcedOn {
		t.Fatalf("got (%v, %v)", allow, reason)
	}
}

func TestHeavyLoadTurnsOffAfterForceWindow(t *testing.T) {
	s := New()
	s.ShouldAllowTrafficAt(0, Inputs{Health: true, LoadFactor: 200})
	allow, reason := s.ShouldAllowTrafficAt(MinOnMsec, Inputs{Health: true, LoadFactor: 200})
	if allow || reason != ReasonDutyCycleOff {
		t.Fatalf("got (%v, %v)", allow, reason)
	}
}

func TestLowLoadStaysOnPastForceWindow(t *testing.T) {
	s := New()
	s.ShouldAllowTrafficAt(0, Inputs{Health: true, LoadFactor: 10})
	allow, reason := s.ShouldAllowTrafficAt(MinOnMsec, Inputs{Health: true, LoadFactor: 10})
	if !allow || reason != ReasonUnderLoad {
		t.Fatalf("got (%v, %v)", allow, reason)
	}
}

func TestOffWaitsUntilAllowAt(t *testing.T) {
	s := New()
	s.ShouldAllowTrafficAt(0, Inputs{Health: true, LoadFactor: 200})
	s.ShouldAllowTrafficAt(MinOnMsec, Inputs{Health: true, LoadFactor: 200}) // turns off, allowAt = MinOnMsec+60000
	allow, reason := s.ShouldAllowTrafficAt(MinOnMsec+1, Inputs{Health: true, LoadFactor: 200})
	if allow || reason != ReasonWaitingOff {
		t.Fatalf("got (%v, %v)", allow, reason)
	}
}

func TestNowGoingBackwardsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	s := New()
	s.ShouldAllowTrafficAt(100, Inputs{Health: true})
	s.ShouldAllowTrafficAt(50, Inputs{Health: true})
}
