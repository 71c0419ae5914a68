package snapsync

import "testing"

func TestTrackerAccumulates(t *testing.T) {
	tr := NewTracker()
	tr.Start()

	tr.RecordAccounts(10, 1000)
	tr.RecordAccounts(5, 500)
	tr.RecordStorage(3, 300)
	tr.RecordBytecode(200)
	tr.RecordBytecode(50)
	tr.RecordHeal(2, 1)

	p := tr.Snapshot()
	if p.AccountsDone != 15 {
		t.Errorf("AccountsDone: got %d want 15", p.AccountsDone)
	}
	if p.AccountBytes != 1500 {
		t.Errorf("AccountBytes: got %d want 1500", p.AccountBytes)
	}
	if p.StorageSlots != 3 || p.StorageBytes != 300 {
		t.Errorf("storage counters: got slots=%d bytes=%d", p.StorageSlots, p.StorageBytes)
	}
	if p.BytecodesDone != 2 || p.BytecodeBytes != 250 {
		t.Errorf("bytecode counters: got done=%d bytes=%d", p.BytecodesDone, p.BytecodeBytes)
	}
	if p.HealNodesDone != 2 || p.HealNodesFailed != 1 {
		t.Errorf("heal counters: got done=%d failed=%d", p.HealNodesDone, p.HealNodesFailed)
	}
	if p.BytesTotal() != 1500+300+250 {
		t.Errorf("BytesTotal: got %d", p.BytesTotal())
	}
	if p.Phase != PhaseAccounts {
		t.Errorf("Phase: got %v want %v", p.Phase, PhaseAccounts)
	}
	if p.Elapsed() < 0 {
		t.Errorf("Elapsed should be non-negative")
	}
}

func TestTrackerPhaseTransitions(t *testing.T) {
	tr := NewTracker()
	tr.Start()
	tr.SetPhase(PhaseStorage)
	if tr.Snapshot().Phase != PhaseStorage {
		t.Fatalf("expected PhaseStorage")
	}
	tr.SetPhase(PhaseHealing)
	if tr.Snapshot().Phase != PhaseHealing {
		t.Fatalf("expected PhaseHealing")
	}
	tr.SetPhase(PhaseComplete)
	if tr.Snapshot().Phase != PhaseComplete {
		t.Fatalf("expected PhaseComplete")
	}
}

func TestZeroTrackerElapsedIsZero(t *testing.T) {
	tr := NewTracker()
	if tr.Snapshot().Elapsed() != 0 {
		t.Errorf("expected zero elapsed before Start")
	}
}
