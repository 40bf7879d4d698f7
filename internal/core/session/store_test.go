package session

import (
	"sync"
	"testing"
	"time"
)

func TestGetOrCreateStartsIdle(t *testing.T) {
	store := NewStore()

	sess := store.GetOrCreate("evopoliki", "996555000001@c.us")
	if sess.State != StateIdle {
		t.Errorf("new session state = %q, want %q", sess.State, StateIdle)
	}
	if sess.ConversationID != "evopoliki:996555000001@c.us" {
		t.Errorf("conversation ID = %q", sess.ConversationID)
	}

	again := store.GetOrCreate("evopoliki", "996555000001@c.us")
	if again != sess {
		t.Error("second GetOrCreate returned a different session")
	}
	if store.Len() != 1 {
		t.Errorf("store has %d sessions, want 1", store.Len())
	}
}

func TestSessionsIsolatedPerTenant(t *testing.T) {
	store := NewStore()

	a := store.GetOrCreate("evopoliki", "996555000001@c.us")
	b := store.GetOrCreate("five_deluxe", "996555000001@c.us")
	if a == b {
		t.Fatal("same chat ID under two tenants must not share a session")
	}

	a.State = StateModelInput
	if b.State != StateIdle {
		t.Errorf("tenant B state changed to %q", b.State)
	}
}

func TestTryLockDropsSecondTurn(t *testing.T) {
	store := NewStore()
	key := Key("evopoliki", "996555000001@c.us")

	if !store.TryLock(key) {
		t.Fatal("first TryLock failed")
	}
	if store.TryLock(key) {
		t.Error("second TryLock succeeded while turn in flight")
	}

	store.Unlock(key)
	if !store.TryLock(key) {
		t.Error("TryLock failed after Unlock")
	}
}

func TestTryLockMutualExclusion(t *testing.T) {
	store := NewStore()
	key := Key("evopoliki", "996555000001@c.us")

	const turns = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired := 0
	active := 0

	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !store.TryLock(key) {
				return
			}
			mu.Lock()
			acquired++
			active++
			if active > 1 {
				t.Error("two turns inside the critical section")
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			store.Unlock(key)
		}()
	}
	wg.Wait()

	if acquired == 0 {
		t.Error("no goroutine ever acquired the lock")
	}
	if acquired == turns {
		t.Error("every goroutine acquired the lock, contention never dropped a turn")
	}
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	store := NewStore()

	old := store.GetOrCreate("evopoliki", "old@c.us")
	old.LastActivity = time.Now().Add(-time.Hour)
	store.GetOrCreate("evopoliki", "fresh@c.us")

	evicted := store.Sweep(30 * time.Minute)
	if evicted != 1 {
		t.Errorf("evicted = %d, want 1", evicted)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d sessions after sweep, want 1", store.Len())
	}

	// Evicted conversation starts over from idle
	recreated := store.GetOrCreate("evopoliki", "old@c.us")
	if recreated.State != StateIdle {
		t.Errorf("recreated session state = %q, want idle", recreated.State)
	}
}

func TestSweepKeepsInFlightSessions(t *testing.T) {
	store := NewStore()

	sess := store.GetOrCreate("evopoliki", "busy@c.us")
	sess.LastActivity = time.Now().Add(-time.Hour)
	store.TryLock(sess.ConversationID)

	if evicted := store.Sweep(30 * time.Minute); evicted != 0 {
		t.Errorf("evicted %d in-flight sessions", evicted)
	}

	store.Unlock(sess.ConversationID)
	if evicted := store.Sweep(30 * time.Minute); evicted != 1 {
		t.Errorf("evicted = %d after unlock, want 1", evicted)
	}
}

func TestResetFunnelClearsDraftAndThread(t *testing.T) {
	store := NewStore()

	sess := store.GetOrCreate("evopoliki", "996555000001@c.us")
	sess.State = StateContactPhone
	sess.Draft.Brand = "Toyota"
	sess.Draft.Options = map[string]bool{"with_borders": true}
	sess.ThreadID = "thread_abc"

	sess.ResetFunnel()

	if sess.State != StateMainMenu {
		t.Errorf("state = %q, want main_menu", sess.State)
	}
	if sess.Draft.Brand != "" || sess.Draft.Options != nil {
		t.Error("draft survived reset")
	}
	if sess.ThreadID != "" {
		t.Error("assistant thread survived reset")
	}
}

func TestResetDropsSession(t *testing.T) {
	store := NewStore()

	sess := store.GetOrCreate("evopoliki", "996555000001@c.us")
	sess.State = StateContactPhone
	sess.ThreadID = "thread_abc"

	store.Reset(sess.ConversationID)

	fresh := store.GetOrCreate("evopoliki", "996555000001@c.us")
	if fresh == sess {
		t.Fatal("got the dropped session back")
	}
	if fresh.State != StateIdle || fresh.ThreadID != "" {
		t.Errorf("fresh session carries old state: %q %q", fresh.State, fresh.ThreadID)
	}
}
