package focus

import (
	"context"
	"errors"
	"testing"

	"github.com/sadopc/flow/internal/store"
)

func newTestAchievements(user string) (*Achievements, *fakeGateway) {
	gw := newFakeGateway()
	return NewAchievements(gw, fixedUser(user), discardLogger()), gw
}

func TestEvaluateQueuesUnlocksOnce(t *testing.T) {
	a, gw := newTestAchievements("user-1")
	ctx := context.Background()
	gw.unlocks = []store.Achievement{{ID: "a1", UserID: "user-1", Type: store.AchievementFirstSession}}

	got, err := a.Evaluate(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Type != store.AchievementFirstSession {
		t.Fatalf("unexpected unlocks: %+v", got)
	}
	if a.UnseenCount() != 1 {
		t.Fatalf("unseen = %d, want 1", a.UnseenCount())
	}
	if len(a.All()) != len(store.Catalog()) {
		t.Fatal("catalog not refreshed after an unlock")
	}

	modal := a.TakeUnlocked()
	if len(modal) != 1 || modal[0].ID != "a1" {
		t.Fatalf("TakeUnlocked = %+v", modal)
	}
	if again := a.TakeUnlocked(); len(again) != 0 {
		t.Fatalf("unlock surfaced twice: %+v", again)
	}
}

func TestEvaluateWithoutUnlocksSkipsRefresh(t *testing.T) {
	a, gw := newTestAchievements("user-1")
	got, err := a.Evaluate(context.Background(), "user-1")
	if err != nil || len(got) != 0 {
		t.Fatalf("Evaluate = (%+v, %v)", got, err)
	}
	if n := gw.count("GetUnseenAchievementsCount"); n != 0 {
		t.Fatalf("unseen refreshed %d times without unlocks", n)
	}
}

func TestEvaluateFailureRecorded(t *testing.T) {
	a, gw := newTestAchievements("user-1")
	gw.setFail("CheckAndUnlockAchievements", errBoom)
	if _, err := a.Evaluate(context.Background(), "user-1"); !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}
	if !errors.Is(a.Err(), errBoom) {
		t.Fatalf("Err() = %v", a.Err())
	}
}

func TestEvaluateEmptyUserIsNoop(t *testing.T) {
	a, gw := newTestAchievements("")
	if _, err := a.Evaluate(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if n := gw.count("CheckAndUnlockAchievements"); n != 0 {
		t.Fatalf("gateway called %d times", n)
	}
}

func TestMarkSeen(t *testing.T) {
	a, gw := newTestAchievements("user-1")
	ctx := context.Background()
	gw.unseen = 3
	a.RefreshUnseen(ctx)
	if a.UnseenCount() != 3 {
		t.Fatalf("unseen = %d, want 3", a.UnseenCount())
	}

	if err := a.MarkSeen(ctx); err != nil {
		t.Fatal(err)
	}
	if a.UnseenCount() != 0 {
		t.Fatalf("unseen after mark = %d, want 0", a.UnseenCount())
	}
	if n := gw.count("CheckAndUnlockAchievements"); n != 0 {
		t.Fatalf("MarkSeen evaluated unlocks %d times", n)
	}
}

func TestMarkSeenWithoutUser(t *testing.T) {
	a, _ := newTestAchievements("")
	if err := a.MarkSeen(context.Background()); !errors.Is(err, ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}
}

func TestAchievementsHandle(t *testing.T) {
	a, gw := newTestAchievements("user-1")
	ctx := context.Background()
	a.Handle(ctx, SessionPersisted{UserID: "user-1"})
	a.Handle(ctx, TaskToggled{UserID: "owner-9"})

	if len(gw.checkedFor) != 2 || gw.checkedFor[0] != "user-1" || gw.checkedFor[1] != "owner-9" {
		t.Fatalf("evaluated for %v", gw.checkedFor)
	}
}
