package rooms

import (
	"sort"
	"testing"
)

func TestRooms_JoinAndOthers(t *testing.T) {
	r := New()

	r.Join("r", "x")
	r.Join("r", "y")
	r.Join("r", "z")

	got := r.Others("r", "x")
	sort.Strings(got)
	if len(got) != 2 || got[0] != "y" || got[1] != "z" {
		t.Fatalf("Others(r, x) = %v, want [y z]", got)
	}
}

func TestRooms_JoinIsIdempotent(t *testing.T) {
	r := New()

	r.Join("r", "x")
	r.Join("r", "x")

	rooms, memberships := r.Stats()
	if rooms != 1 || memberships != 1 {
		t.Fatalf("Stats() = %d rooms, %d memberships; want 1, 1", rooms, memberships)
	}
}

func TestRooms_MultipleRoomsPerConnection(t *testing.T) {
	r := New()

	r.Join("a", "x")
	r.Join("b", "x")
	r.Join("b", "y")

	if got := r.Others("a", "y"); len(got) != 1 || got[0] != "x" {
		t.Fatalf("Others(a, y) = %v, want [x]", got)
	}
	if got := r.Others("b", "x"); len(got) != 1 || got[0] != "y" {
		t.Fatalf("Others(b, x) = %v, want [y]", got)
	}
}

func TestRooms_DropClearsAllMemberships(t *testing.T) {
	r := New()

	r.Join("a", "x")
	r.Join("b", "x")
	r.Join("b", "y")

	r.Drop("x")

	if got := r.Others("a", "y"); len(got) != 0 {
		t.Fatalf("Others(a, y) = %v after drop, want empty", got)
	}
	rooms, memberships := r.Stats()
	if rooms != 1 || memberships != 1 {
		t.Fatalf("Stats() = %d rooms, %d memberships after drop; want 1, 1", rooms, memberships)
	}

	// Dropping an unknown connection is a no-op.
	r.Drop("nope")
}

func TestRooms_UnknownRoomHasNoMembers(t *testing.T) {
	r := New()
	if got := r.Others("missing", "x"); got != nil {
		t.Fatalf("Others(missing, x) = %v, want nil", got)
	}
}
