package chat

import (
	"reflect"
	"testing"
	"time"

	"github.com/chatline/chatline/fault"
)

func TestCanonicalParticipants(t *testing.T) {
	tests := []struct {
		name     string
		ids      []string
		expected []string
		wantErr  bool
	}{
		{name: "sorted pair", ids: []string{"b", "a"}, expected: []string{"a", "b"}},
		{name: "already sorted", ids: []string{"a", "b"}, expected: []string{"a", "b"}},
		{name: "duplicates removed", ids: []string{"a", "b", "a", "b"}, expected: []string{"a", "b"}},
		{name: "blanks dropped", ids: []string{"a", " ", "", "b"}, expected: []string{"a", "b"}},
		{name: "trimmed", ids: []string{" a ", "b"}, expected: []string{"a", "b"}},
		{name: "group", ids: []string{"c", "a", "b"}, expected: []string{"a", "b", "c"}},
		{name: "single id", ids: []string{"a", "a"}, wantErr: true},
		{name: "empty", ids: nil, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := CanonicalParticipants(test.ids)
			if test.wantErr {
				if err == nil {
					t.Errorf("CanonicalParticipants(%v) = %v; want error", test.ids, got)
				} else if fault.KindOf(err) != fault.KindInvalid {
					t.Errorf("error kind = %v; want invalid", fault.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("CanonicalParticipants(%v): %v", test.ids, err)
			}
			if !reflect.DeepEqual(got, test.expected) {
				t.Errorf("CanonicalParticipants(%v) = %v; want %v", test.ids, got, test.expected)
			}
		})
	}
}

// Any permutation of the same participant set must resolve to the same
// conversation id, so two users opening the same chat converge on one
// document.
func TestConversationIDOrderIndependent(t *testing.T) {
	permutations := [][]string{
		{"alice", "bob"},
		{"bob", "alice"},
		{"bob", "alice", "alice"},
		{" alice ", "bob"},
	}

	var first string
	for i, ids := range permutations {
		canonical, err := CanonicalParticipants(ids)
		if err != nil {
			t.Fatalf("CanonicalParticipants(%v): %v", ids, err)
		}
		id := ConversationID(canonical)
		if i == 0 {
			first = id
			continue
		}
		if id != first {
			t.Errorf("ConversationID(%v) = %q; want %q", ids, id, first)
		}
	}
}

func TestConversationIDDistinctSets(t *testing.T) {
	a, _ := CanonicalParticipants([]string{"alice", "bob"})
	b, _ := CanonicalParticipants([]string{"alice", "carol"})
	if ConversationID(a) == ConversationID(b) {
		t.Error("distinct participant sets produced the same conversation id")
	}
}

// Guards against naive concatenation: {"ab","c"} and {"a","bc"} must
// not collide.
func TestConversationIDBoundaries(t *testing.T) {
	a, _ := CanonicalParticipants([]string{"ab", "c"})
	b, _ := CanonicalParticipants([]string{"a", "bc"})
	if ConversationID(a) == ConversationID(b) {
		t.Error("participant boundary collision")
	}
}

func TestConversationIDFormat(t *testing.T) {
	canonical, _ := CanonicalParticipants([]string{"alice", "bob"})
	id := ConversationID(canonical)
	if len(id) != conversationIDLen {
		t.Errorf("id length = %d; want %d", len(id), conversationIDLen)
	}
}

func TestChronological(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	newestFirst := []Message{
		{ID: "m3", Text: "three", CreatedAt: t0.Add(2 * time.Minute)},
		{ID: "m2", Text: "two", CreatedAt: t0.Add(time.Minute)},
		{ID: "m1", Text: "one", CreatedAt: t0},
	}

	got := Chronological(newestFirst)

	expected := []string{"m1", "m2", "m3"}
	for i, id := range expected {
		if got[i].ID != id {
			t.Errorf("position %d = %s; want %s", i, got[i].ID, id)
		}
	}
	// input untouched
	if newestFirst[0].ID != "m3" {
		t.Error("Chronological mutated its input")
	}
}

func TestChronologicalTieBreak(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	msgs := []Message{
		{ID: "b", CreatedAt: t0},
		{ID: "a", CreatedAt: t0},
	}

	got := Chronological(msgs)
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("tie not broken by id: %v, %v", got[0].ID, got[1].ID)
	}
}
