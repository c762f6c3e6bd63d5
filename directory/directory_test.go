package directory

import (
	"reflect"
	"testing"

	"cloud.google.com/go/firestore"

	"github.com/chatline/chatline/contract"
)

func TestPlaceholderName(t *testing.T) {
	tests := []struct {
		name       string
		uid        string
		candidates []string
		expected   string
	}{
		{name: "candidate wins", uid: "abcdefghij", candidates: []string{"Alice"}, expected: "Alice"},
		{name: "blank candidate skipped", uid: "abcdefghij", candidates: []string{"   ", "Bob"}, expected: "Bob"},
		{name: "no candidates", uid: "abcdefghij", expected: "user-abcdefgh"},
		{name: "short uid", uid: "ab", expected: "user-ab"},
		{name: "empty everything", uid: "", expected: "user-"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := PlaceholderName(test.uid, test.candidates...)
			if got != test.expected {
				t.Errorf("PlaceholderName(%q, %v) = %q; want %q", test.uid, test.candidates, got, test.expected)
			}
			if got == "" {
				t.Error("PlaceholderName returned empty string")
			}
		})
	}
}

func TestProfileFromDoc(t *testing.T) {
	fp := contract.FirestoreProfile{
		Email:              "a@example.com",
		Anonymous:          true,
		DeviceFingerprints: []string{"fp1-aa"},
	}

	p := profileFromDoc("uid-12345678", fp)

	expected := Profile{
		ID:                 "uid-12345678",
		DisplayName:        "user-uid-1234",
		Email:              "a@example.com",
		Anonymous:          true,
		DeviceFingerprints: []string{"fp1-aa"},
	}
	if !reflect.DeepEqual(p, expected) {
		t.Errorf("profileFromDoc = %+v; want %+v", p, expected)
	}
}

func TestProfileFromDocKeepsName(t *testing.T) {
	p := profileFromDoc("uid-1", contract.FirestoreProfile{DisplayName: "Alice"})
	if p.DisplayName != "Alice" {
		t.Errorf("DisplayName = %q; want Alice", p.DisplayName)
	}
}

func TestVisibleProfileExcludesCaller(t *testing.T) {
	docs := []struct {
		id string
		fp contract.FirestoreProfile
	}{
		{id: "uid-alice", fp: contract.FirestoreProfile{DisplayName: "Alice"}},
		{id: "uid-me", fp: contract.FirestoreProfile{DisplayName: "Me"}},
		{id: "uid-bob", fp: contract.FirestoreProfile{DisplayName: "Bob"}},
		{id: "uid-anon", fp: contract.FirestoreProfile{Anonymous: true}},
	}

	var visible []string
	for _, doc := range docs {
		p, ok := visibleProfile(doc.id, "uid-me", doc.fp)
		if !ok {
			continue
		}
		if p.ID == "uid-me" {
			t.Fatal("caller's own profile marked visible")
		}
		if p.DisplayName == "" {
			t.Errorf("profile %s has empty display name", p.ID)
		}
		visible = append(visible, p.ID)
	}

	expected := []string{"uid-alice", "uid-bob", "uid-anon"}
	if !reflect.DeepEqual(visible, expected) {
		t.Errorf("visible profiles = %v; want %v", visible, expected)
	}
}

func TestProfileUpdateData(t *testing.T) {
	tests := []struct {
		name       string
		uid        string
		update     ProfileUpdate
		newProfile bool
		expected   map[string]any
	}{
		{
			name:       "new anonymous profile gets placeholder",
			uid:        "uid-12345678",
			update:     ProfileUpdate{Anonymous: true, Fingerprint: "fp1-aa"},
			newProfile: true,
			expected: map[string]any{
				"anonymous":          true,
				"lastActiveAt":       firestore.ServerTimestamp,
				"displayName":        "user-uid-1234",
				"deviceFingerprints": firestore.ArrayUnion("fp1-aa"),
			},
		},
		{
			name:   "existing profile keeps its name",
			uid:    "uid-1",
			update: ProfileUpdate{Fingerprint: "fp1-aa"},
			expected: map[string]any{
				"anonymous":          false,
				"lastActiveAt":       firestore.ServerTimestamp,
				"deviceFingerprints": firestore.ArrayUnion("fp1-aa"),
			},
		},
		{
			name:   "provided name always written",
			uid:    "uid-1",
			update: ProfileUpdate{DisplayName: "Alice", Email: "a@example.com"},
			expected: map[string]any{
				"anonymous":    false,
				"lastActiveAt": firestore.ServerTimestamp,
				"displayName":  "Alice",
				"email":        "a@example.com",
			},
		},
		{
			name:   "no fingerprint means no array transform",
			uid:    "uid-1",
			update: ProfileUpdate{AvatarURL: "https://example.com/a.png"},
			expected: map[string]any{
				"anonymous":    false,
				"lastActiveAt": firestore.ServerTimestamp,
				"avatarUrl":    "https://example.com/a.png",
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := profileUpdateData(test.uid, test.update, test.newProfile)
			if !reflect.DeepEqual(got, test.expected) {
				t.Errorf("profileUpdateData = %v; want %v", got, test.expected)
			}
		})
	}
}
