package contract

import "time"

// FirestoreProfile is the users/{uid} document.
type FirestoreProfile struct {
	DisplayName        string    `firestore:"displayName"`
	Email              string    `firestore:"email,omitempty"`
	AvatarURL          string    `firestore:"avatarUrl,omitempty"`
	Anonymous          bool      `firestore:"anonymous"`
	LastActiveAt       time.Time `firestore:"lastActiveAt,serverTimestamp"`
	DeviceFingerprints []string  `firestore:"deviceFingerprints"`
}

// FirestoreConversation is the chats/{chatID} document. Participants is
// the canonical (deduplicated, sorted) id set; ParticipantNames is a
// display-name snapshot captured at creation, not kept live.
type FirestoreConversation struct {
	Participants     []string              `firestore:"participants"`
	ParticipantNames map[string]string     `firestore:"participantNames"`
	LastMessage      *FirestoreLastMessage `firestore:"lastMessage,omitempty"`
	CreatedAt        time.Time             `firestore:"createdAt,serverTimestamp"`
	UpdatedAt        time.Time             `firestore:"updatedAt,serverTimestamp"`
}

type FirestoreLastMessage struct {
	Text     string    `firestore:"text"`
	SenderID string    `firestore:"senderId"`
	SentAt   time.Time `firestore:"sentAt,serverTimestamp"`
}

// FirestoreMessage is a chats/{chatID}/messages/{messageID} document.
// Messages are append-only and never mutated after creation.
type FirestoreMessage struct {
	SenderID   string    `firestore:"senderId"`
	SenderName string    `firestore:"senderName"`
	Text       string    `firestore:"text"`
	System     bool      `firestore:"system,omitempty"`
	CreatedAt  time.Time `firestore:"createdAt,serverTimestamp"`
}
