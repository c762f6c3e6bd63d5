// Package chat finds-or-creates conversations and moves messages
// through them. All state lives in the backend document store; this
// layer only shapes queries and writes.
package chat

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chatline/chatline/auth"
	"github.com/chatline/chatline/contract"
	"github.com/chatline/chatline/directory"
	"github.com/chatline/chatline/fault"
	"github.com/chatline/chatline/logger"
	"github.com/chatline/chatline/preview"
	"github.com/chatline/chatline/stream"
)

const (
	chatsCollection    = "chats"
	messagesCollection = "messages"

	createdAtField   = "createdAt"
	updatedAtField   = "updatedAt"
	lastMessageField = "lastMessage"

	// maxMessageRunes bounds a single message body.
	maxMessageRunes = 4096
	// snippetRunes bounds the last-message summary.
	snippetRunes = 120

	systemSenderID   = "system"
	systemSenderName = "System"
	createdNotice    = "Chat created"
)

type Conversation struct {
	ID               string
	Participants     []string
	ParticipantNames map[string]string
	LastMessage      *LastMessage
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type LastMessage struct {
	Text     string
	SenderID string
	SentAt   time.Time
}

type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	SenderName     string
	Text           string
	System         bool
	CreatedAt      time.Time
}

// Service is bound to one authenticated session; the session is
// injected, never looked up ambiently.
type Service struct {
	fs      *firestore.Client
	dir     *directory.Directory
	session *auth.Session
}

func NewService(fs *firestore.Client, dir *directory.Directory, session *auth.Session) *Service {
	return &Service{fs: fs, dir: dir, session: session}
}

// GetOrCreate resolves the conversation for the given participants,
// creating it on first use. The caller is always included. Creation is
// idempotent: the deterministic document id means a concurrent creator
// losing the Create race just reads the winner's document.
func (s *Service) GetOrCreate(ctx context.Context, participants []string) (Conversation, error) {
	const op = "chat.getorcreate"
	canonical, err := CanonicalParticipants(append([]string{s.session.UID}, participants...))
	if err != nil {
		return Conversation{}, err
	}
	id := ConversationID(canonical)
	ref := s.fs.Collection(chatsCollection).Doc(id)

	snap, err := ref.Get(ctx)
	if err == nil {
		return conversationFromDoc(snap)
	}
	if status.Code(err) != codes.NotFound {
		return Conversation{}, fault.FromRPC(op, err)
	}

	doc := contract.FirestoreConversation{
		Participants:     canonical,
		ParticipantNames: s.participantNames(ctx, canonical),
	}
	if _, err := ref.Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			snap, err := ref.Get(ctx)
			if err != nil {
				return Conversation{}, fault.FromRPC(op, err)
			}
			return conversationFromDoc(snap)
		}
		return Conversation{}, fault.FromRPC(op, err)
	}

	// Operator-visible birth record. Best effort: the conversation is
	// usable even if this write fails.
	if _, err := s.append(ctx, id, systemSenderID, systemSenderName, createdNotice, true); err != nil {
		logger.FromContext(ctx).Printf("system message for %s not written: %v", id, err)
	}

	snap, err = ref.Get(ctx)
	if err != nil {
		return Conversation{}, fault.FromRPC(op, err)
	}
	return conversationFromDoc(snap)
}

// participantNames snapshots display names at creation time; they are
// not kept live afterwards. Unresolvable profiles get the placeholder.
func (s *Service) participantNames(ctx context.Context, canonical []string) map[string]string {
	names := make(map[string]string, len(canonical))
	for _, uid := range canonical {
		p, err := s.dir.GetProfile(ctx, uid)
		if err != nil {
			names[uid] = directory.PlaceholderName(uid)
			continue
		}
		names[uid] = p.DisplayName
	}
	return names
}

// Send appends a message and then refreshes the conversation's
// last-message summary. The two writes are separate, not a transaction;
// a crash in between leaves a stale summary, which is acceptable for a
// display hint.
func (s *Service) Send(ctx context.Context, conversationID, text string) error {
	const op = "chat.send"
	text = preview.Normalize(text)
	if text == "" {
		return fault.Errorf(fault.KindInvalid, op, "empty message")
	}
	if len([]rune(text)) > maxMessageRunes {
		return fault.Errorf(fault.KindInvalid, op, "message exceeds %d characters", maxMessageRunes)
	}

	ref := s.fs.Collection(chatsCollection).Doc(conversationID)
	if _, err := ref.Get(ctx); err != nil {
		return fault.FromRPC(op, err)
	}

	senderName := directory.PlaceholderName(s.session.UID, s.session.DisplayName)
	if _, err := s.append(ctx, conversationID, s.session.UID, senderName, text, false); err != nil {
		return err
	}

	_, err := ref.Set(ctx, map[string]any{
		updatedAtField: firestore.ServerTimestamp,
		lastMessageField: map[string]any{
			"text":     preview.Snippet(text, snippetRunes),
			"senderId": s.session.UID,
			"sentAt":   firestore.ServerTimestamp,
		},
	}, firestore.MergeAll)
	return fault.FromRPC(op, err)
}

func (s *Service) append(ctx context.Context, conversationID, senderID, senderName, text string, system bool) (string, error) {
	id := uuid.NewString()
	doc := contract.FirestoreMessage{
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
		System:     system,
	}
	_, err := s.fs.Collection(chatsCollection).
		Doc(conversationID).
		Collection(messagesCollection).
		Doc(id).
		Create(ctx, doc)
	if err != nil {
		return "", fault.FromRPC("chat.append", err)
	}
	return id, nil
}

// SubscribeMessages delivers the conversation's messages newest-first
// (creation time descending, document id breaking ties) on every
// backend change. limit > 0 bounds the window; 0 means unbounded.
func (s *Service) SubscribeMessages(ctx context.Context, conversationID string, limit int) *stream.Stream[Message] {
	q := s.fs.Collection(chatsCollection).
		Doc(conversationID).
		Collection(messagesCollection).
		OrderBy(createdAtField, firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return stream.Listen(ctx, q, func(doc *firestore.DocumentSnapshot) (Message, bool, error) {
		var fm contract.FirestoreMessage
		if err := doc.DataTo(&fm); err != nil {
			return Message{}, false, fault.E(fault.KindUnknown, "chat.subscribe", err)
		}
		return Message{
			ID:             doc.Ref.ID,
			ConversationID: conversationID,
			SenderID:       fm.SenderID,
			SenderName:     fm.SenderName,
			Text:           fm.Text,
			System:         fm.System,
			CreatedAt:      fm.CreatedAt,
		}, true, nil
	})
}

// SubscribeConversations delivers the caller's conversations, most
// recently updated first.
func (s *Service) SubscribeConversations(ctx context.Context) *stream.Stream[Conversation] {
	q := s.fs.Collection(chatsCollection).
		Where("participants", "array-contains", s.session.UID).
		OrderBy(updatedAtField, firestore.Desc)
	return stream.Listen(ctx, q, func(doc *firestore.DocumentSnapshot) (Conversation, bool, error) {
		conv, err := conversationFromDoc(doc)
		if err != nil {
			return Conversation{}, false, err
		}
		return conv, true, nil
	})
}

func conversationFromDoc(snap *firestore.DocumentSnapshot) (Conversation, error) {
	var fc contract.FirestoreConversation
	if err := snap.DataTo(&fc); err != nil {
		return Conversation{}, fault.E(fault.KindUnknown, "chat.decode", err)
	}
	conv := Conversation{
		ID:               snap.Ref.ID,
		Participants:     fc.Participants,
		ParticipantNames: fc.ParticipantNames,
		CreatedAt:        fc.CreatedAt,
		UpdatedAt:        fc.UpdatedAt,
	}
	if fc.LastMessage != nil {
		conv.LastMessage = &LastMessage{
			Text:     fc.LastMessage.Text,
			SenderID: fc.LastMessage.SenderID,
			SentAt:   fc.LastMessage.SentAt,
		}
	}
	return conv, nil
}

// Chronological reorders a newest-first feed for oldest-at-top
// rendering. The sort is by creation time ascending with the id
// breaking ties, matching the feed's ordering contract inverted.
func Chronological(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
