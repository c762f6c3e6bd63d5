package chatline

import (
	"context"
	"strings"
	"testing"

	"github.com/chatline/chatline/fault"
)

func TestRequiresSession(t *testing.T) {
	c := &Client{}

	if _, err := c.Chats(); fault.KindOf(err) != fault.KindAuth {
		t.Errorf("Chats before sign-in: kind = %v; want auth", fault.KindOf(err))
	}
	if _, err := c.SubscribeContacts(context.Background()); fault.KindOf(err) != fault.KindAuth {
		t.Errorf("SubscribeContacts before sign-in: kind = %v; want auth", fault.KindOf(err))
	}
	if err := c.Refresh(context.Background()); fault.KindOf(err) != fault.KindAuth {
		t.Errorf("Refresh before sign-in: kind = %v; want auth", fault.KindOf(err))
	}
	if err := c.UpdateProfile(context.Background(), "Alice", ""); fault.KindOf(err) != fault.KindAuth {
		t.Errorf("UpdateProfile before sign-in: kind = %v; want auth", fault.KindOf(err))
	}
	if _, err := c.SetAvatar(context.Background(), strings.NewReader("png"), "image/png"); fault.KindOf(err) != fault.KindAuth {
		t.Errorf("SetAvatar before sign-in: kind = %v; want auth", fault.KindOf(err))
	}
}

func TestSignOutWithoutSession(t *testing.T) {
	c := &Client{}
	c.SignOut() // must not panic
	if c.Session() != nil {
		t.Error("Session() != nil after SignOut")
	}
}
