package service

import (
	"context"
	"testing"
)

func TestFixedSession(t *testing.T) {
	if uid, ok := (FixedSession{UID: "preview-uid"}).CurrentUserID(context.Background()); !ok || uid != "preview-uid" {
		t.Errorf("got %q %v", uid, ok)
	}
	if _, ok := (FixedSession{}).CurrentUserID(context.Background()); ok {
		t.Error("empty fixture must read as signed out")
	}
}

func TestClaimsSession(t *testing.T) {
	var s ClaimsSession
	if _, ok := s.CurrentUserID(context.Background()); ok {
		t.Error("bare context must be signed out")
	}
	ctx := WithUserID(context.Background(), "uid-7")
	if uid, ok := s.CurrentUserID(ctx); !ok || uid != "uid-7" {
		t.Errorf("got %q %v", uid, ok)
	}
}

func TestNewSession_SelectsVariant(t *testing.T) {
	if _, ok := NewSession("fixture").(FixedSession); !ok {
		t.Error("fixture uid must select FixedSession")
	}
	if _, ok := NewSession("").(ClaimsSession); !ok {
		t.Error("empty fixture uid must select ClaimsSession")
	}
}
