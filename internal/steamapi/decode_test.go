package steamapi

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeAuth_StoresToken(t *testing.T) {
	c, ft := newTestClient(t)

	var got error
	c.Auth("", "alice", "hunter2", func(err error) { got = err })
	ft.sent[0].Done([]byte(`{"access_token": "fresh-token"}`), nil)

	if got != nil {
		t.Fatalf("expected success, got %v", got)
	}
	if c.Session().Token() != "fresh-token" {
		t.Fatalf("token not stored, got %q", c.Session().Token())
	}
}

func TestDecodeAuth_GuardCodeRequired(t *testing.T) {
	c, ft := newTestClient(t)

	var got error
	c.Auth("", "alice", "hunter2", func(err error) { got = err })
	ft.sent[0].Done([]byte(`{
		"x_errorcode": "steamguard_code_required",
		"error_description": "code sent to email"
	}`), nil)

	if !GuardCodeRequired(got) {
		t.Fatalf("expected a guard-code error, got %v", got)
	}
	if !strings.Contains(got.Error(), "Authentication: code sent to email") {
		t.Fatalf("expected prefixed server message, got %q", got.Error())
	}
}

func TestDecodeAuth_PlainFailure(t *testing.T) {
	c, ft := newTestClient(t)

	var got error
	c.Auth("", "alice", "wrong", func(err error) { got = err })
	ft.sent[0].Done([]byte(`{"error_description": "invalid credentials"}`), nil)

	if GuardCodeRequired(got) {
		t.Fatalf("plain failures must not classify as guard-code errors")
	}
	var apiErr *Error
	if !errors.As(got, &apiErr) || apiErr.Code != CodeAuth {
		t.Fatalf("expected CodeAuth, got %v", got)
	}
}

func TestDecodeFriends_FiltersRelationship(t *testing.T) {
	c, ft := newTestClient(t)

	var got []string
	c.Friends(func(ids []string, err error) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = ids
	})
	ft.sent[0].Done([]byte(`{"friends": [
		{"steamid": "f1", "relationship": "friend"},
		{"steamid": "b1", "relationship": "blocked"},
		{"steamid": "f2", "relationship": "friend"},
		{"relationship": "friend"}
	]}`), nil)

	if len(got) != 2 || got[0] != "f1" || got[1] != "f2" {
		t.Fatalf("expected [f1 f2], got %v", got)
	}
}

func TestDecodeFriends_EmptyListIsError(t *testing.T) {
	c, ft := newTestClient(t)

	var got error
	c.Friends(func(ids []string, err error) { got = err })
	ft.sent[0].Done([]byte(`{"friends": [{"steamid": "b1", "relationship": "blocked"}]}`), nil)

	if got == nil || !strings.Contains(got.Error(), "Friends: Empty friends list") {
		t.Fatalf("expected Friends error, got %v", got)
	}
}

func TestDecodeLogon_UpdatesSession(t *testing.T) {
	c, ft := newTestClient(t)

	var got error
	c.Logon(func(err error) { got = err })
	ft.sent[0].Done([]byte(`{
		"error": "OK",
		"message": 17,
		"steamid": "server-self",
		"umqid": "9999"
	}`), nil)

	if got != nil {
		t.Fatalf("unexpected error: %v", got)
	}
	sess := c.Session()
	if sess.LastMessageID() != 17 {
		t.Fatalf("cursor not updated, got %d", sess.LastMessageID())
	}
	if sess.SteamID() != "server-self" || sess.QueueID() != "9999" {
		t.Fatalf("identity not adopted: %q %q", sess.SteamID(), sess.QueueID())
	}
}

func TestDecodeLogon_ServerError(t *testing.T) {
	c, ft := newTestClient(t)

	var got error
	c.Logon(func(err error) { got = err })
	ft.sent[0].Done([]byte(`{"error": "Access Denied"}`), nil)

	if got == nil || got.Error() != "Logon: Access Denied" {
		t.Fatalf("expected prefixed logon error, got %v", got)
	}
}

func TestDecodePoll_CursorIsMonotonic(t *testing.T) {
	c, ft := newTestClient(t)

	c.Logon(nil)
	ft.sent[0].Done([]byte(`{"error": "OK", "message": 10}`), nil)
	if got := c.Session().LastMessageID(); got != 10 {
		t.Fatalf("cursor after logon = %d, want 10", got)
	}

	// A stale poll response must not move the cursor backwards.
	c.Poll(nil)
	ft.sent[1].Done([]byte(`{"error": "Timeout", "messagelast": 5}`), nil)
	if got := c.Session().LastMessageID(); got != 10 {
		t.Fatalf("cursor regressed to %d", got)
	}

	c.Poll(nil)
	ft.sent[2].Done([]byte(`{"error": "Timeout", "messagelast": 15}`), nil)
	if got := c.Session().LastMessageID(); got != 15 {
		t.Fatalf("cursor did not advance, got %d", got)
	}
}

func TestDecodePoll_TimeoutIsNotAnError(t *testing.T) {
	c, ft := newTestClient(t)

	var got error
	called := false
	c.Poll(func(messages []Message, err error) {
		called = true
		got = err
	})
	ft.sent[0].Done([]byte(`{"error": "Timeout"}`), nil)

	if !called || got != nil {
		t.Fatalf("timeouts deliver an empty success, got called=%v err=%v", called, got)
	}
}

func TestDecodePoll_SoftErrorIsPrefixed(t *testing.T) {
	c, ft := newTestClient(t)

	var got error
	c.Poll(func(messages []Message, err error) { got = err })
	ft.sent[0].Done([]byte(`{"error": "Bad"}`), nil)

	if got == nil || !strings.Contains(got.Error(), "Polling") || !strings.Contains(got.Error(), "Bad") {
		t.Fatalf("expected error mentioning Polling and Bad, got %v", got)
	}
}

func TestDecodePoll_Entries(t *testing.T) {
	c, ft := newTestClient(t)

	var got []Message
	c.Poll(func(messages []Message, err error) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = messages
	})
	ft.sent[0].Done([]byte(`{"error": "OK", "messagelast": 3, "messages": [
		{"steamid_from": "self-id", "type": "saytext", "text": "echo of my own message"},
		{"steamid_from": "f1", "type": "saytext", "text": "hello"},
		{"steamid_from": "f1", "type": "saytext"},
		{"steamid_from": "f2", "type": "emote", "text": "waves"},
		{"steamid_from": "f3", "type": "personastate", "persona_name": "Frank", "persona_state": 1},
		{"steamid_from": "f4", "type": "personastate", "persona_name": "NoState"},
		{"steamid_from": "f5", "type": "personarelationship", "persona_state": 3},
		{"steamid_from": "f6", "type": "typing"},
		{"steamid_from": "f7", "type": "leftconversation"},
		{"steamid_from": "f8", "type": "somethingnew", "text": "x"}
	]}`), nil)

	want := []Message{
		{SteamID: "f1", Kind: KindSayText, Text: "hello"},
		{SteamID: "f2", Kind: KindEmote, Text: "waves"},
		{SteamID: "f3", Kind: KindState, Nick: "Frank", State: StateOnline},
		{SteamID: "f5", Kind: KindRelationship, State: StateAway},
		{SteamID: "f6", Kind: KindTyping},
		{SteamID: "f7", Kind: KindLeftConversation},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("message %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDecodeSummaries_SkipsEntriesWithoutID(t *testing.T) {
	c, ft := newTestClient(t)

	var got []Summary
	c.Summary("f1", func(summaries []Summary, err error) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = summaries
	})
	ft.sent[0].Done([]byte(`{"players": [
		{"personaname": "ghost"},
		{"steamid": "f1", "personaname": "Frank", "gameextrainfo": "Spacewar", "personastate": 2}
	]}`), nil)

	if len(got) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(got))
	}
	s := got[0]
	if s.SteamID != "f1" || s.Nick != "Frank" || s.Game != "Spacewar" || s.State != StateBusy {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestDecodeSummaries_EmptyIsError(t *testing.T) {
	c, ft := newTestClient(t)

	var got error
	c.Summary("f1", func(summaries []Summary, err error) { got = err })
	ft.sent[0].Done([]byte(`{"players": []}`), nil)

	if got == nil || !strings.Contains(got.Error(), "Summaries: No friends returned") {
		t.Fatalf("expected Summaries error, got %v", got)
	}
}

func TestDecode_MalformedBodyIsParserError(t *testing.T) {
	c, ft := newTestClient(t)

	var got error
	c.Logoff(func(err error) { got = err })
	ft.sent[0].Done([]byte(`<html>maintenance</html>`), nil)

	var apiErr *Error
	if !errors.As(got, &apiErr) || apiErr.Code != CodeParser {
		t.Fatalf("expected parser error, got %v", got)
	}
	if !strings.Contains(got.Error(), "Logoff: Parser:") {
		t.Fatalf("parser errors carry the operation prefix, got %q", got.Error())
	}
}

func TestDecode_TransportErrorPassesThrough(t *testing.T) {
	c, ft := newTestClient(t)

	cause := errors.New("connection reset by peer")
	var got error
	c.Poll(func(messages []Message, err error) { got = err })
	ft.sent[0].Done(nil, cause)

	if got == nil || !errors.Is(got, cause) {
		t.Fatalf("expected the transport error wrapped, got %v", got)
	}
	if !strings.Contains(got.Error(), "Polling: connection reset by peer") {
		t.Fatalf("expected prefixed transport error, got %q", got.Error())
	}
}
