// Package steamapi is a client for the legacy Steam Web chat API: it
// authenticates, maintains a presence session, long-polls for events,
// sends messages, and fetches friend lists and profile summaries.
//
// Every operation is asynchronous: it submits a request and returns,
// and the result arrives later through the caller's callback on the
// transport's completion dispatch. When the server invalidates the
// session mid-flight, the client silently relogs on and resends the
// affected request instead of surfacing the failure.
package steamapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/esainane/steambridge/internal/transport"
)

const (
	// DefaultHost is the public Steam Web API endpoint.
	DefaultHost = "api.steampowered.com"

	// DefaultPollTimeout is the server-side long-poll timeout hint in
	// seconds.
	DefaultPollTimeout = 25

	apiFormat  = "json"
	clientID   = "DE45CD61"
	oauthScope = "read_profile write_profile read_client write_client"

	// The token endpoint only talks to clients it recognizes, so the
	// mobile app is impersonated there.
	authAgent = "Steam 1291812 / iPhone"

	pathAuth      = "/ISteamOAuth2/GetTokenWithCredentials/v0001"
	pathFriends   = "/ISteamUserOAuth/GetFriendList/v0001"
	pathLogon     = "/ISteamWebUserPresenceOAuth/Logon/v0001"
	pathLogoff    = "/ISteamWebUserPresenceOAuth/Logoff/v0001"
	pathMessage   = "/ISteamWebUserPresenceOAuth/Message/v0001"
	pathPoll      = "/ISteamWebUserPresenceOAuth/Poll/v0001"
	pathSummaries = "/ISteamUserOAuth/GetUserSummaries/v0001"

	// summariesBatchLimit is the server-side cap on ids per request.
	summariesBatchLimit = 100
)

// DoneFunc receives the outcome of a single-result operation.
type DoneFunc func(err error)

// FriendsFunc receives the friend steamids, or an error.
type FriendsFunc func(ids []string, err error)

// PollFunc receives decoded poll events in server order, or an error.
type PollFunc func(messages []Message, err error)

// SummariesFunc receives profile summaries, or an error.
type SummariesFunc func(summaries []Summary, err error)

// Client issues session API requests through a Transport and owns the
// shared Session.
type Client struct {
	tr      transport.Transport
	session *Session
	logger  *zerolog.Logger

	host        string
	pollTimeout int

	// relogonInFlight is only touched on the transport's completion
	// dispatch, which delivers one completion at a time.
	relogonInFlight bool
}

// New builds a client around the transport and session.
func New(tr transport.Transport, session *Session, logger *zerolog.Logger) *Client {
	return &Client{
		tr:          tr,
		session:     session,
		logger:      logger,
		host:        DefaultHost,
		pollTimeout: DefaultPollTimeout,
	}
}

// SetHost overrides the API host, mostly for tests and staging setups.
func (c *Client) SetHost(host string) {
	if host != "" {
		c.host = host
	}
}

// SetPollTimeout overrides the long-poll timeout hint in seconds.
func (c *Client) SetPollTimeout(seconds int) {
	if seconds > 0 {
		c.pollTimeout = seconds
	}
}

// Session exposes the session for persistence.
func (c *Client) Session() *Session {
	return c.session
}

// requestContext carries per-request state from builder to decoder.
// Exactly one callback field is set, matching op.
type requestContext struct {
	op        Op
	done      DoneFunc
	friends   FriendsFunc
	poll      PollFunc
	summaries SummariesFunc
	req       *transport.Request
}

func (c *Client) submit(ctx *requestContext, path string, header http.Header, form func() url.Values, flags transport.Flags) {
	req := &transport.Request{
		Host:   c.host,
		Path:   path,
		Header: header,
		Form:   form,
		Flags:  flags,
	}
	req.Done = func(body []byte, err error) {
		c.complete(ctx, body, err)
	}
	ctx.req = req
	c.tr.Send(req)
}

// sessionForm builds the token/queue-id parameters shared by the
// presence endpoints, evaluated fresh at every (re)send.
func (c *Client) sessionForm() url.Values {
	token, queueID, _, _ := c.session.snapshot()
	return url.Values{
		"format":       {apiFormat},
		"access_token": {token},
		"umqid":        {queueID},
	}
}

// Auth exchanges credentials for an OAuth access token. guardCode may
// be empty on a first attempt; if the account has Steam Guard enabled
// the server mails a code and the delivered error satisfies
// GuardCodeRequired.
func (c *Client) Auth(guardCode, username, password string, fn DoneFunc) {
	ctx := &requestContext{op: OpAuth, done: fn}

	header := make(http.Header)
	header.Set("User-Agent", authAgent)

	form := func() url.Values {
		return url.Values{
			"format":          {apiFormat},
			"client_id":       {clientID},
			"grant_type":      {"password"},
			"username":        {username},
			"password":        {password},
			"x_emailauthcode": {guardCode},
			"x_webcookie":     {""},
			"scope":           {oauthScope},
		}
	}
	c.submit(ctx, pathAuth, header, form, transport.FlagPost|transport.FlagTLS)
}

// Friends fetches the steamids of everyone with a full friend
// relationship to the logged-on user.
func (c *Client) Friends(fn FriendsFunc) {
	ctx := &requestContext{op: OpFriends, friends: fn}

	form := func() url.Values {
		token, _, steamID, _ := c.session.snapshot()
		return url.Values{
			"format":       {apiFormat},
			"access_token": {token},
			"steamid":      {steamID},
			"relationship": {"friend"},
		}
	}
	c.submit(ctx, pathFriends, nil, form, transport.FlagTLS)
}

// Logon establishes the presence session used by Poll and SendMessage.
func (c *Client) Logon(fn DoneFunc) {
	ctx := &requestContext{op: OpLogon, done: fn}
	c.submit(ctx, pathLogon, nil, c.sessionForm, transport.FlagPost|transport.FlagTLS)
}

// Logoff tears down the presence session.
func (c *Client) Logoff(fn DoneFunc) {
	ctx := &requestContext{op: OpLogoff, done: fn}
	c.submit(ctx, pathLogoff, nil, c.sessionForm, transport.FlagPost|transport.FlagTLS)
}

// relogon silently re-establishes the presence session with the held
// token after the server reports "Not Logged On". The queued lane is
// paused so message sends cannot race ahead with stale state; it stays
// paused until the relogon response arrives. A second trigger while one
// is already in flight is a no-op.
func (c *Client) relogon() {
	if c.relogonInFlight {
		return
	}
	c.relogonInFlight = true
	c.tr.SetQueuePaused(true)

	if c.logger != nil {
		c.logger.Info().Msg("session expired, relogging on")
	}

	ctx := &requestContext{op: OpRelogon}
	c.submit(ctx, pathLogon, nil, c.sessionForm, transport.FlagPost|transport.FlagTLS)
}

// SendMessage delivers msg to its destination. Sends ride the queued
// lane so they stay ordered relative to each other and can be held
// during relogon recovery. Only saytext, emote, and typing messages can
// be sent; typing carries no body.
func (c *Client) SendMessage(msg *Message, fn DoneFunc) {
	if msg == nil || msg.SteamID == "" {
		deliverDone(fn, newError(OpMessage, CodeMessage, "missing message destination"))
		return
	}
	switch msg.Kind {
	case KindSayText, KindEmote, KindTyping:
	default:
		deliverDone(fn, newError(OpMessage, CodeMessage, "unsupported message type"))
		return
	}

	kind, dst, text := msg.Kind, msg.SteamID, msg.Text
	ctx := &requestContext{op: OpMessage, done: fn}

	form := func() url.Values {
		v := c.sessionForm()
		v.Set("steamid_dst", dst)
		v.Set("type", kind.String())
		if kind == KindSayText || kind == KindEmote {
			v.Set("text", text)
		}
		return v
	}
	c.submit(ctx, pathMessage, nil, form, transport.FlagQueued|transport.FlagPost|transport.FlagTLS)
}

// Poll long-polls for events past the current cursor. The timeout is
// server-side; the transport's own deadline must be longer.
func (c *Client) Poll(fn PollFunc) {
	ctx := &requestContext{op: OpPoll, poll: fn}

	header := make(http.Header)
	header.Set("Connection", "Keep-Alive")

	form := func() url.Values {
		token, queueID, _, last := c.session.snapshot()
		return url.Values{
			"format":       {apiFormat},
			"access_token": {token},
			"umqid":        {queueID},
			"message":      {strconv.FormatInt(last, 10)},
			"sectimeout":   {strconv.Itoa(c.pollTimeout)},
		}
	}
	c.submit(ctx, pathPoll, header, form, transport.FlagPost|transport.FlagTLS|transport.FlagKeepAlive)
}

// Summaries fetches profile summaries for ids, splitting the query into
// batches of at most 100 ids as the server caps one request at 100.
// Batches are issued back to back without waiting on each other, and fn
// is invoked once per batch. An empty or nil list short-circuits to an
// immediate empty callback with no request sent.
func (c *Client) Summaries(ids []string, fn SummariesFunc) {
	if len(ids) == 0 {
		deliverSummaries(fn, nil, nil)
		return
	}
	for start := 0; start < len(ids); start += summariesBatchLimit {
		end := start + summariesBatchLimit
		if end > len(ids) {
			end = len(ids)
		}
		c.summariesBatch(strings.Join(ids[start:end], ","), fn)
	}
}

// Summary fetches the profile summary of a single user.
func (c *Client) Summary(id string, fn SummariesFunc) {
	if id == "" {
		deliverSummaries(fn, nil, newError(OpSummaries, CodeSummaries, "missing steamid"))
		return
	}
	c.summariesBatch(id, fn)
}

func (c *Client) summariesBatch(joined string, fn SummariesFunc) {
	ctx := &requestContext{op: OpSummaries, summaries: fn}

	form := func() url.Values {
		token, _, _, _ := c.session.snapshot()
		return url.Values{
			"format":       {apiFormat},
			"access_token": {token},
			"steamids":     {joined},
		}
	}
	c.submit(ctx, pathSummaries, nil, form, transport.FlagTLS)
}

func deliverDone(fn DoneFunc, e *Error) {
	if fn == nil {
		return
	}
	if e != nil {
		fn(e)
		return
	}
	fn(nil)
}

func deliverSummaries(fn SummariesFunc, summaries []Summary, e *Error) {
	if fn == nil {
		return
	}
	if e != nil {
		fn(nil, e)
		return
	}
	fn(summaries, nil)
}
