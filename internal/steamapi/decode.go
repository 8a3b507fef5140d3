package steamapi

import (
	"encoding/json"
	"strings"
)

// complete classifies the transport outcome and routes the body through
// the operation's decoder. It runs on the transport's completion
// dispatch, one invocation at a time, which is what lets decoders
// mutate the session and the relogon flag without further locking.
func (c *Client) complete(ctx *requestContext, body []byte, terr error) {
	var (
		e       *Error
		friends []string
		msgs    []Message
		sums    []Summary
		deliver = true
	)

	if terr != nil {
		e = transportError(ctx.op, terr)
		// A relogon that dies in transit must still release the lane,
		// or queued sends stay wedged forever.
		if ctx.op == OpRelogon {
			c.finishRelogon()
		}
	} else {
		switch ctx.op {
		case OpAuth:
			e = c.decodeAuth(body)
		case OpFriends:
			friends, e = c.decodeFriends(body)
		case OpLogon:
			e = c.decodeLogon(body)
		case OpRelogon:
			e = c.decodeRelogon(body)
		case OpLogoff:
			e = c.decodeLogoff(body)
		case OpMessage:
			deliver, e = c.decodeMessageAck(ctx, body)
		case OpPoll:
			msgs, deliver, e = c.decodePoll(ctx, body)
		case OpSummaries:
			sums, e = c.decodeSummaries(body)
		}
	}

	if !deliver {
		return
	}

	if e != nil && c.logger != nil {
		c.logger.Debug().Str("op", ctx.op.String()).Msg(e.Message)
	}

	switch ctx.op {
	case OpAuth, OpLogon, OpRelogon, OpLogoff, OpMessage:
		deliverDone(ctx.done, e)
	case OpFriends:
		if ctx.friends != nil {
			if e != nil {
				ctx.friends(nil, e)
			} else {
				ctx.friends(friends, nil)
			}
		}
	case OpPoll:
		if ctx.poll != nil {
			if e != nil {
				ctx.poll(nil, e)
			} else {
				ctx.poll(msgs, nil)
			}
		}
	case OpSummaries:
		if ctx.summaries != nil {
			if e != nil {
				ctx.summaries(nil, e)
			} else {
				ctx.summaries(sums, nil)
			}
		}
	}
}

// finishRelogon resumes the queued lane unconditionally; a wedged queue
// is worse than retrying with a stale token.
func (c *Client) finishRelogon() {
	c.relogonInFlight = false
	c.tr.SetQueuePaused(false)
}

type authPayload struct {
	AccessToken      *string `json:"access_token"`
	ErrorCode        string  `json:"x_errorcode"`
	ErrorDescription string  `json:"error_description"`
}

func (c *Client) decodeAuth(body []byte) *Error {
	var p authPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return parserError(OpAuth, err)
	}
	if p.AccessToken != nil {
		c.session.SetToken(*p.AccessToken)
		return nil
	}
	code := CodeAuth
	if p.ErrorCode == "steamguard_code_required" {
		code = CodeAuthGuard
	}
	return newError(OpAuth, code, p.ErrorDescription)
}

type friendsPayload struct {
	Friends []struct {
		SteamID      string `json:"steamid"`
		Relationship string `json:"relationship"`
	} `json:"friends"`
}

func (c *Client) decodeFriends(body []byte) ([]string, *Error) {
	var p friendsPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, parserError(OpFriends, err)
	}

	var ids []string
	for _, f := range p.Friends {
		if f.Relationship != "friend" || f.SteamID == "" {
			continue
		}
		ids = append(ids, f.SteamID)
	}
	if len(ids) == 0 {
		return nil, newError(OpFriends, CodeFriends, "Empty friends list")
	}
	return ids, nil
}

type logonPayload struct {
	Error   string `json:"error"`
	Message *int64 `json:"message"`
	SteamID string `json:"steamid"`
	QueueID string `json:"umqid"`
}

func (c *Client) decodeLogon(body []byte) *Error {
	var p logonPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return parserError(OpLogon, err)
	}
	if p.Error != "OK" {
		return newError(OpLogon, CodeLogon, p.Error)
	}

	if p.Message != nil {
		c.session.advanceCursor(*p.Message)
	}
	// The server may hand back a different steamid or queue id than the
	// one offered; its view wins.
	c.session.adoptIdentity(p.SteamID, p.QueueID)
	return nil
}

func (c *Client) decodeRelogon(body []byte) *Error {
	// Resume before looking at the status: even a failed relogon must
	// not leave the queued lane paused.
	c.finishRelogon()

	var p logonPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return parserError(OpRelogon, err)
	}
	if p.Error != "OK" {
		return newError(OpRelogon, CodeRelogon, p.Error)
	}
	return nil
}

type statusPayload struct {
	Error string `json:"error"`
}

func (c *Client) decodeLogoff(body []byte) *Error {
	var p statusPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return parserError(OpLogoff, err)
	}
	if p.Error != "OK" {
		return newError(OpLogoff, CodeLogoff, p.Error)
	}
	return nil
}

// decodeMessageAck handles the send acknowledgement. On "Not Logged On"
// it starts relogon recovery, resends the original request, and
// suppresses delivery; the caller only hears back from the resend.
func (c *Client) decodeMessageAck(ctx *requestContext, body []byte) (bool, *Error) {
	var p statusPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return true, parserError(OpMessage, err)
	}
	if p.Error == "OK" {
		return true, nil
	}
	if strings.EqualFold(p.Error, "Not Logged On") {
		c.relogon()
		c.tr.Resend(ctx.req)
		return false, nil
	}
	return true, newError(OpMessage, CodeMessage, p.Error)
}

type pollPayload struct {
	MessageLast *int64      `json:"messagelast"`
	Error       *string     `json:"error"`
	Messages    []pollEntry `json:"messages"`
}

type pollEntry struct {
	From         string  `json:"steamid_from"`
	Type         *string `json:"type"`
	Text         *string `json:"text"`
	PersonaName  *string `json:"persona_name"`
	PersonaState *int    `json:"persona_state"`
}

func (c *Client) decodePoll(ctx *requestContext, body []byte) ([]Message, bool, *Error) {
	var p pollPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, true, parserError(OpPoll, err)
	}

	if p.MessageLast != nil {
		c.session.advanceCursor(*p.MessageLast)
	}

	if p.Error != nil && !strings.EqualFold(*p.Error, "Timeout") && !strings.EqualFold(*p.Error, "OK") {
		if strings.EqualFold(*p.Error, "Not Logged On") {
			c.relogon()
			c.tr.Resend(ctx.req)
			return nil, false, nil
		}
		return nil, true, newError(OpPoll, CodePoll, *p.Error)
	}

	self := c.session.SteamID()

	var out []Message
	for _, entry := range p.Messages {
		if entry.From == "" || entry.From == self {
			// own events echo back through the queue
			continue
		}
		if entry.Type == nil {
			continue
		}

		m := Message{SteamID: entry.From, Kind: MessageKindFromString(*entry.Type)}
		switch m.Kind {
		case KindSayText, KindEmote:
			if entry.Text == nil {
				continue
			}
			m.Text = *entry.Text
		case KindState:
			// state changes carry both the display name and the
			// numeric persona state
			if entry.PersonaName == nil || entry.PersonaState == nil {
				continue
			}
			m.Nick = *entry.PersonaName
			m.State = PersonaState(*entry.PersonaState)
		case KindRelationship:
			if entry.PersonaState == nil {
				continue
			}
			m.State = PersonaState(*entry.PersonaState)
		case KindTyping, KindLeftConversation:
		default:
			continue
		}
		out = append(out, m)
	}
	return out, true, nil
}

type summariesPayload struct {
	Players []summaryEntry `json:"players"`
}

type summaryEntry struct {
	SteamID      string `json:"steamid"`
	Game         string `json:"gameextrainfo"`
	Server       string `json:"gameserverip"`
	Nick         string `json:"personaname"`
	Profile      string `json:"profileurl"`
	FullName     string `json:"realname"`
	PersonaState int    `json:"personastate"`
}

func (c *Client) decodeSummaries(body []byte) ([]Summary, *Error) {
	var p summariesPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, parserError(OpSummaries, err)
	}

	var out []Summary
	for _, entry := range p.Players {
		if entry.SteamID == "" {
			continue
		}
		out = append(out, Summary{
			SteamID:  entry.SteamID,
			Game:     entry.Game,
			Server:   entry.Server,
			Nick:     entry.Nick,
			Profile:  entry.Profile,
			FullName: entry.FullName,
			State:    PersonaState(entry.PersonaState),
		})
	}
	if len(out) == 0 {
		return nil, newError(OpSummaries, CodeSummaries, "No friends returned")
	}
	return out, nil
}
