package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/esainane/steambridge/internal/config"
	"github.com/esainane/steambridge/internal/steamapi"
	"github.com/esainane/steambridge/internal/store"
	"github.com/esainane/steambridge/internal/store/sqlite"
	"github.com/esainane/steambridge/internal/transport"
)

// App wires the session client, transport, and session store into a
// runnable bridge: log on, print incoming chat on stdout, send lines
// read from stdin as messages.
type App struct {
	cfg    config.Config
	log    *zerolog.Logger
	store  store.SessionStore
	tr     *transport.HTTP
	client *steamapi.Client

	mu    sync.Mutex
	nicks map[string]string
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	var session *steamapi.Session
	rec, err := st.Load(context.Background(), cfg.Account)
	switch {
	case err == nil:
		session = steamapi.RestoreSession(rec.Token, rec.QueueID, rec.SteamID, rec.LastMessageID)
		logger.Info().Str("account", cfg.Account).Msg("restored persisted session")
	case errors.Is(err, store.ErrNotFound):
		session = steamapi.NewSession("")
	default:
		st.Close()
		return nil, fmt.Errorf("load session: %w", err)
	}

	tr := transport.NewHTTP(cfg.RequestTimeout, "steambridge", logger)
	client := steamapi.New(tr, session, logger)
	client.SetHost(cfg.APIHost)
	client.SetPollTimeout(cfg.PollTimeout)

	return &App{
		cfg:    cfg,
		log:    logger,
		store:  st,
		tr:     tr,
		client: client,
		nicks:  make(map[string]string),
	}, nil
}

// Run logs on and blocks polling for events until context cancellation.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	if a.client.Session().Token() == "" {
		if err := a.authenticate(ctx); err != nil {
			return err
		}
	}

	if err := a.logon(ctx); err != nil {
		// The persisted token may have been revoked; try one fresh
		// authentication before giving up.
		if a.cfg.Username == "" {
			return err
		}
		a.log.Warn().Err(err).Msg("logon with stored token failed, re-authenticating")
		if err := a.authenticate(ctx); err != nil {
			return err
		}
		if err := a.logon(ctx); err != nil {
			return err
		}
	}

	a.persistSession()
	a.loadRoster()

	go a.readStdin(ctx)

	a.pollLoop(ctx)

	a.logoff()
	a.persistSession()
	return nil
}

// authenticate exchanges configured credentials for a token.
func (a *App) authenticate(ctx context.Context) error {
	if a.cfg.Username == "" || a.cfg.Password == "" {
		return errors.New("no session token and no credentials configured")
	}

	errc := make(chan error, 1)
	a.client.Auth(a.cfg.GuardCode, a.cfg.Username, a.cfg.Password, func(err error) {
		errc <- err
	})

	select {
	case err := <-errc:
		if steamapi.GuardCodeRequired(err) {
			return fmt.Errorf("steam guard code mailed, set guard_code in config and retry: %w", err)
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *App) logon(ctx context.Context) error {
	errc := make(chan error, 1)
	a.client.Logon(func(err error) { errc <- err })

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loadRoster fetches the friend list and resolves display names. Both
// steps are best-effort; the bridge runs without them.
func (a *App) loadRoster() {
	a.client.Friends(func(ids []string, err error) {
		if err != nil {
			a.log.Warn().Err(err).Msg("failed to fetch friends")
			return
		}
		a.log.Info().Int("friends", len(ids)).Msg("friend list loaded")
		a.client.Summaries(ids, func(summaries []steamapi.Summary, err error) {
			if err != nil {
				a.log.Warn().Err(err).Msg("failed to fetch summaries")
				return
			}
			a.mu.Lock()
			for _, s := range summaries {
				if s.Nick != "" {
					a.nicks[s.SteamID] = s.Nick
				}
			}
			a.mu.Unlock()
			for _, s := range summaries {
				a.log.Info().
					Str("steamid", s.SteamID).
					Str("nick", s.Nick).
					Str("state", s.State.String()).
					Msg("friend")
			}
		})
	})
}

func (a *App) pollLoop(ctx context.Context) {
	for {
		messages, err := a.pollOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			a.log.Warn().Err(err).Msg("poll failed")
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		for _, m := range messages {
			a.printEvent(m)
		}
	}
}

func (a *App) pollOnce(ctx context.Context) ([]steamapi.Message, error) {
	type result struct {
		messages []steamapi.Message
		err      error
	}
	ch := make(chan result, 1)
	a.client.Poll(func(messages []steamapi.Message, err error) {
		ch <- result{messages, err}
	})

	select {
	case r := <-ch:
		return r.messages, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *App) printEvent(m steamapi.Message) {
	name := a.nickFor(m.SteamID)
	switch m.Kind {
	case steamapi.KindSayText:
		fmt.Printf("<%s> %s\n", name, m.Text)
	case steamapi.KindEmote:
		fmt.Printf("* %s %s\n", name, m.Text)
	case steamapi.KindTyping:
		a.log.Debug().Str("steamid", m.SteamID).Msg("typing")
	case steamapi.KindLeftConversation:
		fmt.Printf("-- %s left the conversation\n", name)
	case steamapi.KindState:
		a.mu.Lock()
		a.nicks[m.SteamID] = m.Nick
		a.mu.Unlock()
		fmt.Printf("-- %s is now %s\n", m.Nick, m.State)
	case steamapi.KindRelationship:
		a.log.Info().Str("steamid", m.SteamID).Str("state", m.State.String()).Msg("relationship changed")
	}
}

func (a *App) nickFor(steamID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if nick, ok := a.nicks[steamID]; ok {
		return nick
	}
	return steamID
}

// readStdin sends each "<steamid> <text>" line as a chat message; a
// line starting with "/me " after the steamid goes out as an emote.
func (a *App) readStdin(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		dst, text, ok := strings.Cut(line, " ")
		if !ok {
			a.log.Warn().Msg("usage: <steamid> <text>")
			continue
		}

		msg := &steamapi.Message{SteamID: dst, Kind: steamapi.KindSayText, Text: text}
		if rest, found := strings.CutPrefix(text, "/me "); found {
			msg.Kind = steamapi.KindEmote
			msg.Text = rest
		}
		a.client.SendMessage(msg, func(err error) {
			if err != nil {
				a.log.Warn().Err(err).Str("steamid", dst).Msg("send failed")
			}
		})
	}
}

func (a *App) logoff() {
	errc := make(chan error, 1)
	a.client.Logoff(func(err error) { errc <- err })

	select {
	case err := <-errc:
		if err != nil {
			a.log.Warn().Err(err).Msg("logoff failed")
		}
	case <-time.After(10 * time.Second):
		a.log.Warn().Msg("logoff timed out")
	}
}

func (a *App) persistSession() {
	sess := a.client.Session()
	rec := &store.Record{
		Account:       a.cfg.Account,
		Token:         sess.Token(),
		QueueID:       sess.QueueID(),
		SteamID:       sess.SteamID(),
		LastMessageID: sess.LastMessageID(),
	}
	if err := a.store.Save(context.Background(), rec); err != nil {
		a.log.Warn().Err(err).Msg("failed to persist session")
	}
}

// cleanup closes the transport and database.
func (a *App) cleanup() {
	a.tr.Close()
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	} else {
		a.log.Info().Msg("store closed")
	}
}
