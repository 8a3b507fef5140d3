package transport

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTP executes requests over net/http. It owns two goroutines: a
// queue runner draining the serialized lane and a dispatcher delivering
// completions one at a time.
type HTTP struct {
	hc     *http.Client
	agent  string
	logger *zerolog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*Request
	paused bool
	closed bool

	completions chan completion
	quit        chan struct{}
}

type completion struct {
	req  *Request
	body []byte
	err  error
}

// NewHTTP builds a transport with the given per-request timeout and
// default User-Agent. The timeout must exceed any server-side long-poll
// timeout the caller configures.
func NewHTTP(timeout time.Duration, agent string, logger *zerolog.Logger) *HTTP {
	t := &HTTP{
		hc:          &http.Client{Timeout: timeout},
		agent:       agent,
		logger:      logger,
		completions: make(chan completion, 16),
		quit:        make(chan struct{}),
	}
	t.cond = sync.NewCond(&t.mu)

	go t.dispatch()
	go t.runQueue()
	return t
}

// Send submits the request; queued requests enter the serialized lane.
func (t *HTTP) Send(req *Request) {
	if req.id == "" {
		req.id = uuid.NewString()
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if req.Flags&FlagQueued != 0 {
		t.queue = append(t.queue, req)
		t.mu.Unlock()
		t.cond.Signal()
		return
	}
	t.mu.Unlock()

	go t.execute(req)
}

// Resend re-submits the request. The form builder runs again at
// execution time, so refreshed session state is picked up.
func (t *HTTP) Resend(req *Request) {
	if t.logger != nil {
		t.logger.Debug().Str("req", req.id).Str("path", req.Path).Msg("resending request")
	}
	t.Send(req)
}

// SetQueuePaused holds or releases the queued lane. Pausing an
// already-paused lane is a no-op, as is resuming a running one.
func (t *HTTP) SetQueuePaused(paused bool) {
	t.mu.Lock()
	changed := t.paused != paused
	t.paused = paused
	t.mu.Unlock()

	if changed {
		if t.logger != nil {
			t.logger.Debug().Bool("paused", paused).Msg("queued lane state changed")
		}
		if !paused {
			t.cond.Broadcast()
		}
	}
}

// Close stops both goroutines. Requests still queued or in flight never
// deliver their callbacks.
func (t *HTTP) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.queue = nil
	t.mu.Unlock()

	t.cond.Broadcast()
	close(t.quit)
}

// runQueue drains the serialized lane: one request at a time, in
// submission order, blocking while the lane is paused.
func (t *HTTP) runQueue() {
	for {
		t.mu.Lock()
		for !t.closed && (t.paused || len(t.queue) == 0) {
			t.cond.Wait()
		}
		if t.closed {
			t.mu.Unlock()
			return
		}
		req := t.queue[0]
		t.queue = t.queue[1:]
		t.mu.Unlock()

		t.execute(req)
	}
}

// dispatch delivers completions sequentially until Close.
func (t *HTTP) dispatch() {
	for {
		select {
		case c := <-t.completions:
			if c.req.Done != nil {
				c.req.Done(c.body, c.err)
			}
		case <-t.quit:
			return
		}
	}
}

func (t *HTTP) execute(req *Request) {
	body, err := t.roundTrip(req)
	select {
	case t.completions <- completion{req: req, body: body, err: err}:
	case <-t.quit:
	}
}

func (t *HTTP) roundTrip(req *Request) ([]byte, error) {
	form := url.Values{}
	if req.Form != nil {
		form = req.Form()
	}

	scheme := "http"
	if req.Flags&FlagTLS != 0 {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: req.Host, Path: req.Path}

	method := http.MethodGet
	var body io.Reader
	if req.Flags&FlagPost != 0 {
		method = http.MethodPost
		body = strings.NewReader(form.Encode())
	} else {
		u.RawQuery = form.Encode()
	}

	hreq, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for key, values := range req.Header {
		for _, v := range values {
			hreq.Header.Add(key, v)
		}
	}
	if hreq.Header.Get("User-Agent") == "" && t.agent != "" {
		hreq.Header.Set("User-Agent", t.agent)
	}
	if req.Flags&FlagPost != 0 {
		hreq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if req.Flags&FlagKeepAlive != 0 {
		hreq.Header.Set("Connection", "Keep-Alive")
	}

	start := time.Now()
	resp, err := t.hc.Do(hreq)
	if err != nil {
		if t.logger != nil {
			t.logger.Debug().Str("req", req.id).Str("path", req.Path).Err(err).Msg("request failed")
		}
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if t.logger != nil {
		t.logger.Debug().
			Str("req", req.id).
			Str("path", req.Path).
			Int("status", resp.StatusCode).
			Dur("elapsed", time.Since(start)).
			Msg("request completed")
	}

	// The API reports soft failures in the JSON body, often alongside a
	// non-2xx status; the body is passed through regardless so the
	// decoders can classify it.
	return data, nil
}
