package transcriber

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"
)

// warmTimeout bounds a connection warm-up so a stalled network cannot pin
// the goroutine that started it.
var warmTimeout = 5 * time.Second

// TracedClient is an HTTP client for the openai SDK that fills the
// NetworkMetrics attached to each request's context.
type TracedClient struct {
	client *http.Client
}

// NewTracedClient wraps transport, or a pooled HTTP/2 transport when nil.
func NewTracedClient(transport http.RoundTripper) *TracedClient {
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}
	return &TracedClient{client: &http.Client{Transport: transport}}
}

type metricsKey struct{}

func withMetrics(ctx context.Context, m *NetworkMetrics) context.Context {
	return context.WithValue(ctx, metricsKey{}, m)
}

func (c *TracedClient) Do(req *http.Request) (*http.Response, error) {
	metrics, _ := req.Context().Value(metricsKey{}).(*NetworkMetrics)
	if metrics == nil {
		return c.client.Do(req)
	}

	var mu sync.Mutex
	var getConnStart, dnsStart, tcpStart, tlsStart time.Time
	var gotConn, wroteHeaders, wroteRequest, firstByte time.Time

	trace := &httptrace.ClientTrace{
		GetConn: func(_ string) { mu.Lock(); getConnStart = time.Now(); mu.Unlock() },
		GotConn: func(info httptrace.GotConnInfo) {
			mu.Lock()
			defer mu.Unlock()
			gotConn = time.Now()
			metrics.ConnWait = gotConn.Sub(getConnStart)
			metrics.ConnReused = info.Reused
		},
		DNSStart: func(_ httptrace.DNSStartInfo) { mu.Lock(); dnsStart = time.Now(); mu.Unlock() },
		DNSDone: func(_ httptrace.DNSDoneInfo) {
			mu.Lock()
			metrics.DNS = time.Since(dnsStart)
			mu.Unlock()
		},
		ConnectStart: func(_, _ string) { mu.Lock(); tcpStart = time.Now(); mu.Unlock() },
		ConnectDone: func(_, _ string, _ error) {
			mu.Lock()
			metrics.TCP = time.Since(tcpStart)
			mu.Unlock()
		},
		TLSHandshakeStart: func() { mu.Lock(); tlsStart = time.Now(); mu.Unlock() },
		TLSHandshakeDone: func(state tls.ConnectionState, _ error) {
			mu.Lock()
			defer mu.Unlock()
			metrics.TLS = time.Since(tlsStart)
			metrics.TLSProtocol = state.NegotiatedProtocol
		},
		WroteHeaders: func() {
			mu.Lock()
			defer mu.Unlock()
			wroteHeaders = time.Now()
			metrics.ReqHeaders = wroteHeaders.Sub(gotConn)
		},
		WroteRequest: func(_ httptrace.WroteRequestInfo) {
			mu.Lock()
			defer mu.Unlock()
			wroteRequest = time.Now()
			metrics.ReqBody = wroteRequest.Sub(wroteHeaders)
		},
		GotFirstResponseByte: func() {
			mu.Lock()
			defer mu.Unlock()
			firstByte = time.Now()
			metrics.TTFB = firstByte.Sub(wroteRequest)
		},
	}

	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
	reqStart := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	metrics.StatusCode = resp.StatusCode
	metrics.RateLimit = firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests") + "/" +
		firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")
	mu.Unlock()

	resp.Body = &tracedBody{ReadCloser: resp.Body, done: func() {
		mu.Lock()
		defer mu.Unlock()
		if !firstByte.IsZero() {
			metrics.Download = time.Since(firstByte)
		}
		metrics.Total = time.Since(reqStart)
	}}
	return resp, nil
}

// tracedBody stamps download timings once the SDK finishes with the body.
type tracedBody struct {
	io.ReadCloser
	once sync.Once
	done func()
}

func (b *tracedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err == io.EOF {
		b.once.Do(b.done)
	}
	return n, err
}

func (b *tracedBody) Close() error {
	b.once.Do(b.done)
	return b.ReadCloser.Close()
}

// WarmConnection opens (or reuses) a connection to url and reports the TLS
// handshake time, zero when the connection was already warm.
func (c *TracedClient) WarmConnection(url string) time.Duration {
	var mu sync.Mutex
	var tlsStart time.Time
	var tlsDuration time.Duration

	trace := &httptrace.ClientTrace{
		TLSHandshakeStart: func() { mu.Lock(); tlsStart = time.Now(); mu.Unlock() },
		TLSHandshakeDone: func(_ tls.ConnectionState, _ error) {
			mu.Lock()
			tlsDuration = time.Since(tlsStart)
			mu.Unlock()
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodHead, url, nil)
	if err != nil {
		return 0
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	mu.Lock()
	defer mu.Unlock()
	return tlsDuration
}
