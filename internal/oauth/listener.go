// Package oauth implements the loopback authorization-code flow used to add
// accounts: a one-shot callback listener, the token exchange, and the flow
// that ties them to the system browser.
package oauth

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/j-veylop/antigravity-switcher/internal/logger"
)

// maxRequestSize is how much of the callback request is read. The request
// line is all that matters.
const maxRequestSize = 1024

const (
	successResponse = "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"Connection: close\r\n\r\n" +
		`<html>
<body style="font-family: sans-serif; text-align: center; padding: 50px;">
<h1 style="color: green;">Authorization successful</h1>
<p>You can close this window and return to the app.</p>
<script>setTimeout(function() { window.close(); }, 2000);</script>
</body>
</html>`

	failureResponse = "HTTP/1.1 400 Bad Request\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"Connection: close\r\n\r\n" +
		"<h1>Authorization failed</h1>"
)

// Listener accepts exactly one OAuth redirect on a loopback address.
type Listener struct {
	ln   net.Listener
	port int
}

// Listen binds addr. There is no fallback port.
func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}

	port := 0
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}
	return &Listener{ln: ln, port: port}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Port returns the bound TCP port.
func (l *Listener) Port() int {
	return l.port
}

// Close releases the port. Closing unblocks a pending Accept.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Accept waits, without a timeout, for one connection and returns the
// authorization code it carried. The client always gets an HTML answer: 200
// when a code was found, 400 otherwise.
func (l *Listener) Accept() (string, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return "", fmt.Errorf("failed to accept oauth callback: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debug("failed to close callback connection", "error", err)
		}
	}()

	buf := make([]byte, maxRequestSize)
	n, readErr := conn.Read(buf)
	if n == 0 && readErr != nil {
		writeResponse(conn, false)
		return "", &CallbackParseError{Reason: "failed to read request", Err: readErr}
	}

	code, err := ParseCallbackRequest(buf[:n], l.port)
	writeResponse(conn, err == nil)
	if err != nil {
		return "", err
	}
	return code, nil
}

// ParseCallbackRequest extracts the first code query parameter from a raw
// request. Only the request target of the first line is looked at; it is
// resolved against http://localhost:<port>.
func ParseCallbackRequest(raw []byte, port int) (string, error) {
	text := strings.ToValidUTF8(string(raw), "\uFFFD")
	line, _, _ := strings.Cut(text, "\n")

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", &CallbackParseError{Reason: "malformed request line"}
	}

	u, err := url.Parse(fmt.Sprintf("http://localhost:%d%s", port, fields[1]))
	if err != nil {
		return "", &CallbackParseError{Reason: "invalid request target", Err: err}
	}

	code := firstQueryValue(u.RawQuery, "code")
	if code == "" {
		return "", &CallbackParseError{Reason: "missing code parameter"}
	}
	return code, nil
}

// firstQueryValue walks the query in order and returns the first value for
// key. Keys and values that fail to unescape are used as they appear.
func firstQueryValue(rawQuery, key string) string {
	for rawQuery != "" {
		var pair string
		pair, rawQuery, _ = strings.Cut(rawQuery, "&")
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		if unescapeLenient(k) != key {
			continue
		}
		return unescapeLenient(v)
	}
	return ""
}

func unescapeLenient(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

// writeResponse is best effort: the code has already been extracted (or
// not) by the time the browser is answered.
func writeResponse(conn net.Conn, ok bool) {
	body := failureResponse
	if ok {
		body = successResponse
	}
	if _, err := conn.Write([]byte(body)); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Warn("failed to write oauth callback response", "error", err)
	}
}
