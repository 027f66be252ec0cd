package oauth

import (
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

func TestParseCallbackRequest(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"Simple", "GET /oauth-callback?code=abc HTTP/1.1\r\nHost: localhost\r\n\r\n", "abc", false},
		{"CodeLast", "GET /oauth-callback?state=s&scope=x%20y&code=4%2F0Ab HTTP/1.1\r\n", "4/0Ab", false},
		{"CodeFirst", "GET /oauth-callback?code=first&state=s HTTP/1.1\r\n", "first", false},
		{"Duplicate", "GET /cb?code=one&code=two HTTP/1.1\r\n", "one", false},
		{"BadEscapeElsewhere", "GET /cb?x=%zz&code=ok HTTP/1.1\r\n", "ok", false},
		{"BadEscapeInCode", "GET /cb?state=s&code=abc%zz HTTP/1.1\r\n", "abc%zz", false},
		{"BadEscapeInOtherKey", "GET /cb?co%zzde=x&code=ok HTTP/1.1\r\n", "ok", false},
		{"NoVersion", "GET /cb?code=bare", "bare", false},
		{"Missing", "GET /oauth-callback?state=s HTTP/1.1\r\n", "", true},
		{"EmptyCode", "GET /oauth-callback?code= HTTP/1.1\r\n", "", true},
		{"CodeOnlyInHeader", "GET / HTTP/1.1\r\nReferer: /x?code=abc\r\n", "", true},
		{"Empty", "", "", true},
		{"OneToken", "GET\r\n", "", true},
		{"Binary", "\xff\xfe\x00", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCallbackRequest([]byte(tt.raw), 8888)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCallbackRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var parseErr *CallbackParseError
				if !errors.As(err, &parseErr) {
					t.Errorf("error %T should be *CallbackParseError", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseCallbackRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func sendRequest(t *testing.T, addr, request string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	defer conn.Close()

	if _, err := io.WriteString(conn, request); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	resp, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return string(resp)
}

func TestListener_AcceptSuccess(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}
	defer ln.Close()

	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		code, err := ln.Accept()
		done <- result{code, err}
	}()

	resp := sendRequest(t, ln.Addr().String(), "GET /oauth-callback?state=xyz&code=the-code HTTP/1.1\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.1 200 OK") {
		t.Errorf("response = %q, want 200", resp)
	}
	if !strings.Contains(resp, "window.close()") {
		t.Error("success page should close itself")
	}

	r := <-done
	if r.err != nil {
		t.Fatalf("Accept() error = %v", r.err)
	}
	if r.code != "the-code" {
		t.Errorf("Accept() = %q, want the-code", r.code)
	}
}

func TestListener_AcceptMissingCode(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}
	defer ln.Close()

	done := make(chan error, 1)
	go func() {
		_, err := ln.Accept()
		done <- err
	}()

	resp := sendRequest(t, ln.Addr().String(), "GET /oauth-callback?error=access_denied HTTP/1.1\r\n\r\n")
	if !strings.HasPrefix(resp, "HTTP/1.1 400 Bad Request") {
		t.Errorf("response = %q, want 400", resp)
	}

	var parseErr *CallbackParseError
	if err := <-done; !errors.As(err, &parseErr) {
		t.Errorf("Accept() error = %v, want *CallbackParseError", err)
	}
}

func TestListen_BindError(t *testing.T) {
	first, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}
	defer first.Close()

	_, err = Listen(first.Addr().String())
	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("second Listen() error = %v, want *BindError", err)
	}
	if bindErr.Addr != first.Addr().String() {
		t.Errorf("BindError.Addr = %q, want %q", bindErr.Addr, first.Addr().String())
	}
}

func TestListener_AcceptBlocksWithoutCallback(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := ln.Accept()
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("Accept() returned early: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	// Closing the listener is the only way out
	ln.Close()
	select {
	case err := <-done:
		if err == nil {
			t.Error("Accept() after Close should fail")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Accept() did not return after Close")
	}
}
