package netstatus

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvcrn/httpkit/internal/transport"
)

type transportFunc func(ctx context.Context, method, url string, header http.Header, body []byte) (*transport.Response, error)

func (f transportFunc) Send(ctx context.Context, method, url string, header http.Header, body []byte) (*transport.Response, error) {
	return f(ctx, method, url, header, body)
}

func TestProber_MarksConnectedOnCompletedExchange(t *testing.T) {
	m := NewMonitor()
	tr := transportFunc(func(ctx context.Context, method, url string, header http.Header, body []byte) (*transport.Response, error) {
		if method != http.MethodHead {
			t.Errorf("expected HEAD probe, got %s", method)
		}
		// Any completed exchange counts as reachable, even a server error.
		return &transport.Response{Status: http.StatusServiceUnavailable}, nil
	})

	p := NewProber(m, tr, "https://api.test", time.Minute, zerolog.Nop())
	p.probe()

	if got := m.Current().State; got != Connected {
		t.Fatalf("expected connected after completed probe, got %v", got)
	}
}

func TestProber_MarksDisconnectedOnTransportFailure(t *testing.T) {
	m := NewMonitor()
	tr := transportFunc(func(ctx context.Context, method, url string, header http.Header, body []byte) (*transport.Response, error) {
		return nil, transport.ErrNetworkUnavailable
	})

	p := NewProber(m, tr, "https://api.test", time.Minute, zerolog.Nop())
	p.probe()

	if got := m.Current().State; got != Disconnected {
		t.Fatalf("expected disconnected after failed probe, got %v", got)
	}
}
