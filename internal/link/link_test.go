package link

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/smartscale/internal/nutrition"
)

func fastTimeouts() Timeouts {
	return Timeouts{
		Ping:    50 * time.Millisecond,
		WiFi:    200 * time.Millisecond,
		Save:    200 * time.Millisecond,
		Upload:  200 * time.Millisecond,
		Barcode: 200 * time.Millisecond,
		Product: 200 * time.Millisecond,
	}
}

// startPeer connects a Conn to a fake gateway that calls handle for every
// request line it receives.
func startPeer(t *testing.T, handle func(req string, w io.Writer)) *Conn {
	t.Helper()
	client, server := net.Pipe()
	go func() {
		sc := bufio.NewScanner(server)
		for sc.Scan() {
			handle(sc.Text(), server)
		}
		server.Close()
	}()
	c := NewConn(client, WithSendDelay(0), WithTimeouts(fastTimeouts()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func reply(w io.Writer, lines ...string) {
	for _, l := range lines {
		fmt.Fprintf(w, "%s\n", l)
	}
}

func TestFramer_TrimsAndSkipsEmptyFrames(t *testing.T) {
	f := NewFramer(strings.NewReader("  PONG \r\n\n   \r\nWIFI-OK\npartial"))
	ctx := context.Background()

	frame, err := f.ReadFrame(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "PONG", frame)

	frame, err = f.ReadFrame(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "WIFI-OK", frame)

	_, err = f.ReadFrame(ctx, time.Second)
	assert.ErrorIs(t, err, ErrClosed, "an undelimited tail is not a frame")
	assert.NoError(t, f.Close())
}

func TestFramer_Timeout(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	f := NewFramer(r)
	defer f.Close()

	start := time.Now()
	frame, err := f.ReadFrame(context.Background(), 20*time.Millisecond)
	assert.True(t, IsTimeout(err))
	assert.Empty(t, frame)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestFramer_ContextCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	f := NewFramer(r)
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.ReadFrame(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFramer_TimeoutSentinelIsNotAPayload(t *testing.T) {
	f := NewFramer(strings.NewReader("TIMEOUT\n"))
	frame, err := f.ReadFrame(context.Background(), time.Second)
	require.NoError(t, err, "a TIMEOUT frame is data, not a deadline expiry")
	assert.Equal(t, MsgTimeout, frame)
}

func TestConn_Ping(t *testing.T) {
	c := startPeer(t, func(req string, w io.Writer) {
		if req == MsgPing {
			reply(w, MsgPong)
		}
	})
	assert.True(t, c.Ping(context.Background()))
}

func TestConn_PingTimesOut(t *testing.T) {
	c := startPeer(t, func(string, io.Writer) {})
	assert.False(t, c.Ping(context.Background()))
}

func TestConn_CheckWiFi(t *testing.T) {
	answers := map[string]string{}
	c := startPeer(t, func(req string, w io.Writer) { reply(w, answers[req]) })

	answers[MsgCheckWiFi] = MsgWiFiOK
	ok, err := c.CheckWiFi(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	answers[MsgCheckWiFi] = MsgNoWiFi
	ok, err = c.CheckWiFi(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	answers[MsgCheckWiFi] = "BANANA"
	ok, err = c.CheckWiFi(context.Background())
	assert.False(t, ok)
	assert.True(t, IsUnexpectedReply(err))
}

func TestConn_LateReplyIsNotCrossTalk(t *testing.T) {
	c := startPeer(t, func(req string, w io.Writer) {
		switch req {
		case MsgPing:
			time.Sleep(120 * time.Millisecond)
			reply(w, MsgPong)
		case MsgCheckWiFi:
			reply(w, MsgNoWiFi)
		}
	})
	ctx := context.Background()

	assert.False(t, c.Ping(ctx), "reply misses the deadline")
	require.Eventually(t, func() bool { return c.framer.Buffered() == 1 },
		time.Second, 5*time.Millisecond, "late PONG arrives")

	ok, err := c.CheckWiFi(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "the late PONG must not answer CHECK-WIFI")
}

func TestConn_LateReplyAfterNextRequest(t *testing.T) {
	first := true
	c := startPeer(t, func(req string, w io.Writer) {
		if req != MsgCheckWiFi {
			return
		}
		if first {
			first = false
			time.Sleep(250 * time.Millisecond)
			reply(w, MsgWiFiOK)
			return
		}
		reply(w, MsgNoWiFi)
	})
	ctx := context.Background()

	_, err := c.CheckWiFi(ctx)
	require.True(t, IsTimeout(err), "WIFI-OK misses the deadline")
	assert.Equal(t, 1, c.Owed())
	assert.Equal(t, 0, c.framer.Buffered(), "nothing buffered before the next request")

	ok, err := c.CheckWiFi(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "the late WIFI-OK must not answer the second CHECK-WIFI")
	assert.Equal(t, 0, c.Owed())
}

func TestConn_LateSaveResultIsSkipped(t *testing.T) {
	c := startPeer(t, func(req string, w io.Writer) {
		switch {
		case req == MsgSave:
			reply(w, MsgWaitingForData)
		case strings.HasPrefix(req, "FIN-COMIDA"):
			time.Sleep(300 * time.Millisecond)
			reply(w, MsgSavedOK)
		case req == MsgPing:
			reply(w, MsgPong)
		}
	})
	ctx := context.Background()

	require.NoError(t, c.StartSave(ctx))
	require.NoError(t, c.Send("FIN-COMIDA,03.07.2024,08:55:36"))
	_, err := c.AwaitSaveResult(ctx)
	require.True(t, IsTimeout(err))

	got, err := c.Request(ctx, MsgPing, time.Second)
	require.NoError(t, err)
	assert.Equal(t, MsgPong, got)
}

func TestConn_SaveExchange(t *testing.T) {
	c := startPeer(t, func(req string, w io.Writer) {
		switch {
		case req == MsgSave:
			reply(w, MsgWaitingForData)
		case strings.HasPrefix(req, "FIN-COMIDA"):
			reply(w, "ERROR-HTTP:503")
		}
	})
	ctx := context.Background()

	require.NoError(t, c.StartSave(ctx))
	for _, l := range []string{"INICIO-COMIDA", "INICIO-PLATO", "ALIMENTO,7,53.5", "FIN-COMIDA,03.07.2024,08:55:36"} {
		require.NoError(t, c.Send(l))
	}
	res, err := c.AwaitSaveResult(ctx)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, 503, res.Status)
	assert.Equal(t, "HTTP-ERROR:503", res.Frame())
}

func TestParseSaveResult(t *testing.T) {
	tests := []struct {
		frame string
		want  SaveResult
		bad   bool
	}{
		{MsgSavedOK, SaveResult{OK: true}, false},
		{MsgNoWiFi, SaveResult{NoWiFi: true}, false},
		{MsgTimeout, SaveResult{TimedOut: true}, false},
		{"HTTP-ERROR:401", SaveResult{Status: 401}, false},
		{"ERROR-HTTP:500", SaveResult{Status: 500}, false},
		{"HTTP-ERROR:abc", SaveResult{}, true},
		{"SAVED", SaveResult{}, true},
	}
	for _, tt := range tests {
		got, err := ParseSaveResult(tt.frame)
		if tt.bad {
			assert.True(t, IsMalformedFrame(err), tt.frame)
			continue
		}
		require.NoError(t, err, tt.frame)
		assert.Equal(t, tt.want, got, tt.frame)
		if tt.frame != "ERROR-HTTP:500" {
			assert.Equal(t, tt.frame, got.Frame())
		}
	}
}

func TestConn_GetBarcode(t *testing.T) {
	next := ""
	c := startPeer(t, func(req string, w io.Writer) {
		if req == MsgGetBarcode {
			reply(w, next)
		}
	})
	ctx := context.Background()

	next = "BARCODE:8410000000000"
	code, err := c.GetBarcode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "8410000000000", code)

	next = MsgNoBarcode
	_, err = c.GetBarcode(ctx)
	assert.ErrorIs(t, err, ErrNoBarcode)

	next = MsgTimeout
	_, err = c.GetBarcode(ctx)
	assert.True(t, IsTimeout(err))
}

func TestConn_GetProduct(t *testing.T) {
	next := ""
	c := startPeer(t, func(req string, w io.Writer) {
		if strings.HasPrefix(req, MsgGetProduct) {
			reply(w, next)
		}
	})
	ctx := context.Background()

	next = "PRODUCT:8410000000000;Yogur natural;0.047;0.031;0.036;0.6"
	p, err := c.GetProduct(ctx, "8410000000000")
	require.NoError(t, err)
	assert.Equal(t, "Yogur natural", p.Name)
	assert.Equal(t, nutrition.Values{Carb: 0.047, Fat: 0.031, Protein: 0.036, Kcal: 0.6}, p.PerGram)

	_, err = c.GetProduct(ctx, "1111")
	assert.True(t, IsUnexpectedReply(err), "echoed barcode must match the request")

	next = MsgNoProduct
	_, err = c.GetProduct(ctx, "1111")
	assert.ErrorIs(t, err, ErrNoProduct)

	next = MsgProductTimeout
	_, err = c.GetProduct(ctx, "1111")
	assert.ErrorIs(t, err, ErrRemoteTimeout)

	next = "HTTP-ERROR:404"
	_, err = c.GetProduct(ctx, "1111")
	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, 404, he.Status)
}

func TestProductFrame_RoundTrip(t *testing.T) {
	p := nutrition.NewProduct("123", "Galletas; María", nutrition.Values{Carb: 0.7, Fat: 0.15, Protein: 0.07, Kcal: 4.5})
	got, err := ParseProduct(FormatProduct(p))
	require.NoError(t, err)
	assert.Equal(t, "Galletas, María", got.Name)
	assert.Equal(t, p.PerGram, got.PerGram)
	assert.Equal(t, p.Barcode, got.Barcode)
}

func TestParseProduct_Malformed(t *testing.T) {
	for _, frame := range []string{
		"PRODUCT:123;name;1;2;3",
		"PRODUCT:;name;1;2;3;4",
		"PRODUCT:123;name;x;2;3;4",
		"PRODUCT:123;name;-1;2;3;4",
		"NOPE",
	} {
		_, err := ParseProduct(frame)
		assert.True(t, IsMalformedFrame(err), frame)
	}
}
