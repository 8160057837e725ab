package wsgateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingHandler struct {
	events chan transport.Inbound
}

func (r *recordingHandler) Handle(_ context.Context, in transport.Inbound) error {
	r.events <- in
	return nil
}

func staticAuth(token string) (domain.Identity, string, error) {
	id, hint, ok := strings.Cut(token, ".")
	if !ok || id == "" {
		return "", "", errors.New("bad token")
	}
	return domain.Identity(id), hint, nil
}

type harness struct {
	hub     *Hub
	server  *httptest.Server
	handler *recordingHandler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	hub := NewHub(staticAuth, nil, Options{WriteTimeout: time.Second, QueueSize: 4})
	handler := &recordingHandler{events: make(chan transport.Inbound, 8)}
	hub.SetHandler(handler)
	server := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return &harness{hub: hub, server: server, handler: handler}
}

func (h *harness) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	id, _, _ := strings.Cut(token, ".")
	before := h.hub.Connections(domain.Identity(id))
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return h.hub.Connections(domain.Identity(id)) > before }, time.Second, 5*time.Millisecond)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) transport.OutboundFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame transport.OutboundFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestRejectsMissingOrBadToken(t *testing.T) {
	h := newHarness(t)
	url := "ws" + strings.TrimPrefix(h.server.URL, "http")

	for _, header := range []http.Header{nil, {"Authorization": []string{"Bearer nodot"}}} {
		_, resp, err := websocket.DefaultDialer.Dial(url, header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestDeliverReachesEveryConnection(t *testing.T) {
	h := newHarness(t)
	first := h.dial(t, "42.@sara")
	second := h.dial(t, "42.@sara")

	require.NoError(t, h.hub.Deliver(context.Background(), "42", domain.Image{Ref: "img-1", Caption: "chart"}))

	for _, conn := range []*websocket.Conn{first, second} {
		frame := readFrame(t, conn)
		assert.Equal(t, "content", frame.Type)
		require.NotNil(t, frame.Content)
		item, err := frame.Content.Decode()
		require.NoError(t, err)
		assert.Equal(t, domain.Image{Ref: "img-1", Caption: "chart"}, item)
	}
}

func TestDeliverTextCarriesChoices(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "100.")

	err := h.hub.DeliverText(context.Background(), "100", "Delegate this request to:",
		transport.WithEmphasis(),
		transport.WithChoices(transport.Choice{Label: "Send to Zahra", Data: transport.DelegationData("200", "42_1")}))
	require.NoError(t, err)

	frame := readFrame(t, conn)
	assert.Equal(t, "notice", frame.Type)
	assert.True(t, frame.Emphasis)
	require.Len(t, frame.Choices, 1)
	assert.Equal(t, "delegate:200:42_1", frame.Choices[0].Data)
}

func TestDeliverToOfflineRecipient(t *testing.T) {
	h := newHarness(t)

	err := h.hub.DeliverText(context.Background(), "77", "hello")
	assert.ErrorIs(t, err, transport.ErrRecipientOffline)
	var deliveryErr *transport.DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Equal(t, domain.Identity("77"), deliveryErr.Recipient)
}

func TestInboundFramesAreAttributedToTokenIdentity(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "42.@sara")

	require.NoError(t, conn.WriteJSON(transport.InboundFrame{
		Type:    "content",
		Content: &transport.ContentFrame{Kind: domain.ContentKindText, Text: "hello"},
	}))
	require.NoError(t, conn.WriteJSON(transport.InboundFrame{
		Type: "choice",
		Data: transport.CategoryData("Crypto"),
	}))

	first := <-h.handler.events
	assert.Equal(t, domain.Identity("42"), first.Sender)
	assert.Equal(t, "@sara", first.SenderHint)
	assert.Equal(t, transport.InboundContent, first.Kind)
	assert.Equal(t, domain.Text{Body: "hello"}, first.Item)

	second := <-h.handler.events
	assert.Equal(t, transport.InboundCategory, second.Kind)
	assert.Equal(t, "Crypto", second.Category)
}

func TestMalformedFrameGetsErrorReply(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "42.")

	require.NoError(t, conn.WriteJSON(transport.InboundFrame{Type: "choice", Data: "bogus"}))

	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame.Type)
	assert.Contains(t, frame.Text, "unrecognized choice")
}

func TestDisconnectUnregisters(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "42.")

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return !h.hub.Connected("42") }, time.Second, 5*time.Millisecond)
}
