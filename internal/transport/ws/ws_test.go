package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/battleship-go/internal/dependencies/clock"
	"github.com/mcoot/battleship-go/internal/dependencies/random"
	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/services/auth"
	"github.com/mcoot/battleship-go/internal/session"
	"github.com/mcoot/battleship-go/internal/storage/memory"
	"github.com/mcoot/battleship-go/internal/testutil"
)

const testRoom = model.RoomID("ROOM01")

// Hub tests

func newTestClient(id string) *Client {
	return newClient(id, model.PlayerID("p-"+id), "Player "+id, nil, testutil.NopLogger())
}

func drain(c *Client) []Envelope {
	var out []Envelope
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return out
			}
			var env Envelope
			_ = json.Unmarshal(msg, &env)
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestHubBroadcastReachesRoomMembers(t *testing.T) {
	hub := NewHub(testutil.NopLogger())
	a, b, c := newTestClient("a"), newTestClient("b"), newTestClient("c")
	for _, cl := range []*Client{a, b, c} {
		hub.Register(cl)
	}
	hub.Join(testRoom, a)
	hub.Join(testRoom, b)

	hub.Broadcast(testRoom, model.EventWin, model.WinPayload{Winner: model.RolePlayer1})

	require.Len(t, drain(a), 1)
	got := drain(b)
	require.Len(t, got, 1)
	assert.Equal(t, model.EventWin, got[0].Event)
	assert.JSONEq(t, `{"winner":"player1"}`, string(got[0].Data))
	assert.Empty(t, drain(c))
}

func TestHubBroadcastOthersSkipsSender(t *testing.T) {
	hub := NewHub(testutil.NopLogger())
	a, b := newTestClient("a"), newTestClient("b")
	hub.Register(a)
	hub.Register(b)
	hub.Join(testRoom, a)
	hub.Join(testRoom, b)

	hub.BroadcastOthers(testRoom, a, model.EventOpponentReady, model.OpponentReadyPayload{})

	assert.Empty(t, drain(a))
	assert.Len(t, drain(b), 1)
}

func TestHubJoinIgnoresUnregisteredConn(t *testing.T) {
	hub := NewHub(testutil.NopLogger())
	a := newTestClient("a")

	hub.Join(testRoom, a)
	assert.False(t, hub.InRoom(testRoom, a))
}

func TestHubUnregisterLeavesRooms(t *testing.T) {
	hub := NewHub(testutil.NopLogger())
	a := newTestClient("a")
	hub.Register(a)
	hub.Join(testRoom, a)
	require.True(t, hub.InRoom(testRoom, a))

	hub.Unregister(a)

	assert.False(t, hub.InRoom(testRoom, a))
	assert.Zero(t, hub.ClientCount())
	assert.ErrorIs(t, a.Send(model.EventWin, model.WinPayload{}), ErrSendBufferFull)

	// second unregister is a no-op
	hub.Unregister(a)
}

func TestClientSendDropsWhenBufferFull(t *testing.T) {
	a := newTestClient("a")
	for i := 0; i < sendBufferSize; i++ {
		require.NoError(t, a.Send(model.EventWin, model.WinPayload{}))
	}
	assert.ErrorIs(t, a.Send(model.EventWin, model.WinPayload{}), ErrSendBufferFull)
}

func TestSanitizeChatEscapesMarkup(t *testing.T) {
	assert.Equal(t, "&lt;script&gt;alert(1)&lt;/script&gt;", SanitizeChat("<script>alert(1)</script>"))
}

// Handler tests

type HandlerSuite struct {
	suite.Suite
	auth   *auth.Service
	hub    *Hub
	server *httptest.Server
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

// echoDispatcher joins the room on "join" and relays "say" to the other members
func (s *HandlerSuite) echoDispatcher() Dispatcher {
	return DispatcherFunc(func(ctx context.Context, conn session.Conn, event string, data json.RawMessage) {
		switch event {
		case "join":
			s.hub.Join(testRoom, conn)
			_ = conn.Send(model.EventJoined, model.JoinedPayload{Room: testRoom})
		case "say":
			var text string
			_ = json.Unmarshal(data, &text)
			s.hub.BroadcastOthers(testRoom, conn, model.EventChatMessage, model.ChatMessagePayload{
				Username: conn.DisplayName(),
				Message:  SanitizeChat(text),
			})
		default:
			_ = conn.Send(model.EventErrorMessage, model.ErrorPayload{Error: "Unknown event"})
		}
	})
}

func (s *HandlerSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.auth = auth.New(memory.New(), clock.New(), random.New(), auth.Config{Secret: "test-secret"})
	s.hub = NewHub(logger)
	s.server = httptest.NewServer(NewHandler(s.hub, s.auth, s.echoDispatcher(), nil, logger))
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
	s.hub.Close()
}

func (s *HandlerSuite) wsURL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http")
}

func (s *HandlerSuite) token(name string) string {
	sess, err := s.auth.CreateGuest(context.Background(), name)
	s.Require().NoError(err)
	return sess.Token
}

func (s *HandlerSuite) dial(token string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL()+"?token="+token, nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *HandlerSuite) write(conn *websocket.Conn, event string, data any) {
	raw, err := json.Marshal(data)
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteJSON(Envelope{Event: event, Data: raw}))
}

func (s *HandlerSuite) read(conn *websocket.Conn) Envelope {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	var env Envelope
	s.Require().NoError(conn.ReadJSON(&env))
	return env
}

func (s *HandlerSuite) TestRejectsMissingToken() {
	_, resp, err := websocket.DefaultDialer.Dial(s.wsURL(), nil)
	s.Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerSuite) TestRejectsInvalidToken() {
	_, resp, err := websocket.DefaultDialer.Dial(s.wsURL()+"?token=garbage", nil)
	s.Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerSuite) TestAcceptsBearerHeader() {
	header := http.Header{"Authorization": []string{"Bearer " + s.token("Alice")}}
	conn, resp, err := websocket.DefaultDialer.Dial(s.wsURL(), header)
	s.Require().NoError(err)
	defer conn.Close()
	s.Equal(http.StatusSwitchingProtocols, resp.StatusCode)

	s.write(conn, "join", nil)
	s.Equal(model.EventJoined, s.read(conn).Event)
}

func (s *HandlerSuite) TestRelaysBetweenRoomMembers() {
	alice := s.dial(s.token("Alice"))
	bob := s.dial(s.token("Bob"))

	s.write(alice, "join", nil)
	s.Equal(model.EventJoined, s.read(alice).Event)
	s.write(bob, "join", nil)
	s.Equal(model.EventJoined, s.read(bob).Event)

	s.write(alice, "say", "<b>hi</b>")

	env := s.read(bob)
	s.Equal(model.EventChatMessage, env.Event)
	var msg model.ChatMessagePayload
	s.Require().NoError(json.Unmarshal(env.Data, &msg))
	s.Equal("Alice", msg.Username)
	s.Equal("&lt;b&gt;hi&lt;/b&gt;", msg.Message)
}

func (s *HandlerSuite) TestMalformedFrameGetsErrorMessage() {
	conn := s.dial(s.token("Alice"))

	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))

	env := s.read(conn)
	s.Equal(model.EventErrorMessage, env.Event)
	s.JSONEq(`{"error":"Malformed request"}`, string(env.Data))
}

func (s *HandlerSuite) TestDisconnectUnregistersClient() {
	conn := s.dial(s.token("Alice"))
	s.write(conn, "join", nil)
	s.read(conn)
	s.Equal(1, s.hub.ClientCount())

	s.Require().NoError(conn.Close())

	s.Eventually(func() bool { return s.hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
