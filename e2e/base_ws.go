package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"chat-broker/runtime"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

// BaseBrokerSuite drives a running broker over its public surface: the REST
// endpoints for registration and a websocket per connected identity.
type BaseBrokerSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseBrokerSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.BrokerAddr == "" {
		s.T().Skip("BROKER_ADDR not set, skipping end-to-end scenarios")
	}
}

func (s *BaseBrokerSuite) logStep(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// RegisterUser creates an account through the REST surface and returns the
// session token for the websocket handshake.
func (s *BaseBrokerSuite) RegisterUser(email, password, role string) string {
	body, err := json.Marshal(map[string]string{
		"email": email, "password": password, "role": role,
	})
	s.Require().NoError(err)

	url := fmt.Sprintf("http://%s/auth/register", s.Config.BrokerAddr)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var parsed struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&parsed))
	s.Require().NotEmpty(parsed.Token)
	return parsed.Token
}

// brokerConn wraps one identity's websocket with frame logging.
type brokerConn struct {
	suite *BaseBrokerSuite
	ws    *websocket.Conn
}

// Connect opens a websocket for the given token.
func (s *BaseBrokerSuite) Connect(name, token string) *brokerConn {
	s.logStep(name)
	url := fmt.Sprintf("ws://%s/ws?token=%s", s.Config.BrokerAddr, token)
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	s.Require().NoError(err, "Failed to open websocket to "+s.Config.BrokerAddr)
	return &brokerConn{suite: s, ws: ws}
}

func (c *brokerConn) Close() {
	_ = c.ws.Close()
}

// Send pushes one envelope down the websocket.
func (c *brokerConn) Send(eventType string, payload any) {
	raw, err := json.Marshal(payload)
	c.suite.Require().NoError(err)
	env := runtime.Envelope{Type: eventType, Payload: raw}
	if c.suite.Config.DebugJSON {
		c.suite.T().Logf("SEND %s: %s", eventType, raw)
	}
	c.suite.Require().NoError(c.ws.WriteJSON(env))
}

// WaitFor reads frames until one of the wanted type arrives, decoding its
// payload into out when out is non-nil. Unrelated frames are logged and
// dropped.
func (c *brokerConn) WaitFor(eventType string, out any, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for {
		c.suite.Require().NoError(c.ws.SetReadDeadline(deadline))
		var env runtime.Envelope
		err := c.ws.ReadJSON(&env)
		c.suite.Require().NoError(err, "timed out waiting for %s", eventType)
		if c.suite.Config.DebugJSON {
			c.suite.T().Logf("RECV %s: %s", env.Type, env.Payload)
		}
		if env.Type != eventType {
			continue
		}
		if out != nil {
			c.suite.Require().NoError(json.Unmarshal(env.Payload, out))
		}
		return
	}
}

func uniqueEmail(t *testing.T, prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}
