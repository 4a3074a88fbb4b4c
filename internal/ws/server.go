package ws

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// Server upgrades HTTP requests into room connections. The whole service is
// one table, so every websocket lands in the same room.
type Server struct {
	room *Room
	log  logrus.FieldLogger
}

// NewServer wraps a room for HTTP exposure.
func NewServer(room *Room, log logrus.FieldLogger) *Server {
	return &Server{room: room, log: log}
}

// ServeWS is the websocket endpoint. A "token" query parameter carries a
// resume token from a previous connection, if the client has one.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.WithError(err).Warn("websocket accept failed")
		return
	}
	s.room.HandleConnection(r.Context(), conn, r.URL.Query().Get("token"))
}
