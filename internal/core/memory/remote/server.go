package remote

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/observability/log"
	"github.com/zeusync/scenewalk/pkg/generic"
)

// Server answers read requests against a local reader. Requests on one
// connection are served in order.
type Server struct {
	mem      memory.Reader
	upgrader websocket.Upgrader
	maxRead  int
	buffers  *generic.Buffers
	log      log.Log
}

type ServerOption func(*Server)

func WithMaxRead(n int) ServerOption {
	return func(s *Server) { s.maxRead = n }
}

func WithServerLogger(l log.Log) ServerOption {
	return func(s *Server) { s.log = l }
}

// WithCheckOrigin replaces the upgrader's origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) ServerOption {
	return func(s *Server) { s.upgrader.CheckOrigin = fn }
}

func NewServer(mem memory.Reader, opts ...ServerOption) *Server {
	s := &Server{
		mem:     mem,
		maxRead: DefaultMaxRead,
		log:     log.Nop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.buffers = generic.NewBuffers(256, min(s.maxRead, 64*1024))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", log.String("remote", r.RemoteAddr), log.Error(err))
		return
	}
	defer conn.Close()

	s.log.Info("memory client connected", log.String("remote", r.RemoteAddr))
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("memory client read ended", log.String("remote", r.RemoteAddr), log.Error(err))
			}
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		resp := s.handle(data)
		err = conn.WriteMessage(websocket.BinaryMessage, resp.encode())
		s.buffers.Put(resp.data)
		if err != nil {
			s.log.Debug("memory client write failed", log.String("remote", r.RemoteAddr), log.Error(err))
			return
		}
	}
}

func (s *Server) handle(frame []byte) response {
	req, err := decodeRequest(frame)
	if err != nil {
		return response{status: statusBadRequest}
	}
	if int(req.size) > s.maxRead {
		return response{id: req.id, status: statusTooLarge}
	}
	buf := s.buffers.Get(int(req.size))
	if err := memory.ReadInto(s.mem, req.addr, buf); err != nil {
		s.buffers.Put(buf)
		return response{id: req.id, status: statusReadFailed}
	}
	return response{id: req.id, status: statusOK, data: buf}
}
