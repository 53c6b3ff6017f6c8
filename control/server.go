package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strings"

	"github.com/ShadowBlip/InputPlumber-sub001/apitypes"
	"github.com/ShadowBlip/InputPlumber-sub001/control/auth"
	apierror "github.com/ShadowBlip/InputPlumber-sub001/control/error"
)

// Server implements the control surface from spec.md §6: a small,
// length-prefixed TCP command protocol over CompositeDevice and target
// objects, secured by the teacher's PBKDF2 + ChaCha20-Poly1305 session
// handshake (control/auth).
type Server struct {
	addr   string
	ln     net.Listener
	logger *slog.Logger
	router *Router
	config *ServerConfig
}

// New creates a Server bound to addr, unstarted until Start is called.
func New(addr string, config ServerConfig, logger *slog.Logger) *Server {
	cfg := config
	return &Server{
		addr:   addr,
		logger: logger,
		config: &cfg,
		router: NewRouter(),
	}
}

// Router returns the router used by the API server so callers can register handlers.
func (s *Server) Router() *Router { return s.router }

// Config returns the server configuration.
func (s *Server) Config() *ServerConfig { return s.config }

// Addr returns the actual address the server is listening on.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Start listens on the configured address and serves incoming commands.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.addr = ln.Addr().String()
	s.config.Addr = s.addr
	s.logger.Info("control server listening", "addr", s.addr)
	go s.serve()
	return nil
}

// Close stops the server.
func (s *Server) Close() {
	if s.ln != nil {
		_ = s.ln.Close()
	}
}

func (s *Server) serve() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || strings.Contains(strings.ToLower(err.Error()), "use of closed network connection") {
				s.logger.Info("control server stopped")
				return
			}
			s.logger.Info("control accept error", "error", err)
			return
		}
		if tcpConn, ok := c.(*net.TCPConn); ok {
			if err := tcpConn.SetNoDelay(true); err != nil {
				s.logger.Warn("failed to set TCP_NODELAY", "error", err)
			}
		}
		go s.handleConn(c)
	}
}

func (s *Server) writeError(w io.Writer, err error) {
	apiErr := apierror.WrapError(err)
	problemJSON, _ := json.Marshal(apiErr)
	fmt.Fprintf(w, "%s\n", string(problemJSON))
}

func (s *Server) writeOK(w io.Writer, rest string) {
	if rest == "" {
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "%s\n", rest)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	connCtx, connCancel := context.WithCancel(context.Background())
	defer connCancel()

	connLogger := s.logger.With("remote", conn.RemoteAddr().String())
	r := bufio.NewReader(conn)
	w := conn

	isAuth, err := auth.IsAuthHandshake(r)
	if err != nil {
		connLogger.Error("control handshake check", "error", err)
	}

	if !isAuth && s.requiresAuth(conn.RemoteAddr()) {
		connLogger.Error("authentication required")
		s.writeError(w, apierror.ErrUnauthorized("authentication required"))
		return
	}

	if isAuth {
		connLogger.Debug("detected auth attempt")
		key, err := auth.DeriveKey(s.config.Password)
		if err != nil {
			connLogger.Error("derive key failed", "error", err)
			return
		}

		clientNonce, serverNonce, err := auth.HandleAuthHandshake(r, w, key, false)
		if err != nil {
			var apiErr apitypes.ApiError
			if errors.As(err, &apiErr) {
				connLogger.Error("auth handshake failed", "error", err)
				s.writeError(w, err)
				return
			}
			connLogger.Error("auth handshake failed", "error", err)
			return
		}

		sessionKey := auth.DeriveSessionKey(key, serverNonce, clientNonce)
		secConn, err := auth.WrapConn(conn, sessionKey)
		if err != nil {
			connLogger.Error("wrap secure conn failed", "error", err)
			return
		}
		conn = secConn
		r = bufio.NewReader(conn)
		w = conn

		connLogger.Debug("authenticated connection established")
	} else {
		connLogger.Debug("continuing unauthenticated connection")
	}

	reqData, err := r.ReadString('\x00')
	if err != nil {
		if err == io.EOF {
			connLogger.Error("control incomplete request (no null terminator)")
		} else {
			connLogger.Error("read control data", "error", err)
		}
		return
	}
	reqData = strings.TrimSuffix(reqData, "\x00")

	if reqData == "" {
		connLogger.Error("control empty command")
		s.writeError(w, apierror.ErrBadRequest("empty request"))
		return
	}

	wsRegex := regexp.MustCompile(`\s`)
	loc := wsRegex.FindStringIndex(reqData)

	var path, payload string
	if loc != nil {
		path = reqData[:loc[0]]
		payload = reqData[loc[1]:]
	} else {
		path = reqData
	}

	if path == "" {
		connLogger.Error("control empty path")
		s.writeError(w, apierror.ErrBadRequest("empty path"))
		return
	}

	path = strings.ToLower(path)
	connLogger.Info("control cmd", "path", path)

	h, params := s.router.Match(path)
	if h == nil {
		connLogger.Error("control unknown path", "path", path)
		s.writeError(w, apierror.ErrNotFound(fmt.Sprintf("unknown path: %s", path)))
		return
	}

	req := &Request{Ctx: connCtx, Params: params, Payload: payload}
	res := &Response{}
	if err := h(req, res, connLogger); err != nil {
		connLogger.Error("control handler error", "path", path, "error", err)
		s.writeError(w, err)
		return
	}
	connLogger.Debug("control handler success", "path", path)
	s.writeOK(w, res.JSON)
}

func (s *Server) isLocalHostClient(addr net.Addr) bool {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return false
	}
	switch host {
	case "localhost", "127.0.0.1", "[::1]", "::1":
		return true
	}
	return false
}

func (s *Server) requiresAuth(addr net.Addr) bool {
	if s.isLocalHostClient(addr) {
		return s.config.RequireLocalHostAuth
	}
	return true
}
