// Package server runs the DICOM SCP: it accepts TCP connections and hands
// every association to the PDU and DIMSE layers.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caio-sobreiro/dicomcore/dimse"
	"github.com/caio-sobreiro/dicomcore/interfaces"
	"github.com/caio-sobreiro/dicomcore/pdu"
)

// Option configures a Server instance.
type Option func(*Server)

// WithLogger overrides the logger used by the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithReadTimeout sets how long a connection may stay silent.
func WithReadTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.ReadTimeout = timeout
	}
}

// WithWriteTimeout bounds every write to a peer.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.WriteTimeout = timeout
	}
}

// WithAcceptor sets the presentation context policy of the associations.
func WithAcceptor(acceptor *pdu.Acceptor) Option {
	return func(s *Server) {
		s.Acceptor = acceptor
	}
}

// WithMaxAssociations bounds the associations served concurrently. Further
// connections wait in the listen backlog until a slot frees up.
func WithMaxAssociations(n int) Option {
	return func(s *Server) {
		s.MaxAssociations = n
	}
}

// Server is the DICOM listener of a node.
type Server struct {
	AETitle         string
	Handler         interfaces.ServiceHandler
	Acceptor        *pdu.Acceptor // nil means pdu.DefaultAcceptor()
	Logger          *slog.Logger
	ReadTimeout     time.Duration // Idle read timeout, renewed on every read
	WriteTimeout    time.Duration // Write timeout, renewed on every write
	MaxAssociations int           // 0 means unbounded
}

// New builds a Server answering as aeTitle.
func New(aeTitle string, handler interfaces.ServiceHandler, opts ...Option) *Server {
	srv := &Server{AETitle: aeTitle, Handler: handler}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// ListenAndServe listens on address and serves until ctx is done.
func ListenAndServe(ctx context.Context, address, aeTitle string, handler interfaces.ServiceHandler, opts ...Option) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	defer listener.Close()

	return New(aeTitle, handler, opts...).Serve(ctx, listener)
}

// Serve accepts associations on listener until ctx is cancelled or Accept
// fails for good. It waits for the running associations before returning.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	switch {
	case listener == nil:
		return errors.New("server: listener is required")
	case s.Handler == nil:
		return errors.New("server: handler is required")
	case s.AETitle == "":
		return errors.New("server: AE title is required")
	}

	logger := s.logger()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	var slots chan struct{}
	if s.MaxAssociations > 0 {
		slots = make(chan struct{}, s.MaxAssociations)
	}

	logger.Info("DICOM server listening",
		"address", listener.Addr().String(),
		"ae_title", s.AETitle,
		"max_associations", s.MaxAssociations)

	var (
		wg       sync.WaitGroup
		serveErr error
	)

	for {
		if slots != nil {
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}

		conn, err := listener.Accept()
		if err != nil {
			if slots != nil {
				<-slots
			}
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				logger.Warn("Accept timeout", "error", err)
				continue
			}
			serveErr = err
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if slots != nil {
				defer func() { <-slots }()
			}
			s.handleConnection(ctx, conn, logger)
		}()
	}

	wg.Wait()

	if serveErr != nil {
		return serveErr
	}
	return ctx.Err()
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn, logger *slog.Logger) {
	logger = logger.With(
		"association", uuid.NewString(),
		"remote_addr", conn.RemoteAddr().String())
	logger.Info("Accepted DICOM connection")

	// Closing the connection unblocks the layer when the server stops.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if s.ReadTimeout > 0 || s.WriteTimeout > 0 {
		conn = &idleConn{Conn: conn, read: s.ReadTimeout, write: s.WriteTimeout}
	}

	layer := pdu.NewLayer(conn, dimse.NewService(s.Handler, logger), s.AETitle, logger, s.Acceptor)

	if err := layer.HandleConnection(); err != nil && ctx.Err() == nil {
		logger.Warn("DIMSE connection ended", "error", err)
	} else {
		logger.Info("DIMSE connection closed")
	}
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// idleConn renews its deadlines before every read and write, so that a
// long association stays up as long as the peer keeps talking.
type idleConn struct {
	net.Conn
	read, write time.Duration
}

func (c *idleConn) Read(p []byte) (int, error) {
	if c.read > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.read)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

func (c *idleConn) Write(p []byte) (int, error) {
	if c.write > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.write)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}
