// Package netsrv is the TCP front door for internal/engine: a
// tomb.v2-supervised worker pool accepts connections and dispatches each
// inbound internal/wire frame to the engine, one frame at a time per
// connection, matching the request with its response by RequestID.
//
// Adapted from the teacher's internal/net/server.go (tomb-supervised accept
// loop + worker pool + connection requeue) and internal/worker.go (the pool
// itself), generalised from the teacher's fire-and-forget order/cancel
// messages to this protocol's synchronous request/response frames.
package netsrv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/liquify/liquify-engine/internal/engine"
	"github.com/liquify/liquify-engine/internal/wire"
)

const (
	defaultNWorkers    = 10
	defaultConnTimeout = 30 * time.Second
)

// ErrImproperConversion mirrors the teacher's worker-pool sanity check: a
// queued task wasn't the type the handler expected.
var ErrImproperConversion = errors.New("netsrv: improper task conversion")

// clientConn tracks one TCP session's admin-authentication state across the
// lifetime of the connection (spec.md §1's owner-badge model, this
// package's in-process substitute: authenticate once, stay authenticated
// for the life of the socket).
type clientConn struct {
	conn          net.Conn
	authenticated bool
}

// Server is the daemon's TCP listener: it owns the engine instance and
// drives every request through dispatch under the engine's own internal
// lock (internal/engine.Engine.mu), so concurrent connections serialize
// naturally at the engine boundary.
type Server struct {
	address    string
	port       int
	engine     *engine.Engine
	adminToken string
	pool       WorkerPool
	cancel     context.CancelFunc
}

// New returns a Server bound to address:port, dispatching onto eng.
// adminToken is the shared secret an authenticate frame must present to
// unlock admin operations on its connection.
func New(address string, port int, eng *engine.Engine, adminToken string) *Server {
	return &Server{
		address:    address,
		port:       port,
		engine:     eng,
		adminToken: adminToken,
		pool:       NewWorkerPool(defaultNWorkers),
	}
}

// Shutdown cancels the server's context, unwinding the accept loop and
// every worker goroutine.
func (s *Server) Shutdown() {
	log.Info().Msg("netsrv shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run accepts connections until ctx is cancelled or Shutdown is called. It
// blocks; call it from its own goroutine.
func (s *Server) Run(ctx context.Context) error {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("netsrv: listen: %w", err)
	}
	defer func() {
		if cerr := listener.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("netsrv: error closing listener")
		}
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})

	log.Info().Str("address", s.address).Int("port", s.port).Msg("netsrv listening")

	for {
		select {
		case <-ctx.Done():
			return t.Wait()
		default:
			conn, err := listener.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return t.Wait()
				}
				log.Error().Err(err).Msg("netsrv: accept failed")
				continue
			}
			log.Info().Str("remote", conn.RemoteAddr().String()).Msg("netsrv: client connected")
			s.pool.AddTask(&clientConn{conn: conn})
		}
	}
}

// handleConnection reads exactly one frame off cc's connection, dispatches
// it, writes the response, and (unless the connection died) requeues cc so
// its next frame gets picked up by another worker — the same
// read-one-then-requeue idiom the teacher's handleConnection uses for raw
// net.Conn tasks.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	cc, ok := task.(*clientConn)
	if !ok {
		return ErrImproperConversion
	}

	select {
	case <-t.Dying():
		return nil
	default:
	}

	if err := cc.conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().Err(err).Str("remote", cc.conn.RemoteAddr().String()).Msg("netsrv: set deadline failed")
		s.closeConn(cc)
		return nil
	}

	frame, err := wire.ReadFrame(cc.conn)
	if err != nil {
		if err != io.EOF {
			log.Error().Err(err).Str("remote", cc.conn.RemoteAddr().String()).Msg("netsrv: read failed")
		}
		s.closeConn(cc)
		return nil
	}

	if frame.Header.Type == wire.MsgAuthenticate {
		req, err := wire.DecodeAuthenticateRequest(frame.Body)
		resp := wire.Reply(frame, wire.MsgOK, nil)
		if err != nil || req.Token != s.adminToken {
			cc.authenticated = false
			resp = wire.Reply(frame, wire.MsgError, wire.EncodeError(engine.ErrAdminRequired))
		} else {
			cc.authenticated = true
		}
		if werr := wire.WriteFrame(cc.conn, resp); werr != nil {
			log.Error().Err(werr).Msg("netsrv: write failed")
			s.closeConn(cc)
			return nil
		}
		s.pool.AddTask(cc)
		return nil
	}

	resp := dispatch(t.Context(nil), s.engine, frame, cc.authenticated)
	if err := wire.WriteFrame(cc.conn, resp); err != nil {
		log.Error().Err(err).Str("remote", cc.conn.RemoteAddr().String()).Msg("netsrv: write failed")
		s.closeConn(cc)
		return nil
	}

	s.pool.AddTask(cc)
	return nil
}

func (s *Server) closeConn(cc *clientConn) {
	if err := cc.conn.Close(); err != nil {
		log.Debug().Err(err).Msg("netsrv: error closing connection")
	}
}

