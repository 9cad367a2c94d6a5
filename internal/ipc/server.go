package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"github.com/lttle-cloud/ignition/internal/daemon"
	"github.com/lttle-cloud/ignition/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: serverCtx}
	if err := rpcServer.RegisterName("Flashd", srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Ping(_ PingRequest, resp *PingResponse) error {
	resp.PID = os.Getpid()
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.DevicePath = status.DevicePath
	resp.DeviceAvailable = status.DeviceAvailable
	resp.LockPath = status.LockPath
	resp.JournalPath = status.JournalPath
	resp.PID = status.PID
	resp.Journal = JournalStats{
		Total:      status.Journal.Total,
		Failed:     status.Journal.Failed,
		PerCommand: status.Journal.PerCommand,
	}
	resp.Workers = make([]WorkerStatus, 0, len(status.Workers))
	for _, worker := range status.Workers {
		resp.Workers = append(resp.Workers, WorkerStatus{
			Name:   worker.Name,
			State:  string(worker.State),
			Detail: worker.Detail,
		})
	}
	return nil
}

func (s *service) Trigger(_ SendRequest, resp *SendResponse) error {
	s.fillSend(resp, s.daemon.Trigger(s.ctx), "manual_trigger sent")
	return nil
}

func (s *service) Lock(_ SendRequest, resp *SendResponse) error {
	s.fillSend(resp, s.daemon.LockFlash(s.ctx), "flash_lock sent")
	return nil
}

func (s *service) Unlock(_ SendRequest, resp *SendResponse) error {
	s.fillSend(resp, s.daemon.UnlockFlash(s.ctx), "flash_unlock sent")
	return nil
}

func (s *service) fillSend(resp *SendResponse, err error, okMessage string) {
	if err != nil {
		resp.Sent = false
		resp.Message = err.Error()
		return
	}
	resp.Sent = true
	resp.Message = okMessage
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	events, err := s.daemon.Events(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Events = make([]Event, 0, len(events))
	for _, event := range events {
		resp.Events = append(resp.Events, Event{
			ID:        event.ID,
			SessionID: event.SessionID,
			Command:   event.Command,
			Outcome:   event.Outcome,
			Detail:    event.Detail,
			Source:    event.Source,
			CreatedAt: event.CreatedAt,
		})
	}
	return nil
}
