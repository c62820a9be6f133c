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
	"strings"
	"sync"

	"reelfactory/internal/daemon"
	"reelfactory/internal/jobs"
	"reelfactory/internal/logging"
	"reelfactory/internal/workflow"
)

// ServiceName prefixes every RPC method.
const ServiceName = "Factory"

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

// NewServer configures the IPC server at the given socket path. shutdown is
// invoked when a client sends Factory.Shutdown; it may be nil.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, shutdown func()) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &Service{daemon: d, workflow: d.Workflow(), logger: logger, ctx: ctx, shutdown: shutdown}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
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
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
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
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun reelfactory stop --daemon"))
	}
}

// Service holds the RPC methods. It is exported only so net/rpc can register
// it; callers use Client.
type Service struct {
	daemon   *daemon.Daemon
	workflow *workflow.Manager
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

// Start starts a content or video job.
func (s *Service) Start(req StartRequest, resp *StartResponse) error {
	kind, ok := jobs.ParseKind(req.Kind)
	if !ok {
		return fmt.Errorf("unknown job kind %q", req.Kind)
	}
	var (
		result workflow.StartResult
		err    error
	)
	switch kind {
	case jobs.KindContent:
		result, err = s.workflow.StartContent(s.ctx, workflow.ContentParams{Count: req.Count})
	case jobs.KindVideo:
		result, err = s.workflow.StartVideo(s.ctx, workflow.VideoParams{
			Prompt:        strings.TrimSpace(req.Prompt),
			Niche:         strings.TrimSpace(req.Niche),
			SceneCount:    req.SceneCount,
			TotalDuration: req.TotalDuration,
		})
	}
	if err != nil {
		return err
	}
	*resp = result
	s.logger.Info("job started via IPC",
		logging.JobID(result.JobID),
		logging.String(logging.FieldJobKind, string(result.Kind)),
		logging.String(logging.FieldEventType, "ipc_job_start"))
	return nil
}

// Stop cancels one job.
func (s *Service) Stop(req StopRequest, resp *StopResponse) error {
	jobID := strings.TrimSpace(req.JobID)
	if jobID == "" {
		return errors.New("job id is required")
	}
	if err := s.workflow.Stop(s.ctx, jobID); err != nil {
		return err
	}
	resp.Stopped = true
	s.logger.Info("job stop requested via IPC",
		logging.JobID(jobID),
		logging.String(logging.FieldEventType, "ipc_job_stop"))
	return nil
}

// Status returns one job snapshot.
func (s *Service) Status(req StatusRequest, resp *StatusResponse) error {
	var kind jobs.Kind
	if strings.TrimSpace(req.Kind) != "" {
		parsed, ok := jobs.ParseKind(req.Kind)
		if !ok {
			return fmt.Errorf("unknown job kind %q", req.Kind)
		}
		kind = parsed
	}
	view, err := s.workflow.Status(s.ctx, strings.TrimSpace(req.JobID), kind)
	if err != nil {
		return err
	}
	*resp = view
	return nil
}

// ListPosts returns one page of posts.
func (s *Service) ListPosts(req PageRequest, resp *PostsResponse) error {
	page := req.page()
	posts, total, err := s.workflow.ListPosts(s.ctx, page)
	if err != nil {
		return err
	}
	*resp = PostsResponse{Posts: posts, Total: total, Limit: page.Limit, Offset: page.Offset}
	return nil
}

// ListVideos returns one page of videos.
func (s *Service) ListVideos(req PageRequest, resp *VideosResponse) error {
	page := req.page()
	videos, total, err := s.workflow.ListVideos(s.ctx, page)
	if err != nil {
		return err
	}
	*resp = VideosResponse{Videos: videos, Total: total, Limit: page.Limit, Offset: page.Offset}
	return nil
}

// GetPost returns one post.
func (s *Service) GetPost(req GetPostRequest, resp *PostResponse) error {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return errors.New("post id is required")
	}
	post, err := s.workflow.GetPost(s.ctx, id)
	if err != nil {
		return err
	}
	resp.Post = post
	return nil
}

// GetVideo returns one video.
func (s *Service) GetVideo(req GetVideoRequest, resp *VideoResponse) error {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return errors.New("video id is required")
	}
	video, err := s.workflow.GetVideo(s.ctx, id)
	if err != nil {
		return err
	}
	resp.Video = video
	return nil
}

// Prompt drafts one video prompt.
func (s *Service) Prompt(req PromptRequest, resp *PromptResponse) error {
	idea, err := s.workflow.Prompt(s.ctx, req.PromptOptions)
	if err != nil {
		return err
	}
	*resp = idea
	s.logger.Info("video prompt drafted via IPC",
		logging.String("niche", req.Niche),
		logging.String(logging.FieldEventType, "ipc_prompt"))
	return nil
}

// PromptSuggestions drafts several video prompts.
func (s *Service) PromptSuggestions(req PromptRequest, resp *PromptSuggestionsResponse) error {
	ideas, err := s.workflow.PromptSuggestions(s.ctx, req.PromptOptions, req.Count)
	if err != nil {
		return err
	}
	resp.Suggestions = ideas
	return nil
}

// Niches lists the prompter niches.
func (s *Service) Niches(_ NichesRequest, resp *NichesResponse) error {
	niches, err := s.workflow.Niches()
	if err != nil {
		return err
	}
	resp.Niches = niches
	return nil
}

// NicheInfo returns one niche template.
func (s *Service) NicheInfo(req NicheInfoRequest, resp *NicheInfoResponse) error {
	info, err := s.workflow.NicheInfo(req.Niche)
	if err != nil {
		return err
	}
	*resp = info
	return nil
}

// Agents returns the agent registry.
func (s *Service) Agents(_ AgentsRequest, resp *AgentsResponse) error {
	agents, err := s.workflow.Agents(s.ctx)
	if err != nil {
		return err
	}
	resp.Agents = agents
	return nil
}

// Jobs returns recent jobs.
func (s *Service) Jobs(req JobsRequest, resp *JobsResponse) error {
	var kind jobs.Kind
	if strings.TrimSpace(req.Kind) != "" {
		parsed, ok := jobs.ParseKind(req.Kind)
		if !ok {
			return fmt.Errorf("unknown job kind %q", req.Kind)
		}
		kind = parsed
	}
	list, err := s.workflow.ListJobs(s.ctx, kind, req.page())
	if err != nil {
		return err
	}
	resp.Jobs = list
	return nil
}

// Daemon returns daemon runtime status.
func (s *Service) Daemon(_ DaemonRequest, resp *DaemonResponse) error {
	resp.Status = s.daemon.Status(s.ctx)
	resp.PID = os.Getpid()
	return nil
}

// Shutdown asks the daemon process to exit. The reply is sent before the
// process begins shutting down.
func (s *Service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	if s.shutdown == nil {
		return errors.New("shutdown not supported by this daemon")
	}
	s.logger.Info("daemon shutdown requested via IPC",
		logging.String(logging.FieldEventType, "ipc_shutdown"))
	resp.Accepted = true
	go s.shutdown()
	return nil
}

// TestNotification sends a test notification.
func (s *Service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
