package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"reelfactory/internal/workflow"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(ServiceName+"."+method, req, resp)
}

// Start starts a job.
func (c *Client) Start(req StartRequest) (*StartResponse, error) {
	var resp StartResponse
	if err := c.call("Start", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop cancels a job.
func (c *Client) Stop(jobID string) (*StopResponse, error) {
	var resp StopResponse
	if err := c.call("Stop", StopRequest{JobID: jobID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status fetches a job snapshot. An empty jobID resolves the latest running
// job of kind.
func (c *Client) Status(jobID, kind string) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{JobID: jobID, Kind: kind}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListPosts returns one page of posts.
func (c *Client) ListPosts(limit, offset int) (*PostsResponse, error) {
	var resp PostsResponse
	if err := c.call("ListPosts", PageRequest{Limit: limit, Offset: offset}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListVideos returns one page of videos.
func (c *Client) ListVideos(limit, offset int) (*VideosResponse, error) {
	var resp VideosResponse
	if err := c.call("ListVideos", PageRequest{Limit: limit, Offset: offset}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPost fetches one post.
func (c *Client) GetPost(id string) (*PostResponse, error) {
	var resp PostResponse
	if err := c.call("GetPost", GetPostRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetVideo fetches one video.
func (c *Client) GetVideo(id string) (*VideoResponse, error) {
	var resp VideoResponse
	if err := c.call("GetVideo", GetVideoRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Prompt drafts one video prompt.
func (c *Client) Prompt(opts workflow.PromptOptions) (*PromptResponse, error) {
	var resp PromptResponse
	if err := c.call("Prompt", PromptRequest{PromptOptions: opts}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PromptSuggestions drafts up to count video prompts.
func (c *Client) PromptSuggestions(opts workflow.PromptOptions, count int) (*PromptSuggestionsResponse, error) {
	var resp PromptSuggestionsResponse
	if err := c.call("PromptSuggestions", PromptRequest{PromptOptions: opts, Count: count}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Niches lists the prompter niches.
func (c *Client) Niches() (*NichesResponse, error) {
	var resp NichesResponse
	if err := c.call("Niches", NichesRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NicheInfo fetches one niche template.
func (c *Client) NicheInfo(niche string) (*NicheInfoResponse, error) {
	var resp NicheInfoResponse
	if err := c.call("NicheInfo", NicheInfoRequest{Niche: niche}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Agents returns the agent registry.
func (c *Client) Agents() (*AgentsResponse, error) {
	var resp AgentsResponse
	if err := c.call("Agents", AgentsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Jobs returns recent jobs of kind, or of every kind when kind is empty.
func (c *Client) Jobs(kind string, limit, offset int) (*JobsResponse, error) {
	var resp JobsResponse
	req := JobsRequest{Kind: kind, PageRequest: PageRequest{Limit: limit, Offset: offset}}
	if err := c.call("Jobs", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Daemon retrieves the daemon status.
func (c *Client) Daemon() (*DaemonResponse, error) {
	var resp DaemonResponse
	if err := c.call("Daemon", DaemonRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.call("Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
