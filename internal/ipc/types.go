package ipc

import (
	"reelfactory/internal/daemon"
	"reelfactory/internal/jobs"
	"reelfactory/internal/workflow"
)

// StartRequest starts a job. Kind selects which parameter group applies;
// zero values take the configured defaults.
type StartRequest struct {
	Kind          string `json:"kind"`
	Count         int    `json:"count,omitempty"`
	Prompt        string `json:"prompt,omitempty"`
	Niche         string `json:"niche,omitempty"`
	SceneCount    int    `json:"sceneCount,omitempty"`
	TotalDuration int    `json:"totalDuration,omitempty"`
}

// StartResponse reports the accepted job.
type StartResponse = workflow.StartResult

// StopRequest requests cancellation of one job.
type StopRequest struct {
	JobID string `json:"jobId"`
}

// StopResponse reports whether the job is now stopping or terminal.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest selects a job by id, or the latest running job of Kind.
type StatusRequest struct {
	JobID string `json:"jobId,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// StatusResponse is the job snapshot.
type StatusResponse = workflow.StatusView

// PageRequest selects a newest-first window.
type PageRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (p PageRequest) page() jobs.Page {
	return jobs.Page{Limit: p.Limit, Offset: p.Offset}.Normalize()
}

// PostsResponse contains one page of posts.
type PostsResponse struct {
	Posts  []jobs.Post `json:"posts"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// VideosResponse contains one page of videos.
type VideosResponse struct {
	Videos []jobs.Video `json:"videos"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// GetPostRequest selects one post by id.
type GetPostRequest struct {
	ID string `json:"id"`
}

// PostResponse carries one post.
type PostResponse struct {
	Post *jobs.Post `json:"post"`
}

// GetVideoRequest selects one video by id.
type GetVideoRequest struct {
	ID string `json:"id"`
}

// VideoResponse carries one video with its scenes.
type VideoResponse struct {
	Video *jobs.Video `json:"video"`
}

// PromptRequest asks the video prompter for drafts. Count is read by
// PromptSuggestions only.
type PromptRequest struct {
	workflow.PromptOptions
	Count int `json:"count,omitempty"`
}

// PromptResponse is one drafted video prompt.
type PromptResponse = workflow.PromptIdea

// PromptSuggestionsResponse contains several drafted prompts.
type PromptSuggestionsResponse struct {
	Suggestions []workflow.PromptIdea `json:"suggestions"`
}

// NichesRequest lists the prompter niches.
type NichesRequest struct{}

// NichesResponse contains the niches with prompt templates.
type NichesResponse struct {
	Niches []string `json:"niches"`
}

// NicheInfoRequest selects one niche template.
type NicheInfoRequest struct {
	Niche string `json:"niche"`
}

// NicheInfoResponse is a niche template.
type NicheInfoResponse = workflow.NicheTemplate

// AgentsRequest lists the agent registry.
type AgentsRequest struct{}

// AgentsResponse contains the agent registry.
type AgentsResponse struct {
	Agents []jobs.Agent `json:"agents"`
}

// JobsRequest lists recent jobs, optionally of one kind.
type JobsRequest struct {
	Kind string `json:"kind,omitempty"`
	PageRequest
}

// JobsResponse contains recent jobs.
type JobsResponse struct {
	Jobs []jobs.Job `json:"jobs"`
}

// DaemonRequest fetches daemon runtime status.
type DaemonRequest struct{}

// DaemonResponse is the daemon status plus its process id.
type DaemonResponse struct {
	daemon.Status
	PID int `json:"pid"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	Accepted bool `json:"accepted"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
