package events

import (
	"reelfactory/internal/jobs"
)

// Name identifies an event variant on the wire.
type Name string

const (
	NameJobStatus         Name = "job_status"
	NameAgentStatus       Name = "agent_status"
	NameStoryboardCreated Name = "storyboard_created"
	NameSceneProcessing   Name = "scene_processing"
	NameSceneCompleted    Name = "scene_completed"
	NamePostCreated       Name = "post_created"
	NameItemFailed        Name = "item_failed"
	NameJobCompleted      Name = "job_completed"
	NameJobFailed         Name = "job_failed"
	NameJobCancelled      Name = "job_cancelled"
)

// IsTerminal reports whether the event ends a job's event sequence.
func (n Name) IsTerminal() bool {
	return n == NameJobCompleted || n == NameJobFailed || n == NameJobCancelled
}

// Payload is implemented only by the structs in this file.
type Payload interface {
	EventName() Name
	EventJobID() string
	payload()
}

// JobStatus reports job progress at start and around every stage.
type JobStatus struct {
	JobID          string     `json:"jobId"`
	Kind           jobs.Kind  `json:"kind"`
	State          jobs.State `json:"state"`
	Progress       float64    `json:"progress"`
	Stage          string     `json:"stage,omitempty"`
	Agent          string     `json:"agent,omitempty"`
	Iteration      int        `json:"iteration,omitempty"`
	CompletedUnits int        `json:"completedUnits"`
	TotalUnits     int        `json:"totalUnits"`
}

// AgentStatus reports an agent going active or idle.
type AgentStatus struct {
	JobID          string           `json:"jobId"`
	Agent          string           `json:"agent"`
	Status         jobs.AgentStatus `json:"status"`
	TasksCompleted int              `json:"tasksCompleted"`
}

// StoryboardCreated carries the storyboard of a video job.
type StoryboardCreated struct {
	JobID      string          `json:"jobId"`
	VideoID    string          `json:"videoId"`
	Progress   float64         `json:"progress"`
	Storyboard jobs.Storyboard `json:"storyboard"`
}

// SceneProcessing is published before a scene is generated.
type SceneProcessing struct {
	JobID        string  `json:"jobId"`
	VideoID      string  `json:"videoId"`
	Progress     float64 `json:"progress"`
	CurrentScene int     `json:"currentScene"`
	TotalScenes  int     `json:"totalScenes"`
	Description  string  `json:"description"`
}

// SceneCompleted is published once a scene has media.
type SceneCompleted struct {
	JobID       string  `json:"jobId"`
	VideoID     string  `json:"videoId"`
	Progress    float64 `json:"progress"`
	SceneNumber int     `json:"sceneNumber"`
	TotalScenes int     `json:"totalScenes"`
	MediaURL    string  `json:"mediaUrl"`
}

// PostCreated is published after a content iteration persisted its post.
type PostCreated struct {
	JobID string    `json:"jobId"`
	Post  jobs.Post `json:"post"`
}

// ItemFailed is published when one content iteration failed and the job
// moved on.
type ItemFailed struct {
	JobID     string `json:"jobId"`
	Iteration int    `json:"iteration"`
	Stage     string `json:"stage"`
	Error     string `json:"error"`
}

// JobCompleted is the terminal event of a successful job.
type JobCompleted struct {
	JobID          string         `json:"jobId"`
	Kind           jobs.Kind      `json:"kind"`
	CompletedUnits int            `json:"completedUnits"`
	TotalUnits     int            `json:"totalUnits"`
	Result         jobs.JobResult `json:"result"`
}

// JobFailed is the terminal event of a failed job.
type JobFailed struct {
	JobID string    `json:"jobId"`
	Kind  jobs.Kind `json:"kind"`
	Error string    `json:"error"`
}

// JobCancelled is the terminal event of a cancelled job.
type JobCancelled struct {
	JobID string    `json:"jobId"`
	Kind  jobs.Kind `json:"kind"`
}

func (JobStatus) EventName() Name         { return NameJobStatus }
func (AgentStatus) EventName() Name       { return NameAgentStatus }
func (StoryboardCreated) EventName() Name { return NameStoryboardCreated }
func (SceneProcessing) EventName() Name   { return NameSceneProcessing }
func (SceneCompleted) EventName() Name    { return NameSceneCompleted }
func (PostCreated) EventName() Name       { return NamePostCreated }
func (ItemFailed) EventName() Name        { return NameItemFailed }
func (JobCompleted) EventName() Name      { return NameJobCompleted }
func (JobFailed) EventName() Name         { return NameJobFailed }
func (JobCancelled) EventName() Name      { return NameJobCancelled }

func (p JobStatus) EventJobID() string         { return p.JobID }
func (p AgentStatus) EventJobID() string       { return p.JobID }
func (p StoryboardCreated) EventJobID() string { return p.JobID }
func (p SceneProcessing) EventJobID() string   { return p.JobID }
func (p SceneCompleted) EventJobID() string    { return p.JobID }
func (p PostCreated) EventJobID() string       { return p.JobID }
func (p ItemFailed) EventJobID() string        { return p.JobID }
func (p JobCompleted) EventJobID() string      { return p.JobID }
func (p JobFailed) EventJobID() string         { return p.JobID }
func (p JobCancelled) EventJobID() string      { return p.JobID }

func (JobStatus) payload()         {}
func (AgentStatus) payload()       {}
func (StoryboardCreated) payload() {}
func (SceneProcessing) payload()   {}
func (SceneCompleted) payload()    {}
func (PostCreated) payload()       {}
func (ItemFailed) payload()        {}
func (JobCompleted) payload()      {}
func (JobFailed) payload()         {}
func (JobCancelled) payload()      {}
