package jobs

import (
	"strings"
	"time"
)

// Kind selects the pipeline a job runs.
type Kind string

const (
	KindContent Kind = "content"
	KindVideo   Kind = "video"
)

// ParseKind accepts the canonical names plus a few aliases used by callers.
func ParseKind(value string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "content", "content-post", "post", "posts":
		return KindContent, true
	case "video", "videos":
		return KindVideo, true
	default:
		return "", false
	}
}

// State is a job lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// Job is the persisted snapshot of one pipeline execution.
type Job struct {
	ID             string     `json:"id"`
	Kind           Kind       `json:"kind"`
	State          State      `json:"state"`
	Progress       float64    `json:"progress"`
	TotalUnits     int        `json:"totalUnits"`
	CompletedUnits int        `json:"completedUnits"`
	CurrentStage   string     `json:"currentStage,omitempty"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	ParamsJSON     string     `json:"paramsJson,omitempty"`
	Result         JobResult  `json:"result"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	LastHeartbeat  *time.Time `json:"lastHeartbeat,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// JobResult accumulates pipeline output on the job row.
type JobResult struct {
	PostIDs          []string `json:"postIds,omitempty"`
	FailedIterations []int    `json:"failedIterations,omitempty"`
	VideoID          string   `json:"videoId,omitempty"`
	VideoURL         string   `json:"videoUrl,omitempty"`
	Scenes           []Scene  `json:"scenes,omitempty"`
}

// Patch lists the job fields an update touches; nil fields are left alone.
type Patch struct {
	State          *State
	Progress       *float64
	TotalUnits     *int
	CompletedUnits *int
	// CurrentStage set to "" clears the column.
	CurrentStage *string
	ErrorMessage *string
	Result       *JobResult
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.State == nil && p.Progress == nil && p.TotalUnits == nil && p.CompletedUnits == nil &&
		p.CurrentStage == nil && p.ErrorMessage == nil && p.Result == nil && p.StartedAt == nil && p.CompletedAt == nil
}

// CameraAngle is a storyboard shot type.
type CameraAngle string

const (
	AngleWide     CameraAngle = "wide"
	AngleMedium   CameraAngle = "medium"
	AngleCloseUp  CameraAngle = "close-up"
	AngleOverhead CameraAngle = "overhead"
	AnglePOV      CameraAngle = "pov"
)

// NormalizeCameraAngle maps free-form model output onto the supported angles,
// defaulting to medium.
func NormalizeCameraAngle(value string) CameraAngle {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "wide", "wide shot", "wide-angle", "wide angle":
		return AngleWide
	case "close-up", "closeup", "close up", "close":
		return AngleCloseUp
	case "overhead", "birds-eye", "bird's eye", "top-down", "aerial":
		return AngleOverhead
	case "pov", "point of view", "first-person":
		return AnglePOV
	default:
		return AngleMedium
	}
}

// Transition is how one scene hands over to the next.
type Transition string

const (
	TransitionCut      Transition = "cut"
	TransitionFade     Transition = "fade"
	TransitionDissolve Transition = "dissolve"
	TransitionWipe     Transition = "wipe"
)

// NormalizeTransition maps model output onto the supported transitions,
// defaulting to cut.
func NormalizeTransition(value string) Transition {
	switch Transition(strings.ToLower(strings.TrimSpace(value))) {
	case TransitionFade:
		return TransitionFade
	case TransitionDissolve:
		return TransitionDissolve
	case TransitionWipe:
		return TransitionWipe
	default:
		return TransitionCut
	}
}

// Scene is one ordered storyboard unit of a video job.
type Scene struct {
	Number      int         `json:"sceneNumber"`
	Description string      `json:"description"`
	CameraAngle CameraAngle `json:"cameraAngle"`
	Action      string      `json:"action"`
	Transition  Transition  `json:"transition"`
	Duration    int         `json:"duration"`
	MediaURL    string      `json:"mediaUrl,omitempty"`
}

// PostStatus is the outcome of one content iteration.
type PostStatus string

const (
	PostPublished PostStatus = "published"
	PostFailed    PostStatus = "failed"
)

// Post is the entity written for each content iteration, successful or not.
type Post struct {
	ID             string     `json:"id"`
	JobID          string     `json:"jobId"`
	Iteration      int        `json:"iteration"`
	Niche          string     `json:"niche"`
	Keywords       []string   `json:"keywords,omitempty"`
	Caption        string     `json:"caption,omitempty"`
	MediaURL       string     `json:"mediaUrl,omitempty"`
	Status         PostStatus `json:"status"`
	ExternalPostID string     `json:"externalPostId,omitempty"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	PublishedAt    *time.Time `json:"publishedAt,omitempty"`
}

// VideoStatus tracks a video entity through its job.
type VideoStatus string

const (
	VideoPending    VideoStatus = "pending"
	VideoProcessing VideoStatus = "processing"
	VideoCompleted  VideoStatus = "completed"
	VideoFailed     VideoStatus = "failed"
	VideoCancelled  VideoStatus = "cancelled"
)

// Video is the entity tied 1:1 to a video job.
type Video struct {
	ID              string      `json:"id"`
	JobID           string      `json:"jobId"`
	Prompt          string      `json:"prompt"`
	Niche           string      `json:"niche,omitempty"`
	Title           string      `json:"title,omitempty"`
	StoryScript     string      `json:"storyScript,omitempty"`
	Scenes          []Scene     `json:"scenes,omitempty"`
	Status          VideoStatus `json:"status"`
	VideoURL        string      `json:"videoUrl,omitempty"`
	DurationSeconds int         `json:"duration"`
	ErrorMessage    string      `json:"errorMessage,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
	CompletedAt     *time.Time  `json:"completedAt,omitempty"`
}

// AgentStatus is the activity state of a named pipeline agent.
type AgentStatus string

const (
	AgentIdle   AgentStatus = "idle"
	AgentActive AgentStatus = "active"
)

// Agent is the persisted record of the named worker behind a stage.
type Agent struct {
	Name           string      `json:"name"`
	Role           string      `json:"role"`
	Status         AgentStatus `json:"status"`
	TasksCompleted int         `json:"tasksCompleted"`
	LastActiveAt   *time.Time  `json:"lastActiveAt,omitempty"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Page selects a window of a newest-first listing.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page to a limit of 1..100 (default 20) and a
// non-negative offset.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Storyboard is the structured plan produced for a video job.
type Storyboard struct {
	Title         string  `json:"title"`
	Niche         string  `json:"niche"`
	OverallPrompt string  `json:"overallPrompt"`
	Scenes        []Scene `json:"scenes"`
}

// TotalDuration sums the scene durations in seconds.
func (s Storyboard) TotalDuration() int {
	total := 0
	for _, scene := range s.Scenes {
		total += scene.Duration
	}
	return total
}
