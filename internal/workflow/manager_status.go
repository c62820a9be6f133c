package workflow

import (
	"context"
	"fmt"

	"reelfactory/internal/jobs"
	"reelfactory/internal/stage"
)

// Status returns a job by ID, or the latest running job of kind when jobID is
// empty. An empty kind means content. With no running job the view is empty.
func (m *Manager) Status(ctx context.Context, jobID string, kind jobs.Kind) (StatusView, error) {
	var (
		job *jobs.Job
		err error
	)
	if jobID != "" {
		job, err = m.store.GetJob(ctx, jobID)
		if err != nil {
			return StatusView{}, stage.Persist("job lookup", err)
		}
		if job == nil {
			return StatusView{}, fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
		}
	} else {
		if kind == "" {
			kind = jobs.KindContent
		}
		job, err = m.store.LatestRunningJob(ctx, kind)
		if err != nil {
			return StatusView{}, stage.Persist("job lookup", err)
		}
		if job == nil {
			return StatusView{}, nil
		}
	}

	view := StatusView{
		Job:       job,
		IsRunning: job.State == jobs.StateRunning,
		Owned:     m.isActive(job.ID),
	}
	switch job.Kind {
	case jobs.KindVideo:
		video, err := m.store.GetVideoByJob(ctx, job.ID)
		if err != nil {
			return StatusView{}, stage.Persist("video lookup", err)
		}
		view.Video = video
	case jobs.KindContent:
		posts, err := m.store.PostsForJob(ctx, job.ID)
		if err != nil {
			return StatusView{}, stage.Persist("post lookup", err)
		}
		view.Posts = posts
	}
	return view, nil
}

// ListPosts returns one page of posts, newest first, with the total count.
func (m *Manager) ListPosts(ctx context.Context, page jobs.Page) ([]jobs.Post, int, error) {
	return m.store.ListPosts(ctx, page)
}

// GetPost returns one post.
func (m *Manager) GetPost(ctx context.Context, id string) (*jobs.Post, error) {
	post, err := m.store.GetPost(ctx, id)
	if err != nil {
		return nil, stage.Persist("post lookup", err)
	}
	if post == nil {
		return nil, fmt.Errorf("%w: %s", jobs.ErrPostNotFound, id)
	}
	return post, nil
}

// GetVideo returns one video with its scenes.
func (m *Manager) GetVideo(ctx context.Context, id string) (*jobs.Video, error) {
	video, err := m.store.GetVideo(ctx, id)
	if err != nil {
		return nil, stage.Persist("video lookup", err)
	}
	if video == nil {
		return nil, fmt.Errorf("%w: %s", jobs.ErrVideoNotFound, id)
	}
	return video, nil
}

// ListVideos returns one page of videos, newest first, with the total count.
func (m *Manager) ListVideos(ctx context.Context, page jobs.Page) ([]jobs.Video, int, error) {
	return m.store.ListVideos(ctx, page)
}

// Agents returns the agent registry.
func (m *Manager) Agents(ctx context.Context) ([]jobs.Agent, error) {
	if err := m.EnsureAgents(ctx); err != nil {
		return nil, err
	}
	return m.store.ListAgents(ctx)
}

// ListJobs returns recent jobs of kind, or of every kind when kind is empty.
func (m *Manager) ListJobs(ctx context.Context, kind jobs.Kind, page jobs.Page) ([]jobs.Job, error) {
	return m.store.ListJobs(ctx, kind, page)
}
