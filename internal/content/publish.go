package content

import (
	"context"
	"time"

	"reelfactory/internal/events"
	"reelfactory/internal/jobs"
	"reelfactory/internal/logging"
	"reelfactory/internal/services/circlo"
	"reelfactory/internal/stage"
)

// PublishStage sends the post to the platform and records it.
type PublishStage struct {
	publisher Publisher
	store     *jobs.Store
	now       func() time.Time
}

// NewPublishStage builds the publisher stage.
func NewPublishStage(publisher Publisher, store *jobs.Store) *PublishStage {
	return &PublishStage{publisher: publisher, store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (s *PublishStage) Name() string  { return "publish" }
func (s *PublishStage) Agent() string { return "Publisher" }

// Execute publishes and persists a published post. A persistence failure
// after a successful publish fails the job.
func (s *PublishStage) Execute(ctx context.Context, run *stage.Run, state *State) error {
	published, err := s.publisher.CreatePost(ctx, circlo.Post{
		Niche:    state.Topic.Niche,
		MediaURL: state.MediaURL,
		Caption:  state.Caption,
		Keywords: state.Topic.Keywords,
	})
	if err != nil {
		return stage.FromService(s.Name(), err)
	}

	publishedAt := s.now()
	post, err := s.store.CreatePost(ctx, &jobs.Post{
		JobID:          run.JobID,
		Iteration:      run.Iteration,
		Niche:          state.Topic.Niche,
		Keywords:       state.Topic.Keywords,
		Caption:        state.Caption,
		MediaURL:       state.MediaURL,
		Status:         jobs.PostPublished,
		ExternalPostID: published.ID,
		PublishedAt:    &publishedAt,
	})
	if err != nil {
		return stage.Persist("post", err)
	}
	state.Posts = append(state.Posts, *post)
	run.Log().Info("post published",
		logging.String("post_id", post.ID),
		logging.String("external_post_id", published.ID),
	)
	run.Emit(events.PostCreated{JobID: run.JobID, Post: *post})
	return nil
}

func (s *PublishStage) HealthCheck(context.Context) stage.Health {
	if !s.publisher.Configured() {
		return stage.Unhealthy(s.Name(), "publisher base_url or token missing")
	}
	return stage.Healthy(s.Name())
}
