package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CreatePost records the outcome of one content iteration. ID and CreatedAt
// are assigned when empty.
func (s *Store) CreatePost(ctx context.Context, post *Post) (*Post, error) {
	if post == nil {
		return nil, errors.New("create post: nil post")
	}
	if post.JobID == "" {
		return nil, errors.New("create post: job id required")
	}
	if post.Status != PostPublished && post.Status != PostFailed {
		return nil, fmt.Errorf("create post: unknown status %q", post.Status)
	}
	record := *post
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	keywords, err := nullableJSON(record.Keywords, len(record.Keywords) == 0)
	if err != nil {
		return nil, fmt.Errorf("create post: encode keywords: %w", err)
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.JobID, record.Iteration, nullableString(record.Niche), keywords,
		nullableString(record.Caption), nullableString(record.MediaURL), record.Status,
		nullableString(record.ExternalPostID), nullableString(record.ErrorMessage),
		formatTime(record.CreatedAt), nullableTime(record.PublishedAt),
	); err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return &record, nil
}

// ListPosts returns posts newest first together with the total count.
func (s *Store) ListPosts(ctx context.Context, page Page) ([]Post, int, error) {
	ctx = ensureContext(ctx)
	page = page.Normalize()
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, iteration DESC LIMIT ? OFFSET ?`,
		page.Limit, page.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()
	posts := make([]Post, 0, page.Limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	return posts, total, rows.Err()
}

// GetPost fetches a post by identifier. It returns nil, nil when absent.
func (s *Store) GetPost(ctx context.Context, id string) (*Post, error) {
	post, err := scanPost(s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// PostsForJob returns a job's posts in iteration order.
func (s *Store) PostsForJob(ctx context.Context, jobID string) ([]Post, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+postColumns+` FROM posts WHERE job_id = ? ORDER BY iteration`, jobID)
	if err != nil {
		return nil, fmt.Errorf("posts for job: %w", err)
	}
	defer rows.Close()
	var posts []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

// CreateVideo inserts the video entity for a video job in pending status.
func (s *Store) CreateVideo(ctx context.Context, video *Video) (*Video, error) {
	if video == nil {
		return nil, errors.New("create video: nil video")
	}
	if video.JobID == "" || strings.TrimSpace(video.Prompt) == "" {
		return nil, errors.New("create video: job id and prompt required")
	}
	record := *video
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = VideoPending
	}
	now := s.now()
	record.CreatedAt = now
	record.UpdatedAt = now
	scenes, err := nullableJSON(record.Scenes, len(record.Scenes) == 0)
	if err != nil {
		return nil, fmt.Errorf("create video: encode scenes: %w", err)
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO videos (`+videoColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.JobID, record.Prompt, nullableString(record.Niche), nullableString(record.Title),
		nullableString(record.StoryScript), scenes, record.Status, nullableString(record.VideoURL),
		record.DurationSeconds, nullableString(record.ErrorMessage),
		formatTime(record.CreatedAt), formatTime(record.UpdatedAt), nullableTime(record.CompletedAt),
	); err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}
	return &record, nil
}

// UpdateVideo persists every mutable column of video. CompletedAt is stamped
// the first time the video reaches completed.
func (s *Store) UpdateVideo(ctx context.Context, video *Video) error {
	if video == nil || video.ID == "" {
		return errors.New("update video: id required")
	}
	now := s.now()
	video.UpdatedAt = now
	if video.Status == VideoCompleted && video.CompletedAt == nil {
		video.CompletedAt = &now
	}
	scenes, err := nullableJSON(video.Scenes, len(video.Scenes) == 0)
	if err != nil {
		return fmt.Errorf("update video: encode scenes: %w", err)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE videos SET niche = ?, title = ?, story_script = ?, scenes_json = ?, status = ?, video_url = ?,
         duration_seconds = ?, error_message = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
		nullableString(video.Niche), nullableString(video.Title), nullableString(video.StoryScript), scenes,
		video.Status, nullableString(video.VideoURL), video.DurationSeconds, nullableString(video.ErrorMessage),
		formatTime(now), nullableTime(video.CompletedAt), video.ID,
	)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update video: %s not found", video.ID)
	}
	return nil
}

// GetVideo fetches a video by identifier. It returns nil, nil when absent.
func (s *Store) GetVideo(ctx context.Context, id string) (*Video, error) {
	return s.getVideo(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
}

// GetVideoByJob fetches the video owned by jobID.
func (s *Store) GetVideoByJob(ctx context.Context, jobID string) (*Video, error) {
	return s.getVideo(ctx, `SELECT `+videoColumns+` FROM videos WHERE job_id = ?`, jobID)
}

func (s *Store) getVideo(ctx context.Context, query string, arg string) (*Video, error) {
	video, err := scanVideo(s.db.QueryRowContext(ensureContext(ctx), query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

// ListVideos returns videos newest first together with the total count.
func (s *Store) ListVideos(ctx context.Context, page Page) ([]Video, int, error) {
	ctx = ensureContext(ctx)
	page = page.Normalize()
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+videoColumns+` FROM videos ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		page.Limit, page.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()
	videos := make([]Video, 0, page.Limit)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, *video)
	}
	return videos, total, rows.Err()
}
