package jobs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

type rowScanner interface {
	Scan(dest ...any) error
}

const jobColumns = "id, kind, state, progress, total_units, completed_units, current_stage, error_message, params_json, result_json, started_at, completed_at, last_heartbeat, created_at, updated_at"

func scanJob(scanner rowScanner) (*Job, error) {
	var (
		job          Job
		kind, state  string
		currentStage sql.NullString
		errorMessage sql.NullString
		params       sql.NullString
		result       sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
		heartbeatRaw sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&job.ID, &kind, &state, &job.Progress, &job.TotalUnits, &job.CompletedUnits,
		&currentStage, &errorMessage, &params, &result,
		&startedRaw, &completedRaw, &heartbeatRaw, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	job.Kind = Kind(kind)
	job.State = State(state)
	job.CurrentStage = currentStage.String
	job.ErrorMessage = errorMessage.String
	job.ParamsJSON = params.String
	if result.Valid && result.String != "" {
		if err := json.Unmarshal([]byte(result.String), &job.Result); err != nil {
			return nil, err
		}
	}
	job.StartedAt = parseNullableTime(startedRaw)
	job.CompletedAt = parseNullableTime(completedRaw)
	job.LastHeartbeat = parseNullableTime(heartbeatRaw)
	job.CreatedAt, _ = parseTimeString(createdRaw)
	job.UpdatedAt, _ = parseTimeString(updatedRaw)
	return &job, nil
}

const postColumns = "id, job_id, iteration, niche, keywords_json, caption, media_url, status, external_post_id, error_message, created_at, published_at"

func scanPost(scanner rowScanner) (*Post, error) {
	var (
		post         Post
		niche        sql.NullString
		keywords     sql.NullString
		caption      sql.NullString
		mediaURL     sql.NullString
		status       string
		externalID   sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		publishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&post.ID, &post.JobID, &post.Iteration, &niche, &keywords, &caption, &mediaURL,
		&status, &externalID, &errorMessage, &createdRaw, &publishedRaw,
	); err != nil {
		return nil, err
	}
	post.Niche = niche.String
	post.Caption = caption.String
	post.MediaURL = mediaURL.String
	post.Status = PostStatus(status)
	post.ExternalPostID = externalID.String
	post.ErrorMessage = errorMessage.String
	if keywords.Valid && keywords.String != "" {
		if err := json.Unmarshal([]byte(keywords.String), &post.Keywords); err != nil {
			return nil, err
		}
	}
	post.CreatedAt, _ = parseTimeString(createdRaw)
	post.PublishedAt = parseNullableTime(publishedRaw)
	return &post, nil
}

const videoColumns = "id, job_id, prompt, niche, title, story_script, scenes_json, status, video_url, duration_seconds, error_message, created_at, updated_at, completed_at"

func scanVideo(scanner rowScanner) (*Video, error) {
	var (
		video        Video
		niche        sql.NullString
		title        sql.NullString
		script       sql.NullString
		scenes       sql.NullString
		status       string
		videoURL     sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
		completedRaw sql.NullString
	)
	if err := scanner.Scan(
		&video.ID, &video.JobID, &video.Prompt, &niche, &title, &script, &scenes, &status,
		&videoURL, &video.DurationSeconds, &errorMessage, &createdRaw, &updatedRaw, &completedRaw,
	); err != nil {
		return nil, err
	}
	video.Niche = niche.String
	video.Title = title.String
	video.StoryScript = script.String
	video.Status = VideoStatus(status)
	video.VideoURL = videoURL.String
	video.ErrorMessage = errorMessage.String
	if scenes.Valid && scenes.String != "" {
		if err := json.Unmarshal([]byte(scenes.String), &video.Scenes); err != nil {
			return nil, err
		}
	}
	video.CreatedAt, _ = parseTimeString(createdRaw)
	video.UpdatedAt, _ = parseTimeString(updatedRaw)
	video.CompletedAt = parseNullableTime(completedRaw)
	return &video, nil
}

const agentColumns = "name, role, status, tasks_completed, last_active_at, updated_at"

func scanAgent(scanner rowScanner) (*Agent, error) {
	var (
		agent      Agent
		role       sql.NullString
		status     string
		activeRaw  sql.NullString
		updatedRaw string
	)
	if err := scanner.Scan(&agent.Name, &role, &status, &agent.TasksCompleted, &activeRaw, &updatedRaw); err != nil {
		return nil, err
	}
	agent.Role = role.String
	agent.Status = AgentStatus(status)
	agent.LastActiveAt = parseNullableTime(activeRaw)
	agent.UpdatedAt, _ = parseTimeString(updatedRaw)
	return &agent, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func nullableJSON(value any, empty bool) (any, error) {
	if empty {
		return nil, nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// storedTimeLayout is fixed width so stored timestamps sort lexically.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(value time.Time) string {
	return value.UTC().Format(storedTimeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	parsed, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &parsed
}
