package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"reelfactory/internal/config"
	"reelfactory/internal/events"
)

// watchFrame mirrors the relay's wire frame with the payload left raw.
type watchFrame struct {
	Seq   uint64          `json:"seq"`
	Time  time.Time       `json:"time"`
	Event events.Name     `json:"event"`
	JobID string          `json:"jobId,omitempty"`
	Data  json.RawMessage `json:"data"`
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var endpoint string
	cmd := &cobra.Command{
		Use:   "watch [job-id]",
		Short: "Stream live job events from the daemon",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := ""
			if len(args) == 1 {
				jobID = strings.TrimSpace(args[0])
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target, err := watchURL(cfg, endpoint, jobID)
			if err != nil {
				return err
			}

			header := http.Header{}
			if token := strings.TrimSpace(cfg.Events.Token); token != "" {
				header.Set("Authorization", "Bearer "+token)
			}
			dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
			conn, resp, err := dialer.DialContext(cmd.Context(), target, header)
			if err != nil {
				if resp != nil && resp.StatusCode == http.StatusUnauthorized {
					return errors.New("event stream rejected the token; check events.token")
				}
				return fmt.Errorf("connect to event stream %s: %w", target, err)
			}
			defer conn.Close()

			go func() {
				<-cmd.Context().Done()
				_ = conn.Close()
			}()

			return streamFrames(conn, cmd.OutOrStdout(), ctx.jsonOutput(), jobID != "")
		},
	}
	cmd.Flags().StringVar(&endpoint, "url", "", "Event stream URL (default from events.websocket_bind)")
	return cmd
}

func watchURL(cfg *config.Config, override, jobID string) (string, error) {
	raw := strings.TrimSpace(override)
	if raw == "" {
		bind := strings.TrimSpace(cfg.Events.WebsocketBind)
		if bind == "" {
			return "", errors.New("event stream disabled; set events.websocket_bind")
		}
		host, port, err := net.SplitHostPort(bind)
		if err != nil {
			return "", fmt.Errorf("parse events.websocket_bind %q: %w", bind, err)
		}
		if host == "" || host == "0.0.0.0" || host == "::" {
			host = "127.0.0.1"
		}
		raw = "ws://" + net.JoinHostPort(host, port) + "/events"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse event stream url: %w", err)
	}
	if jobID != "" {
		q := u.Query()
		q.Set("job", jobID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// streamFrames prints frames until the connection closes. With untilTerminal
// it returns after the first terminal job event.
func streamFrames(conn *websocket.Conn, out io.Writer, asJSON, untilTerminal bool) error {
	for {
		var frame watchFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		if asJSON {
			line, err := json.Marshal(frame)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(line))
		} else {
			fmt.Fprintln(out, formatFrame(frame))
		}
		if untilTerminal && frame.Event.IsTerminal() {
			return nil
		}
	}
}

func formatFrame(frame watchFrame) string {
	var summary struct {
		Progress     float64 `json:"progress"`
		Stage        string  `json:"stage"`
		Agent        string  `json:"agent"`
		Status       string  `json:"status"`
		Error        string  `json:"error"`
		CurrentScene int     `json:"currentScene"`
		SceneNumber  int     `json:"sceneNumber"`
		Iteration    int     `json:"iteration"`
	}
	_ = json.Unmarshal(frame.Data, &summary)

	parts := []string{frame.Time.Local().Format("15:04:05"), string(frame.Event), shortID(frame.JobID)}
	if summary.Progress > 0 {
		parts = append(parts, formatProgress(summary.Progress))
	}
	switch {
	case summary.Stage != "":
		parts = append(parts, "stage="+summary.Stage)
	case summary.Agent != "":
		parts = append(parts, "agent="+summary.Agent+" "+summary.Status)
	}
	if summary.Iteration > 0 {
		parts = append(parts, fmt.Sprintf("iteration=%d", summary.Iteration))
	}
	if n := max(summary.CurrentScene, summary.SceneNumber); n > 0 {
		parts = append(parts, fmt.Sprintf("scene=%d", n))
	}
	if summary.Error != "" {
		parts = append(parts, "error="+summary.Error)
	}
	return strings.Join(parts, "  ")
}
