// Package main hosts the reelfactory CLI entrypoint and command graph.
//
// Commands translate terminal invocations into IPC calls against the daemon:
// starting and cancelling content or video jobs, inspecting job progress,
// listing posts, videos and agents, and streaming live events over the
// websocket relay. Config resolution and socket discovery live in
// commandContext so subcommands only deal with presentation.
package main
