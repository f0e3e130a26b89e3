// ABOUTME: Exchanger relays one user message to an assistant thread and returns the reply
// ABOUTME: Handles the active-run conflict by waiting on the run already in flight
package core

import (
	"context"
	"errors"

	"github.com/fitai/intake-bot/internal/assistant"
	"github.com/fitai/intake-bot/internal/util"
	"github.com/rs/zerolog"
)

// NoResponseText is sent when a run finishes without any assistant message
const NoResponseText = "No response from assistant."

// Exchanger performs message → run → reply round trips
type Exchanger struct {
	client AssistantClient
	poll   util.PollConfig
	logger zerolog.Logger
}

// NewExchanger creates an exchanger that polls runs with the given pacing
func NewExchanger(client AssistantClient, poll util.PollConfig, logger zerolog.Logger) *Exchanger {
	return &Exchanger{
		client: client,
		poll:   poll,
		logger: logger.With().Str("component", "exchange").Logger(),
	}
}

// Exchange posts exactly one user message, waits for a run to finish, and
// returns the newest assistant text on the thread.
func (e *Exchanger) Exchange(ctx context.Context, threadID, text string) (string, error) {
	if err := e.client.PostMessage(ctx, threadID, text); err != nil {
		return "", dependency("post message", err)
	}

	run, err := e.startOrJoinRun(ctx, threadID)
	if err != nil {
		return "", err
	}

	run, err = e.wait(ctx, threadID, run)
	if err != nil {
		return "", dependency("wait for run", err)
	}
	if run.Status != assistant.RunCompleted {
		e.logger.Warn().
			Str("thread_id", threadID).
			Str("run_id", run.ID).
			Str("status", string(run.Status)).
			Msg("run ended without completing")
	}

	messages, err := e.client.ListMessages(ctx, threadID)
	if err != nil {
		return "", dependency("list messages", err)
	}
	for _, m := range messages {
		if m.Role != assistant.RoleAssistant {
			continue
		}
		// Only the newest assistant message counts; an image-only reply has no text.
		if m.Text == "" {
			return NoResponseText, nil
		}
		return m.Text, nil
	}
	return NoResponseText, nil
}

// startOrJoinRun starts a run, or adopts the thread's newest run when one is already active
func (e *Exchanger) startOrJoinRun(ctx context.Context, threadID string) (assistant.Run, error) {
	run, err := e.client.StartRun(ctx, threadID)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, assistant.ErrActiveRun) {
		return assistant.Run{}, dependency("start run", err)
	}

	runs, lerr := e.client.ListRuns(ctx, threadID, 1)
	if lerr != nil {
		return assistant.Run{}, dependency("list runs", lerr)
	}
	if len(runs) == 0 {
		e.logger.Error().Str("thread_id", threadID).Msg("active run reported but none listed")
		return assistant.Run{}, conflict("start run", ErrNoActiveRun)
	}

	e.logger.Info().
		Str("thread_id", threadID).
		Str("run_id", runs[0].ID).
		Msg("joining active run")
	return runs[0], nil
}

func (e *Exchanger) wait(ctx context.Context, threadID string, run assistant.Run) (assistant.Run, error) {
	if !run.Status.Pending() {
		return run, nil
	}
	err := util.Poll(ctx, e.poll, func(ctx context.Context) (bool, error) {
		current, err := e.client.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return false, err
		}
		run = current
		return !run.Status.Pending(), nil
	})
	return run, err
}
