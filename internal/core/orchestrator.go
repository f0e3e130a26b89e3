// ABOUTME: ConversationOrchestrator routes chat events through intake, handoff, and assistant chat
// ABOUTME: Owns the per-user conversation map; each conversation is handled under its own lock
package core

import (
	"context"
	"sync"

	"github.com/fitai/intake-bot/internal/models"
	"github.com/fitai/intake-bot/internal/util"
	"github.com/rs/zerolog"
)

// User-facing messages
const (
	GreetingText       = "Hi there! Welcome to FitAI. Let's get started with some basic information about you and we can get it over to one of our Personal Trainers and get you started."
	HandoffAckText     = "Thanks for providing your information. I've forwarded it to one of our PTs, they will be with you shortly!"
	HandoffFailedText  = "I'm sorry, but there was an error processing your information. Please try again later or contact support."
	TransientErrorText = "I'm sorry, but there was an error processing your request. Please try again later."
	CancelledText      = "The conversation has been cancelled."
	StartHintText      = "Please send /start to begin."
)

// Supported commands
const (
	CommandStart  = "start"
	CommandCancel = "cancel"
)

// EventKind distinguishes inbound chat events
type EventKind int

const (
	EventText EventKind = iota + 1
	EventContact
	EventCommand
)

// Event is one inbound chat update, already stripped of transport details
type Event struct {
	Kind           EventKind
	ExternalUserID string
	ChatID         string
	DisplayName    string
	Username       string
	Text           string
	Command        string
	Contact        *Contact
}

// Conversation is the in-memory context for one user
type Conversation struct {
	mu      sync.Mutex
	machine *Machine // nil until /start or a resume
	userID  string   // users row id, set once the profile is stored
}

// OrchestratorConfig wires the orchestrator's collaborators
type OrchestratorConfig struct {
	Store     ProfileStore
	Assistant AssistantClient
	Sender    Sender
	Poll      util.PollConfig
	Logger    zerolog.Logger
}

// Orchestrator handles chat events for all users
type Orchestrator struct {
	store      ProfileStore
	sender     Sender
	reconciler *Reconciler
	exchanger  *Exchanger
	logger     zerolog.Logger

	mu            sync.Mutex
	conversations map[string]*Conversation
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		store:         cfg.Store,
		sender:        cfg.Sender,
		reconciler:    NewReconciler(cfg.Store, cfg.Assistant, cfg.Logger),
		exchanger:     NewExchanger(cfg.Assistant, cfg.Poll, cfg.Logger),
		logger:        cfg.Logger.With().Str("component", "orchestrator").Logger(),
		conversations: make(map[string]*Conversation),
	}
}

// State returns the conversation state for a user, or 0 if there is none
func (o *Orchestrator) State(externalUserID string) State {
	o.mu.Lock()
	conv, ok := o.conversations[externalUserID]
	o.mu.Unlock()
	if !ok {
		return 0
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()
	if conv.machine == nil {
		return 0
	}
	return conv.machine.State()
}

// Handle processes one event. Events for the same user must not be handled
// concurrently out of order; the dispatcher guarantees arrival order and the
// conversation lock guarantees they never interleave.
// The returned error only reports delivery failures.
func (o *Orchestrator) Handle(ctx context.Context, ev Event) error {
	conv := o.conversation(ev.ExternalUserID)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	log := o.logger.With().
		Str("external_user_id", ev.ExternalUserID).
		Str("chat_id", ev.ChatID).
		Logger()

	switch ev.Kind {
	case EventCommand:
		return o.handleCommand(ctx, conv, ev, log)
	case EventText, EventContact:
		return o.handleMessage(ctx, conv, ev, log)
	default:
		log.Debug().Int("kind", int(ev.Kind)).Msg("ignoring event")
		return nil
	}
}

func (o *Orchestrator) conversation(externalUserID string) *Conversation {
	o.mu.Lock()
	defer o.mu.Unlock()

	conv, ok := o.conversations[externalUserID]
	if !ok {
		conv = &Conversation{}
		o.conversations[externalUserID] = conv
	}
	return conv
}

func (o *Orchestrator) handleCommand(ctx context.Context, conv *Conversation, ev Event, log zerolog.Logger) error {
	switch ev.Command {
	case CommandStart:
		conv.machine = NewMachine(&models.Profile{
			ExternalID:  ev.ExternalUserID,
			DisplayName: ev.DisplayName,
			Username:    ev.Username,
		})
		conv.userID = ""
		log.Info().Msg("intake started")

		if err := o.send(ctx, ev.ChatID, GreetingText, Format{}); err != nil {
			return err
		}
		prompt, format := conv.machine.Prompt()
		return o.send(ctx, ev.ChatID, prompt, format)

	case CommandCancel:
		if conv.machine != nil {
			from := conv.machine.State()
			if _, err := conv.machine.Cancel(); err != nil {
				conv.machine.Abort()
			}
			log.Info().Str("from", from.String()).Msg("conversation cancelled")
		}
		return o.send(ctx, ev.ChatID, CancelledText, Format{RemoveKeyboard: true})

	default:
		return o.send(ctx, ev.ChatID, StartHintText, Format{})
	}
}

func (o *Orchestrator) handleMessage(ctx context.Context, conv *Conversation, ev Event, log zerolog.Logger) error {
	if conv.machine == nil {
		resumed, err := o.resume(ctx, conv, ev.ExternalUserID)
		if err != nil {
			log.Error().Err(err).Msg("failed to load stored profile")
			return o.send(ctx, ev.ChatID, TransientErrorText, Format{})
		}
		if !resumed {
			return o.send(ctx, ev.ChatID, StartHintText, Format{})
		}
		log.Info().Str("user_id", conv.userID).Msg("resumed conversation for returning user")
	}

	switch state := conv.machine.State(); state {
	case StateCancelled:
		return o.send(ctx, ev.ChatID, StartHintText, Format{})
	case StateOngoing:
		if ev.Kind != EventText || ev.Text == "" {
			log.Debug().Msg("ignoring non-text message during chat")
			return nil
		}
		return o.chat(ctx, conv, ev, log)
	default:
		return o.answer(ctx, conv, ev, log)
	}
}

// resume rebuilds an ONGOING conversation from a stored complete profile
func (o *Orchestrator) resume(ctx context.Context, conv *Conversation, externalUserID string) (bool, error) {
	profile, err := o.store.GetUserByExternalID(ctx, externalUserID)
	if err != nil {
		return false, dependency("load profile", err)
	}
	if profile == nil || !profile.Complete() {
		return false, nil
	}
	conv.machine = resumeMachine(profile)
	conv.userID = profile.ID
	return true, nil
}

func (o *Orchestrator) answer(ctx context.Context, conv *Conversation, ev Event, log zerolog.Logger) error {
	tr, err := conv.machine.Answer(Input{
		SenderID: ev.ExternalUserID,
		Text:     ev.Text,
		Contact:  ev.Contact,
	})
	if err != nil {
		log.Error().Err(err).Msg("intake answer in unexpected state")
		return o.send(ctx, ev.ChatID, StartHintText, Format{})
	}

	if !tr.Accepted {
		log.Debug().Str("state", tr.From.String()).Msg("intake answer rejected")
		return o.send(ctx, ev.ChatID, tr.Prompt, tr.Format)
	}

	log.Debug().Str("from", tr.From.String()).Str("to", tr.To.String()).Msg("intake advanced")
	if tr.To == StateOngoing {
		return o.handoff(ctx, conv, ev, log)
	}
	return o.send(ctx, ev.ChatID, tr.Prompt, tr.Format)
}

// handoff stores the finished profile, acknowledges it, and sends the summary
// to the assistant. Any failure cancels the conversation.
func (o *Orchestrator) handoff(ctx context.Context, conv *Conversation, ev Event, log zerolog.Logger) error {
	draft := conv.machine.Draft()

	profile, err := o.store.UpsertUser(ctx, draft)
	if err != nil {
		return o.handoffFailed(ctx, conv, ev, log, dependency("store profile", err))
	}
	*draft = *profile
	conv.userID = profile.ID
	log = log.With().Str("user_id", profile.ID).Logger()
	log.Info().Msg("profile stored")

	if err := o.send(ctx, ev.ChatID, HandoffAckText, Format{}); err != nil {
		return o.handoffFailed(ctx, conv, ev, log, err)
	}

	var reply string
	err = o.reconciler.WithThread(ctx, profile.ID, func(ctx context.Context, threadID string) error {
		var err error
		reply, err = o.exchanger.Exchange(ctx, threadID, profile.Summary())
		return err
	})
	if err != nil {
		return o.handoffFailed(ctx, conv, ev, log, err)
	}

	log.Info().Msg("handoff complete")
	return o.send(ctx, ev.ChatID, reply, Format{Markdown: true})
}

func (o *Orchestrator) handoffFailed(ctx context.Context, conv *Conversation, ev Event, log zerolog.Logger, err error) error {
	log.Error().Err(err).Str("kind", KindOf(err).String()).Msg("handoff failed")
	conv.machine.Abort()
	return o.send(ctx, ev.ChatID, HandoffFailedText, Format{})
}

func (o *Orchestrator) chat(ctx context.Context, conv *Conversation, ev Event, log zerolog.Logger) error {
	log = log.With().Str("user_id", conv.userID).Logger()

	var reply string
	err := o.reconciler.WithThread(ctx, conv.userID, func(ctx context.Context, threadID string) error {
		var err error
		reply, err = o.exchanger.Exchange(ctx, threadID, ev.Text)
		return err
	})
	if err != nil {
		if kind := KindOf(err); kind == KindConflict {
			log.Warn().Err(err).Msg("assistant busy")
		} else {
			log.Error().Err(err).Str("kind", kind.String()).Msg("chat turn failed")
		}
		return o.send(ctx, ev.ChatID, TransientErrorText, Format{})
	}

	return o.send(ctx, ev.ChatID, reply, Format{Markdown: true})
}

func (o *Orchestrator) send(ctx context.Context, chatID, text string, format Format) error {
	if err := o.sender.SendText(ctx, chatID, text, format); err != nil {
		o.logger.Error().Err(err).Str("chat_id", chatID).Msg("failed to send message")
		return err
	}
	return nil
}
