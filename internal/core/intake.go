// ABOUTME: Intake state machine for the onboarding questionnaire
// ABOUTME: Transition table maps each awaiting state to its validator, next state, and prompts
package core

import (
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strconv"
	"strings"

	"github.com/fitai/intake-bot/internal/models"
)

// State is a conversation's position in the intake flow
type State int

const (
	StateAwaitingContact State = iota + 1
	StateAwaitingAge
	StateAwaitingWeight
	StateAwaitingHeight
	StateOngoing
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateAwaitingContact:
		return "AWAITING_CONTACT"
	case StateAwaitingAge:
		return "AWAITING_AGE"
	case StateAwaitingWeight:
		return "AWAITING_WEIGHT"
	case StateAwaitingHeight:
		return "AWAITING_HEIGHT"
	case StateOngoing:
		return "ONGOING"
	case StateCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no intake answer can move the state any further
func (s State) Terminal() bool {
	return s == StateOngoing || s == StateCancelled
}

// Prompts sent to the user during intake
const (
	PromptContact      = "Please share your contact using the button below, or type your email address."
	PromptContactRetry = "Please share your own contact using the button below, or enter a valid email address."
	PromptAge          = "How old are you?"
	PromptAgeRetry     = "Please enter a valid age between 1 and 120."
	PromptWeight       = "What is your current weight in kg?"
	PromptWeightRetry  = "Please enter a valid weight in kg (greater than 0, up to 500)."
	PromptHeight       = "What is your height in cm?"
	PromptHeightRetry  = "Please enter a valid height in cm (greater than 0, up to 300)."
)

var (
	// ErrInvalidAnswer is returned by the validators for unparseable or out-of-range input
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrNotAwaitingAnswer is returned when an answer or cancel reaches a terminal machine
	ErrNotAwaitingAnswer = errors.New("conversation is not awaiting an intake answer")
)

// Contact is a structured contact shared through the transport
type Contact struct {
	Phone     string
	FirstName string
	LastName  string
	UserID    string // owner of the contact card, empty if not a chat user
}

// Input is one inbound intake answer
type Input struct {
	SenderID string
	Text     string
	Contact  *Contact
}

// step is one row of the transition table
type step struct {
	next   State
	prompt string
	retry  string
	format Format
	accept func(in Input, draft *models.Profile) error
}

var intakeSteps = map[State]step{
	StateAwaitingContact: {
		next:   StateAwaitingAge,
		prompt: PromptContact,
		retry:  PromptContactRetry,
		format: Format{RequestContact: true},
		accept: func(in Input, draft *models.Profile) error {
			contact, name, err := ParseContact(in)
			if err != nil {
				return err
			}
			draft.Contact = contact
			if draft.DisplayName == "" {
				draft.DisplayName = name
			}
			return nil
		},
	},
	StateAwaitingAge: {
		next:   StateAwaitingWeight,
		prompt: PromptAge,
		retry:  PromptAgeRetry,
		format: Format{RemoveKeyboard: true},
		accept: func(in Input, draft *models.Profile) error {
			age, err := ParseAge(in.Text)
			if err != nil {
				return err
			}
			draft.Age = age
			return nil
		},
	},
	StateAwaitingWeight: {
		next:   StateAwaitingHeight,
		prompt: PromptWeight,
		retry:  PromptWeightRetry,
		accept: func(in Input, draft *models.Profile) error {
			w, err := ParseWeight(in.Text)
			if err != nil {
				return err
			}
			draft.Weight = w
			return nil
		},
	},
	StateAwaitingHeight: {
		next:   StateOngoing,
		prompt: PromptHeight,
		retry:  PromptHeightRetry,
		accept: func(in Input, draft *models.Profile) error {
			h, err := ParseHeight(in.Text)
			if err != nil {
				return err
			}
			draft.Height = h
			return nil
		},
	},
}

// Transition describes the effect of one event on the machine
type Transition struct {
	From     State
	To       State
	Accepted bool
	Prompt   string // what to send next; empty when entering a terminal state
	Format   Format
}

// Machine walks one user through intake. It is not safe for concurrent use;
// the owning Conversation serializes access.
type Machine struct {
	state State
	draft *models.Profile
}

// NewMachine starts intake for the given draft profile
func NewMachine(draft *models.Profile) *Machine {
	if draft == nil {
		draft = &models.Profile{}
	}
	return &Machine{state: StateAwaitingContact, draft: draft}
}

// resumeMachine builds a machine that is already past intake, for returning users
func resumeMachine(profile *models.Profile) *Machine {
	return &Machine{state: StateOngoing, draft: profile}
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// Draft returns the profile being filled in
func (m *Machine) Draft() *models.Profile {
	return m.draft
}

// Prompt returns the question for the current state, empty once intake is over
func (m *Machine) Prompt() (string, Format) {
	s, ok := intakeSteps[m.state]
	if !ok {
		return "", Format{}
	}
	return s.prompt, s.format
}

// Answer applies one intake answer. A rejected answer leaves the state unchanged
// and returns the state's retry prompt; it is not an error.
func (m *Machine) Answer(in Input) (Transition, error) {
	s, ok := intakeSteps[m.state]
	if !ok {
		return Transition{From: m.state, To: m.state}, fmt.Errorf("answer in %s: %w", m.state, ErrNotAwaitingAnswer)
	}

	from := m.state
	// Validate against a copy so a rejected answer never touches the draft
	candidate := *m.draft
	if err := s.accept(in, &candidate); err != nil {
		return Transition{From: from, To: from, Prompt: s.retry, Format: s.format}, nil
	}
	*m.draft = candidate
	m.state = s.next

	t := Transition{From: from, To: s.next, Accepted: true}
	if next, ok := intakeSteps[s.next]; ok {
		t.Prompt = next.prompt
		t.Format = next.format
	}
	return t, nil
}

// Cancel moves a non-terminal machine to CANCELLED
func (m *Machine) Cancel() (Transition, error) {
	if m.state.Terminal() {
		return Transition{From: m.state, To: m.state}, fmt.Errorf("cancel in %s: %w", m.state, ErrNotAwaitingAnswer)
	}
	from := m.state
	m.state = StateCancelled
	return Transition{From: from, To: StateCancelled, Accepted: true}, nil
}

// Abort moves the machine to CANCELLED after a failed handoff
func (m *Machine) Abort() {
	m.state = StateCancelled
}

// ParseAge accepts a whole number between 1 and 120
func ParseAge(text string) (int, error) {
	age, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || !models.ValidAge(age) {
		return 0, fmt.Errorf("age %q: %w", text, ErrInvalidAnswer)
	}
	return age, nil
}

// ParseWeight accepts a number in (0, 500]; a decimal comma is allowed
func ParseWeight(text string) (float64, error) {
	w, err := parseReal(text)
	if err != nil || !models.ValidWeight(w) {
		return 0, fmt.Errorf("weight %q: %w", text, ErrInvalidAnswer)
	}
	return w, nil
}

// ParseHeight accepts a number in (0, 300]; a decimal comma is allowed
func ParseHeight(text string) (float64, error) {
	h, err := parseReal(text)
	if err != nil || !models.ValidHeight(h) {
		return 0, fmt.Errorf("height %q: %w", text, ErrInvalidAnswer)
	}
	return h, nil
}

func parseReal(text string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidAnswer
	}
	return f, nil
}

// ParseContact accepts the sender's own shared contact or a typed e-mail address.
// It returns the contact handle and, for shared contacts, the name on the card.
func ParseContact(in Input) (handle, name string, err error) {
	if c := in.Contact; c != nil {
		if c.Phone == "" || c.UserID == "" || c.UserID != in.SenderID {
			return "", "", fmt.Errorf("contact: %w", ErrInvalidAnswer)
		}
		return c.Phone, strings.TrimSpace(c.FirstName + " " + c.LastName), nil
	}

	text := strings.TrimSpace(in.Text)
	addr, perr := mail.ParseAddress(text)
	if perr != nil {
		return "", "", fmt.Errorf("contact %q: %w", text, ErrInvalidAnswer)
	}
	at := strings.LastIndex(addr.Address, "@")
	if at < 1 || !strings.Contains(addr.Address[at+1:], ".") {
		return "", "", fmt.Errorf("contact %q: %w", text, ErrInvalidAnswer)
	}
	return addr.Address, "", nil
}
