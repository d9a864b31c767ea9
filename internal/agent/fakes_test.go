package agent

import (
	"context"
	"sync"

	"github.com/ashureev/socratic-labs/internal/domain"
)

const validVerdictJSON = `{
    "identified_fallacy": "Hasty Generalization",
    "reasoning": "One swan does not make a rule.",
    "adversarial_strategy": "Ask how many observations would be enough.",
    "thought_experiment_idea": "Imagine finding a black swan tomorrow."
}`

type chatCall struct {
	System  string
	History []HistoryEntry
	Message string
}

type generateCall struct {
	System string
	Prompt string
}

// fakeModel is a scripted Model. Nil funcs return a valid verdict and a fixed reply.
type fakeModel struct {
	mu         sync.Mutex
	generateFn func(system, prompt string) (string, error)
	chatFn     func(ctx context.Context, system string, history []HistoryEntry, message string) (string, error)
	generates  []generateCall
	chats      []chatCall
	order      []string
}

func (f *fakeModel) GenerateJSON(_ context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	f.generates = append(f.generates, generateCall{System: system, Prompt: prompt})
	f.order = append(f.order, "critic")
	fn := f.generateFn
	f.mu.Unlock()
	if fn == nil {
		return validVerdictJSON, nil
	}
	return fn(system, prompt)
}

func (f *fakeModel) Chat(ctx context.Context, system string, history []HistoryEntry, message string) (string, error) {
	f.mu.Lock()
	f.chats = append(f.chats, chatCall{System: system, History: history, Message: message})
	f.order = append(f.order, "socratic")
	fn := f.chatFn
	f.mu.Unlock()
	if fn == nil {
		return "What makes you so sure?", nil
	}
	return fn(ctx, system, history, message)
}

func (f *fakeModel) Name() string { return "fake-model" }

func (f *fakeModel) chatCalls() []chatCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chatCall(nil), f.chats...)
}

func (f *fakeModel) generateCalls() []generateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]generateCall(nil), f.generates...)
}

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.CognitiveProfile
	saveErr  error
	saves    int
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[string]*domain.CognitiveProfile)}
}

func (f *fakeProfileStore) LoadProfile(_ context.Context, userID string) (*domain.CognitiveProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (f *fakeProfileStore) SaveProfile(_ context.Context, userID string, p *domain.CognitiveProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.profiles[userID] = p.Clone()
	return nil
}

func (f *fakeProfileStore) saved(userID string) *domain.CognitiveProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[userID]
}

func (f *fakeProfileStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

// recordingDisplay captures display calls in order.
type recordingDisplay struct {
	mu     sync.Mutex
	events []TurnEvent
}

func (d *recordingDisplay) ShowUser(turnID, text string) {
	d.add(TurnEvent{Type: EventUser, TurnID: turnID, Content: text})
}

func (d *recordingDisplay) ShowVerdict(turnID string, verdict domain.Verdict) {
	d.add(TurnEvent{Type: EventVerdict, TurnID: turnID, Verdict: &verdict})
}

func (d *recordingDisplay) ShowReply(turnID, text string) {
	d.add(TurnEvent{Type: EventReply, TurnID: turnID, Content: text})
}

func (d *recordingDisplay) add(e TurnEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
}

func (d *recordingDisplay) types() []EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]EventType, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}
