package sessions

import (
	"context"
	"strings"
	"sync"
	"time"

	"contract-analyzer/internal/analyses"
	"contract-analyzer/internal/prompts"
)

const contractText = `CONSULTING AGREEMENT
Between Acme Corp ("Client") and Widget LLC ("Consultant"), effective March 1, 2024.
Fees: $12,000 payable in three installments. Either party may terminate on 15 days notice.`

type modelCall struct {
	system string
	user   string
}

// fakeModel answers analysis prompts by task and chat prompts with chatReply.
type fakeModel struct {
	mu    sync.Mutex
	calls []modelCall

	keyInfo   string
	chatReply string
	chatErr   error
	chatHold  time.Duration

	chatInFlight    int
	maxChatInFlight int
}

func newFakeModel() *fakeModel {
	return &fakeModel{
		keyInfo:   `{"Parties involved": "Acme Corp, Widget LLC", "Total Fee": "$12,000"}`,
		chatReply: "The termination notice period is 15 days.",
	}
}

func (m *fakeModel) Generate(ctx context.Context, system, user string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, modelCall{system: system, user: user})
	m.mu.Unlock()

	if system == prompts.ChatSystem.Text {
		m.mu.Lock()
		m.chatInFlight++
		if m.chatInFlight > m.maxChatInFlight {
			m.maxChatInFlight = m.chatInFlight
		}
		m.mu.Unlock()
		if m.chatHold > 0 {
			time.Sleep(m.chatHold)
		}
		m.mu.Lock()
		m.chatInFlight--
		m.mu.Unlock()
		if m.chatErr != nil {
			return "", m.chatErr
		}
		return m.chatReply, nil
	}

	for _, kind := range prompts.Kinds {
		tmpl, _ := prompts.Task(kind)
		if !strings.HasPrefix(user, strings.SplitN(tmpl.Text, "\n", 2)[0]) {
			continue
		}
		switch kind {
		case prompts.KindKeyInformation:
			return m.keyInfo, nil
		case prompts.KindRisks:
			return "Risk: short termination notice. Risk level: Medium.", nil
		case prompts.KindClauseSummaries:
			return "Fees: $12,000 in three installments.", nil
		case prompts.KindOverallScore:
			return "Score: 65/100.", nil
		}
	}
	return "", nil
}

func (m *fakeModel) chatCalls() []modelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []modelCall
	for _, c := range m.calls {
		if c.system == prompts.ChatSystem.Text {
			out = append(out, c)
		}
	}
	return out
}

func (m *fakeModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func newTestOrchestrator(model *fakeModel, maxChars int) *Orchestrator {
	return NewOrchestrator(analyses.NewAnalyzer(model, 0), model, maxChars)
}
