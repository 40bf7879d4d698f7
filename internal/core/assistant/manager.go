package assistant

import (
	"context"
	"encoding/json"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/evopoliki/wabot/internal/core/session"
	"github.com/evopoliki/wabot/internal/core/tenant"
)

// ThreadRunner is the slice of the OpenAI Assistants API the orchestrator
// needs. Narrow on purpose: the polling loop can be swapped for a streaming
// implementation, and tests fake it.
type ThreadRunner interface {
	CreateThread(ctx context.Context, request openai.ThreadRequest) (openai.Thread, error)
	CreateMessage(ctx context.Context, threadID string, request openai.MessageRequest) (openai.Message, error)
	CreateRun(ctx context.Context, threadID string, request openai.RunRequest) (openai.Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (openai.Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, request openai.SubmitToolOutputsRequest) (openai.Run, error)
	ListMessage(ctx context.Context, threadID string, limit *int, order *string, after *string, before *string, runID *string) (openai.MessagesList, error)
}

// ToolExecutor runs one tool call requested by the assistant. Failures come
// back as result strings, never as errors that would break the run.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args json.RawMessage, sess *session.Session) string
}

// Manager drives the assistant conversation for one tenant: one thread per
// conversation, message in, run, poll, dispatch tool calls, final text out.
type Manager struct {
	client ThreadRunner
	tenant *tenant.Tenant
	tools  ToolExecutor

	// PollInterval and MaxWait bound the run-status polling loop. The wait
	// ceiling only abandons the local wait, it does not cancel the remote run.
	PollInterval time.Duration
	MaxWait      time.Duration
}

func NewManager(t *tenant.Tenant, tools ToolExecutor) *Manager {
	return &Manager{
		client:       openai.NewClient(t.OpenAIKey),
		tenant:       t,
		tools:        tools,
		PollInterval: time.Second,
		MaxWait:      60 * time.Second,
	}
}

// NewManagerWithClient wires a custom ThreadRunner (tests).
func NewManagerWithClient(t *tenant.Tenant, tools ToolExecutor, client ThreadRunner) *Manager {
	m := NewManager(t, tools)
	m.client = client
	return m
}

// Handle processes one user turn and always returns something sendable: the
// assistant's reply, or a fixed localized fallback when the run misbehaves.
func (m *Manager) Handle(ctx context.Context, sess *session.Session, userText string) string {
	texts := m.tenant.Texts

	threadID, err := m.getOrCreateThread(ctx, sess)
	if err != nil {
		log.Printf("❌ [%s] Failed to create thread for %s: %v", m.tenant.Slug, sess.ChatID, err)
		return texts.Get("error.generic")
	}

	_, err = m.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: userText,
	})
	if err != nil {
		log.Printf("❌ [%s] Failed to append message to thread %s: %v", m.tenant.Slug, threadID, err)
		return texts.Get("error.generic")
	}

	run, err := m.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: m.tenant.AssistantID,
	})
	if err != nil {
		log.Printf("❌ [%s] Failed to start run on thread %s: %v", m.tenant.Slug, threadID, err)
		return texts.Get("error.generic")
	}

	log.Printf("🤖 [%s] Run %s started (thread %s)", m.tenant.Slug, run.ID, threadID)

	deadline := time.Now().Add(m.MaxWait)
	for {
		if time.Now().After(deadline) {
			log.Printf("⏱️ [%s] Run %s exceeded wait ceiling (%s), abandoning", m.tenant.Slug, run.ID, m.MaxWait)
			return texts.Get("dialog.timeout")
		}

		select {
		case <-ctx.Done():
			log.Printf("⏱️ [%s] Context cancelled while waiting for run %s", m.tenant.Slug, run.ID)
			return texts.Get("dialog.timeout")
		case <-time.After(m.PollInterval):
		}

		run, err = m.client.RetrieveRun(ctx, threadID, run.ID)
		if err != nil {
			log.Printf("❌ [%s] Failed to poll run %s: %v", m.tenant.Slug, run.ID, err)
			return texts.Get("error.generic")
		}

		switch run.Status {
		case openai.RunStatusQueued, openai.RunStatusInProgress:
			continue

		case openai.RunStatusRequiresAction:
			if err := m.dispatchToolCalls(ctx, sess, threadID, run); err != nil {
				log.Printf("❌ [%s] Failed to submit tool outputs for run %s: %v", m.tenant.Slug, run.ID, err)
				return texts.Get("error.generic")
			}

		case openai.RunStatusCompleted:
			return m.latestReply(ctx, threadID)

		case openai.RunStatusFailed:
			msg := "unknown error"
			if run.LastError != nil {
				msg = run.LastError.Message
			}
			log.Printf("❌ [%s] Run %s failed: %s", m.tenant.Slug, run.ID, msg)
			return texts.Get("dialog.failed")

		case openai.RunStatusCancelling, openai.RunStatusCancelled:
			log.Printf("⚠️ [%s] Run %s was cancelled", m.tenant.Slug, run.ID)
			return texts.Get("dialog.cancelled")

		case openai.RunStatusExpired:
			log.Printf("⚠️ [%s] Run %s expired", m.tenant.Slug, run.ID)
			return texts.Get("dialog.expired")

		default:
			log.Printf("❌ [%s] Run %s in unexpected status %q", m.tenant.Slug, run.ID, run.Status)
			return texts.Get("error.generic")
		}
	}
}

func (m *Manager) getOrCreateThread(ctx context.Context, sess *session.Session) (string, error) {
	if sess.ThreadID != "" {
		return sess.ThreadID, nil
	}

	thread, err := m.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", err
	}

	sess.ThreadID = thread.ID
	log.Printf("🧵 [%s] Created thread %s for %s", m.tenant.Slug, thread.ID, sess.ChatID)
	return thread.ID, nil
}

func (m *Manager) dispatchToolCalls(ctx context.Context, sess *session.Session, threadID string, run openai.Run) error {
	if run.RequiredAction == nil || run.RequiredAction.SubmitToolOutputs == nil {
		return nil
	}

	calls := run.RequiredAction.SubmitToolOutputs.ToolCalls
	log.Printf("🛠️ [%s] Run %s requested %d tool calls", m.tenant.Slug, run.ID, len(calls))

	outputs := make([]openai.ToolOutput, 0, len(calls))
	for _, call := range calls {
		result := m.tools.Execute(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments), sess)
		log.Printf("🔧 [%s] %s -> %.120s", m.tenant.Slug, call.Function.Name, result)

		outputs = append(outputs, openai.ToolOutput{
			ToolCallID: call.ID,
			Output:     result,
		})
	}

	_, err := m.client.SubmitToolOutputs(ctx, threadID, run.ID, openai.SubmitToolOutputsRequest{
		ToolOutputs: outputs,
	})
	return err
}

func (m *Manager) latestReply(ctx context.Context, threadID string) string {
	limit := 1
	order := "desc"
	messages, err := m.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		log.Printf("❌ [%s] Failed to list messages on thread %s: %v", m.tenant.Slug, threadID, err)
		return m.tenant.Texts.Get("error.generic")
	}

	if len(messages.Messages) == 0 || len(messages.Messages[0].Content) == 0 {
		log.Printf("⚠️ [%s] Thread %s completed with no assistant reply", m.tenant.Slug, threadID)
		return m.tenant.Texts.Get("error.generic")
	}

	for _, content := range messages.Messages[0].Content {
		if content.Text != nil {
			return content.Text.Value
		}
	}
	return m.tenant.Texts.Get("error.generic")
}
