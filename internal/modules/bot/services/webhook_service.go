package services

import (
	"context"
	"log"
	"strings"

	"github.com/evopoliki/wabot/internal/core/session"
	"github.com/evopoliki/wabot/internal/core/tenant"
	"github.com/evopoliki/wabot/internal/core/whatsapp"
	"github.com/evopoliki/wabot/internal/modules/bot/repositories"
)

// DialogHandler runs one AI-assisted conversation turn. Satisfied by
// assistant.Manager; faked in tests.
type DialogHandler interface {
	Handle(ctx context.Context, sess *session.Session, text string) string
}

// TenantRuntime bundles everything one tenant needs at message time.
type TenantRuntime struct {
	Tenant *tenant.Tenant
	Sender whatsapp.Sender
	IVR    *IVRService
	Dialog DialogHandler // nil when the tenant runs IVR only
}

// WebhookService routes an inbound WhatsApp message to the right tenant and
// the right engine. One instance serves all tenants.
type WebhookService struct {
	registry *tenant.Registry
	store    *session.Store
	runtimes map[string]*TenantRuntime
	convos   repositories.ConversationRepo
}

func NewWebhookService(registry *tenant.Registry, store *session.Store, runtimes map[string]*TenantRuntime, convos repositories.ConversationRepo) *WebhookService {
	return &WebhookService{
		registry: registry,
		store:    store,
		runtimes: runtimes,
		convos:   convos,
	}
}

// HandleIncoming processes one text message. It never returns an error: the
// webhook is always acked, failures only get logged.
func (s *WebhookService) HandleIncoming(ctx context.Context, instanceID, chatID, senderName, text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("🔥 [WEBHOOK] Panic while handling message from %s: %v", chatID, r)
		}
	}()

	t, ok := s.registry.Resolve(instanceID)
	if !ok {
		log.Printf("⚠️ [WEBHOOK] Unknown instance %q, message dropped", instanceID)
		return
	}

	if chatID == "" || strings.TrimSpace(text) == "" {
		return
	}

	rt, ok := s.runtimes[t.Slug]
	if !ok {
		log.Printf("⚠️ [WEBHOOK] No runtime wired for tenant %s", t.Slug)
		return
	}

	conversationID := session.Key(t.Slug, chatID)
	if !s.store.TryLock(conversationID) {
		log.Printf("⏳ [%s] Turn already in flight for %s, dropping message", t.Slug, chatID)
		return
	}
	defer s.store.Unlock(conversationID)

	sess := s.store.GetOrCreate(t.Slug, chatID)
	log.Printf("📩 [%s] %s (%s): %.80s", t.Slug, chatID, senderName, text)

	mode := "ivr"
	var reply string
	switch {
	case s.isMenuKeyword(t, text):
		reply = rt.IVR.ShowMainMenu(sess)
	case t.DialogEnabled() && rt.Dialog != nil:
		mode = "dialog"
		reply = rt.Dialog.Handle(ctx, sess, text)
	default:
		reply = rt.IVR.Handle(ctx, sess, text)
	}

	if reply == "" {
		return
	}

	if err := rt.Sender.SendMessage(chatID, reply); err != nil {
		log.Printf("❌ [%s] Failed to send reply to %s: %v", t.Slug, chatID, err)
		return
	}

	if s.convos != nil {
		if err := s.convos.LogTurn(t.Slug, chatID, mode, text, reply); err != nil {
			log.Printf("⚠️ [%s] Failed to log conversation turn: %v", t.Slug, err)
		}
	}
}

func (s *WebhookService) isMenuKeyword(t *tenant.Tenant, text string) bool {
	needle := strings.ToLower(strings.TrimSpace(text))
	for _, keyword := range t.MenuKeywords() {
		if needle == strings.ToLower(keyword) {
			return true
		}
	}
	return false
}
