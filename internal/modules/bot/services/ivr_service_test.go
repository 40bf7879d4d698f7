package services

import (
	"context"
	"strings"
	"testing"

	"github.com/evopoliki/wabot/internal/core/session"
)

func newTestIVR(t *testing.T) (*IVRService, *session.Session) {
	t.Helper()
	tn := serviceTenant(t)
	client, _ := fakeAirtable(t, "recIVR1")
	tools := NewToolService(tn, fakeCatalog{}, client)
	ivr := NewIVRService(tn, fakeCatalog{}, tools)

	sess := &session.Session{
		ConversationID: "evopoliki:996555123456@c.us",
		TenantSlug:     "evopoliki",
		ChatID:         "996555123456@c.us",
		State:          session.StateIdle,
	}
	return ivr, sess
}

func TestFirstContactShowsMenu(t *testing.T) {
	ivr, sess := newTestIVR(t)

	reply := ivr.Handle(context.Background(), sess, "привет")
	if sess.State != session.StateMainMenu {
		t.Errorf("state = %q, want main_menu", sess.State)
	}
	if !strings.Contains(reply, "EVOPOLIKI") {
		t.Errorf("greeting missing: %q", reply)
	}
	if !strings.Contains(reply, "1. EVA-коврики") {
		t.Errorf("numbered categories missing: %q", reply)
	}
	if len(sess.Menu.Categories) != 2 {
		t.Errorf("menu context has %d categories", len(sess.Menu.Categories))
	}
}

func TestInvalidInputReprompts(t *testing.T) {
	ivr, sess := newTestIVR(t)
	ivr.Handle(context.Background(), sess, "привет")

	for _, bad := range []string{"abc", "99", "0", "-1", ""} {
		reply := ivr.Handle(context.Background(), sess, bad)
		if sess.State != session.StateMainMenu {
			t.Errorf("input %q moved state to %q", bad, sess.State)
		}
		if !strings.Contains(reply, "цифру") {
			t.Errorf("input %q got reply %q, want re-prompt", bad, reply)
		}
	}
}

func TestCategorySelectionShowsBrandPage(t *testing.T) {
	ivr, sess := newTestIVR(t)
	ivr.Handle(context.Background(), sess, "привет")

	reply := ivr.Handle(context.Background(), sess, "1")
	if sess.State != session.StateCategorySelected {
		t.Errorf("state = %q", sess.State)
	}
	if sess.Draft.CategoryCode != "eva_mats" {
		t.Errorf("draft category = %q", sess.Draft.CategoryCode)
	}
	if !strings.Contains(reply, "страница 1 из 2") {
		t.Errorf("page header missing: %q", reply)
	}
	if !strings.Contains(reply, "1. BMW") || !strings.Contains(reply, "8. Nissan") {
		t.Errorf("first page wrong: %q", reply)
	}
	if strings.Contains(reply, "Toyota") {
		t.Errorf("second-page brand leaked onto page 1: %q", reply)
	}
}

func TestBrandPaginationSentinels(t *testing.T) {
	ivr, sess := newTestIVR(t)
	ivr.Handle(context.Background(), sess, "привет")
	ivr.Handle(context.Background(), sess, "1")
	categoryBefore := sess.Draft.CategoryCode

	next := ivr.Handle(context.Background(), sess, "9")
	if !strings.Contains(next, "страница 2 из 2") || !strings.Contains(next, "Toyota") {
		t.Errorf("page 2 wrong: %q", next)
	}
	if sess.State != session.StateBrandPagination {
		t.Errorf("state = %q", sess.State)
	}

	// Forward past the last page stays put
	again := ivr.Handle(context.Background(), sess, "9")
	if !strings.Contains(again, "страница 2 из 2") {
		t.Errorf("overshoot moved page: %q", again)
	}

	prev := ivr.Handle(context.Background(), sess, "0")
	if !strings.Contains(prev, "страница 1 из 2") {
		t.Errorf("back navigation wrong: %q", prev)
	}

	if sess.Draft.CategoryCode != categoryBefore || sess.Draft.Brand != "" {
		t.Errorf("pagination touched the draft: %+v", sess.Draft)
	}
}

func TestBrandConfirmFlow(t *testing.T) {
	ivr, sess := newTestIVR(t)
	ivr.Handle(context.Background(), sess, "привет")
	ivr.Handle(context.Background(), sess, "1")
	ivr.Handle(context.Background(), sess, "9")

	confirm := ivr.Handle(context.Background(), sess, "2") // Toyota on page 2
	if sess.State != session.StateBrandSelected {
		t.Errorf("state = %q", sess.State)
	}
	if !strings.Contains(confirm, "Toyota") {
		t.Errorf("confirmation missing brand: %q", confirm)
	}
	if sess.Draft.Brand != "" {
		t.Errorf("brand committed before confirmation: %q", sess.Draft.Brand)
	}

	// Decline goes back to the list
	back := ivr.Handle(context.Background(), sess, "2")
	if sess.State != session.StateBrandPagination || !strings.Contains(back, "страница") {
		t.Errorf("decline did not return to brand list: state=%q reply=%q", sess.State, back)
	}

	ivr.Handle(context.Background(), sess, "2")
	model := ivr.Handle(context.Background(), sess, "1")
	if sess.State != session.StateModelInput {
		t.Errorf("state = %q", sess.State)
	}
	if sess.Draft.Brand != "Toyota" {
		t.Errorf("draft brand = %q", sess.Draft.Brand)
	}
	if !strings.Contains(model, "модель") {
		t.Errorf("model prompt = %q", model)
	}
}

func driveToYearInput(t *testing.T, ivr *IVRService, sess *session.Session, brandDigitOnPage2 string) {
	t.Helper()
	ctx := context.Background()
	ivr.Handle(ctx, sess, "привет")
	ivr.Handle(ctx, sess, "1")
	ivr.Handle(ctx, sess, "9")
	ivr.Handle(ctx, sess, brandDigitOnPage2)
	ivr.Handle(ctx, sess, "1")
}

func TestFullFunnelToLead(t *testing.T) {
	ivr, sess := newTestIVR(t)
	ctx := context.Background()
	driveToYearInput(t, ivr, sess, "2") // Toyota

	ivr.Handle(ctx, sess, "Camry")
	if sess.State != session.StateYearInput {
		t.Fatalf("state = %q", sess.State)
	}

	bad := ivr.Handle(ctx, sess, "20")
	if !strings.Contains(bad, "год") || sess.State != session.StateYearInput {
		t.Errorf("bad year accepted: %q", bad)
	}

	found := ivr.Handle(ctx, sess, "2020")
	if sess.State != session.StateOptionsInput {
		t.Fatalf("state = %q, want options_input", sess.State)
	}
	if !strings.Contains(found, "готовые лекала") {
		t.Errorf("pattern-found text missing: %q", found)
	}
	if !strings.Contains(found, "1. С бортами 5 см") {
		t.Errorf("options menu missing: %q", found)
	}

	toggled := ivr.Handle(ctx, sess, "1")
	if !strings.Contains(toggled, "✅") {
		t.Errorf("selected option not marked: %q", toggled)
	}
	if !sess.Draft.Options["with_borders"] {
		t.Error("with_borders not toggled on")
	}

	priced := ivr.Handle(ctx, sess, "0")
	if sess.State != session.StateContactName {
		t.Fatalf("state = %q, want contact_name", sess.State)
	}
	if !strings.Contains(priced, "2800") || !strings.Contains(priced, "2400") || !strings.Contains(priced, "400") {
		t.Errorf("price summary wrong: %q", priced)
	}
	if sess.Draft.TotalPrice != 2800 {
		t.Errorf("draft total = %v", sess.Draft.TotalPrice)
	}

	ivr.Handle(ctx, sess, "Иван")
	if sess.State != session.StateContactPhone {
		t.Fatalf("state = %q", sess.State)
	}

	badPhone := ivr.Handle(ctx, sess, "позвоните мне")
	if sess.State != session.StateContactPhone || !strings.Contains(badPhone, "цифры") {
		t.Errorf("bad phone accepted: %q", badPhone)
	}

	done := ivr.Handle(ctx, sess, "0555 123-456")
	if sess.State != session.StateConfirmed {
		t.Fatalf("state = %q, want confirmed", sess.State)
	}
	if !strings.Contains(done, "Иван") {
		t.Errorf("confirmation missing name: %q", done)
	}

	// Any message after confirmation starts a fresh funnel
	menu := ivr.Handle(ctx, sess, "ещё один заказ")
	if sess.State != session.StateMainMenu || !strings.Contains(menu, "1. EVA-коврики") {
		t.Errorf("post-confirmation reply = %q", menu)
	}
	if sess.Draft.Brand != "" {
		t.Error("draft survived post-confirmation reset")
	}
}

func TestPatternNotFoundGoesToContacts(t *testing.T) {
	ivr, sess := newTestIVR(t)
	ctx := context.Background()
	driveToYearInput(t, ivr, sess, "1") // Subaru, no patterns

	ivr.Handle(ctx, sess, "Outback")
	reply := ivr.Handle(ctx, sess, "2019")

	if sess.State != session.StateContactName {
		t.Errorf("state = %q, want contact_name", sess.State)
	}
	if !strings.Contains(reply, "индивидуальному замеру") {
		t.Errorf("manual-measure offer missing: %q", reply)
	}
	if sess.Draft.PatternFound {
		t.Error("draft.PatternFound = true")
	}
}

func TestShowMainMenuResetsFunnelAndThread(t *testing.T) {
	ivr, sess := newTestIVR(t)
	driveToYearInput(t, ivr, sess, "2")
	sess.ThreadID = "thread_live"

	reply := ivr.ShowMainMenu(sess)
	if sess.State != session.StateMainMenu {
		t.Errorf("state = %q", sess.State)
	}
	if sess.Draft.Brand != "" || sess.Draft.CategoryCode != "" {
		t.Errorf("draft survived menu reset: %+v", sess.Draft)
	}
	if sess.ThreadID != "" {
		t.Error("assistant thread survived menu reset")
	}
	if !strings.Contains(reply, "1. EVA-коврики") {
		t.Errorf("menu not rendered: %q", reply)
	}
}
