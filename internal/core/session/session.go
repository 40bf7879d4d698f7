package session

import "time"

// State is the position of a conversation inside the IVR funnel.
type State string

const (
	StateIdle             State = "idle"
	StateMainMenu         State = "main_menu"
	StateCategorySelected State = "category_selected"
	StateBrandPagination  State = "brand_pagination"
	StateBrandSelected    State = "brand_selected"
	StateModelInput       State = "model_input"
	StateYearInput        State = "year_input"
	StateOptionsInput     State = "options_input"
	StateContactName      State = "contact_name"
	StateContactPhone     State = "contact_phone"
	StateConfirmed        State = "confirmed"
)

// OrderDraft accumulates the purchase funnel fields. Populated incrementally
// by the IVR state machine or by AI tool calls.
type OrderDraft struct {
	CategoryCode string
	CategoryName string
	Brand        string
	Model        string
	Year         int
	BodyType     string
	Options      map[string]bool
	BasePrice    float64
	OptionsPrice float64
	TotalPrice   float64
	PatternFound bool
	ContactName  string
	ContactPhone string
}

// MenuItem is one numbered entry of the menu the user currently sees.
type MenuItem struct {
	Code string
	Name string
}

// MenuContext snapshots the lists behind the menu last shown, so a numeric
// reply resolves against what the user actually saw even if the catalog
// changes between turns.
type MenuContext struct {
	Categories   []MenuItem
	Brands       []string
	BrandPage    int
	PendingBrand string
	Options      []MenuItem
}

// Session is the mutable per-conversation state. Access is serialized by the
// store's per-conversation lock; the session itself carries no locking.
type Session struct {
	ConversationID string
	TenantSlug     string
	ChatID         string

	State State
	Draft OrderDraft
	Menu  MenuContext

	// OpenAI thread handle, one per conversation lifetime
	ThreadID string

	LastActivity time.Time
}

// ResetFunnel drops the draft and menu context and returns to the main menu
// state. The assistant thread is cleared too: a menu reset starts the dialog
// from scratch.
func (s *Session) ResetFunnel() {
	s.State = StateMainMenu
	s.Draft = OrderDraft{}
	s.Menu = MenuContext{}
	s.ThreadID = ""
}
