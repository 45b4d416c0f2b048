// AngelaMos | 2026
// views.go

package dashboard

import (
	"github.com/carterperez-dev/eventhub/internal/event"
	"github.com/carterperez-dev/eventhub/internal/identity"
	"github.com/carterperez-dev/eventhub/internal/ticket"
)

type ViewName string

const (
	ViewCatalog         ViewName = "catalog"
	ViewDetail          ViewName = "detail"
	ViewLoginRequired   ViewName = "login_required"
	ViewUserDashboard   ViewName = "user_dashboard"
	ViewHosterDashboard ViewName = "hoster_dashboard"
	ViewAdminDashboard  ViewName = "admin_dashboard"
)

type Tool string

const (
	ToolSubmitEvent  Tool = "submit_event"
	ToolVerifyTicket Tool = "verify_ticket"
	ToolDecideEvent  Tool = "decide_event"
	ToolUpgradeRole  Tool = "upgrade_role"
)

const loginRequiredMessage = "Please login to access your dashboard."

type CatalogView struct {
	View   ViewName              `json:"view"`
	Events []event.EventResponse `json:"events"`
}

type DetailView struct {
	View    ViewName            `json:"view"`
	Event   event.EventResponse `json:"event"`
	CanBook bool                `json:"can_book"`
}

type LoginRequiredView struct {
	View    ViewName `json:"view"`
	Message string   `json:"message"`
}

type UserDashboard struct {
	View    ViewName                `json:"view"`
	Tickets []ticket.TicketResponse `json:"tickets"`
}

type HosterDashboard struct {
	View   ViewName              `json:"view"`
	Events []event.EventResponse `json:"events"`
	Tools  []Tool                `json:"tools"`
}

type AdminDashboard struct {
	View    ViewName                   `json:"view"`
	Pending []event.EventResponse      `json:"pending"`
	Users   []identity.ProfileResponse `json:"users"`
	Tools   []Tool                     `json:"tools"`
}

func loginRequired() LoginRequiredView {
	return LoginRequiredView{
		View:    ViewLoginRequired,
		Message: loginRequiredMessage,
	}
}

func hosterTools() []Tool {
	return []Tool{ToolSubmitEvent, ToolVerifyTicket}
}

func adminTools() []Tool {
	return []Tool{ToolDecideEvent, ToolUpgradeRole, ToolVerifyTicket}
}
