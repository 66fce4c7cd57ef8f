package viewer

// Link is a navigation entry.
type Link struct {
	Label string `json:"label"`
	Href  string `json:"href"`
	Icon  string `json:"icon,omitempty"`
}

// Header kinds.
const (
	KindPublic    = "public"
	KindCommunity = "community"
	KindMember    = "member"
)

// Header is everything the page header renders for a viewer.
type Header struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Community   string `json:"community,omitempty"`
	Tier        string `json:"tier,omitempty"`
	Nav         []Link `json:"nav"`
	ProfileMenu []Link `json:"profile_menu,omitempty"`
	Actions     []Link `json:"actions,omitempty"`
}

const defaultCommunity = "My Community"

var signOut = Link{Label: "Sign Out", Href: "/api/v1/logout", Icon: "logout"}

// HeaderFor picks the header matching the viewer.
func HeaderFor(v Viewer) Header {
	switch {
	case !v.LoggedIn():
		return PublicHeader(v)
	case v.IsMember():
		return MemberHeader(v)
	default:
		return CommunityHeader(v)
	}
}

// PublicHeader is the landing page header.
func PublicHeader(v Viewer) Header {
	h := Header{
		Kind:  KindPublic,
		Title: "Communicare",
		Nav: []Link{
			{Label: "Home", Href: "/", Icon: "home"},
			{Label: "Community Coordination", Href: "#features", Icon: "people"},
			{Label: "Health Services", Href: "#service", Icon: "health_and_safety"},
			{Label: "How it Works", Href: "#howitworks", Icon: "assignment"},
			{Label: "Help Center", Href: "/help", Icon: "help_outline"},
		},
	}
	if v.LoggedIn() {
		h.Actions = []Link{{Label: "My Community", Href: "/dashboard"}}
		return h
	}
	h.Actions = []Link{
		{Label: "Register a Community", Href: "/register/community"},
		{Label: "Join a Community", Href: "/register/member"},
		{Label: "Sign In", Href: "/login", Icon: "login"},
	}
	return h
}

// CommunityHeader is the dashboard header of a community administrator.
// The title falls back from company name to display name to "My Community".
// AI Agents appear in the nav for premium only. The profile menu offers an
// upgrade unless premium and agent management unless basic.
func CommunityHeader(v Viewer) Header {
	title := firstNonEmpty(v.CompanyName, v.DisplayName, defaultCommunity)
	tier := v.SubscriptionTier
	if tier == "" {
		tier = TierBasic
	}

	nav := []Link{
		{Label: "Dashboard", Href: "/dashboard", Icon: "dashboard"},
		{Label: "Community", Href: "/community", Icon: "people"},
		{Label: "Events", Href: "/events", Icon: "event"},
		{Label: "Announcements", Href: "/announcements", Icon: "campaign"},
		{Label: "Health", Href: "/health", Icon: "health_and_safety"},
		{Label: "Education", Href: "/education", Icon: "school"},
		{Label: "Analytics", Href: "/analytics", Icon: "insert_chart"},
	}
	if tier == TierPremium {
		nav = append(nav, Link{Label: "AI Agents", Href: "/ai-agents", Icon: "settings_applications"})
	}
	nav = append(nav, Link{Label: "Settings", Href: "/settings", Icon: "settings"})

	var menu []Link
	if tier != TierPremium {
		menu = append(menu, Link{Label: "Upgrade", Href: "/upgrade"})
	}
	menu = append(menu,
		Link{Label: "Community Profile", Href: "/profile"},
		Link{Label: "Settings", Href: "/settings"},
	)
	if tier != TierBasic {
		menu = append(menu, Link{Label: "Agents", Href: "/agents"})
	}
	menu = append(menu, Link{Label: "Help & Support", Href: "/help"}, signOut)

	return Header{
		Kind:        KindCommunity,
		Title:       title,
		Tier:        tier,
		Nav:         nav,
		ProfileMenu: menu,
	}
}

// MemberHeader is the dashboard header of a community member.
func MemberHeader(v Viewer) Header {
	return Header{
		Kind:      KindMember,
		Title:     firstNonEmpty(v.DisplayName, v.Username, "Member"),
		Community: firstNonEmpty(v.CommunityName, defaultCommunity),
		Nav: []Link{
			{Label: "Dashboard", Href: "/dashboard", Icon: "dashboard"},
			{Label: "Events", Href: "/events", Icon: "event"},
			{Label: "Announcements", Href: "/announcements", Icon: "campaign"},
			{Label: "Community", Href: "/community", Icon: "people"},
			{Label: "Health", Href: "/health", Icon: "health_and_safety"},
			{Label: "Education", Href: "/education", Icon: "school"},
			{Label: "History", Href: "/history", Icon: "history"},
			{Label: "Settings", Href: "/settings", Icon: "settings"},
		},
		ProfileMenu: []Link{
			{Label: "My Profile", Href: "/profile"},
			{Label: "Settings", Href: "/settings"},
			signOut,
		},
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
