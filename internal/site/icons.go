package site

// Icon is a named icon resolved to the component that renders it.
type Icon struct {
	Name      string `json:"name"`
	Component string `json:"component"`
}

// FallbackIcon is used for names missing from a table.
const FallbackIcon = "public"

// IconTable maps icon names to renderer components.
type IconTable map[string]string

// Resolve returns the icon for name, or the table's entry for FallbackIcon
// when name is unknown.
func (t IconTable) Resolve(name string) Icon {
	if c, ok := t[name]; ok {
		return Icon{Name: name, Component: c}
	}
	return Icon{Name: FallbackIcon, Component: t[FallbackIcon]}
}

// FooterIcons covers social links and contact details.
var FooterIcons = IconTable{
	"facebook":    "FacebookOutlined",
	"twitter":     "Twitter",
	"instagram":   "Instagram",
	"linkedin":    "LinkedIn",
	"youtube":     "YouTube",
	"location_on": "LocationOn",
	"phone":       "Phone",
	"email":       "Email",
	"public":      "Public",
}

// ServiceIcons covers the services and how-it-works sections.
var ServiceIcons = IconTable{
	"public":            "Public",
	"calendar_month":    "CalendarMonth",
	"health_and_safety": "HealthAndSafety",
	"groups":            "Groups",
	"launch":            "Launch",
}
