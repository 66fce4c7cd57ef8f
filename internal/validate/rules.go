package validate

// Community wizard field sets, in display order.
var (
	CommunityInfoFields = []Field{CommunityName, CommunityEmail, PhoneNumber, Address}
	AdminAccountFields  = []Field{AdminName, AdminEmail, Password, ConfirmPassword}
	MemberFields        = []Field{Name, Email, Password, ConfirmPassword}
	LoginFields         = []Field{Email, Password}
)

// CommunityRules returns the rules for the community registration wizard.
// The address is collected but only checked when requireAddress is set.
func CommunityRules(requireAddress bool) Rules {
	r := Rules{
		CommunityName:   Required("Community name is required"),
		CommunityEmail:  RequiredEmail("Community email is required"),
		PhoneNumber:     Required("Phone number is required"),
		AdminName:       Required("Name is required"),
		AdminEmail:      RequiredEmail("Email is required"),
		Password:        NewPassword(),
		ConfirmPassword: MatchesField(Password, MsgPasswordMismatch),
	}
	if requireAddress {
		r[Address] = Required("Address is required")
	}
	return r
}

// MemberRules returns the rules for the single-step member registration form.
func MemberRules() Rules {
	return Rules{
		Name:            Required("Name is required"),
		Email:           RequiredEmail("Email is required"),
		Password:        NewPassword(),
		ConfirmPassword: MatchesField(Password, MsgPasswordMismatch),
	}
}

// LoginRules returns the rules for the login form. Length is not checked
// on login; the provider decides whether the password is right.
func LoginRules() Rules {
	return Rules{
		Email:    RequiredEmail("Email is required"),
		Password: Required(MsgPasswordRequired),
	}
}

// Known reports whether f belongs to fields.
func Known(f Field, fields ...[]Field) bool {
	for _, set := range fields {
		for _, candidate := range set {
			if candidate == f {
				return true
			}
		}
	}
	return false
}
