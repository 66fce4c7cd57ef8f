package registration

import (
	"strings"

	"github.com/communicare/portal/internal/authclient"
	"github.com/communicare/portal/internal/validate"
)

// SplitName splits a full name into a given name (the first word) and a
// surname (the remaining words joined by single spaces).
func SplitName(full string) (given, surname string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// CommunityPayload builds the admin registration request from wizard values.
// Community details are copied verbatim, including empty ones.
func CommunityPayload(v validate.Values) authclient.RegisterPayload {
	given, surname := SplitName(v[validate.AdminName])
	phone := v[validate.PhoneNumber]
	community := v[validate.CommunityName]
	address := v[validate.Address]

	return authclient.RegisterPayload{
		DisplayName:     v[validate.AdminName],
		GivenName:       given,
		Surname:         surname,
		Email:           v[validate.AdminEmail],
		Password:        v[validate.Password],
		UserType:        authclient.UserTypeAdmin,
		MobileNumber:    &phone,
		CompanyName:     &community,
		BusinessAddress: &address,
	}
}

// MemberPayload builds the member registration request.
func MemberPayload(v validate.Values) authclient.RegisterPayload {
	given, surname := SplitName(v[validate.Name])
	return authclient.RegisterPayload{
		DisplayName: v[validate.Name],
		GivenName:   given,
		Surname:     surname,
		Email:       v[validate.Email],
		Password:    v[validate.Password],
		UserType:    authclient.UserTypeMember,
	}
}
