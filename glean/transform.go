package glean

import (
	"time"

	"github.com/sharath-chandra-glean/peopleDateExporter/keycloak"
)

// Attribute names recognized on source users. Values may be scalar or
// multi-valued on the source side; only the first value is mapped.
const (
	attrDepartment   = "department"
	attrTitle        = "title"
	attrBusinessUnit = "business_unit"
	attrPhone        = "phone"
	attrManagerEmail = "manager_email"
	attrBio          = "bio"
	attrPhotoURL     = "photo_url"
)

// FormatEmployee maps a source user to the people-index schema. It is a pure
// function and never fails: missing or empty source fields are simply left
// out of the result. Start dates are rendered in UTC so the same run always
// produces the same payload regardless of server timezone.
func FormatEmployee(u keycloak.User) Employee {
	e := Employee{
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		UserID:       u.ID,
		Department:   firstAttribute(u, attrDepartment),
		Title:        firstAttribute(u, attrTitle),
		BusinessUnit: firstAttribute(u, attrBusinessUnit),
		Phone:        firstAttribute(u, attrPhone),
		ManagerEmail: firstAttribute(u, attrManagerEmail),
		Bio:          firstAttribute(u, attrBio),
		PhotoURL:     firstAttribute(u, attrPhotoURL),
		Status:       StatusFormer,
	}
	if u.Enabled {
		e.Status = StatusCurrent
	}

	// The manager reference doubles as the manager identifier in the
	// destination schema.
	e.ManagerID = e.ManagerEmail

	if u.CreatedTimestamp > 0 {
		e.StartDate = time.UnixMilli(u.CreatedTimestamp).UTC().Format("2006-01-02")
	}

	return e
}

// FormatTeam maps a source group and its resolved member emails to the
// team-index schema. Empty emails are dropped from the member list; members
// without a resolvable email were already filtered out by the caller.
func FormatTeam(g keycloak.Group, memberEmails []string) Team {
	t := Team{
		Name:    g.Name,
		Members: make([]TeamMember, 0, len(memberEmails)),
	}
	for _, email := range memberEmails {
		if email != "" {
			t.Members = append(t.Members, TeamMember{Email: email})
		}
	}
	if g.ID != "" {
		t.ExternalID = g.ID
	}
	return t
}

func firstAttribute(u keycloak.User, name string) string {
	return u.Attributes[name].First()
}
