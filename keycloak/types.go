package keycloak

import "encoding/json"

// User is a user representation returned by the Keycloak admin API.
// Attributes carries the realm's custom attributes; Keycloak stores these as
// multi-valued, but exports and older realms sometimes emit bare strings, so
// the values decode through StringOrSlice.
type User struct {
	ID               string                   `json:"id"`
	Username         string                   `json:"username"`
	Email            string                   `json:"email"`
	FirstName        string                   `json:"firstName"`
	LastName         string                   `json:"lastName"`
	Enabled          bool                     `json:"enabled"`
	CreatedTimestamp int64                    `json:"createdTimestamp"`
	Attributes       map[string]StringOrSlice `json:"attributes"`
}

// Group is a group representation returned by the Keycloak admin API.
// Membership is not embedded; it is fetched per group.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// GroupMember is one entry of a group's member list. Only the ID takes part
// in email resolution; the email here may be absent for service accounts.
type GroupMember struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// StringOrSlice is an attribute value that may arrive as a JSON string or as
// an array of strings.
type StringOrSlice []string

// UnmarshalJSON accepts both "value" and ["value", ...].
func (s *StringOrSlice) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringOrSlice{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = StringOrSlice(many)
	return nil
}

// First returns the first non-empty value, or "" when there is none.
func (s StringOrSlice) First() string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
