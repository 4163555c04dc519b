package models

import "strings"

type Role string

const (
	RoleEmployee Role = "employee"
	RoleHR       Role = "hr"
)

// Requester is the resolved identity a query runs under.
type Requester struct {
	Username   string `json:"username,omitempty"`
	Department string `json:"department"`
	Role       Role   `json:"role"`
	Country    string `json:"country,omitempty"`
}

// NewRequester normalizes department and country to lower case.
func NewRequester(username, department string, role Role, country string) Requester {
	if role != RoleHR {
		role = RoleEmployee
	}
	return Requester{
		Username:   strings.TrimSpace(username),
		Department: strings.ToLower(strings.TrimSpace(department)),
		Role:       role,
		Country:    strings.ToLower(strings.TrimSpace(country)),
	}
}

func (r Requester) IsHR() bool {
	return r.Role == RoleHR
}

// DeriveRole returns RoleHR when any held role token is "hr" or
// "human resources" (case-insensitive), RoleEmployee otherwise.
func DeriveRole(roles ...string) Role {
	for _, r := range roles {
		switch strings.ToLower(strings.TrimSpace(r)) {
		case "hr", "human resources":
			return RoleHR
		}
	}
	return RoleEmployee
}

var countryAliases = map[string]string{
	"india":          "india",
	"indian":         "india",
	"indian_policy":  "india",
	"foreign":        "foreign",
	"international":  "foreign",
	"foreign_policy": "foreign",
}

// ResolveCountry picks the country scope for a query. An explicit policy
// scope wins over the user's own country; known aliases are normalized.
func ResolveCountry(policyCountry, userCountry string) string {
	c := strings.ToLower(strings.TrimSpace(policyCountry))
	if c == "" {
		c = strings.ToLower(strings.TrimSpace(userCountry))
	}
	if alias, ok := countryAliases[c]; ok {
		return alias
	}
	return c
}
