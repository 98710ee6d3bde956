package model

import "time"

// Incident is a user-submitted environmental report. Immutable after
// creation; held in memory for the lifetime of the session.
type Incident struct {
	ID          string     `json:"id"`
	Position    Coordinate `json:"position"`
	IssueTags   []string   `json:"issues"`
	Notes       string     `json:"notes,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
}

// IssueOption describes one reportable issue category.
type IssueOption struct {
	Key   string
	Label string
}

// IssueOptions is the fixed catalog of reportable issue categories.
var IssueOptions = []IssueOption{
	{Key: "noise", Label: "Noise Pollution"},
	{Key: "heat", Label: "Heat Island"},
	{Key: "truck-traffic", Label: "Truck Traffic"},
	{Key: "odor", Label: "Odor"},
	{Key: "water", Label: "Water Quality"},
	{Key: "light", Label: "Light Pollution"},
	{Key: "air-quality", Label: "Air Quality"},
	{Key: "waste", Label: "Waste/Dumping"},
	{Key: "construction", Label: "Construction"},
	{Key: "chemical", Label: "Chemical Spill"},
	{Key: "wildlife", Label: "Wildlife Disturbance"},
	{Key: "vegetation", Label: "Vegetation Damage"},
}

// IssueLabel returns the display label for an issue key, or the key itself
// when the catalog has no entry.
func IssueLabel(key string) string {
	for _, opt := range IssueOptions {
		if opt.Key == key {
			return opt.Label
		}
	}
	return key
}

// AuthorityContact is the agency to notify for a given issue category.
type AuthorityContact struct {
	Name        string
	Phone       string
	Description string
}

// authorityContacts maps issue keys to the responsible agency.
var authorityContacts = map[string]AuthorityContact{
	"noise": {
		Name:        "Local Police Department",
		Phone:       "911 (Emergency) or Local Non-Emergency",
		Description: "For excessive noise complaints, especially during quiet hours",
	},
	"air-quality": {
		Name:        "Environmental Protection Agency (EPA)",
		Phone:       "1-800-424-8802",
		Description: "For air pollution and emissions violations",
	},
	"water": {
		Name:        "EPA Water Division",
		Phone:       "1-800-426-4791",
		Description: "For water pollution and contamination issues",
	},
	"chemical": {
		Name:        "EPA Emergency Response",
		Phone:       "1-800-424-8802",
		Description: "For chemical spills and hazardous material incidents",
	},
	"waste": {
		Name:        "Local Waste Management",
		Phone:       "Check your local government website",
		Description: "For illegal dumping and waste management issues",
	},
}

// defaultAuthority covers issue categories without a dedicated contact.
var defaultAuthority = AuthorityContact{
	Name:        "Local Environmental Department",
	Phone:       "Check your local government website",
	Description: "For general environmental concerns",
}

// AuthorityFor returns the contact for an issue key, falling back to the
// general environmental department.
func AuthorityFor(issueKey string) AuthorityContact {
	if c, ok := authorityContacts[issueKey]; ok {
		return c
	}
	return defaultAuthority
}
