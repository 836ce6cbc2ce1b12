package generate

import "fmt"

// Fabricate writes a message from the profile header alone. It never fails
// and never returns an empty string.
func Fabricate(req Request) string {
	who := req.ProfileInfo.FirstName()
	if who == "" {
		who = "there"
	}
	role, company := req.ProfileInfo.Title, req.ProfileInfo.Company
	detail := role
	switch {
	case role != "" && company != "":
		detail = role + " at " + company
	case role == "":
		detail = company
	}
	hook := ""
	if detail != "" {
		hook = fmt.Sprintf(" Noticed your %s.", detail)
	}
	return fmt.Sprintf("Hi %s, I'm impressed by your work.%s I think there's a quick, practical way we can help with your goals. Would you be open to a 10–15 min chat next week to explore?", who, hook)
}
