package scheduler

import "strings"

// Credential is a mailbox address and the SMTP authorization code that lets
// the service send mail from it.
type Credential struct {
	Email  string
	Secret string
}

// Complete reports whether both halves of the credential are present.
func (c Credential) Complete() bool {
	return strings.TrimSpace(c.Email) != "" && c.Secret != ""
}

// ResolveCredential picks the mailbox used to deliver an invitation to
// recipient. The organizer's credential is preferred; failing that the
// recipient's own entry in perMember is used. The boolean is false when
// neither is available.
func ResolveCredential(recipient string, organizer *Credential, perMember []Credential) (Credential, bool) {
	if organizer != nil && organizer.Complete() {
		return *organizer, true
	}
	target := strings.TrimSpace(recipient)
	if target == "" {
		return Credential{}, false
	}
	for _, cred := range perMember {
		if cred.Complete() && strings.EqualFold(strings.TrimSpace(cred.Email), target) {
			return cred, true
		}
	}
	return Credential{}, false
}
