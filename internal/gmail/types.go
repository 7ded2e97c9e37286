// internal/gmail/types.go
package gmail

import "strings"

type MessageID string
type DraftID string

// Headers read back from a draft for listing and update merging.
var DraftHeaders = []string{"To", "Cc", "Bcc", "Subject"}

type Profile struct {
	EmailAddress string
}

type SendAs struct {
	Email       string
	DisplayName string
	Signature   string // HTML
	IsPrimary   bool
}

type DraftRef struct {
	ID        DraftID
	MessageID MessageID
}

type DraftMeta struct {
	DraftRef
	Headers map[string]string // To, Cc, Bcc, Subject
	Snippet string
}

// Header looks up name case-insensitively.
func (d DraftMeta) Header(name string) string {
	if v, ok := d.Headers[name]; ok {
		return v
	}
	for k, v := range d.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// PrimarySignature returns the signature of the primary send-as identity.
func PrimarySignature(ids []SendAs) string {
	for _, id := range ids {
		if id.IsPrimary {
			return id.Signature
		}
	}
	return ""
}

// SplitAddresses splits a comma-separated header into trimmed addresses.
func SplitAddresses(header string) []string {
	var out []string
	for _, a := range strings.Split(header, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
