package util

import "strings"

// WhatsApp JIDs look like "4915112345678@c.us"; the part before the @ is the
// visible handle used in mention text.

// MentionTag renders a JID as the "@handle" token shown in chat.
func MentionTag(jid string) string {
	return "@" + Handle(jid)
}

// Handle extracts the user part of a JID.
func Handle(jid string) string {
	jid = strings.TrimSpace(jid)
	if i := strings.IndexByte(jid, '@'); i >= 0 {
		return jid[:i]
	}
	return jid
}

// MentionLine joins mention tags for the given JIDs into one line.
func MentionLine(jids []string) string {
	tags := make([]string, 0, len(jids))
	for _, id := range jids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		tags = append(tags, MentionTag(id))
	}
	return strings.Join(tags, " ")
}

// StripCommandToken removes the leading command token from a message body and
// returns the trimmed remainder.
func StripCommandToken(body, token string) string {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, token) {
		return body
	}
	return strings.TrimSpace(strings.TrimPrefix(body, token))
}
