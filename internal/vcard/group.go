package vcard

import (
	"strings"
	"time"

	govcard "github.com/emersion/go-vcard"
)

const (
	appleKindField   = "X-ADDRESSBOOKSERVER-KIND"
	appleMemberField = "X-ADDRESSBOOKSERVER-MEMBER"
)

// IsGroup reports whether the first KIND or X-ADDRESSBOOKSERVER-KIND property
// of text names a group.
func IsGroup(text string) bool {
	for _, line := range UnfoldLines(text) {
		p, ok := parseLine(line)
		if !ok {
			continue
		}
		if p.Name == govcard.FieldKind || p.Name == appleKindField {
			return strings.Contains(strings.ToLower(p.Value), string(govcard.KindGroup))
		}
	}
	return false
}

// ParseGroup decodes a group card. It returns nil when FN is missing.
// Members are read from both MEMBER and X-ADDRESSBOOKSERVER-MEMBER and must be
// urn:uuid references; duplicates are collapsed.
func ParseGroup(text string) *Group {
	var g Group
	hasName := false
	seen := make(map[string]bool)
	for _, line := range UnfoldLines(text) {
		p, ok := parseLine(line)
		if !ok {
			continue
		}
		switch p.Name {
		case govcard.FieldFormattedName:
			g.Name = UnescapeValue(p.Value)
			hasName = true
		case govcard.FieldNote:
			g.Description = UnescapeValue(p.Value)
		case govcard.FieldUID:
			g.ID = unwrapUID(p.Value)
		case govcard.FieldMember, appleMemberField:
			m := uuidURNPattern.FindStringSubmatch(strings.TrimSpace(p.Value))
			if m == nil || seen[m[1]] {
				continue
			}
			seen[m[1]] = true
			g.MemberIDs = append(g.MemberIDs, m[1])
		}
	}
	if !hasName {
		return nil
	}
	return &g
}

// GenerateGroup renders g in the Apple group form.
func GenerateGroup(g Group) string {
	return generateGroupAt(g, time.Now())
}

func generateGroupAt(g Group, now time.Time) string {
	lines := []string{
		"BEGIN:VCARD",
		govcard.FieldVersion + ":" + Version3,
		govcard.FieldProductID + ":" + ProductID,
		appleKindField + ":" + string(govcard.KindGroup),
		govcard.FieldFormattedName + ":" + EscapeValue(g.Name),
		govcard.FieldUID + ":urn:uuid:" + g.ID,
		govcard.FieldName + ":" + EscapeValue(g.Name) + ";;;;",
	}
	if g.Description != "" {
		lines = append(lines, govcard.FieldNote+":"+EscapeValue(g.Description))
	}
	for _, id := range g.MemberIDs {
		lines = append(lines, appleMemberField+":urn:uuid:"+id)
	}
	lines = append(lines,
		govcard.FieldRevision+":"+now.UTC().Format(revisionLayout),
		"END:VCARD",
	)
	return joinFolded(lines)
}
