package vcard

import (
	"strings"
	"time"

	govcard "github.com/emersion/go-vcard"
)

const revisionLayout = "20060102T150405Z"

// Generate renders c as a vCard of the given version. Unknown versions are
// rendered as 3.0.
func Generate(c Contact, version string) string {
	return generateAt(c, version, time.Now())
}

func generateAt(c Contact, version string, now time.Time) string {
	if version != Version4 {
		version = Version3
	}

	lines := []string{
		"BEGIN:VCARD",
		govcard.FieldVersion + ":" + version,
		govcard.FieldProductID + ":" + ProductID,
		govcard.FieldFormattedName + ":" + EscapeValue(c.FormattedName()),
		govcard.FieldName + ":" + EscapeValue(c.FamilyName) + ";" + EscapeValue(c.GivenName) + ";;;",
	}

	if c.Nickname != "" {
		lines = append(lines, govcard.FieldNickname+":"+EscapeValue(c.Nickname))
	}
	if c.Organization != "" {
		lines = append(lines, govcard.FieldOrganization+":"+EscapeValue(c.Organization))
	}
	if c.JobTitle != "" {
		lines = append(lines, govcard.FieldTitle+":"+EscapeValue(c.JobTitle))
	}

	for _, e := range c.Emails {
		lines = append(lines, govcard.FieldEmail+";TYPE=INTERNET,"+upperTypeOr(e.Type, "OTHER")+":"+e.Value)
	}
	for _, p := range c.Phones {
		lines = append(lines, govcard.FieldTelephone+";TYPE="+phoneTypeParam(p.Type)+":"+p.Value)
	}
	for _, a := range c.Addresses {
		lines = append(lines, govcard.FieldAddress+";TYPE="+upperTypeOr(a.Type, "OTHER")+":;;"+
			strings.Join([]string{
				EscapeValue(a.Street),
				EscapeValue(a.City),
				EscapeValue(a.Region),
				EscapeValue(a.PostalCode),
				EscapeValue(a.Country),
			}, ";"))
	}
	for _, u := range c.URLs {
		lines = append(lines, govcard.FieldURL+";TYPE="+upperTypeOr(u.Type, "OTHER")+":"+u.Value)
	}

	if c.Birthday != "" {
		lines = append(lines, govcard.FieldBirthday+":"+formatBirthday(c.Birthday))
	}
	if c.Notes != "" {
		lines = append(lines, govcard.FieldNote+":"+EscapeValue(c.Notes))
	}
	if line := photoLine(c, version); line != "" {
		lines = append(lines, line)
	}
	if c.Category != "" {
		lines = append(lines, govcard.FieldCategories+":"+EscapeValue(c.Category))
	}
	if c.ID != "" {
		lines = append(lines, govcard.FieldUID+":"+c.ID)
	}
	lines = append(lines,
		govcard.FieldRevision+":"+now.UTC().Format(revisionLayout),
		"END:VCARD",
	)
	return joinFolded(lines)
}

func joinFolded(lines []string) string {
	folded := make([]string, len(lines))
	for i, l := range lines {
		folded[i] = FoldLine(l)
	}
	return strings.Join(folded, "\r\n")
}

func upperTypeOr(t, def string) string {
	if t == "" {
		return def
	}
	return strings.ToUpper(t)
}

func phoneTypeParam(t string) string {
	switch t {
	case TypeMobile:
		return "CELL"
	case TypeWork:
		return "WORK,VOICE"
	case TypeHome:
		return "HOME,VOICE"
	case TypeFax:
		return "FAX"
	default:
		return "VOICE"
	}
}

// formatBirthday converts YYYY-MM-DD to the basic form. A 0000 year means the
// year is unknown and is written as --MMDD.
func formatBirthday(bday string) string {
	if strings.HasPrefix(bday, "0000-") {
		return "--" + strings.ReplaceAll(strings.TrimPrefix(bday, "0000-"), "-", "")
	}
	if strings.HasPrefix(bday, "--") {
		return "--" + strings.ReplaceAll(strings.TrimPrefix(bday, "--"), "-", "")
	}
	return strings.ReplaceAll(bday, "-", "")
}

func photoLine(c Contact, version string) string {
	if c.PhotoData == "" {
		return ""
	}
	if version == Version4 {
		mediaType := c.PhotoMediaType
		if mediaType == "" {
			mediaType = "image/jpeg"
		}
		return govcard.FieldPhoto + ":data:" + mediaType + ";base64," + c.PhotoData
	}
	subtype := "JPEG"
	if _, sub, ok := strings.Cut(c.PhotoMediaType, "/"); ok && sub != "" {
		subtype = strings.ToUpper(sub)
	}
	return govcard.FieldPhoto + ";ENCODING=b;TYPE=" + subtype + ":" + c.PhotoData
}
