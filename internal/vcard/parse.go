package vcard

import (
	"regexp"
	"strings"

	govcard "github.com/emersion/go-vcard"
)

var uuidURNPattern = regexp.MustCompile(`(?i)^urn:uuid:(.+)$`)

// Parse decodes the fields Generate is able to emit. Unknown properties are
// ignored; the caller keeps the original text as the source of truth.
func Parse(text string) Contact {
	var c Contact
	for _, line := range UnfoldLines(text) {
		p, ok := parseLine(line)
		if !ok {
			continue
		}
		switch p.Name {
		case govcard.FieldFormattedName:
			c.DisplayName = UnescapeValue(p.Value)
		case govcard.FieldName:
			parts := splitUnescaped(p.Value, ';')
			c.FamilyName = component(parts, 0)
			c.GivenName = component(parts, 1)
		case govcard.FieldNickname:
			c.Nickname = UnescapeValue(p.Value)
		case govcard.FieldOrganization:
			c.Organization = component(splitUnescaped(p.Value, ';'), 0)
		case govcard.FieldTitle:
			c.JobTitle = UnescapeValue(p.Value)
		case govcard.FieldEmail:
			c.Emails = append(c.Emails, Email{Value: strings.TrimSpace(p.Value), Type: workHomeOther(p)})
		case govcard.FieldTelephone:
			c.Phones = append(c.Phones, Phone{Value: strings.TrimSpace(p.Value), Type: phoneType(p)})
		case govcard.FieldAddress:
			parts := splitUnescaped(p.Value, ';')
			c.Addresses = append(c.Addresses, Address{
				Street:     component(parts, 2),
				City:       component(parts, 3),
				Region:     component(parts, 4),
				PostalCode: component(parts, 5),
				Country:    component(parts, 6),
				Type:       workHomeOther(p),
			})
		case govcard.FieldURL:
			c.URLs = append(c.URLs, URL{Value: strings.TrimSpace(p.Value), Type: workHomeOther(p)})
		case govcard.FieldBirthday:
			c.Birthday = parseBirthday(strings.TrimSpace(p.Value))
		case govcard.FieldNote:
			c.Notes = UnescapeValue(p.Value)
		case govcard.FieldPhoto:
			c.PhotoData, c.PhotoMediaType = parsePhoto(p)
		case govcard.FieldCategories:
			c.Category = component(splitUnescaped(p.Value, ','), 0)
		case govcard.FieldUID:
			c.ID = unwrapUID(p.Value)
		}
	}
	return c
}

func workHomeOther(p property) string {
	params := p.paramsUpper()
	switch {
	case strings.Contains(params, "WORK"):
		return TypeWork
	case strings.Contains(params, "HOME"):
		return TypeHome
	default:
		return TypeOther
	}
}

func phoneType(p property) string {
	params := p.paramsUpper()
	switch {
	case strings.Contains(params, "CELL"), strings.Contains(params, "MOBILE"):
		return TypeMobile
	case strings.Contains(params, "WORK"):
		return TypeWork
	case strings.Contains(params, "HOME"):
		return TypeHome
	case strings.Contains(params, "FAX"):
		return TypeFax
	default:
		return TypeOther
	}
}

// parseBirthday normalizes YYYYMMDD and --MMDD to YYYY-MM-DD. Other forms are
// returned unchanged.
func parseBirthday(v string) string {
	switch {
	case len(v) == 8 && isDigits(v):
		return v[0:4] + "-" + v[4:6] + "-" + v[6:8]
	case len(v) == 6 && strings.HasPrefix(v, "--") && isDigits(v[2:]):
		return "0000-" + v[2:4] + "-" + v[4:6]
	case len(v) == 7 && strings.HasPrefix(v, "--") && v[4] == '-':
		return "0000-" + v[2:4] + "-" + v[5:7]
	}
	return v
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func parsePhoto(p property) (data, mediaType string) {
	value := strings.TrimSpace(p.Value)
	if strings.HasPrefix(strings.ToLower(value), "data:") {
		meta, payload, ok := strings.Cut(value[len("data:"):], ",")
		if !ok {
			return "", ""
		}
		mediaType, _, _ = strings.Cut(meta, ";")
		return payload, mediaType
	}

	encoding := strings.ToUpper(p.param("ENCODING"))
	if encoding == "B" || encoding == "BASE64" {
		if mt := p.param(govcard.ParamMediaType); mt != "" {
			return value, mt
		}
		if t := p.param(govcard.ParamType); t != "" {
			return value, "image/" + strings.ToLower(t)
		}
		return value, "image/jpeg"
	}

	lower := strings.ToLower(value)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return "", ""
	}
	return value, p.param(govcard.ParamMediaType)
}

func unwrapUID(v string) string {
	v = strings.TrimSpace(v)
	if m := uuidURNPattern.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	return v
}
