package dav

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// AllProp is the sentinel returned by ParseProps when every property is wanted.
const AllProp = "allprop"

// propVocabulary is the set of property names ParseProps reports.
var propVocabulary = map[string]bool{
	"resourcetype":           true,
	"displayname":            true,
	"getetag":                true,
	"getcontenttype":         true,
	"getlastmodified":        true,
	"current-user-principal": true,
	"principal-URL":          true,
	"addressbook-home-set":   true,
	"address-data":           true,
	"supported-address-data": true,
	"supported-report-set":   true,
	"getctag":                true,
	"sync-token":             true,
	"max-resource-size":      true,
	"me-card":                true,
	"owner":                  true,
}

// ReportKind classifies a REPORT body.
type ReportKind int

const (
	ReportUnknown ReportKind = iota
	ReportMultiget
	ReportSyncCollection
	ReportQuery
)

func (k ReportKind) String() string {
	switch k {
	case ReportMultiget:
		return "addressbook-multiget"
	case ReportSyncCollection:
		return "sync-collection"
	case ReportQuery:
		return "addressbook-query"
	default:
		return "unknown"
	}
}

// PropFilter is one addressbook-query prop-filter. Filters are parsed but not
// applied.
type PropFilter struct {
	Name      string
	TextMatch string
	MatchType string
	Negate    bool
}

// Report is a parsed REPORT request.
type Report struct {
	Kind      ReportKind
	Hrefs     []string
	SyncToken string
	Filters   []PropFilter
	Props     []string
}

// newSafeDecoder returns a decoder that never resolves external entities.
func newSafeDecoder(data []byte) *xml.Decoder {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Entity = xml.HTMLEntity
	decoder.Strict = false
	return decoder
}

// ParseProps returns the requested property names from a PROPFIND (or REPORT)
// body. An empty body, an allprop request, a body naming nothing we know, or
// XML that does not parse all yield []string{AllProp}.
func ParseProps(body []byte) []string {
	if len(bytes.TrimSpace(body)) == 0 {
		return []string{AllProp}
	}

	decoder := newSafeDecoder(body)
	var (
		props     []string
		seen      = map[string]bool{}
		propDepth = -1
		depth     int
	)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return []string{AllProp}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			name := t.Name.Local
			if name == "allprop" || name == "all-prop" {
				return []string{AllProp}
			}
			if propDepth < 0 && name == "prop" {
				propDepth = depth
				continue
			}
			if propDepth > 0 && depth == propDepth+1 && propVocabulary[name] && !seen[name] {
				seen[name] = true
				props = append(props, name)
			}
		case xml.EndElement:
			if depth == propDepth {
				propDepth = 0
			}
			depth--
		}
	}
	if len(props) == 0 {
		return []string{AllProp}
	}
	return props
}

// ParseReport classifies a REPORT body by its root element and extracts the
// parts each report needs. Element prefixes are ignored.
func ParseReport(body []byte) Report {
	report := Report{Props: ParseProps(body)}
	decoder := newSafeDecoder(body)

	var (
		stack  []string
		filter *PropFilter
		text   strings.Builder
	)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if report.Kind == ReportUnknown {
				return Report{Kind: ReportUnknown}
			}
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if len(stack) == 0 {
				report.Kind = reportKindOf(name)
			}
			stack = append(stack, name)
			text.Reset()
			switch name {
			case "prop-filter":
				if report.Kind == ReportQuery {
					report.Filters = append(report.Filters, PropFilter{Name: strings.ToUpper(attr(t, "name"))})
					filter = &report.Filters[len(report.Filters)-1]
				}
			case "text-match":
				if filter != nil {
					filter.MatchType = attr(t, "match-type")
					if filter.MatchType == "" {
						filter.MatchType = "contains"
					}
					filter.Negate = attr(t, "negate-condition") == "yes"
				}
			}
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			name := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			value := strings.TrimSpace(text.String())
			switch name {
			case "href":
				if report.Kind == ReportMultiget && value != "" {
					report.Hrefs = append(report.Hrefs, value)
				}
			case "sync-token":
				if report.Kind == ReportSyncCollection {
					report.SyncToken = strings.TrimPrefix(value, "data:,")
				}
			case "text-match":
				if filter != nil {
					filter.TextMatch = value
				}
			case "prop-filter":
				filter = nil
			}
			text.Reset()
		}
	}
	return report
}

func reportKindOf(root string) ReportKind {
	switch root {
	case "addressbook-multiget":
		return ReportMultiget
	case "sync-collection":
		return ReportSyncCollection
	case "addressbook-query":
		return ReportQuery
	default:
		return ReportUnknown
	}
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// wants reports whether name was requested.
func wants(props []string, name string) bool {
	for _, p := range props {
		if p == AllProp || p == name {
			return true
		}
	}
	return false
}

// requested reports whether name was asked for explicitly.
func requested(props []string, name string) bool {
	for _, p := range props {
		if p == name {
			return true
		}
	}
	return false
}
