package dav

import "encoding/xml"

// XML response models for PROPFIND/REPORT multistatus bodies.

const (
	nsDAV     = "DAV:"
	nsCardDAV = "urn:ietf:params:xml:ns:carddav"
	nsCS      = "http://calendarserver.org/ns/"
	nsApple   = "http://apple.com/ns/ical/"
)

type multistatus struct {
	XMLName   xml.Name   `xml:"d:multistatus"`
	XmlnsD    string     `xml:"xmlns:d,attr"`
	XmlnsCard string     `xml:"xmlns:card,attr"`
	XmlnsCS   string     `xml:"xmlns:cs,attr"`
	XmlnsA    string     `xml:"xmlns:a,attr,omitempty"`
	Response  []response `xml:"d:response"`
	SyncToken string     `xml:"d:sync-token,omitempty"`
}

func newMultistatus(responses []response) multistatus {
	return multistatus{
		XmlnsD:    nsDAV,
		XmlnsCard: nsCardDAV,
		XmlnsCS:   nsCS,
		XmlnsA:    nsApple,
		Response:  responses,
	}
}

type response struct {
	Href     string     `xml:"d:href"`
	Propstat []propstat `xml:"d:propstat,omitempty"`
	Status   string     `xml:"d:status,omitempty"`
}

type propstat struct {
	Prop   prop   `xml:"d:prop"`
	Status string `xml:"d:status"`
}

type prop struct {
	ResourceType            *resourceType            `xml:"d:resourcetype,omitempty"`
	DisplayName             string                   `xml:"d:displayname,omitempty"`
	AddressBookDescription  string                   `xml:"card:addressbook-description,omitempty"`
	CalendarColor           string                   `xml:"a:calendar-color,omitempty"`
	GetETag                 string                   `xml:"d:getetag,omitempty"`
	GetContentType          string                   `xml:"d:getcontenttype,omitempty"`
	GetLastModified         string                   `xml:"d:getlastmodified,omitempty"`
	CTag                    string                   `xml:"cs:getctag,omitempty"`
	SyncToken               string                   `xml:"d:sync-token,omitempty"`
	AddressbookHomeSet      *hrefListProp            `xml:"card:addressbook-home-set,omitempty"`
	CurrentUserPrincipal    *hrefProp                `xml:"d:current-user-principal,omitempty"`
	PrincipalURL            *hrefProp                `xml:"d:principal-URL,omitempty"`
	PrincipalCollectionSet  *hrefProp                `xml:"d:principal-collection-set,omitempty"`
	Owner                   *hrefProp                `xml:"d:owner,omitempty"`
	SupportedAddressData    *supportedAddressData    `xml:"card:supported-address-data,omitempty"`
	MaxResourceSize         string                   `xml:"card:max-resource-size,omitempty"`
	SupportedReportSet      *supportedReportSet      `xml:"d:supported-report-set,omitempty"`
	CurrentUserPrivilegeSet *currentUserPrivilegeSet `xml:"d:current-user-privilege-set,omitempty"`
	AddressData             string                   `xml:"card:address-data,omitempty"`
}

type resourceType struct {
	Collection  *struct{} `xml:"d:collection,omitempty"`
	AddressBook *struct{} `xml:"card:addressbook,omitempty"`
	Principal   *struct{} `xml:"d:principal,omitempty"`
}

type hrefProp struct {
	Href string `xml:"d:href"`
}

type hrefListProp struct {
	Href []string `xml:"d:href"`
}

type supportedAddressData struct {
	Types []addressDataType `xml:"card:address-data-type"`
}

type addressDataType struct {
	ContentType string `xml:"content-type,attr"`
	Version     string `xml:"version,attr"`
}

type supportedReportSet struct {
	Reports []supportedReport `xml:"d:supported-report"`
}

type supportedReport struct {
	Report reportType `xml:"d:report"`
}

type reportType struct {
	AddressbookMultiget *struct{} `xml:"card:addressbook-multiget,omitempty"`
	AddressbookQuery    *struct{} `xml:"card:addressbook-query,omitempty"`
	SyncCollection      *struct{} `xml:"d:sync-collection,omitempty"`
	ExpandProperty      *struct{} `xml:"d:expand-property,omitempty"`
}

type currentUserPrivilegeSet struct {
	Privileges []privilege `xml:"d:privilege"`
}

type privilege struct {
	Read            *struct{} `xml:"d:read,omitempty"`
	Write           *struct{} `xml:"d:write,omitempty"`
	WriteContent    *struct{} `xml:"d:write-content,omitempty"`
	WriteProperties *struct{} `xml:"d:write-properties,omitempty"`
	Bind            *struct{} `xml:"d:bind,omitempty"`
	Unbind          *struct{} `xml:"d:unbind,omitempty"`
}

var marker = &struct{}{}

func collectionType() *resourceType {
	return &resourceType{Collection: marker}
}

func addressBookType() *resourceType {
	return &resourceType{Collection: marker, AddressBook: marker}
}

func principalType() *resourceType {
	return &resourceType{Collection: marker, Principal: marker}
}

func supportedReports(withExpand bool) *supportedReportSet {
	set := &supportedReportSet{Reports: []supportedReport{
		{Report: reportType{AddressbookMultiget: marker}},
		{Report: reportType{AddressbookQuery: marker}},
		{Report: reportType{SyncCollection: marker}},
	}}
	if withExpand {
		set.Reports = append(set.Reports, supportedReport{Report: reportType{ExpandProperty: marker}})
	}
	return set
}

func addressDataTypes() *supportedAddressData {
	return &supportedAddressData{Types: []addressDataType{
		{ContentType: "text/vcard", Version: "3.0"},
		{ContentType: "text/vcard", Version: "4.0"},
	}}
}

// privileges lists the rights the owner holds; home sets also advertise
// write-properties.
func privileges(homeSet bool) *currentUserPrivilegeSet {
	set := &currentUserPrivilegeSet{Privileges: []privilege{
		{Read: marker},
		{Write: marker},
		{WriteContent: marker},
	}}
	if homeSet {
		set.Privileges = append(set.Privileges, privilege{WriteProperties: marker})
	}
	set.Privileges = append(set.Privileges, privilege{Bind: marker}, privilege{Unbind: marker})
	return set
}
