package attachment

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/medbrain/internal/util"
)

// Tag is one summarised DICOM attribute.
type Tag struct {
	Name  string
	Value string
}

// summaryTag names a DICOM attribute worth showing next to a prescription.
type summaryTag struct {
	Name string
	Tag  tag.Tag
}

// summaryTags lists the attributes shown, in display order.
var summaryTags = []summaryTag{
	// Patient
	{Name: "PatientName", Tag: tag.PatientName},
	{Name: "PatientID", Tag: tag.PatientID},
	{Name: "PatientBirthDate", Tag: tag.PatientBirthDate},
	{Name: "PatientSex", Tag: tag.PatientSex},

	// Study
	{Name: "StudyDate", Tag: tag.StudyDate},
	{Name: "StudyDescription", Tag: tag.StudyDescription},
	{Name: "InstitutionName", Tag: tag.InstitutionName},
	{Name: "ReferringPhysicianName", Tag: tag.ReferringPhysicianName},
	{Name: "AccessionNumber", Tag: tag.AccessionNumber},

	// Series
	{Name: "Modality", Tag: tag.Modality},
	{Name: "SeriesDescription", Tag: tag.SeriesDescription},
	{Name: "BodyPartExamined", Tag: tag.BodyPartExamined},
	{Name: "Manufacturer", Tag: tag.Manufacturer},

	// Image
	{Name: "Rows", Tag: tag.Rows},
	{Name: "Columns", Tag: tag.Columns},
}

// TagNames returns the names of the summarised attributes.
func TagNames() []string {
	names := make([]string, len(summaryTags))
	for i, t := range summaryTags {
		names[i] = t.Name
	}
	return names
}

// LookupTag returns the summarised attribute called name, case-insensitively.
// Unknown names get a suggestion for the closest one.
func LookupTag(name string) (tag.Tag, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, t := range summaryTags {
		if strings.ToLower(t.Name) == normalized {
			return t.Tag, nil
		}
	}

	if s := util.Closest(name, TagNames(), 5); s != "" {
		return tag.Tag{}, fmt.Errorf("unknown tag %q, did you mean %q?", name, s)
	}
	return tag.Tag{}, fmt.Errorf("unknown tag %q", name)
}

// Value returns the summarised value of the attribute called name.
func (a Attachment) Value(name string) (string, error) {
	if _, err := LookupTag(name); err != nil {
		return "", err
	}
	for _, t := range a.Summary {
		if strings.EqualFold(t.Name, name) {
			return t.Value, nil
		}
	}
	return "", nil
}

// decodeDICOM accepts a DICOM file unchanged and summarises its header.
func decodeDICOM(name string, data []byte) (Attachment, error) {
	ds, err := parseTolerant(data)
	if err != nil {
		return Attachment{}, &UnsupportedInputError{Name: name, Reason: "unreadable DICOM: " + err.Error()}
	}

	a := Attachment{Name: name, MediaType: mediaDICOM, Data: data}
	for _, t := range summaryTags {
		v := stringValue(ds, t.Tag)
		if v == "" {
			continue
		}
		a.Summary = append(a.Summary, Tag{Name: t.Name, Value: v})
	}
	return a, nil
}

// stringValue extracts a trimmed string value, empty when absent.
func stringValue(ds dicom.Dataset, t tag.Tag) string {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil {
		return ""
	}
	return strings.TrimSpace(strings.Trim(elem.Value.String(), " []"))
}

// parseTolerant parses element by element and keeps whatever was read before
// the first malformed element. Pixel data is skipped.
func parseTolerant(data []byte) (dicom.Dataset, error) {
	p, err := dicom.NewParser(bytes.NewReader(data), int64(len(data)), nil, dicom.SkipPixelData())
	if err != nil {
		return dicom.Dataset{}, err
	}

	var elements []*dicom.Element
	for {
		elem, err := p.Next()
		if err != nil {
			break
		}
		elements = append(elements, elem)
	}

	meta := p.GetMetadata()
	if len(elements) == 0 && len(meta.Elements) == 0 {
		return dicom.Dataset{}, fmt.Errorf("no elements parsed")
	}
	return dicom.Dataset{Elements: append(meta.Elements, elements...)}, nil
}
