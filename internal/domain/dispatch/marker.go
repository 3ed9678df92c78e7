package dispatch

import "fmt"

// Marker is a map placemark derived from one order
type Marker struct {
	OrderID         string     `json:"order_id"`
	Label           string     `json:"label"`
	Coordinate      Coordinate `json:"coordinate"`
	DescriptionHTML string     `json:"description_html"`
	// Fallback is set when the coordinate is the substituted depot point
	Fallback bool `json:"fallback,omitempty"`
}

// MarkerLabel renders "{client_id} - {client_name}"
func MarkerLabel(order OrderRecord) string {
	return fmt.Sprintf("%s - %s", order.ClientID.String(), order.ClientName.String())
}

// MarkerDocument is the ordered set of markers handed to the document writer
type MarkerDocument struct {
	Name    string
	Markers []Marker
}

// NewMarkerDocument creates a document, preserving marker order
func NewMarkerDocument(name string, markers ...Marker) *MarkerDocument {
	doc := &MarkerDocument{
		Name:    name,
		Markers: make([]Marker, 0, len(markers)),
	}
	doc.Markers = append(doc.Markers, markers...)
	return doc
}

// Len returns the marker count
func (d *MarkerDocument) Len() int {
	return len(d.Markers)
}

// IsEmpty reports whether the document carries no markers
func (d *MarkerDocument) IsEmpty() bool {
	return len(d.Markers) == 0
}

// KMLContentType is the MIME type of written map documents
const KMLContentType = "application/vnd.google-earth.kml+xml"

// Artifact describes a written map document
type Artifact struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	MarkerCount int    `json:"marker_count"`
	ContentType string `json:"content_type"`
	// ObjectKey is set when the document was mirrored to object storage
	ObjectKey string `json:"object_key,omitempty"`
}
