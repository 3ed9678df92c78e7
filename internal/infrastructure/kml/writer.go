// Package kml encodes marker documents as KML and hands them to artifact
// storage.
package kml

import (
	"bytes"
	"context"
	"fmt"
	"io"

	gokml "github.com/twpayne/go-kml/v3"
	"go.uber.org/zap"

	"github.com/osmap/backend/internal/domain/dispatch"
	"github.com/osmap/backend/internal/infrastructure/artifact"
	"github.com/osmap/backend/internal/infrastructure/telemetry"
)

// Encode writes doc as an indented KML document: one Placemark per marker,
// in document order.
func Encode(w io.Writer, doc *dispatch.MarkerDocument) error {
	children := make([]gokml.Element, 0, doc.Len()+1)
	children = append(children, gokml.Name(doc.Name))
	for _, m := range doc.Markers {
		children = append(children, placemark(m))
	}

	return gokml.KML(gokml.Document(children...)).WriteIndent(w, "", "  ")
}

func placemark(m dispatch.Marker) gokml.Element {
	return gokml.Placemark(
		gokml.Name(m.Label),
		gokml.Description(m.DescriptionHTML),
		gokml.Point(
			gokml.Coordinates(gokml.Coordinate{Lon: m.Coordinate.Lon(), Lat: m.Coordinate.Lat()}),
		),
	)
}

// Writer encodes marker documents and stores them
type Writer struct {
	store  artifact.Store
	logger *zap.Logger
}

// NewWriter creates a Writer backed by store
func NewWriter(store artifact.Store, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: store, logger: logger}
}

// Write encodes doc and stores it under name. Path separators in name are
// replaced so the name stays a single file.
func (w *Writer) Write(ctx context.Context, doc *dispatch.MarkerDocument, name string) (*dispatch.Artifact, error) {
	name = artifact.SanitizeName(name)
	ctx, span := telemetry.StartSpan(ctx, "kml.write",
		telemetry.WithAttribute(telemetry.SpanAttrArtifact, name),
		telemetry.WithAttribute(telemetry.SpanAttrMarkerCount, doc.Len()),
	)
	defer span.End()

	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("encode kml: %w", err)
	}

	res, err := w.store.Store(ctx, &artifact.StoreRequest{
		Name:        name,
		ContentType: dispatch.KMLContentType,
		Data:        buf.Bytes(),
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("store kml: %w", err)
	}

	w.logger.Info("Map document written",
		zap.String("name", res.Name),
		zap.String("path", res.Path),
		zap.Int("markers", doc.Len()),
		zap.Int64("size", res.Size),
	)
	telemetry.SetOK(span)

	return &dispatch.Artifact{
		Name:        res.Name,
		Path:        res.Path,
		URL:         res.URL,
		Size:        res.Size,
		MarkerCount: doc.Len(),
		ContentType: res.ContentType,
		ObjectKey:   res.ObjectKey,
	}, nil
}
