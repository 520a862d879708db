package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// KindFile is the only notification kind that announces a new file.
const KindFile = "file"

// Outbound product metadata.
const (
	ProductType         = "IASI-L2"
	ProductFormat       = "netCDF"
	DataProcessingLevel = "3"
)

// Notification field names on the wire.
const (
	FieldMsgKind             = "kind"
	FieldURI                 = "uri"
	FieldUID                 = "uid"
	FieldPlatformName        = "platformName"
	FieldStartTime           = "startTime"
	FieldEndTime             = "endTime"
	FieldNominalTime         = "nominalTime"
	FieldSensor              = "sensor"
	FieldProduct             = "product"
	FieldType                = "type"
	FieldFormat              = "format"
	FieldDataProcessingLevel = "dataProcessingLevel"
)

// RawMessage is an undecoded notification as delivered by the transport.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Source    string // topic or subject
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// GranuleNotification announces that a new granule file is available.
// Zero times mean the field was absent.
type GranuleNotification struct {
	Kind         string
	URI          string
	PlatformName string
	StartTime    time.Time
	EndTime      time.Time
	NominalTime  time.Time
	Sensor       string

	// Metadata holds every field as received and is echoed on output.
	Metadata map[string]any
}

// ParseNotification decodes a JSON notification body. Times must be RFC 3339.
// Missing fields are left zero; semantic checks belong to the listener.
func ParseNotification(data []byte) (GranuleNotification, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return GranuleNotification{}, fmt.Errorf("%w: decode notification: %v", ErrValidation, err)
	}
	if fields == nil {
		return GranuleNotification{}, fmt.Errorf("%w: empty notification", ErrValidation)
	}

	n := GranuleNotification{
		Kind:         stringField(fields, FieldMsgKind),
		URI:          stringField(fields, FieldURI),
		PlatformName: stringField(fields, FieldPlatformName),
		Sensor:       stringField(fields, FieldSensor),
		Metadata:     fields,
	}

	var err error
	if n.StartTime, err = timeField(fields, FieldStartTime); err != nil {
		return GranuleNotification{}, err
	}
	if n.EndTime, err = timeField(fields, FieldEndTime); err != nil {
		return GranuleNotification{}, err
	}
	if n.NominalTime, err = timeField(fields, FieldNominalTime); err != nil {
		return GranuleNotification{}, err
	}
	return n, nil
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func timeField(fields map[string]any, key string) (time.Time, error) {
	s := stringField(fields, key)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q is not RFC 3339", ErrValidation, key, s)
	}
	return t.UTC(), nil
}

// OutboundNotification announces one finished product file.
type OutboundNotification struct {
	// Subject is the topic path, e.g. "/IASI-L2/3/polar/regional/".
	Subject string
	Kind    string
	Data    map[string]any
}

// UID returns the product file basename carried in the notification.
func (o OutboundNotification) UID() string {
	s, _ := o.Data[FieldUID].(string)
	return s
}

// Product returns the product tag carried in the notification.
func (o OutboundNotification) Product() string {
	s, _ := o.Data[FieldProduct].(string)
	return s
}

// ProductSubject is the topic path outbound notifications are filed under.
func ProductSubject() string {
	return "/" + ProductType + "/" + DataProcessingLevel + "/polar/regional/"
}

// NewOutboundNotification builds the notification for an artifact, echoing
// the inbound metadata.
func NewOutboundNotification(artifact OutputArtifact, inbound map[string]any) OutboundNotification {
	data := make(map[string]any, len(inbound)+6)
	for k, v := range inbound {
		data[k] = v
	}
	data[FieldMsgKind] = KindFile
	data[FieldURI] = artifact.URI
	data[FieldUID] = artifact.UID
	data[FieldProduct] = artifact.Variant.ProductTag()
	data[FieldType] = ProductType
	data[FieldFormat] = ProductFormat
	data[FieldDataProcessingLevel] = DataProcessingLevel

	return OutboundNotification{
		Subject: ProductSubject(),
		Kind:    KindFile,
		Data:    data,
	}
}

// EncodeOutbound serializes an outbound notification as a flat JSON object.
func EncodeOutbound(o OutboundNotification) ([]byte, error) {
	data, err := json.Marshal(o.Data)
	if err != nil {
		return nil, fmt.Errorf("encode outbound notification: %w", err)
	}
	return data, nil
}
