package models

import (
	"testing"
)

func TestNormalizeResultPayload(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind PayloadKind
		wantTag  string
		wantKey  string
	}{
		{name: "object", raw: `{"type":"INTJ","E":2}`, wantKind: PayloadStructured, wantKey: "type"},
		{name: "string encoded object", raw: `"{\"type\":\"DISC-D\"}"`, wantKind: PayloadStructured, wantKey: "type"},
		{name: "plain tag", raw: `"INTJ"`, wantKind: PayloadTypeTag, wantTag: "INTJ"},
		{name: "tag that looks like an object", raw: `"{not json"`, wantKind: PayloadTypeTag, wantTag: "{not json"},
		{name: "bare text", raw: `ENFP`, wantKind: PayloadTypeTag, wantTag: "ENFP"},
		{name: "empty", raw: ``, wantKind: PayloadStructured},
		{name: "null", raw: `null`, wantKind: PayloadStructured},
		{name: "number", raw: `42`, wantKind: PayloadStructured, wantKey: "value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeResultPayload([]byte(tt.raw))
			if got.Kind != tt.wantKind {
				t.Fatalf("Kind = %s, want %s", got.Kind, tt.wantKind)
			}
			if got.TypeTag != tt.wantTag {
				t.Errorf("TypeTag = %q, want %q", got.TypeTag, tt.wantTag)
			}
			if tt.wantKey != "" {
				if _, ok := got.Data[tt.wantKey]; !ok {
					t.Errorf("Data missing key %q: %v", tt.wantKey, got.Data)
				}
			}
			if got.Kind == PayloadStructured && got.Data == nil {
				t.Error("structured payload should never carry nil data")
			}
		})
	}
}

func TestResultPayload_RawRoundTrip(t *testing.T) {
	tag := TypeTagPayload("ISTP")
	if got := NormalizeResultPayload(tag.Raw()); got.Kind != PayloadTypeTag || got.TypeTag != "ISTP" {
		t.Errorf("type tag did not survive storage: %+v", got)
	}

	structured := StructuredPayload(map[string]interface{}{"D": float64(3)})
	got := NormalizeResultPayload(structured.Raw())
	if got.Kind != PayloadStructured || got.Data["D"] != float64(3) {
		t.Errorf("structured payload did not survive storage: %+v", got)
	}
}
