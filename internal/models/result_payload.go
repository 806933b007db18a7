package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
)

type PayloadKind string

const (
	PayloadStructured PayloadKind = "structured"
	PayloadTypeTag    PayloadKind = "type_tag"
)

// ResultPayload is either a structured object or a bare type tag such as "INTJ".
type ResultPayload struct {
	Kind    PayloadKind            `json:"kind"`
	Data    map[string]interface{} `json:"data,omitempty"`
	TypeTag string                 `json:"type_tag,omitempty"`
}

func StructuredPayload(data map[string]interface{}) ResultPayload {
	if data == nil {
		data = map[string]interface{}{}
	}
	return ResultPayload{Kind: PayloadStructured, Data: data}
}

func TypeTagPayload(tag string) ResultPayload {
	return ResultPayload{Kind: PayloadTypeTag, TypeTag: tag}
}

// NormalizeResultPayload accepts every encoding scorers have produced: a JSON
// object, a JSON string holding an encoded object, or a plain string tag.
// Scalars and arrays are wrapped as {"value": ...}; bytes that are not JSON at
// all are treated as a tag.
func NormalizeResultPayload(raw []byte) ResultPayload {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return StructuredPayload(nil)
	}

	var value interface{}
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return TypeTagPayload(string(trimmed))
	}

	switch v := value.(type) {
	case map[string]interface{}:
		return StructuredPayload(v)
	case string:
		inner := strings.TrimSpace(v)
		if strings.HasPrefix(inner, "{") {
			var obj map[string]interface{}
			if err := json.Unmarshal([]byte(inner), &obj); err == nil {
				return StructuredPayload(obj)
			}
		}
		return TypeTagPayload(v)
	default:
		return StructuredPayload(map[string]interface{}{"value": v})
	}
}

// Raw returns the storage encoding
func (p ResultPayload) Raw() datatypes.JSON {
	var data []byte
	if p.Kind == PayloadTypeTag {
		data, _ = json.Marshal(p.TypeTag)
	} else {
		data, _ = json.Marshal(StructuredPayload(p.Data).Data)
	}
	return datatypes.JSON(data)
}
