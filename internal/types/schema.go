package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	resumeRecordSchemaBytes = []byte(`{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["personal_info", "work_experience", "education", "skills", "projects", "overall_confidence"],
  "additionalProperties": false,
  "properties": {
    "personal_info": {"$ref": "#/$defs/section"},
    "work_experience": {"$ref": "#/$defs/section"},
    "education": {"$ref": "#/$defs/section"},
    "skills": {"$ref": "#/$defs/section"},
    "projects": {"$ref": "#/$defs/section"},
    "overall_confidence": {"type": "number", "minimum": 0, "maximum": 1}
  },
  "$defs": {
    "section": {
      "type": "object",
      "required": ["records", "confidence"],
      "properties": {
        "records": {"type": "array", "items": {"$ref": "#/$defs/record"}},
        "confidence": {"type": "number", "minimum": 0, "maximum": 1}
      }
    },
    "record": {
      "type": "object",
      "required": ["fields"],
      "properties": {
        "fields": {"type": "array", "items": {"$ref": "#/$defs/field"}}
      }
    },
    "field": {
      "type": "object",
      "required": ["name", "type", "value", "method", "source_line"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "type": {"enum": ["string", "date_range", "list"]},
        "method": {"enum": ["rule-based", "nlp-entity", "fallback-heuristic"]},
        "source_line": {"type": "integer", "minimum": 0}
      }
    }
  }
}`)

	resumeRecordSchemaOnce sync.Once
	resumeRecordSchema     *jsonschema.Schema
	resumeRecordSchemaErr  error
)

// ResumeRecordSchema 返回输出 JSON 的 schema 原文
func ResumeRecordSchema() []byte {
	return append([]byte(nil), resumeRecordSchemaBytes...)
}

// ValidateRecordJSON 校验序列化后的 ResumeRecord 是否符合输出约定
func ValidateRecordJSON(data []byte) error {
	resumeRecordSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("resume_record.json", bytes.NewReader(resumeRecordSchemaBytes)); err != nil {
			resumeRecordSchemaErr = fmt.Errorf("add resume record schema: %w", err)
			return
		}
		resumeRecordSchema, resumeRecordSchemaErr = compiler.Compile("resume_record.json")
	})
	if resumeRecordSchemaErr != nil {
		return resumeRecordSchemaErr
	}
	var payload interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("unmarshal resume record json: %w", err)
	}
	return resumeRecordSchema.Validate(payload)
}
