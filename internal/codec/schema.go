package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/annel0/voxelmesh/internal/voxel"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const chunkSchemaURL = "voxelmesh://schemas/chunk.schema.json"

// chunkSchema описывает документ чанка для входящих данных (REST, файлы)
const chunkSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["cells"],
  "properties": {
    "cells": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["pos", "corner"],
        "properties": {
          "pos": {
            "type": "array",
            "items": {"type": "integer", "minimum": -128, "maximum": 126},
            "minItems": 3,
            "maxItems": 3
          },
          "x": {"$ref": "#/definitions/matter"},
          "y": {"$ref": "#/definitions/matter"},
          "z": {"$ref": "#/definitions/matter"},
          "inner": {"$ref": "#/definitions/matter"},
          "corner": {"enum": ["air", "weak", "strong"]}
        },
        "additionalProperties": false
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["pos", "matter", "kind"],
        "properties": {
          "pos": {"type": "array", "items": {"type": "integer"}, "minItems": 3, "maxItems": 3},
          "matter": {"$ref": "#/definitions/matter"},
          "kind": {"type": "integer", "minimum": 0, "maximum": 36}
        }
      }
    }
  },
  "definitions": {
    "matter": {"enum": [null, "", "none", "dirt", "wood", "stone", "sand"]}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadChunkSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(chunkSchemaURL, bytes.NewReader([]byte(chunkSchema))); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = c.Compile(chunkSchemaURL)
	})
	return compiledSchema, schemaErr
}

// ValidateChunkJSON проверяет документ чанка по JSON-схеме
func ValidateChunkJSON(data []byte) error {
	schema, err := loadChunkSchema()
	if err != nil {
		return fmt.Errorf("ошибка компиляции схемы чанка: %w", err)
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("некорректный JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("документ чанка не соответствует схеме: %w", err)
	}
	return nil
}

// DecodeChunkStrict проверяет документ по схеме и собирает чанк
func DecodeChunkStrict(data []byte) (*voxel.Chunk, error) {
	if err := ValidateChunkJSON(data); err != nil {
		return nil, err
	}
	return UnmarshalChunk(data)
}
