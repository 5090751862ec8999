// Package schema declares the structural contract of the vehicles collection
// and its index set.
//
// A Schema renders to the server-side $jsonSchema validator and can also check
// a BSON document in-process with the same rules, so code that never reaches
// the server (tests, the in-memory fleet) rejects the same documents.
package schema

import (
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Schema is the subset of $jsonSchema used by the fleet collections.
type Schema struct {
	BSONType   string
	Required   []string
	Properties map[string]Schema
	Items      *Schema
}

var bsonTypes = map[string]bsontype.Type{
	"object":   bsontype.EmbeddedDocument,
	"array":    bsontype.Array,
	"string":   bsontype.String,
	"objectId": bsontype.ObjectID,
	"double":   bsontype.Double,
	"int":      bsontype.Int32,
	"long":     bsontype.Int64,
	"bool":     bsontype.Boolean,
	"date":     bsontype.DateTime,
}

// FieldError describes the first rule a document broke.
type FieldError struct {
	Path   string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// Document renders the schema as a $jsonSchema body.
func (s Schema) Document() bson.M {
	doc := bson.M{}
	if s.BSONType != "" {
		doc["bsonType"] = s.BSONType
	}
	if len(s.Required) > 0 {
		doc["required"] = s.Required
	}
	if len(s.Properties) > 0 {
		props := bson.M{}
		for name, p := range s.Properties {
			props[name] = p.Document()
		}
		doc["properties"] = props
	}
	if s.Items != nil {
		doc["items"] = s.Items.Document()
	}
	return doc
}

// Validator wraps the schema for CreateCollection's validator option.
func (s Schema) Validator() bson.M {
	return bson.M{"$jsonSchema": s.Document()}
}

// Validate checks a marshalled document against the schema.
func (s Schema) Validate(doc bson.Raw) error {
	if err := doc.Validate(); err != nil {
		return &FieldError{Reason: fmt.Sprintf("malformed document: %v", err)}
	}
	return s.check("", bson.RawValue{Type: bsontype.EmbeddedDocument, Value: doc})
}

// ValidateValue marshals v and validates the result.
func (s Schema) ValidateValue(v interface{}) error {
	data, err := bson.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	return s.Validate(data)
}

func (s Schema) check(path string, v bson.RawValue) error {
	if s.BSONType != "" {
		want, ok := bsonTypes[s.BSONType]
		if !ok {
			return &FieldError{Path: path, Reason: fmt.Sprintf("unsupported bsonType %q", s.BSONType)}
		}
		if v.Type != want {
			return &FieldError{Path: path, Reason: fmt.Sprintf("expected %s, got %s", s.BSONType, v.Type)}
		}
	}

	switch v.Type {
	case bsontype.EmbeddedDocument:
		doc := v.Document()
		for _, name := range s.Required {
			if _, err := doc.LookupErr(name); err != nil {
				return &FieldError{Path: join(path, name), Reason: "required field missing"}
			}
		}
		for _, name := range propertyNames(s.Properties) {
			fv, err := doc.LookupErr(name)
			if err != nil {
				continue
			}
			if err := s.Properties[name].check(join(path, name), fv); err != nil {
				return err
			}
		}
	case bsontype.Array:
		if s.Items == nil {
			return nil
		}
		values, err := v.Array().Values()
		if err != nil {
			return &FieldError{Path: path, Reason: fmt.Sprintf("malformed array: %v", err)}
		}
		for i, item := range values {
			if err := s.Items.check(fmt.Sprintf("%s.%d", path, i), item); err != nil {
				return err
			}
		}
	}
	return nil
}

func propertyNames(props map[string]Schema) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
