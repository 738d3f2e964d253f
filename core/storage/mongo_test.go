package storage

import (
	"reflect"
	"testing"
	"time"

	"github.com/artpar/docgraph/core/schema"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIndexModels(t *testing.T) {
	s := mustSchema(t, map[string]schema.Field{
		"email":  {Type: schema.FieldTypeEmail, Unique: true},
		"name":   {Type: schema.FieldTypeString, Index: true},
		"bio":    {Type: schema.FieldTypeString},
		"handle": {Type: schema.FieldTypeString, Unique: true, Required: true},
	})

	models := indexModels(s)
	if len(models) != 3 {
		t.Fatalf("len(models) = %d, want 3", len(models))
	}

	// Fields() order: _id, bio, email, handle, name
	email := models[0]
	if keys, ok := email.Keys.(bson.D); !ok || keys[0].Key != "email" {
		t.Errorf("first index keys = %v, want email", email.Keys)
	}
	if email.Options.Unique == nil || !*email.Options.Unique {
		t.Error("email index should be unique")
	}
	want := bson.M{"email": bson.M{"$exists": true}}
	if !reflect.DeepEqual(email.Options.PartialFilterExpression, want) {
		t.Errorf("email partial filter = %v, want %v", email.Options.PartialFilterExpression, want)
	}

	handle := models[1]
	if handle.Options.Unique == nil || !*handle.Options.Unique {
		t.Error("handle index should be unique")
	}
	if handle.Options.PartialFilterExpression != nil {
		t.Errorf("required handle should index every record, got filter %v", handle.Options.PartialFilterExpression)
	}

	if models[2].Options.Unique != nil || models[2].Options.PartialFilterExpression != nil {
		t.Error("name index should be plain")
	}
}

func TestUpdateDoc(t *testing.T) {
	s := mustSchema(t, map[string]schema.Field{
		"email": {Type: schema.FieldTypeEmail, Unique: true},
		"bio":   {Type: schema.FieldTypeString},
	})

	tests := []struct {
		name string
		set  map[string]any
		want bson.M
	}{
		{"unknown only", map[string]any{"nope": 1, "_id": "x"}, bson.M{}},
		{"set", map[string]any{"bio": "hi"}, bson.M{"$set": bson.M{"bio": "hi"}}},
		{"null plain field", map[string]any{"bio": nil}, bson.M{"$set": bson.M{"bio": nil}}},
		{"null unique field", map[string]any{"email": nil, "bio": "x"}, bson.M{
			"$set":   bson.M{"bio": "x"},
			"$unset": bson.M{"email": ""},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := updateDoc(s, tt.set); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("updateDoc() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortSpec(t *testing.T) {
	tests := []struct {
		q    Query
		want int
	}{
		{Query{OrderBy: "name"}, 1},
		{Query{OrderBy: "name", Desc: true}, -1},
	}
	for _, tt := range tests {
		got := sortSpec(tt.q)
		if len(got) != 1 || got[0].Key != "name" || got[0].Value != tt.want {
			t.Errorf("sortSpec(%+v) = %v, want name:%d", tt.q, got, tt.want)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	s := mustSchema(t, map[string]schema.Field{
		"count":  {Type: schema.FieldTypeInt, Default: 10},
		"status": {Type: schema.FieldTypeString, Default: "new"},
	})

	doc := bson.M{"_id": "x", "status": "old"}
	applyDefaults(s, doc)

	if doc["count"] != 10 {
		t.Errorf("count = %v, want 10", doc["count"])
	}
	if doc["status"] != "old" {
		t.Errorf("status = %v, want old", doc["status"])
	}
}

func TestFromBSON(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := bson.M{
		"_id":   "x",
		"at":    primitive.NewDateTimeFromTime(when),
		"tags":  primitive.A{"a", "b"},
		"n":     int32(7),
		"inner": bson.D{{Key: "k", Value: "v"}},
	}

	got := fromBSON(doc)

	if at, ok := got["at"].(time.Time); !ok || !at.Equal(when) {
		t.Errorf("at = %v, want %v", got["at"], when)
	}
	if tags, ok := got["tags"].([]any); !ok || len(tags) != 2 {
		t.Errorf("tags = %v, want [a b]", got["tags"])
	}
	if got["n"] != int64(7) {
		t.Errorf("n = %v (%T), want int64 7", got["n"], got["n"])
	}
	if inner, ok := got["inner"].(map[string]any); !ok || inner["k"] != "v" {
		t.Errorf("inner = %v, want map[k:v]", got["inner"])
	}
}
