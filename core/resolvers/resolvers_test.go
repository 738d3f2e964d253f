package resolvers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/artpar/docgraph/core/document"
	"github.com/artpar/docgraph/core/events"
	"github.com/artpar/docgraph/core/registry"
	"github.com/artpar/docgraph/core/schema"
	"github.com/artpar/docgraph/core/stitch"
	"github.com/artpar/docgraph/core/storage"
	"github.com/artpar/docgraph/core/typegen"
	"github.com/graphql-go/graphql"
	"github.com/rs/zerolog"
)

func newTestSchema(t *testing.T) graphql.Schema {
	t.Helper()
	s, _ := newTestSchemaWithBus(t)
	return s
}

func newTestSchemaWithBus(t *testing.T) (graphql.Schema, *events.Bus) {
	t.Helper()

	store, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	bus := events.NewBus(zerolog.Nop())
	deps := document.Deps{
		Registry: registry.New(store, bus, zerolog.Nop()),
		Types:    typegen.NewGenerator(),
		Logger:   zerolog.Nop(),
	}

	catalog := DefaultCatalog()
	queries, _ := catalog.Factories(map[string]string{"books": "list", "book": "get", "bookCount": "count"})
	mutations, _ := catalog.Factories(map[string]string{"createBook": "create", "updateBook": "update", "deleteBook": "delete"})
	subscriptions, _ := catalog.Factories(map[string]string{"bookCreated": "created"})

	doc, err := document.New(document.Options{
		Name: "Book",
		Schema: map[string]schema.Field{
			"title": {Type: schema.FieldTypeString, Required: true},
			"pages": {Type: schema.FieldTypeInt},
			"genre": {Type: schema.FieldTypeEnum, Values: []string{"fiction", "non-fiction"}, Default: "fiction"},
		},
		EnhanceSchema: schema.Timestamps,
		Queries:       queries,
		Mutations:     mutations,
		Subscriptions: subscriptions,
	}, deps)
	if err != nil {
		t.Fatalf("document.New failed: %v", err)
	}

	s, err := stitch.Build([]*document.Document{doc})
	if err != nil {
		t.Fatalf("stitch.Build failed: %v", err)
	}
	return s, bus
}

func do(t *testing.T, s graphql.Schema, query string) map[string]interface{} {
	t.Helper()
	result := graphql.Do(graphql.Params{Schema: s, RequestString: query, Context: context.Background()})
	if len(result.Errors) > 0 {
		t.Fatalf("query %s: errors %v", query, result.Errors)
	}
	return result.Data.(map[string]interface{})
}

func TestCRUDOverGraphQL(t *testing.T) {
	s := newTestSchema(t)

	data := do(t, s, `mutation { createBook(title: "Dune", pages: 412, genre: FICTION) { _id title pages genre createdAt } }`)
	created := data["createBook"].(map[string]interface{})
	id, _ := created["_id"].(string)
	if id == "" {
		t.Fatal("createBook should return an _id")
	}
	if created["genre"] != "FICTION" || created["pages"] != 412 {
		t.Errorf("createBook = %v", created)
	}
	if created["createdAt"] == nil {
		t.Error("createdAt should be set")
	}

	do(t, s, `mutation { createBook(title: "Emma", pages: 100) { _id } }`)

	data = do(t, s, fmt.Sprintf(`{ book(_id: %q) { title } }`, id))
	if data["book"].(map[string]interface{})["title"] != "Dune" {
		t.Errorf("book = %v", data["book"])
	}

	data = do(t, s, `{ books(orderBy: "pages", desc: true) { title } bookCount }`)
	books := data["books"].([]interface{})
	if len(books) != 2 || books[0].(map[string]interface{})["title"] != "Dune" {
		t.Errorf("books = %v", books)
	}
	if data["bookCount"] != 2 {
		t.Errorf("bookCount = %v, want 2", data["bookCount"])
	}

	data = do(t, s, `{ books(where: {title: "Emma"}) { title } }`)
	if len(data["books"].([]interface{})) != 1 {
		t.Errorf("filtered books = %v", data["books"])
	}

	data = do(t, s, fmt.Sprintf(`mutation { updateBook(_id: %q, pages: 500) { pages title } }`, id))
	if data["updateBook"].(map[string]interface{})["pages"] != 500 {
		t.Errorf("updateBook = %v", data["updateBook"])
	}

	data = do(t, s, fmt.Sprintf(`mutation { deleteBook(_id: %q) { title } }`, id))
	if data["deleteBook"].(map[string]interface{})["title"] != "Dune" {
		t.Errorf("deleteBook = %v", data["deleteBook"])
	}

	data = do(t, s, fmt.Sprintf(`{ book(_id: %q) { title } }`, id))
	if data["book"] != nil {
		t.Errorf("book after delete = %v, want null", data["book"])
	}
}

func TestCreateValidationError(t *testing.T) {
	s := newTestSchema(t)

	result := graphql.Do(graphql.Params{
		Schema:        s,
		RequestString: `mutation { createBook(pages: 1) { _id } }`,
		Context:       context.Background(),
	})
	if len(result.Errors) == 0 {
		t.Error("missing required title should fail")
	}
}

func TestSubscriptionCreated(t *testing.T) {
	s, bus := newTestSchemaWithBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := graphql.Subscribe(graphql.Params{
		Schema:        s,
		RequestString: `subscription { bookCreated { title } }`,
		Context:       ctx,
	})

	deadline := time.Now().Add(2 * time.Second)
	for !bus.HasSubscribers("Book.created") {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	do(t, s, `mutation { createBook(title: "Live") { _id } }`)

	select {
	case res, ok := <-results:
		if !ok {
			t.Fatal("subscription closed early")
		}
		if len(res.Errors) > 0 {
			t.Fatalf("subscription errors: %v", res.Errors)
		}
		got := res.Data.(map[string]interface{})["bookCreated"].(map[string]interface{})
		if got["title"] != "Live" {
			t.Errorf("bookCreated = %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no subscription event received")
	}
}

func TestWhereArg(t *testing.T) {
	s, err := schema.Build(map[string]schema.Field{
		"email":    {Type: schema.FieldTypeEmail},
		"password": {Type: schema.FieldTypeSecret},
		"token":    {Type: schema.FieldTypeString, Internal: true},
	})
	if err != nil {
		t.Fatalf("schema.Build failed: %v", err)
	}

	tests := []struct {
		name    string
		where   interface{}
		wantErr bool
	}{
		{"absent", nil, false},
		{"equality", map[string]interface{}{"email": "a@b.c"}, false},
		{"not an object", "email", true},
		{"secret field", map[string]interface{}{"password": "hunter2"}, true},
		{"internal field", map[string]interface{}{"token": "t"}, true},
		{"operator map", map[string]interface{}{"email": map[string]interface{}{"$ne": ""}}, true},
		{"list value", map[string]interface{}{"email": []interface{}{"a", "b"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]interface{}{}
			if tt.where != nil {
				args[ArgWhere] = tt.where
			}
			_, err := whereArg(args, s)
			if (err != nil) != tt.wantErr {
				t.Errorf("whereArg() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestListRejectsOperatorFilter(t *testing.T) {
	s := newTestSchema(t)

	result := graphql.Do(graphql.Params{
		Schema:        s,
		RequestString: `{ books(where: {title: {ne: ""}}) { title } }`,
		Context:       context.Background(),
	})
	if len(result.Errors) == 0 {
		t.Error("books with a nested where value should fail")
	}
}

func TestFactoriesRequireObjectType(t *testing.T) {
	s, _ := schema.Build(map[string]schema.Field{"x": {Type: schema.FieldTypeString}})
	reg := registry.New(nil, nil, zerolog.Nop())
	m, _ := reg.Register("Shape", s)
	input := graphql.NewInputObject(graphql.InputObjectConfig{
		Name:   "ShapeInput",
		Fields: graphql.InputObjectConfigFieldMap{"x": {Type: graphql.String}},
	})
	ctx := document.Context{Type: input, Schema: s, Model: m, Types: typegen.NewGenerator()}

	for _, kind := range []string{"list", "get", "create", "update", "delete", "created"} {
		f, _ := DefaultCatalog().Lookup(kind)
		if _, err := f.Build(ctx); err == nil {
			t.Errorf("%s factory should reject input object types", kind)
		}
	}
}

func TestCatalog(t *testing.T) {
	c := DefaultCatalog()

	want := []string{"count", "create", "created", "delete", "deleted", "get", "list", "update", "updated"}
	got := c.Kinds()
	if len(got) != len(want) {
		t.Fatalf("Kinds() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Kinds()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if _, err := c.Lookup("upsert"); err == nil {
		t.Error("Lookup() should fail for unknown kinds")
	}

	nilMap, err := c.Factories(nil)
	if err != nil || nilMap != nil {
		t.Errorf("Factories(nil) = %v, %v, want nil, nil", nilMap, err)
	}
	empty, err := c.Factories(map[string]string{})
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("Factories({}) = %v, %v, want empty map", empty, err)
	}
	if _, err := c.Factories(map[string]string{"x": "nope"}); err == nil {
		t.Error("Factories() should fail for unknown kinds")
	}
}
