package document

import (
	"errors"
	"regexp"
	"testing"

	"github.com/artpar/docgraph/core/registry"
	"github.com/artpar/docgraph/core/schema"
	"github.com/artpar/docgraph/core/typegen"
	"github.com/graphql-go/graphql"
	"github.com/rs/zerolog"
)

func testDeps() Deps {
	return Deps{
		Registry: registry.New(nil, nil, zerolog.Nop()),
		Types:    typegen.NewGenerator(),
		Logger:   zerolog.Nop(),
	}
}

func userFields() map[string]schema.Field {
	return map[string]schema.Field{
		"email": {Type: schema.FieldTypeEmail, Required: true},
		"name":  {Type: schema.FieldTypeString},
		"__v":   {Type: schema.FieldTypeInt},
	}
}

func stringField() *graphql.Field {
	return &graphql.Field{Type: graphql.String}
}

func TestNew_NoCategories(t *testing.T) {
	doc, err := New(Options{Name: "User", Schema: userFields()}, testDeps())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if doc.Schema == nil || doc.Model == nil || doc.Type == nil {
		t.Fatalf("Schema/Model/Type must be set: %+v", doc)
	}
	if doc.Queries != nil || doc.Mutations != nil || doc.Subscriptions != nil {
		t.Errorf("absent categories should be nil, got %v %v %v", doc.Queries, doc.Mutations, doc.Subscriptions)
	}
	if doc.Model.Schema() != doc.Schema {
		t.Error("model should be bound to the document schema")
	}
}

func TestNew_EmptyCategory(t *testing.T) {
	doc, err := New(Options{
		Name:    "User",
		Schema:  userFields(),
		Queries: map[string]ResolverFactory{},
	}, testDeps())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if doc.Queries == nil || len(doc.Queries) != 0 {
		t.Errorf("supplied empty category should be an empty map, got %#v", doc.Queries)
	}
	if doc.Mutations != nil {
		t.Error("absent mutations should stay nil")
	}
}

func TestNew_EnhanceBeforeType(t *testing.T) {
	var seenByFactory bool

	doc, err := New(Options{
		Name:   "User",
		Schema: userFields(),
		EnhanceSchema: func(s *schema.Schema) error {
			return s.Add("displayName", schema.Field{Type: schema.FieldTypeString})
		},
		Queries: map[string]ResolverFactory{
			"probe": ResolverFactoryFunc(func(ctx Context) (*graphql.Field, error) {
				seenByFactory = ctx.Schema.Has("displayName")
				return stringField(), nil
			}),
		},
	}, testDeps())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !doc.Schema.Has("displayName") {
		t.Error("enhanced field missing from schema")
	}
	if _, ok := doc.Type.(*graphql.Object).Fields()["displayName"]; !ok {
		t.Error("enhanced field missing from generated type")
	}
	if !seenByFactory {
		t.Error("factory should see the enhanced schema")
	}
}

func TestNew_EnhanceError(t *testing.T) {
	boom := errors.New("boom")
	deps := testDeps()

	_, err := New(Options{
		Name:          "User",
		EnhanceSchema: func(*schema.Schema) error { return boom },
	}, deps)
	if !errors.Is(err, boom) {
		t.Fatalf("New() error = %v, want wrapped boom", err)
	}
	if _, ok := deps.Registry.Get("User"); ok {
		t.Error("model should not be registered when enhancement fails")
	}
}

func TestNew_DuplicateName(t *testing.T) {
	deps := testDeps()

	if _, err := New(Options{Name: "User", Schema: userFields()}, deps); err != nil {
		t.Fatalf("first New() error = %v", err)
	}

	_, err := New(Options{Name: "User", Schema: userFields()}, deps)
	var dup *registry.DuplicateNameError
	if !errors.As(err, &dup) {
		t.Fatalf("second New() error = %v, want DuplicateNameError", err)
	}
	if dup.Name != "User" {
		t.Errorf("DuplicateNameError.Name = %s, want User", dup.Name)
	}
}

func TestNew_FactoryReceivesLiveReferences(t *testing.T) {
	var got Context

	doc, err := New(Options{
		Name:   "User",
		Schema: userFields(),
		Queries: map[string]ResolverFactory{
			"getAll": ResolverFactoryFunc(func(ctx Context) (*graphql.Field, error) {
				got = ctx
				return stringField(), nil
			}),
		},
	}, testDeps())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got.Type != doc.Type {
		t.Error("factory Type is not the document type")
	}
	if got.Schema != doc.Schema {
		t.Error("factory Schema is not the document schema")
	}
	if got.Model != doc.Model {
		t.Error("factory Model is not the document model")
	}
	if doc.Queries["getAll"] == nil {
		t.Fatal("getAll definition missing")
	}
	if doc.Queries["getAll"].Name != "getAll" {
		t.Errorf("definition name = %q, want getAll", doc.Queries["getAll"].Name)
	}
}

func TestNew_DefaultTypeOptions(t *testing.T) {
	var got Context

	doc, err := New(Options{
		Name:   "User",
		Schema: userFields(),
		Queries: map[string]ResolverFactory{
			"probe": ResolverFactoryFunc(func(ctx Context) (*graphql.Field, error) {
				got = ctx
				return stringField(), nil
			}),
		},
	}, testDeps())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, ok := doc.Type.(*graphql.Object); !ok {
		t.Errorf("default class should produce an object type, got %T", doc.Type)
	}
	if got.Exclude == nil || !got.Exclude.MatchString("__v") || got.Exclude.MatchString("name") {
		t.Errorf("default exclude = %v, want ^__", got.Exclude)
	}
	if _, ok := doc.Type.(*graphql.Object).Fields()["__v"]; ok {
		t.Error("__v should be excluded by default")
	}

	def := DefaultTypeOptions()
	if def.Class != "GraphQLObjectType" || def.Exclude.String() != "^__" {
		t.Errorf("DefaultTypeOptions() = %+v", def)
	}
}

func TestNew_PartialTypeOptions(t *testing.T) {
	tests := []struct {
		name      string
		opts      *TypeOptions
		wantClass func(graphql.Type) bool
	}{
		{
			name:      "class only",
			opts:      &TypeOptions{Class: typegen.ClassInterface},
			wantClass: func(t graphql.Type) bool { _, ok := t.(*graphql.Interface); return ok },
		},
		{
			name:      "exclude only",
			opts:      &TypeOptions{Exclude: regexp.MustCompile(`^(__|name)`)},
			wantClass: func(t graphql.Type) bool { _, ok := t.(*graphql.Object); return ok },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := New(Options{Name: "User", Schema: userFields(), TypeOptions: tt.opts}, testDeps())
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if !tt.wantClass(doc.Type) {
				t.Errorf("Type = %T", doc.Type)
			}
		})
	}
}

func TestNew_FactoryError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0

	doc, err := New(Options{
		Name:   "User",
		Schema: userFields(),
		Mutations: map[string]ResolverFactory{
			"a": ResolverFactoryFunc(func(Context) (*graphql.Field, error) {
				calls++
				return stringField(), nil
			}),
			"b": ResolverFactoryFunc(func(Context) (*graphql.Field, error) {
				calls++
				return nil, boom
			}),
		},
	}, testDeps())

	if doc != nil {
		t.Error("no document should be returned on factory failure")
	}
	var factoryErr *ResolverFactoryError
	if !errors.As(err, &factoryErr) {
		t.Fatalf("New() error = %v, want ResolverFactoryError", err)
	}
	if factoryErr.Category != CategoryMutation || factoryErr.Name != "b" {
		t.Errorf("ResolverFactoryError = %+v, want mutation b", factoryErr)
	}
	if !errors.Is(err, boom) {
		t.Error("ResolverFactoryError should unwrap to the factory error")
	}
	if calls != 2 {
		t.Errorf("factories called %d times, want 2 (name order)", calls)
	}
}

func TestNew_NilField(t *testing.T) {
	_, err := New(Options{
		Name:   "User",
		Schema: userFields(),
		Subscriptions: map[string]ResolverFactory{
			"nothing": ResolverFactoryFunc(func(Context) (*graphql.Field, error) { return nil, nil }),
		},
	}, testDeps())

	var factoryErr *ResolverFactoryError
	if !errors.As(err, &factoryErr) || factoryErr.Category != CategorySubscription {
		t.Fatalf("New() error = %v, want subscription ResolverFactoryError", err)
	}
}

func TestNew_NilFactory(t *testing.T) {
	var nilFunc ResolverFactoryFunc

	tests := []struct {
		name    string
		factory ResolverFactory
	}{
		{"nil interface", nil},
		{"nil func", nilFunc},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Options{
				Name:    "User",
				Schema:  userFields(),
				Queries: map[string]ResolverFactory{"x": tt.factory},
			}, testDeps())

			var factoryErr *ResolverFactoryError
			if !errors.As(err, &factoryErr) || factoryErr.Name != "x" {
				t.Fatalf("New() error = %v, want ResolverFactoryError for x", err)
			}
		})
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		check func(error) bool
	}{
		{
			name:  "missing name",
			opts:  Options{},
			check: func(err error) bool { return err != nil },
		},
		{
			name: "schema build",
			opts: Options{Name: "User", Schema: map[string]schema.Field{"x": {Type: "nope"}}},
			check: func(err error) bool {
				var be *schema.BuildError
				return errors.As(err, &be)
			},
		},
		{
			name: "type generation",
			opts: Options{Name: "User", Schema: userFields(), TypeOptions: &TypeOptions{Class: "GraphQLUnionType"}},
			check: func(err error) bool {
				var te *typegen.Error
				return errors.As(err, &te)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts, testDeps())
			if !tt.check(err) {
				t.Errorf("New() error = %v", err)
			}
		})
	}
}

func TestNew_TypeErrorKeepsRegistration(t *testing.T) {
	deps := testDeps()
	_, err := New(Options{Name: "User", Schema: userFields(), TypeOptions: &TypeOptions{Class: "Bogus"}}, deps)
	if err == nil {
		t.Fatal("New() should fail")
	}
	if _, ok := deps.Registry.Get("User"); !ok {
		t.Error("model registration is not rolled back")
	}
}

type recordingObserver struct {
	built  []string
	failed []string
}

func (o *recordingObserver) DocumentBuilt(name string) { o.built = append(o.built, name) }
func (o *recordingObserver) DocumentFailed(name, stage string) {
	o.failed = append(o.failed, name+":"+stage)
}

func TestNew_Observer(t *testing.T) {
	obs := &recordingObserver{}
	deps := testDeps()
	deps.Observer = obs

	New(Options{Name: "User", Schema: userFields()}, deps)
	New(Options{Name: "User", Schema: userFields()}, deps)

	if len(obs.built) != 1 || obs.built[0] != "User" {
		t.Errorf("built = %v, want [User]", obs.built)
	}
	if len(obs.failed) != 1 || obs.failed[0] != "User:"+StageRegister {
		t.Errorf("failed = %v, want [User:register]", obs.failed)
	}
}
