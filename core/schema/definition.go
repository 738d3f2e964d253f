package schema

// Definition is the file form of a document: its schema plus the type
// options and resolver kinds the document is built with.
type Definition struct {
	// Name is the unique document name; it also names the generated type.
	Name string `yaml:"name"`

	// Description is carried over to the generated type.
	Description string `yaml:"description,omitempty"`

	// Schema is the field mapping.
	Schema map[string]Field `yaml:"schema"`

	// Enhance lists named enhancers applied to the built schema, in order.
	Enhance []string `yaml:"enhance,omitempty"`

	// Type configures type generation.
	Type TypeSpec `yaml:"type,omitempty"`

	// Queries, Mutations and Subscriptions map resolver names to resolver
	// kinds. A nil map means the category is absent.
	Queries       map[string]string `yaml:"queries,omitempty"`
	Mutations     map[string]string `yaml:"mutations,omitempty"`
	Subscriptions map[string]string `yaml:"subscriptions,omitempty"`

	// Source is the file the definition was parsed from, if any.
	Source string `yaml:"-"`
}

// TypeSpec configures type generation for a definition.
type TypeSpec struct {
	// Class selects the generated type kind (e.g. "GraphQLObjectType").
	Class string `yaml:"class,omitempty"`

	// Exclude is a regular expression; matching fields are left out.
	Exclude string `yaml:"exclude,omitempty"`
}
