/*
Package schema defines declarative document schemas and the definition
files they are loaded from.

A schema is a mapping of field name to field descriptor. Every schema
carries an implicit "_id" field holding the document identifier.

# Definition Files

A document definition in YAML:

	name: User
	description: A registered user

	schema:
	  email:    { type: email, required: true, unique: true }
	  password: { type: secret }
	  role:     { type: enum, values: [admin, member], default: member }
	  team:     { type: ref, to: Team }
	  __v:      { type: int }

	enhance: [timestamps]

	type:
	  class: GraphQLObjectType
	  exclude: "^__"

	queries:
	  users: list
	  user:  get

	mutations:
	  createUser: create

	subscriptions:
	  userCreated: created

# Field Types

  - string:    Text value
  - int:       Integer value
  - float:     Floating-point value
  - bool:      Boolean value
  - timestamp: Date/time value
  - duration:  Time duration (e.g., "30s", "1h")
  - json:      JSON object/array
  - bytes:     Binary data
  - email:     Email address (validated)
  - url:       URL (validated)
  - uuid:      UUID
  - enum:      One of a set of values (requires values field)
  - ref:       Reference to another document (requires to field)
  - secret:    Sensitive data, hashed, never exposed
  - strings:   Array of strings
  - ints:      Array of integers

# Enhancers

Named enhancers mutate a built schema in place before it is bound to a
model. "timestamps" adds createdAt/updatedAt, "softDelete" adds deletedAt.

# Parsing

	def, err := schema.ParseFile("documents/user.yaml")
	defs, err := schema.ParseDir("documents/")

Definitions are validated on parse; field mappings are validated again
when a schema is built from them.
*/
package schema
