package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testDefinition = `
name: Post
schema:
  title: { type: string, required: true }
  tags:  { type: strings }
queries: { posts: list }
mutations: { createPost: create }
`

func writeProject(t *testing.T, definition string) string {
	t.Helper()
	dir := t.TempDir()
	docs := filepath.Join(dir, "documents")
	if err := os.Mkdir(docs, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(docs, "post.yaml"), []byte(definition), 0644); err != nil {
		t.Fatalf("write definition: %v", err)
	}
	cfg := "database:\n  dsn: \":memory:\"\ndocuments:\n  dir: \"" + docs + "\"\n"
	path := filepath.Join(dir, "docgraph.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	path := writeProject(t, testDefinition)

	out, err := run(t, "validate", "--config", path, "--check-database=true")
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	for _, want := range []string{"Post", "Schema valid", "Database reachable", "1 documents"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidateCommand_BadDefinition(t *testing.T) {
	path := writeProject(t, "name: Post\nschema:\n  title: { type: wibble }\n")

	out, err := run(t, "validate", "--config", path, "--check-database=false")
	if err == nil {
		t.Fatalf("validate should fail:\n%s", out)
	}
	if !strings.Contains(out, "Definitions build") {
		t.Errorf("output = %s", out)
	}
}

func TestSDLCommand(t *testing.T) {
	path := writeProject(t, testDefinition)

	out, err := run(t, "sdl", "--config", path, "--out", "")
	if err != nil {
		t.Fatalf("sdl: %v", err)
	}
	for _, want := range []string{"type Post", "posts", "createPost"} {
		if !strings.Contains(out, want) {
			t.Errorf("SDL missing %q:\n%s", want, out)
		}
	}

	file := filepath.Join(t.TempDir(), "schema.graphql")
	if _, err := run(t, "sdl", "--config", path, "--out", file); err != nil {
		t.Fatalf("sdl --out: %v", err)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if !strings.Contains(string(data), "type Post") {
		t.Errorf("schema file = %s", data)
	}
	sdlOut = ""
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "docgraph dev") {
		t.Errorf("output = %s", out)
	}
}

func TestDocumentsCommand(t *testing.T) {
	path := writeProject(t, testDefinition)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"table", []string{"--output", "table", "--fields=false"}, []string{"NAME", "Post", "posts", "createPost"}},
		{"fields", []string{"--output", "table", "--fields=true"}, []string{"FIELD", "title", "required"}},
		{"json", []string{"--output", "json", "--fields=false"}, []string{`"count": 1`, `"name": "Post"`}},
		{"yaml", []string{"--output", "yaml", "--fields=false"}, []string{"count: 1", "name: Post"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"documents", "--config", path}, tt.args...)
			out, err := run(t, args...)
			if err != nil {
				t.Fatalf("documents: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}

	if _, err := run(t, "documents", "--config", path, "--output", "csv"); err == nil {
		t.Error("unknown formats should fail")
	}
	documentsOutput = "table"
}
