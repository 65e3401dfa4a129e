package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSDL = `
interface Legged {
  id: ID!
  legs: Int!
}

type Animal implements Legged @entity {
  id: ID!
  name: String!
  legs: Int!
}

type Furniture implements Legged @entity {
  id: ID!
  legs: Int!
}
`

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	old := os.Stdout
	defer func() { os.Stdout = old }()

	r, w, _ := os.Pipe()
	os.Stdout = w

	done := make(chan struct{})
	var buf bytes.Buffer
	go func() { io.Copy(&buf, r); close(done) }()

	err := fn()
	w.Close()
	<-done
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHelp(t *testing.T) {
	out, err := captureStdout(t, func() error {
		return run([]string{"help", "serve"})
	})
	require.NoError(t, err)
	require.Contains(t, out, "serve FLAGS")
}

func TestUnknownCommand(t *testing.T) {
	err := run([]string{"frobnicate"})
	require.ErrorContains(t, err, "unknown command")
}

func TestPrintSchema(t *testing.T) {
	schemaPath := writeFile(t, t.TempDir(), "schema.graphql", testSDL)
	out, err := captureStdout(t, func() error {
		return run([]string{"print-schema", "-schema", schemaPath})
	})
	require.NoError(t, err)
	require.Contains(t, out, "type Query")
	require.Contains(t, out, "leggeds(")
	require.Contains(t, out, "Animal_orderBy")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.graphql", testSDL)
	dataPath := writeFile(t, dir, "seed.yaml", `
entities:
  - type: Animal
    id: a1
    data: {name: cow, legs: 4}
`)
	out, err := captureStdout(t, func() error {
		return run([]string{"validate", "-schema", schemaPath, "-data", dataPath})
	})
	require.NoError(t, err)
	require.Contains(t, out, "2 entity types")
	require.Contains(t, out, "OK")
}

func TestValidateRejectsIDCollision(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.graphql", testSDL)
	dataPath := writeFile(t, dir, "seed.yaml", `
entities:
  - type: Animal
    id: x
    data: {name: cow, legs: 4}
  - type: Furniture
    id: x
    data: {legs: 3}
`)
	err := run([]string{"validate", "-schema", schemaPath, "-data", dataPath})
	require.ErrorContains(t, err, "interface in common")
}

func TestServeConfigFlagOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "schema.graphql", testSDL)
	configPath := writeFile(t, dir, "entgraph.yaml", `
schema: schema.graphql
server:
  addr: ":9000"
`)

	cfg, watch, err := loadServeConfig([]string{"-config", configPath, "-server.addr", ":9001", "-watch"}, serveUsage)
	require.NoError(t, err)
	require.True(t, watch)
	require.Equal(t, ":9001", cfg.Server.Addr)
	require.Equal(t, filepath.Join(dir, "schema.graphql"), cfg.Schema)
}
