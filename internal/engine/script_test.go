package engine

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRenderServerScript_Unix(t *testing.T) {
	t.Parallel()

	script, err := renderServerScript(scriptData{
		Unix:       true,
		SocketPath: "/tmp/pgliteenv-abc/.s.PGSQL.5432",
	})
	if err != nil {
		t.Fatalf("renderServerScript() error: %v", err)
	}
	got := string(script)

	for _, want := range []string{
		"const { PGlite } = require('@electric-sql/pglite');",
		"const { PGLiteSocketServer } = require('@electric-sql/pglite-socket');",
		"const SOCKET_PATH = '/tmp/pgliteenv-abc/.s.PGSQL.5432';",
		"path: SOCKET_PATH,",
		"process.on('SIGTERM'",
		"process.on('SIGINT'",
		"process.exit(0);",
		"process.exit(1);",
		"removeStaleSocket",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("unix script missing %q\nscript:\n%s", want, got)
		}
	}
	if strings.Contains(got, "port:") {
		t.Error("unix script should not configure a TCP port")
	}
}

func TestRenderServerScript_TCP(t *testing.T) {
	t.Parallel()

	script, err := renderServerScript(scriptData{
		Host: "127.0.0.1",
		Port: 15432,
	})
	if err != nil {
		t.Fatalf("renderServerScript() error: %v", err)
	}
	got := string(script)

	for _, want := range []string{
		"host: '127.0.0.1',",
		"port: 15432,",
		"process.on('SIGTERM'",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("tcp script missing %q\nscript:\n%s", want, got)
		}
	}
	if strings.Contains(got, "SOCKET_PATH") {
		t.Error("tcp script should not reference a socket path")
	}
}

func TestRenderServerScript_Extensions(t *testing.T) {
	t.Parallel()

	exts, err := ResolveExtensions([]string{"pgvector", "pg_trgm"})
	if err != nil {
		t.Fatalf("ResolveExtensions() error: %v", err)
	}

	script, err := renderServerScript(scriptData{
		Host:       "127.0.0.1",
		Port:       15432,
		Extensions: exts,
	})
	if err != nil {
		t.Fatalf("renderServerScript() error: %v", err)
	}
	got := string(script)

	for _, want := range []string{
		"const { vector } = require('@electric-sql/pglite/vector');",
		"const { pg_trgm } = require('@electric-sql/pglite/contrib/pg_trgm');",
		"pgvector: vector,",
		"pg_trgm: pg_trgm,",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("script missing %q\nscript:\n%s", want, got)
		}
	}
}

func TestRenderPackageJSON(t *testing.T) {
	t.Parallel()

	data, err := renderPackageJSON()
	if err != nil {
		t.Fatalf("renderPackageJSON() error: %v", err)
	}

	var manifest struct {
		Name         string            `json:"name"`
		Scripts      map[string]string `json:"scripts"`
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("package.json is not valid JSON: %v\n%s", err, data)
	}

	if manifest.Name == "" {
		t.Error("package.json name must not be empty")
	}
	if got := manifest.Dependencies["@electric-sql/pglite"]; got != "^0.3.0" {
		t.Errorf("pglite dependency = %q, want ^0.3.0", got)
	}
	if got := manifest.Dependencies["@electric-sql/pglite-socket"]; got != "^0.0.8" {
		t.Errorf("pglite-socket dependency = %q, want ^0.0.8", got)
	}
	if got := manifest.Scripts["start"]; got != "node pglite-server.js" {
		t.Errorf("start script = %q, want %q", got, "node pglite-server.js")
	}
}
