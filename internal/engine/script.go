package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
)

const (
	// serverScriptName is the generated Node.js entry point. The file lives
	// in the work directory and is launched by its absolute path so the
	// engine's command line identifies the instance it belongs to.
	serverScriptName = "pglite-server.js"

	// manifestName is the package.json written next to the script.
	manifestName = "package.json"

	// pgliteModule pins the engine package installed into the work directory.
	pgliteModule  = "@electric-sql/pglite"
	pgliteVersion = "^0.3.0"

	// socketModule pins the wire-protocol server bridging the in-memory
	// engine to a Unix or TCP socket.
	socketModule  = "@electric-sql/pglite-socket"
	socketVersion = "^0.0.8"
)

// serverScript is the Node.js program the engine process runs. It creates an
// in-memory PGlite instance with the requested extensions, fronts it with a
// PGLiteSocketServer on the resolved endpoint, and traps SIGTERM/SIGINT to
// shut down cleanly with exit code 0. Startup failures exit 1 so the
// supervisor can tell a crashed engine from a terminated one.
var serverScript = template.Must(template.New(serverScriptName).Parse(`const { PGlite } = require('@electric-sql/pglite');
const { PGLiteSocketServer } = require('@electric-sql/pglite-socket');
{{- if .Unix}}
const { unlink } = require('fs/promises');
const { existsSync } = require('fs');
{{- end}}
{{- range .Extensions}}
const { {{.Export}} } = require('{{.Module}}');
{{- end}}
{{- if .Unix}}

const SOCKET_PATH = '{{js .SocketPath}}';

async function removeStaleSocket() {
    if (existsSync(SOCKET_PATH)) {
        try {
            await unlink(SOCKET_PATH);
            console.log('Removed stale socket at ' + SOCKET_PATH);
        } catch (err) {
            // Ignore; the bind below will surface a real problem.
        }
    }
}
{{- end}}

async function startServer() {
    try {
        const db = new PGlite({
            extensions: {
{{- range .Extensions}}
                {{.Name}}: {{.Export}},
{{- end}}
            }
        });
{{- if .Unix}}

        await removeStaleSocket();

        const server = new PGLiteSocketServer({
            db,
            path: SOCKET_PATH,
        });
        await server.start();
        console.log('Server started on socket ' + SOCKET_PATH);
{{- else}}

        const server = new PGLiteSocketServer({
            db,
            host: '{{js .Host}}',
            port: {{.Port}},
        });
        await server.start();
        console.log('Server started on TCP {{js .Host}}:{{.Port}}');
{{- end}}

        const shutdown = async (signal) => {
            console.log('Received ' + signal + ', shutting down gracefully...');
            try {
                await server.stop();
                await db.close();
                console.log('Server stopped and database closed');
            } catch (err) {
                console.error('Error during shutdown:', err);
            }
            process.exit(0);
        };
        process.on('SIGINT', () => { shutdown('SIGINT'); });
        process.on('SIGTERM', () => { shutdown('SIGTERM'); });
    } catch (err) {
        console.error('Failed to start PGlite server:', err);
        process.exit(1);
    }
}

startServer();
`))

// scriptData carries the endpoint and extension set into the server script
// template. Exactly one of SocketPath or Host/Port is populated.
type scriptData struct {
	Unix       bool
	SocketPath string
	Host       string
	Port       int
	Extensions []Extension
}

// renderServerScript renders the Node.js server program for the given
// endpoint and extensions.
func renderServerScript(data scriptData) ([]byte, error) {
	var buf bytes.Buffer
	if err := serverScript.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render server script: %w", err)
	}
	return buf.Bytes(), nil
}

// packageManifest is the package.json written into the work directory. It
// pins the engine and socket-server packages so npm installs a runtime
// compatible with the generated script.
type packageManifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Description  string            `json:"description"`
	Scripts      map[string]string `json:"scripts"`
	Dependencies map[string]string `json:"dependencies"`
}

// GeneratedFiles returns the names of the files Prepare writes plus the
// log files the engine produces, relative to the work directory. Teardown
// uses it to clear a pinned work directory without touching user files or
// node_modules.
func GeneratedFiles() []string {
	return []string{
		serverScriptName,
		manifestName,
		processName + "-stdout.log",
		processName + "-stderr.log",
	}
}

// renderPackageJSON renders the work directory's package.json.
func renderPackageJSON() ([]byte, error) {
	manifest := packageManifest{
		Name:        "pgliteenv-runtime",
		Version:     "1.0.0",
		Description: "PGlite engine runtime for pgliteenv",
		Scripts:     map[string]string{"start": "node " + serverScriptName},
		Dependencies: map[string]string{
			pgliteModule: pgliteVersion,
			socketModule: socketVersion,
		},
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render package.json: %w", err)
	}
	return append(data, '\n'), nil
}
