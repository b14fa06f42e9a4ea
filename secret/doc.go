// Package secret resolves credentials referenced from configuration.
//
// Configuration strings may contain ${VAR} references, expanded strictly
// (see ExpandEnv), and secret references with the prefix "secretref:":
//   - Full value:  secretref:env:JWT_SECRET
//   - Inline use:  Bearer secretref:file:qtest-token
//
// Two providers are built in: "env" reads process environment variables and
// "file" reads files from a directory such as /run/secrets.
package secret
