// Package operation executes a resolved plan of provider operations.
//
// A Runner builds the dependency graph of the supplied definitions, refuses
// cyclic sets, plans the minimal ordered set for the requested goals and then
// invokes each operation in turn through the resilience policy of its
// target. Outputs of earlier operations become parameters of later ones.
//
// Read-only operations are cached by the policy's response cache, keyed on
// the operation type and its parameters. Operations whose type starts with
// a side-effect prefix (create, update, upload, ...) are never cached.
package operation
