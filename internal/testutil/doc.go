// Package testutil provides shared test helpers and fakes for kassist.
//
// Prefer the real SQLite store over mocks; the fakes here stand in only for
// the collaborators a test cannot run for real: the model, the shell and the
// person answering the confirmation prompt.
//
// Most assistant tests start with:
//
//	model := testutil.NewFakeProvider("Sure:\n```bash\nls\n```")
//	runner := testutil.NewFakeRunner(&core.ExecutionResult{Output: "a\n"})
package testutil
