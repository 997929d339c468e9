// Package prompt provides simple interactive prompts.
//
// Available prompts:
//   - [Confirm]: Yes/No confirmation with detail lines
//   - [TextInput]: Single-line text input
//   - [Select]: Single selection from a list
//   - [MultiSelect]: Fuzzy-filtered multiple selection
package prompt
