// Package doctor runs diagnostic checks against a locbak project: the
// loaded configuration, the backup directory and the archives in it.
//
// Each check implements [Check]. Checks that can repair what they find also
// implement [Fixer]; [Runner.Fix] applies those repairs after [Runner.Run].
package doctor
