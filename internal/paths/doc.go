// Package paths resolves the directories locbak works with: the XDG config
// directory, a project's base directory and its backup archive directory,
// and the mapping between file paths and archive entry names.
//
// # Entry Names
//
// Archive entries are named by the file's path relative to the project base
// directory, always with forward slashes:
//
//	name, err := paths.Rel("/proj", "/proj/Pages/Index.razor") // "Pages/Index.razor"
//	full, err := paths.Resolve("/proj", name)                 // "/proj/Pages/Index.razor"
//
// Both directions reject paths that leave the base directory with
// [ErrOutsideBase].
//
// # XDG Base Directory Compliance
//
// The config directory comes from github.com/adrg/xdg and can be overridden
// with the LOCBAK_CONFIG_DIR environment variable.
package paths
