// Package config provides configuration management for the locbak CLI.
//
// Configuration is read with Viper from the first of:
//
//   - the file given with --config (format chosen by extension)
//   - ./locbak.{yaml,toml,json}
//   - $LOCBAK_CONFIG_DIR/locbak.* or <XDG config home>/locbak/locbak.*
//
// Every key can also be set from the environment with the LOCBAK_ prefix,
// for example LOCBAK_DRY_RUN=true.
//
//	version: 1
//	project: ./App.csproj
//	dry_run: false
//	backup_dir: .LocalizerBackup
//	retention: 5
//	log_format: text
//
// Loading validates the result; see [Validate].
package config
