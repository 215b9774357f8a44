// Package updater is the launcher's default update action. Each run checks
// GitHub Releases (or a configured mirror) for a newer divineos release and,
// when one exists, downloads it, verifies its checksum, extracts the binary and
// swaps it in for the running executable with backup and rollback. The result
// of every check is cached under the config directory.
package updater
