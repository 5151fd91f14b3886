// Package platform contains OS integration used by the CLI: standard
// directories, destination creation, and revealing downloaded files in the
// system file manager.
package platform
