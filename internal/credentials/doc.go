// Package credentials resolves publisher credentials from configurable
// sources and exposes the credentials command for writing persistent
// registry-configuration files.
package credentials
