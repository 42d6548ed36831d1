// Package pypirc renders and writes registry-configuration files understood by
// Python upload tooling.
//
// Documents are rewritten through section replacement so repeated runs never
// accumulate duplicate registry sections, and scoped writes confine the secret
// material to a private temporary directory removed after the upload.
package pypirc
