package pypirc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

const (
	// DefaultIndexName identifies the registry section written by default.
	DefaultIndexName = "pypi"
	// DefaultRepositoryURL is the upload endpoint used when no override is configured.
	DefaultRepositoryURL = "https://pypi.python.org/pypi"
)

const (
	distutilsSectionNameConstant       = "distutils"
	indexServersKeyNameConstant        = "index-servers"
	repositoryKeyNameConstant          = "repository"
	usernameKeyNameConstant            = "username"
	passwordKeyNameConstant            = "password"
	indexServerListSeparatorConstant   = " "
	indexNameMissingMessageConstant    = "index name must be provided"
	usernameMissingMessageConstant     = "username must be provided"
	passwordMissingMessageConstant     = "password must be provided"
	existingDocumentParseTemplateError = "unable to parse existing registry configuration: %w"
	documentRenderTemplateErrorFormat  = "unable to render registry configuration: %w"
)

// Credentials describes one registry section of the configuration document.
type Credentials struct {
	IndexName     string
	RepositoryURL string
	Username      string
	Password      string
}

// Sanitize trims fields and substitutes defaults for the index name and repository URL.
func (credentials Credentials) Sanitize() Credentials {
	sanitized := Credentials{
		IndexName:     strings.TrimSpace(credentials.IndexName),
		RepositoryURL: strings.TrimSpace(credentials.RepositoryURL),
		Username:      strings.TrimSpace(credentials.Username),
		Password:      strings.TrimSpace(credentials.Password),
	}
	if len(sanitized.IndexName) == 0 {
		sanitized.IndexName = DefaultIndexName
	}
	if len(sanitized.RepositoryURL) == 0 {
		sanitized.RepositoryURL = DefaultRepositoryURL
	}
	return sanitized
}

// Validate confirms the credentials carry everything a registry section requires.
func (credentials Credentials) Validate() error {
	if len(strings.TrimSpace(credentials.IndexName)) == 0 {
		return errors.New(indexNameMissingMessageConstant)
	}
	if len(strings.TrimSpace(credentials.Username)) == 0 {
		return errors.New(usernameMissingMessageConstant)
	}
	if len(strings.TrimSpace(credentials.Password)) == 0 {
		return errors.New(passwordMissingMessageConstant)
	}
	return nil
}

// Render produces a fresh configuration document containing a single registry section.
func Render(credentials Credentials) ([]byte, error) {
	return Merge(nil, credentials)
}

// Merge upserts the registry section into an existing document, replacing any previous section with the same index name.
func Merge(existingContent []byte, credentials Credentials) ([]byte, error) {
	sanitizedCredentials := credentials.Sanitize()
	if validationError := sanitizedCredentials.Validate(); validationError != nil {
		return nil, validationError
	}

	document := ini.Empty()
	if len(existingContent) > 0 {
		loadedDocument, loadError := ini.Load(existingContent)
		if loadError != nil {
			return nil, fmt.Errorf(existingDocumentParseTemplateError, loadError)
		}
		document = loadedDocument
	}

	distutilsSection := document.Section(distutilsSectionNameConstant)
	distutilsSection.Key(indexServersKeyNameConstant).SetValue(mergeIndexServerList(distutilsSection.Key(indexServersKeyNameConstant).String(), sanitizedCredentials.IndexName))

	document.DeleteSection(sanitizedCredentials.IndexName)
	registrySection := document.Section(sanitizedCredentials.IndexName)
	registrySection.Key(repositoryKeyNameConstant).SetValue(sanitizedCredentials.RepositoryURL)
	registrySection.Key(usernameKeyNameConstant).SetValue(sanitizedCredentials.Username)
	registrySection.Key(passwordKeyNameConstant).SetValue(sanitizedCredentials.Password)

	var renderedDocument bytes.Buffer
	if _, writeError := document.WriteTo(&renderedDocument); writeError != nil {
		return nil, fmt.Errorf(documentRenderTemplateErrorFormat, writeError)
	}

	return renderedDocument.Bytes(), nil
}

func mergeIndexServerList(existingList string, indexName string) string {
	registeredServers := strings.Fields(existingList)
	for _, registeredServer := range registeredServers {
		if registeredServer == indexName {
			return strings.Join(registeredServers, indexServerListSeparatorConstant)
		}
	}
	registeredServers = append(registeredServers, indexName)
	return strings.Join(registeredServers, indexServerListSeparatorConstant)
}
