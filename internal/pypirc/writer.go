package pypirc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	credentialFileNameConstant          = "pypirc"
	scopedDirectoryPatternConstant      = "pypub-credentials-*"
	temporaryFilePatternConstant        = ".pypirc-*"
	credentialFilePermissionsConstant   = os.FileMode(0o600)
	targetPathMissingMessageConstant    = "credential file path must be provided"
	existingFileReadTemplateConstant    = "unable to read existing credential file %s: %w"
	temporaryFileCreateTemplateConstant = "unable to stage credential file in %s: %w"
	temporaryFileWriteTemplateConstant  = "unable to write credential file %s: %w"
	temporaryFileRenameTemplateConstant = "unable to finalize credential file %s: %w"
	scopedDirectoryCreateTemplateError  = "unable to create scoped credential directory: %w"
)

// WriteFile merges the credentials into the document at targetPath and writes it atomically with owner-only permissions.
func WriteFile(targetPath string, credentials Credentials) error {
	if len(targetPath) == 0 {
		return errors.New(targetPathMissingMessageConstant)
	}

	existingContent, readError := os.ReadFile(targetPath)
	if readError != nil {
		if !os.IsNotExist(readError) {
			return fmt.Errorf(existingFileReadTemplateConstant, targetPath, readError)
		}
		existingContent = nil
	}

	renderedDocument, mergeError := Merge(existingContent, credentials)
	if mergeError != nil {
		return mergeError
	}

	return writeAtomically(targetPath, renderedDocument)
}

// WriteScoped writes a fresh credential document inside a private temporary directory.
//
// The returned cleanup function removes the directory and must be called once
// the upload step no longer needs the file.
func WriteScoped(credentials Credentials) (string, func() error, error) {
	renderedDocument, renderError := Render(credentials)
	if renderError != nil {
		return "", nil, renderError
	}

	scopedDirectory, directoryError := os.MkdirTemp("", scopedDirectoryPatternConstant)
	if directoryError != nil {
		return "", nil, fmt.Errorf(scopedDirectoryCreateTemplateError, directoryError)
	}

	cleanup := func() error {
		return os.RemoveAll(scopedDirectory)
	}

	credentialFilePath := filepath.Join(scopedDirectory, credentialFileNameConstant)
	if writeError := writeAtomically(credentialFilePath, renderedDocument); writeError != nil {
		_ = cleanup()
		return "", nil, writeError
	}

	return credentialFilePath, cleanup, nil
}

func writeAtomically(targetPath string, content []byte) error {
	targetDirectory := filepath.Dir(targetPath)
	temporaryFile, temporaryFileError := os.CreateTemp(targetDirectory, temporaryFilePatternConstant)
	if temporaryFileError != nil {
		return fmt.Errorf(temporaryFileCreateTemplateConstant, targetDirectory, temporaryFileError)
	}
	temporaryFilePath := temporaryFile.Name()

	if chmodError := temporaryFile.Chmod(credentialFilePermissionsConstant); chmodError != nil {
		temporaryFile.Close()
		os.Remove(temporaryFilePath)
		return fmt.Errorf(temporaryFileWriteTemplateConstant, targetPath, chmodError)
	}

	if _, writeError := temporaryFile.Write(content); writeError != nil {
		temporaryFile.Close()
		os.Remove(temporaryFilePath)
		return fmt.Errorf(temporaryFileWriteTemplateConstant, targetPath, writeError)
	}

	if closeError := temporaryFile.Close(); closeError != nil {
		os.Remove(temporaryFilePath)
		return fmt.Errorf(temporaryFileWriteTemplateConstant, targetPath, closeError)
	}

	if renameError := os.Rename(temporaryFilePath, targetPath); renameError != nil {
		os.Remove(temporaryFilePath)
		return fmt.Errorf(temporaryFileRenameTemplateConstant, targetPath, renameError)
	}

	return nil
}
