package pypirc_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"

	"github.com/pypub/pypub/internal/pypirc"
)

const (
	testCredentialFileNameConstant = ".pypirc"
)

func TestWriteFileCreatesDocumentWithRestrictivePermissions(testInstance *testing.T) {
	targetPath := filepath.Join(testInstance.TempDir(), testCredentialFileNameConstant)

	writeError := pypirc.WriteFile(targetPath, pypirc.Credentials{
		Username: testUsernameConstant,
		Password: testPasswordConstant,
	})
	require.NoError(testInstance, writeError)

	fileInformation, statError := os.Stat(targetPath)
	require.NoError(testInstance, statError)
	require.Equal(testInstance, os.FileMode(0o600), fileInformation.Mode().Perm())
}

func TestWriteFileRewritesIdempotently(testInstance *testing.T) {
	targetPath := filepath.Join(testInstance.TempDir(), testCredentialFileNameConstant)
	publisherCredentials := pypirc.Credentials{
		Username: testUsernameConstant,
		Password: testPasswordConstant,
	}

	require.NoError(testInstance, pypirc.WriteFile(targetPath, publisherCredentials))
	require.NoError(testInstance, pypirc.WriteFile(targetPath, publisherCredentials))

	document, parseError := ini.Load(targetPath)
	require.NoError(testInstance, parseError)
	require.Equal(testInstance, 1, countSections(document, pypirc.DefaultIndexName))
	require.Equal(testInstance, testUsernameConstant, document.Section(pypirc.DefaultIndexName).Key("username").String())
}

func TestWriteFileRejectsIncompleteCredentialsWithoutWriting(testInstance *testing.T) {
	targetPath := filepath.Join(testInstance.TempDir(), testCredentialFileNameConstant)

	writeError := pypirc.WriteFile(targetPath, pypirc.Credentials{Username: testUsernameConstant})
	require.Error(testInstance, writeError)

	_, statError := os.Stat(targetPath)
	require.True(testInstance, os.IsNotExist(statError))
}

func TestWriteScopedConfinesAndRemovesSecret(testInstance *testing.T) {
	credentialFilePath, cleanup, writeError := pypirc.WriteScoped(pypirc.Credentials{
		Username: testUsernameConstant,
		Password: testPasswordConstant,
	})
	require.NoError(testInstance, writeError)
	require.NotNil(testInstance, cleanup)

	fileInformation, statError := os.Stat(credentialFilePath)
	require.NoError(testInstance, statError)
	require.Equal(testInstance, os.FileMode(0o600), fileInformation.Mode().Perm())

	document, parseError := ini.Load(credentialFilePath)
	require.NoError(testInstance, parseError)
	require.Equal(testInstance, testPasswordConstant, document.Section(pypirc.DefaultIndexName).Key("password").String())

	require.NoError(testInstance, cleanup())

	_, removedStatError := os.Stat(credentialFilePath)
	require.True(testInstance, os.IsNotExist(removedStatError))
}
