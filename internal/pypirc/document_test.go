package pypirc_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"

	"github.com/pypub/pypub/internal/pypirc"
)

const (
	testUsernameConstant           = "alice"
	testPasswordConstant           = "secret"
	testAlternateIndexNameConstant = "testpypi"
	testAlternateRepositoryURL     = "https://test.pypi.org/legacy/"
)

func parseDocument(testInstance *testing.T, content []byte) *ini.File {
	document, parseError := ini.Load(content)
	require.NoError(testInstance, parseError)
	return document
}

func countSections(document *ini.File, sectionName string) int {
	sectionCount := 0
	for _, candidateName := range document.SectionStrings() {
		if candidateName == sectionName {
			sectionCount++
		}
	}
	return sectionCount
}

func TestRenderProducesSingleRegistrySection(testInstance *testing.T) {
	renderedDocument, renderError := pypirc.Render(pypirc.Credentials{
		Username: testUsernameConstant,
		Password: testPasswordConstant,
	})
	require.NoError(testInstance, renderError)

	document := parseDocument(testInstance, renderedDocument)
	require.Equal(testInstance, 1, countSections(document, pypirc.DefaultIndexName))

	distutilsSection := document.Section("distutils")
	require.Equal(testInstance, pypirc.DefaultIndexName, distutilsSection.Key("index-servers").String())

	registrySection := document.Section(pypirc.DefaultIndexName)
	require.Equal(testInstance, pypirc.DefaultRepositoryURL, registrySection.Key("repository").String())
	require.Equal(testInstance, testUsernameConstant, registrySection.Key("username").String())
	require.Equal(testInstance, testPasswordConstant, registrySection.Key("password").String())
}

func TestMergeReplacesExistingSectionWithoutDuplicates(testInstance *testing.T) {
	firstDocument, firstRenderError := pypirc.Render(pypirc.Credentials{
		Username: testUsernameConstant,
		Password: testPasswordConstant,
	})
	require.NoError(testInstance, firstRenderError)

	secondDocument, mergeError := pypirc.Merge(firstDocument, pypirc.Credentials{
		Username: "bob",
		Password: "rotated",
	})
	require.NoError(testInstance, mergeError)

	document := parseDocument(testInstance, secondDocument)
	require.Equal(testInstance, 1, countSections(document, pypirc.DefaultIndexName))
	require.Equal(testInstance, pypirc.DefaultIndexName, document.Section("distutils").Key("index-servers").String())

	registrySection := document.Section(pypirc.DefaultIndexName)
	require.Equal(testInstance, "bob", registrySection.Key("username").String())
	require.Equal(testInstance, "rotated", registrySection.Key("password").String())
}

func TestMergePreservesOtherRegistrySections(testInstance *testing.T) {
	baseDocument, baseRenderError := pypirc.Render(pypirc.Credentials{
		IndexName:     testAlternateIndexNameConstant,
		RepositoryURL: testAlternateRepositoryURL,
		Username:      testUsernameConstant,
		Password:      testPasswordConstant,
	})
	require.NoError(testInstance, baseRenderError)

	mergedDocument, mergeError := pypirc.Merge(baseDocument, pypirc.Credentials{
		Username: testUsernameConstant,
		Password: testPasswordConstant,
	})
	require.NoError(testInstance, mergeError)

	document := parseDocument(testInstance, mergedDocument)
	require.Equal(testInstance, 1, countSections(document, pypirc.DefaultIndexName))
	require.Equal(testInstance, 1, countSections(document, testAlternateIndexNameConstant))

	indexServers := document.Section("distutils").Key("index-servers").String()
	require.Contains(testInstance, indexServers, pypirc.DefaultIndexName)
	require.Contains(testInstance, indexServers, testAlternateIndexNameConstant)
}

func TestRenderValidatesCredentials(testInstance *testing.T) {
	testCases := []struct {
		name        string
		credentials pypirc.Credentials
	}{
		{
			name:        "missing_username",
			credentials: pypirc.Credentials{Password: testPasswordConstant},
		},
		{
			name:        "missing_password",
			credentials: pypirc.Credentials{Username: testUsernameConstant},
		},
		{
			name:        "blank_username",
			credentials: pypirc.Credentials{Username: "   ", Password: testPasswordConstant},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			renderedDocument, renderError := pypirc.Render(testCase.credentials)
			require.Error(testInstance, renderError)
			require.Nil(testInstance, renderedDocument)
		})
	}
}
