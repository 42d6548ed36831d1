package credentials_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pypub/pypub/internal/credentials"
)

const (
	testEnvironmentVariableNameConstant = "PYPI_USERNAME"
	testEnvironmentValueConstant        = "alice"
	testSecretFilePathConstant          = "/secrets/pypi-password"
	testSecretFileContentConstant       = "secret\n"
	testFileReadFailureMessageConstant  = "permission denied"
)

func TestParseSource(testInstance *testing.T) {
	testCases := []struct {
		name                  string
		sourceValue           string
		expectedConfiguration credentials.SourceConfiguration
		expectError           bool
	}{
		{
			name:        "environment_source",
			sourceValue: "env:PYPI_USERNAME",
			expectedConfiguration: credentials.SourceConfiguration{
				Type:      credentials.SourceTypeEnvironment,
				Reference: testEnvironmentVariableNameConstant,
			},
		},
		{
			name:        "file_source",
			sourceValue: "file:" + testSecretFilePathConstant,
			expectedConfiguration: credentials.SourceConfiguration{
				Type:      credentials.SourceTypeFile,
				Reference: testSecretFilePathConstant,
			},
		},
		{
			name:        "bare_name_defaults_to_environment",
			sourceValue: testEnvironmentVariableNameConstant,
			expectedConfiguration: credentials.SourceConfiguration{
				Type:      credentials.SourceTypeEnvironment,
				Reference: testEnvironmentVariableNameConstant,
			},
		},
		{
			name:        "empty_source_rejected",
			sourceValue: "   ",
			expectError: true,
		},
		{
			name:        "missing_environment_name_rejected",
			sourceValue: "env:",
			expectError: true,
		},
		{
			name:        "unsupported_type_rejected",
			sourceValue: "vault:path/to/secret",
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			parsedConfiguration, parseError := credentials.ParseSource(testCase.sourceValue)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedConfiguration, parsedConfiguration)
		})
	}
}

func TestResolverResolveSecret(testInstance *testing.T) {
	testCases := []struct {
		name              string
		source            credentials.SourceConfiguration
		environmentValues map[string]string
		fileContents      map[string]string
		fileError         error
		expectedValue     string
		expectError       bool
	}{
		{
			name:              "environment_value_resolved",
			source:            credentials.SourceConfiguration{Type: credentials.SourceTypeEnvironment, Reference: testEnvironmentVariableNameConstant},
			environmentValues: map[string]string{testEnvironmentVariableNameConstant: testEnvironmentValueConstant},
			expectedValue:     testEnvironmentValueConstant,
		},
		{
			name:        "environment_value_missing",
			source:      credentials.SourceConfiguration{Type: credentials.SourceTypeEnvironment, Reference: testEnvironmentVariableNameConstant},
			expectError: true,
		},
		{
			name:              "environment_value_blank",
			source:            credentials.SourceConfiguration{Type: credentials.SourceTypeEnvironment, Reference: testEnvironmentVariableNameConstant},
			environmentValues: map[string]string{testEnvironmentVariableNameConstant: "   "},
			expectError:       true,
		},
		{
			name:          "file_value_resolved_and_trimmed",
			source:        credentials.SourceConfiguration{Type: credentials.SourceTypeFile, Reference: testSecretFilePathConstant},
			fileContents:  map[string]string{testSecretFilePathConstant: testSecretFileContentConstant},
			expectedValue: "secret",
		},
		{
			name:        "file_read_failure",
			source:      credentials.SourceConfiguration{Type: credentials.SourceTypeFile, Reference: testSecretFilePathConstant},
			fileError:   errors.New(testFileReadFailureMessageConstant),
			expectError: true,
		},
		{
			name:         "file_value_empty",
			source:       credentials.SourceConfiguration{Type: credentials.SourceTypeFile, Reference: testSecretFilePathConstant},
			fileContents: map[string]string{testSecretFilePathConstant: "  \n"},
			expectError:  true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			resolver := credentials.NewResolver(
				func(key string) (string, bool) {
					value, exists := testCase.environmentValues[key]
					return value, exists
				},
				func(path string) ([]byte, error) {
					if testCase.fileError != nil {
						return nil, testCase.fileError
					}
					content, exists := testCase.fileContents[path]
					if !exists {
						return nil, errors.New(testFileReadFailureMessageConstant)
					}
					return []byte(content), nil
				},
			)

			resolvedValue, resolutionError := resolver.ResolveSecret(context.Background(), testCase.source)
			if testCase.expectError {
				require.Error(testInstance, resolutionError)
				return
			}
			require.NoError(testInstance, resolutionError)
			require.Equal(testInstance, testCase.expectedValue, resolvedValue)
		})
	}
}
